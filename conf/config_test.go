package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testDoc = `
server:
  port: 8080
  app_name: "Menagerie"
database:
  driver: postgres
  postgres:
    host: ${MENAGERIE_TEST_DB_HOST:-localhost}
    port: 5432
    user: menagerie
    password: ${MENAGERIE_TEST_DB_PASSWORD:-}
    dbname: menagerie
session:
  session_ttl: 45m
  max_failed_logins: 3
audit:
  secret: test-ledger-secret
principal:
  enabled: true
  allowed_issuers:
    - gateway
mq:
  type: kafka
  kafka:
    brokers:
      - broker-1:9092
`

func writeTestConfig(t *testing.T, doc string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadApp(t *testing.T) {
	dir := writeTestConfig(t, testDoc)

	cfg, err := LoadApp(dir, "config", "yaml")
	if err != nil {
		t.Fatalf("LoadApp: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.AppName != "Menagerie" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Fatalf("Database.Host = %q, want placeholder default", cfg.Database.Postgres.Host)
	}
	if cfg.Session.SessionTTL != 45*time.Minute {
		t.Fatalf("SessionTTL = %v, want 45m", cfg.Session.SessionTTL)
	}
	if cfg.Session.MaxFailedLogins != 3 {
		t.Fatalf("MaxFailedLogins = %d", cfg.Session.MaxFailedLogins)
	}
	if cfg.Audit.Secret != "test-ledger-secret" {
		t.Fatalf("Audit.Secret = %q", cfg.Audit.Secret)
	}
	if !cfg.Principal.Enabled || len(cfg.Principal.AllowedIssuers) != 1 {
		t.Fatalf("principal = %+v", cfg.Principal)
	}
	if string(cfg.MQ.Type) != "kafka" || len(cfg.MQ.Kafka.Brokers) != 1 {
		t.Fatalf("mq = %+v", cfg.MQ)
	}
}

func TestLoadAppEnvPlaceholder(t *testing.T) {
	t.Setenv("MENAGERIE_TEST_DB_HOST", "db.internal")
	dir := writeTestConfig(t, testDoc)

	cfg, err := LoadApp(dir, "config", "yaml")
	if err != nil {
		t.Fatalf("LoadApp: %v", err)
	}
	if cfg.Database.Postgres.Host != "db.internal" {
		t.Fatalf("Database.Host = %q, want env value", cfg.Database.Postgres.Host)
	}
}

func TestLoadAppMissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadApp(t.TempDir(), "config", "yaml")
	if err != nil {
		t.Fatalf("LoadApp on empty dir: %v", err)
	}
	if cfg.Server.Port != 0 {
		t.Fatalf("expected zero config, got %+v", cfg.Server)
	}
}
