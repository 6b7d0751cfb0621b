package conf

import (
	"github.com/zooarc/menagerie/alert"
	"github.com/zooarc/menagerie/cache/redis"
	"github.com/zooarc/menagerie/database/mysql"
	"github.com/zooarc/menagerie/database/postgres"
	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/middleware"
	"github.com/zooarc/menagerie/mq"
	"github.com/zooarc/menagerie/privops"
	"github.com/zooarc/menagerie/shutdown"
	transporthttp "github.com/zooarc/menagerie/transport/http"
)

/* ========================================================================
 * Application configuration
 * ========================================================================
 * The root document assembled from the per-package config sections.
 * Environment overrides use the MENAGERIE_ prefix with dots replaced
 * by underscores, e.g. MENAGERIE_DATABASE_PASSWORD.
 * ======================================================================== */

// DatabaseConfig selects and configures the storage driver.
type DatabaseConfig struct {
	// Driver is postgres (default) or mysql.
	Driver   string          `yaml:"driver"`
	Postgres postgres.Config `yaml:"postgres"`
	MySQL    mysql.Config    `yaml:"mysql"`
}

// AuditConfig keys the audit ledger.
type AuditConfig struct {
	// Secret signs every entry's integrity hash. Required.
	Secret string `yaml:"secret"`
}

// AppConfig is the root configuration document.
type AppConfig struct {
	Server    transporthttp.Config               `yaml:"server"`
	Database  DatabaseConfig                     `yaml:"database"`
	Redis     redis.Config                       `yaml:"redis"`
	MQ        mq.Config                          `yaml:"mq"`
	Alert     alert.Config                       `yaml:"alert"`
	Logger    logger.Config                      `yaml:"logger"`
	Session   privops.Config                     `yaml:"session"`
	Audit     AuditConfig                        `yaml:"audit"`
	Principal middleware.PrincipalVerifierConfig `yaml:"principal"`
	Shutdown  shutdown.Config                    `yaml:"shutdown"`
}

// LoadApp reads the root document from configPath/configName.configType.
func LoadApp(configPath, configName, configType string) (*AppConfig, error) {
	var cfg AppConfig
	if err := NewLoader(configPath, configName, configType).Load(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
