package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/privops"
)

func TestAuditListEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "root@zooarc.example", privops.RoleSuperadmin)
	token := env.login(t, "root@zooarc.example")

	seedTenant(t, env, "okapi", "okapi.example")
	seedSpecimen(t, env, "okapi.example", "Zuri", "Okapia johnstoni")

	resp, body := env.request(t, http.MethodGet, "/api/v1/admin/audit/?operation=record.create", nil, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if p := env.page(t, body); p.Total != 1 {
		t.Fatalf("record.create total = %d, want 1", p.Total)
	}

	// login itself is audited
	_, body = env.request(t, http.MethodGet, "/api/v1/admin/audit/?operation=operator.login", nil, token, nil)
	if p := env.page(t, body); p.Total != 1 {
		t.Fatalf("operator.login total = %d, want 1", p.Total)
	}

	resp, _ = env.request(t, http.MethodGet, "/api/v1/admin/audit/?from=not-a-time", nil, token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad from status = %d, want 400", resp.StatusCode)
	}
}

func TestAuditExportEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "root@zooarc.example", privops.RoleSuperadmin)
	token := env.login(t, "root@zooarc.example")
	seedTenant(t, env, "okapi", "okapi.example")

	resp, body := env.request(t, http.MethodGet, "/api/v1/admin/audit/export?format=csv&operation=operator.login", nil, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("Content-Type = %q, want text/csv", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(string(body.Data), "operator.login") {
		t.Fatal("csv export missing the login entry")
	}

	resp, _ = env.request(t, http.MethodGet, "/api/v1/admin/audit/export?format=xml", nil, token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown format status = %d, want 400", resp.StatusCode)
	}
}

func TestAuditExportRequiresPermission(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "viewer@zooarc.example", privops.RoleReadOnly)
	token := env.login(t, "viewer@zooarc.example")

	// read_only may read the ledger but not export it
	resp, _ := env.request(t, http.MethodGet, "/api/v1/admin/audit/", nil, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	resp, _ = env.request(t, http.MethodGet, "/api/v1/admin/audit/export", nil, token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("export status = %d, want 403", resp.StatusCode)
	}
}

func TestAuditStatisticsEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "root@zooarc.example", privops.RoleSuperadmin)
	token := env.login(t, "root@zooarc.example")
	seedTenant(t, env, "okapi", "okapi.example")

	resp, body := env.request(t, http.MethodGet, "/api/v1/admin/audit/statistics", nil, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("statistics status = %d", resp.StatusCode)
	}
	var stats audit.Statistics
	if err := json.Unmarshal(body.Data, &stats); err != nil {
		t.Fatalf("decode statistics: %v", err)
	}
	if stats.Total < 2 {
		t.Fatalf("Total = %d, want at least the login and tenant.create entries", stats.Total)
	}
}

func TestAuditIntegrityEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "root@zooarc.example", privops.RoleSuperadmin)
	token := env.login(t, "root@zooarc.example")

	res, err := env.ledger.Query(context.Background(), audit.Filter{Operation: audit.OpOperatorLogin})
	if err != nil || len(res.List) != 1 {
		t.Fatalf("query login entry: %v (n=%d)", err, len(res.List))
	}
	entry := res.List[0]

	resp, body := env.request(t, http.MethodGet, "/api/v1/admin/audit/"+jsonID(entry.ID)+"/integrity", nil, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("integrity status = %d", resp.StatusCode)
	}
	var ir integrityResponse
	if err := json.Unmarshal(body.Data, &ir); err != nil {
		t.Fatalf("decode integrity: %v", err)
	}
	if !ir.Valid {
		t.Fatalf("Valid = false, error %q", ir.Error)
	}

	// tamper with the stored row and verify again
	if err := env.db.Model(&audit.Entry{}).Where("id = ?", entry.ID).
		Update("operation", audit.OpTenantRestore).Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}
	_, body = env.request(t, http.MethodGet, "/api/v1/admin/audit/"+jsonID(entry.ID)+"/integrity", nil, token, nil)
	if err := json.Unmarshal(body.Data, &ir); err != nil {
		t.Fatalf("decode integrity: %v", err)
	}
	if ir.Valid {
		t.Fatal("expected tampered entry to fail verification")
	}
}
