package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/zooarc/menagerie/middleware"
	"github.com/zooarc/menagerie/privops"
	"github.com/zooarc/menagerie/records"
)

func tenantHeaders(id int64) map[string]string {
	return map[string]string{middleware.HeaderTenantClaim: jsonID(id)}
}

func TestSpecimenTenantSurface(t *testing.T) {
	env := newAPIEnv(t)
	a := seedTenant(t, env, "okapi", "okapi.example")
	b := seedTenant(t, env, "pangolin", "pangolin.example")

	id := seedSpecimen(t, env, "okapi.example", "Zuri", "Okapia johnstoni")

	// the owning tenant sees the record
	resp, body := env.request(t, http.MethodGet, "/api/v1/specimens/", nil, "", tenantHeaders(a.ID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if p := env.page(t, body); p.Total != 1 {
		t.Fatalf("owner listing total = %d, want 1", p.Total)
	}

	// another tenant sees nothing, and a direct get misses
	_, body = env.request(t, http.MethodGet, "/api/v1/specimens/", nil, "", tenantHeaders(b.ID))
	if p := env.page(t, body); p.Total != 0 {
		t.Fatalf("foreign listing total = %d, want 0", p.Total)
	}
	resp, _ = env.request(t, http.MethodGet, "/api/v1/specimens/"+jsonID(id), nil, "", tenantHeaders(b.ID))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign get status = %d, want 404", resp.StatusCode)
	}

	// no tenant signal at all fails closed
	resp, _ = env.request(t, http.MethodGet, "/api/v1/specimens/", nil, "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unresolved status = %d, want 401", resp.StatusCode)
	}
}

func TestSpecimenUpdateAndDelete(t *testing.T) {
	env := newAPIEnv(t)
	a := seedTenant(t, env, "okapi", "okapi.example")
	id := seedSpecimen(t, env, "okapi.example", "Zuri", "Okapia johnstoni")

	resp, body := env.request(t, http.MethodPatch, "/api/v1/specimens/"+jsonID(id),
		map[string]string{"enclosure": "Forest Dome"}, "", tenantHeaders(a.ID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, msg %q", resp.StatusCode, body.Msg)
	}
	var sp records.Specimen
	if err := json.Unmarshal(body.Data, &sp); err != nil {
		t.Fatalf("decode specimen: %v", err)
	}
	if sp.Enclosure != "Forest Dome" {
		t.Fatalf("Enclosure = %q", sp.Enclosure)
	}

	resp, _ = env.request(t, http.MethodDelete, "/api/v1/specimens/"+jsonID(id), nil, "", tenantHeaders(a.ID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = env.request(t, http.MethodGet, "/api/v1/specimens/"+jsonID(id), nil, "", tenantHeaders(a.ID))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestSpecimenValidation(t *testing.T) {
	env := newAPIEnv(t)
	a := seedTenant(t, env, "okapi", "okapi.example")

	resp, _ := env.request(t, http.MethodPost, "/api/v1/specimens/",
		map[string]string{"species": "Okapia johnstoni"}, "", tenantHeaders(a.ID))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing name status = %d, want 400", resp.StatusCode)
	}

	resp, _ = env.request(t, http.MethodPost, "/api/v1/specimens/",
		map[string]string{"name": "Zuri", "species": "Okapia johnstoni", "sex": "other"}, "", tenantHeaders(a.ID))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad sex status = %d, want 400", resp.StatusCode)
	}
}

func TestSpecimenOperatorWriteGuard(t *testing.T) {
	env := newAPIEnv(t)
	seedTenant(t, env, "okapi", "okapi.example")
	env.createOperator(t, "root@zooarc.example", privops.RoleSuperadmin)
	env.createOperator(t, "viewer@zooarc.example", privops.RoleReadOnly)
	rootToken := env.login(t, "root@zooarc.example")
	viewerToken := env.login(t, "viewer@zooarc.example")

	// a read-only operator can list but not mutate
	resp, _ := env.request(t, http.MethodGet, "/api/v1/specimens/", nil, viewerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("viewer list status = %d", resp.StatusCode)
	}
	resp, _ = env.request(t, http.MethodPost, "/api/v1/specimens/",
		map[string]string{"name": "Zuri", "species": "Okapia johnstoni"}, viewerToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("viewer create status = %d, want 403", resp.StatusCode)
	}

	// a superadmin session outside impersonation carries no tenant, so
	// writes still fail closed
	resp, _ = env.request(t, http.MethodPost, "/api/v1/specimens/",
		map[string]string{"name": "Zuri", "species": "Okapia johnstoni"}, rootToken, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unscoped create status = %d, want 401", resp.StatusCode)
	}
}
