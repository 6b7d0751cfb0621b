package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/zooarc/menagerie/privops"
)

func TestLoginEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "root@zooarc.example", privops.RoleSuperadmin)

	resp, body := env.request(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "root@zooarc.example", "password": apiTestPassword}, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, msg %q", resp.StatusCode, body.Msg)
	}

	var data loginResponse
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	if data.Token == "" {
		t.Fatal("expected a session token")
	}
	if data.ExpiresAt.IsZero() {
		t.Fatal("expected an expiry")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "root@zooarc.example", privops.RoleSuperadmin)

	resp, _ := env.request(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "root@zooarc.example", "password": "wrong-password"}, "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", resp.StatusCode)
	}

	resp, _ = env.request(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "not-an-email", "password": "x"}, "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid email status = %d, want 400", resp.StatusCode)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "root@zooarc.example", privops.RoleSuperadmin)
	token := env.login(t, "root@zooarc.example")

	for i := 0; i < 2; i++ {
		resp, _ := env.request(t, http.MethodPost, "/api/v1/auth/logout", nil, token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("logout #%d status = %d, want 200", i+1, resp.StatusCode)
		}
	}

	// the token is dead now
	resp, _ := env.request(t, http.MethodGet, "/api/v1/admin/tenants/", nil, token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("post-logout status = %d, want 401", resp.StatusCode)
	}
}

func TestImpersonationFlow(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "root@zooarc.example", privops.RoleSuperadmin)
	token := env.login(t, "root@zooarc.example")

	tn := seedTenant(t, env, "okapi", "okapi.example")
	seedSpecimen(t, env, "okapi.example", "Zuri", "Okapia johnstoni")

	resp, body := env.request(t, http.MethodPost, "/api/v1/auth/impersonation",
		map[string]any{"tenant_id": jsonID(tn.ID), "duration_minutes": 30}, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("impersonation status = %d, msg %q", resp.StatusCode, body.Msg)
	}
	var data impersonateResponse
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode impersonation data: %v", err)
	}
	if data.Token == "" || data.Token == token {
		t.Fatal("expected a fresh impersonation token")
	}
	if data.TenantID != tn.ID {
		t.Fatalf("TenantID = %d, want %d", data.TenantID, tn.ID)
	}

	// the impersonation session sees the target tenant's records
	resp, body = env.request(t, http.MethodGet, "/api/v1/specimens/", nil, data.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("specimens via impersonation status = %d", resp.StatusCode)
	}
	if p := env.page(t, body); p.Total != 1 {
		t.Fatalf("impersonated listing total = %d, want 1", p.Total)
	}

	// ending twice stays successful
	for i := 0; i < 2; i++ {
		resp, _ = env.request(t, http.MethodDelete, "/api/v1/auth/impersonation", nil, data.Token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("end impersonation #%d status = %d", i+1, resp.StatusCode)
		}
	}
}

func TestImpersonationRequiresPermission(t *testing.T) {
	env := newAPIEnv(t)
	env.createOperator(t, "viewer@zooarc.example", privops.RoleReadOnly)
	token := env.login(t, "viewer@zooarc.example")
	tn := seedTenant(t, env, "okapi", "okapi.example")

	resp, _ := env.request(t, http.MethodPost, "/api/v1/auth/impersonation",
		map[string]any{"tenant_id": jsonID(tn.ID)}, token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("impersonation without permission status = %d, want 403", resp.StatusCode)
	}
}
