package middleware

import (
	"context"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/zooarc/menagerie/repository"
	"github.com/zooarc/menagerie/tenant"

	"github.com/gofiber/fiber/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDirectory(t *testing.T) *tenant.Directory {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&tenant.Tenant{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return tenant.NewDirectory(db, nil)
}

func TestTenantResolutionMiddleware(t *testing.T) {
	dir := newTestDirectory(t)
	tn := &tenant.Tenant{Name: "okapi", Domain: "zoo.example"}
	if err := dir.Create(context.Background(), tn); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	app := fiber.New()
	app.Use(TenantResolution(tenant.NewResolver(dir, nil), nil))
	app.Get("/records", func(c fiber.Ctx) error {
		tc, ok := repository.TenantFromContext(c.Context())
		if !ok || !tc.Resolved() {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(strconv.FormatInt(tc.TenantID, 10))
	})
	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	// Email domain resolves the tenant.
	req := httptest.NewRequest("GET", "/records", nil)
	req.Header.Set(HeaderUserEmail, "keeper@zoo.example")
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// Explicit claim wins.
	req = httptest.NewRequest("GET", "/records", nil)
	req.Header.Set(HeaderTenantClaim, strconv.FormatInt(tn.ID, 10))
	resp, err = app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("claim status = %d, want 200", resp.StatusCode)
	}

	// No signal fails closed.
	req = httptest.NewRequest("GET", "/records", nil)
	resp, err = app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("unresolved status = %d, want 401", resp.StatusCode)
	}

	// Infrastructure paths skip resolution.
	req = httptest.NewRequest("GET", "/healthz", nil)
	resp, err = app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestTenantResolutionSuspended(t *testing.T) {
	dir := newTestDirectory(t)
	tn := &tenant.Tenant{Name: "okapi", Domain: "zoo.example"}
	if err := dir.Create(context.Background(), tn); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	if err := dir.Suspend(context.Background(), tn.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	app := fiber.New()
	app.Use(TenantResolution(tenant.NewResolver(dir, nil), nil))
	app.Get("/records", func(c fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest("GET", "/records", nil)
	req.Header.Set(HeaderUserEmail, "keeper@zoo.example")
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("suspended status = %d, want 403", resp.StatusCode)
	}
}
