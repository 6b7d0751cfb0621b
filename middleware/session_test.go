package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/privops"
	"github.com/zooarc/menagerie/repository"
	"github.com/zooarc/menagerie/tenant"

	"github.com/gofiber/fiber/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestManager(t *testing.T) (*privops.Manager, *tenant.Directory) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&privops.Operator{}, &privops.Session{}, &tenant.Tenant{}, &audit.Entry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ledger, err := audit.NewLedger(db, "middleware-test-secret", nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	dir := tenant.NewDirectory(db, nil)
	return privops.NewManager(db, dir, audit.NewRecorder(ledger, nil, nil), privops.Config{}, nil), dir
}

func TestRequireSession(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.CreateOperator(ctx, &privops.Operator{Email: "system@zooarc.example"}, privops.CreateOperatorParams{
		Email:    "keeper@zooarc.example",
		Password: "Correct-Horse-42",
		Role:     privops.RoleSuperadmin,
	}, privops.ClientInfo{})
	if err != nil {
		t.Fatalf("create operator: %v", err)
	}
	sess, err := mgr.Authenticate(ctx, "keeper@zooarc.example", "Correct-Horse-42", privops.ClientInfo{})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	app := fiber.New()
	app.Get("/admin", RequireSession(mgr, []string{privops.PermTenantsRead}, privops.RequireAll), func(c fiber.Ctx) error {
		op, ok := OperatorFromCtx(c)
		if !ok || op.Email != "keeper@zooarc.example" {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		if _, ok := SessionFromCtx(c); !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		if _, ok := repository.TenantFromContext(c.Context()); !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+sess.Token)
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// Missing token.
	req = httptest.NewRequest("GET", "/admin", nil)
	resp, err = app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", resp.StatusCode)
	}

	// Garbage token.
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer nope")
	resp, err = app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", resp.StatusCode)
	}
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/t", func(c fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	req := httptest.NewRequest("GET", "/t", nil)
	req.Header.Set(fiber.HeaderAuthorization, "bearer abc123")
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	if got := string(buf[:n]); got != "abc123" {
		t.Fatalf("token = %q", got)
	}
}
