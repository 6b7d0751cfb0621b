package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/middleware"
	"github.com/zooarc/menagerie/privops"
	"github.com/zooarc/menagerie/records"
	"github.com/zooarc/menagerie/tenant"

	"github.com/gofiber/fiber/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const apiTestPassword = "Correct-Horse-42"

type apiEnv struct {
	app    *fiber.App
	db     *gorm.DB
	mgr    *privops.Manager
	dir    *tenant.Directory
	ledger *audit.Ledger
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&tenant.Tenant{},
		&privops.Operator{},
		&privops.Session{},
		&audit.Entry{},
		&records.Specimen{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ledger, err := audit.NewLedger(db, "api-test-secret", nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	recorder := audit.NewRecorder(ledger, nil, nil)
	dir := tenant.NewDirectory(db, nil)
	mgr := privops.NewManager(db, dir, recorder, privops.Config{}, nil)
	svc := records.NewService(db, recorder, nil)

	h := NewHandlers(mgr, dir, ledger, recorder, svc, nil)
	app := fiber.New()
	RegisterRoutes(app, h, tenant.NewResolver(dir, nil))

	return &apiEnv{app: app, db: db, mgr: mgr, dir: dir, ledger: ledger}
}

func (e *apiEnv) createOperator(t *testing.T, email string, role privops.Role) *privops.Operator {
	t.Helper()
	op, err := e.mgr.CreateOperator(context.Background(), &privops.Operator{Email: "system@zooarc.example"},
		privops.CreateOperatorParams{
			Email:       email,
			DisplayName: "Test Operator",
			Password:    apiTestPassword,
			Role:        role,
		}, privops.ClientInfo{})
	if err != nil {
		t.Fatalf("create operator: %v", err)
	}
	return op
}

func (e *apiEnv) login(t *testing.T, email string) string {
	t.Helper()
	sess, err := e.mgr.Authenticate(context.Background(), email, apiTestPassword, privops.ClientInfo{})
	if err != nil {
		t.Fatalf("authenticate %s: %v", email, err)
	}
	return sess.Token
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type pageEnvelope struct {
	List     json.RawMessage `json:"list"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// request performs one call and decodes the response envelope.
func (e *apiEnv) request(t *testing.T, method, path string, body any, token string, headers map[string]string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			// csv export and other non-envelope bodies land here
			env.Data = raw
		}
	}
	return resp, env
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func seedTenant(t *testing.T, env *apiEnv, name, domain string) *tenant.Tenant {
	t.Helper()
	tn := &tenant.Tenant{Name: name, Domain: domain}
	if err := env.dir.Create(context.Background(), tn); err != nil {
		t.Fatalf("create tenant %s: %v", name, err)
	}
	return tn
}

// seedSpecimen creates a record through the tenant surface, resolving
// the tenant from the email domain signal.
func seedSpecimen(t *testing.T, env *apiEnv, emailDomain, name, species string) int64 {
	t.Helper()
	resp, body := env.request(t, http.MethodPost, "/api/v1/specimens/",
		map[string]string{"name": name, "species": species}, "",
		map[string]string{middleware.HeaderUserEmail: "keeper@" + emailDomain})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seed specimen status = %d, msg %q", resp.StatusCode, body.Msg)
	}
	var sp records.Specimen
	if err := json.Unmarshal(body.Data, &sp); err != nil {
		t.Fatalf("decode specimen: %v", err)
	}
	return sp.ID
}

func (e *apiEnv) page(t *testing.T, env envelope) pageEnvelope {
	t.Helper()
	var p pageEnvelope
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return p
}
