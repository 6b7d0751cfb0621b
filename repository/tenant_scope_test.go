package repository

import (
	"context"
	"testing"

	"github.com/zooarc/menagerie/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type enclosureRecord struct {
	TenantModel
	Name     string `gorm:"column:name"`
	Capacity int    `gorm:"column:capacity"`
}

// habitatNote is a directory-level record not owned by any tenant.
type habitatNote struct {
	SharedModel
	Body string `gorm:"column:body"`
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&enclosureRecord{}, &habitatNote{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func tenantCtx(tenantID int64) context.Context {
	return WithTenantContext(context.Background(), TenantContext{TenantID: tenantID})
}

func seedEnclosures(t *testing.T, repo Repository[enclosureRecord]) (int64, int64, *enclosureRecord, *enclosureRecord) {
	t.Helper()
	tenantA, tenantB := int64(101), int64(202)

	a := &enclosureRecord{Name: "okapi paddock", Capacity: 4}
	b := &enclosureRecord{Name: "aviary", Capacity: 40}

	if err := repo.Create(tenantCtx(tenantA), a); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := repo.Create(tenantCtx(tenantB), b); err != nil {
		t.Fatalf("create b: %v", err)
	}
	return tenantA, tenantB, a, b
}

func TestCreateStampsTenant(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)

	rec := &enclosureRecord{Name: "reptile house"}
	if err := repo.Create(tenantCtx(7), rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.TenantID != 7 {
		t.Fatalf("expected tenant id 7 stamped, got %d", rec.TenantID)
	}
	if rec.ID == 0 {
		t.Fatalf("expected generated id")
	}
}

func TestCreateWithoutTenantRejected(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)

	err := repo.Create(context.Background(), &enclosureRecord{Name: "orphan"})
	if !errors.Is(err, errors.ErrTenantRequired) {
		t.Fatalf("expected tenant required, got %v", err)
	}

	err = repo.Create(tenantCtx(0), &enclosureRecord{Name: "zero tenant"})
	if !errors.Is(err, errors.ErrTenantRequired) {
		t.Fatalf("expected tenant required for zero tenant, got %v", err)
	}
}

func TestCreateWithForeignTenantPresetRejected(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)

	rec := &enclosureRecord{Name: "preset"}
	rec.TenantID = 999
	err := repo.Create(tenantCtx(7), rec)
	if !errors.Is(err, errors.ErrCrossTenantWrite) {
		t.Fatalf("expected cross-tenant write rejection, got %v", err)
	}
}

func TestReadsFailClosedWithoutTenant(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)
	_, _, a, _ := seedEnclosures(t, repo)

	bare := context.Background()

	if _, err := repo.FindByID(bare, a.ID); !errors.IsNotFound(err) {
		t.Fatalf("expected not found without tenant context, got %v", err)
	}

	list, err := repo.FindByQuery(bare, "")
	if err != nil {
		t.Fatalf("find by query: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no rows without tenant context, got %d", len(list))
	}

	count, err := repo.Count(bare, "")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero count without tenant context, got %d", count)
	}

	exists, err := repo.Exists(bare, "name = ?", a.Name)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false without tenant context")
	}
}

func TestReadsScopedToTenant(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)
	tenantA, _, a, b := seedEnclosures(t, repo)

	ctxA := tenantCtx(tenantA)

	found, err := repo.FindByID(ctxA, a.ID)
	if err != nil {
		t.Fatalf("find own record: %v", err)
	}
	if found.Name != a.Name {
		t.Fatalf("expected %q, got %q", a.Name, found.Name)
	}

	// A foreign record is indistinguishable from a missing one.
	if _, err := repo.FindByID(ctxA, b.ID); !errors.IsNotFound(err) {
		t.Fatalf("expected not found for foreign record, got %v", err)
	}

	list, err := repo.FindByQuery(ctxA, "")
	if err != nil {
		t.Fatalf("find by query: %v", err)
	}
	if len(list) != 1 || list[0].TenantID != tenantA {
		t.Fatalf("expected exactly own tenant rows, got %+v", list)
	}
}

func TestUpdateCrossTenantRejected(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)
	_, tenantB, a, _ := seedEnclosures(t, repo)

	// Record belongs to tenant A, request resolves tenant B.
	a.Name = "hijacked"
	err := repo.Update(tenantCtx(tenantB), a)
	if !errors.Is(err, errors.ErrCrossTenantWrite) {
		t.Fatalf("expected cross-tenant write rejection, got %v", err)
	}
}

func TestUpdateWithoutTenantRejected(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)
	_, _, a, _ := seedEnclosures(t, repo)

	a.Name = "renamed"
	err := repo.Update(context.Background(), a)
	if !errors.Is(err, errors.ErrTenantRequired) {
		t.Fatalf("expected tenant required, got %v", err)
	}
}

func TestWritesByIDWithoutTenantRejected(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)
	_, _, a, _ := seedEnclosures(t, repo)

	// Id-based mutations must be rejected as tenant_required, not
	// reported as a missing record.
	err := repo.UpdateByID(context.Background(), a.ID, map[string]any{"name": "stolen"})
	if !errors.Is(err, errors.ErrTenantRequired) {
		t.Fatalf("expected tenant required on update, got %v", err)
	}
	if err := repo.Delete(context.Background(), a.ID); !errors.Is(err, errors.ErrTenantRequired) {
		t.Fatalf("expected tenant required on delete, got %v", err)
	}
	if err := repo.DeleteBatch(context.Background(), []int64{a.ID}); !errors.Is(err, errors.ErrTenantRequired) {
		t.Fatalf("expected tenant required on batch delete, got %v", err)
	}
	if err := repo.HardDelete(context.Background(), a.ID); !errors.Is(err, errors.ErrTenantRequired) {
		t.Fatalf("expected tenant required on hard delete, got %v", err)
	}

	// The record is untouched.
	found, err := repo.FindByID(tenantCtx(a.TenantID), a.ID)
	if err != nil {
		t.Fatalf("find after rejected writes: %v", err)
	}
	if found.Name != a.Name {
		t.Fatalf("rejected write mutated the record: %q", found.Name)
	}
}

func TestDeleteScopedToTenant(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)
	tenantA, tenantB, a, _ := seedEnclosures(t, repo)

	// Tenant B cannot delete tenant A's record.
	if err := repo.Delete(tenantCtx(tenantB), a.ID); !errors.IsNotFound(err) {
		t.Fatalf("expected record not found for foreign delete, got %v", err)
	}

	if err := repo.Delete(tenantCtx(tenantA), a.ID); err != nil {
		t.Fatalf("delete own record: %v", err)
	}
	if _, err := repo.FindByID(tenantCtx(tenantA), a.ID); !errors.IsNotFound(err) {
		t.Fatalf("expected soft-deleted record hidden, got %v", err)
	}
}

func TestGlobalAccessBypassesScope(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)
	seedEnclosures(t, repo)

	ctx := WithGlobalAccess(context.Background(), GlobalAccess{
		Reason:     "directory reconciliation",
		OperatorID: 1,
	})

	list, err := repo.FindByQuery(ctx, "")
	if err != nil {
		t.Fatalf("global find: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected rows of all tenants under global access, got %d", len(list))
	}
}

func TestGlobalCreateRequiresExplicitTenant(t *testing.T) {
	repo := NewRepository[enclosureRecord](openTestDB(t), nil)

	ctx := WithGlobalAccess(context.Background(), GlobalAccess{Reason: "import", OperatorID: 1})

	err := repo.Create(ctx, &enclosureRecord{Name: "no owner"})
	if errors.Code(err) != errors.ErrCodeTenantRequired {
		t.Fatalf("expected tenant required in global mode, got %v", err)
	}

	owned := &enclosureRecord{Name: "imported"}
	owned.TenantID = 42
	if err := repo.Create(ctx, owned); err != nil {
		t.Fatalf("global create with explicit tenant: %v", err)
	}
	if owned.TenantID != 42 {
		t.Fatalf("expected explicit tenant preserved, got %d", owned.TenantID)
	}
}

func TestSharedModelBypassesScope(t *testing.T) {
	repo := NewRepository[habitatNote](openTestDB(t), nil)

	note := &habitatNote{Body: "winter heating schedule"}
	if err := repo.Create(context.Background(), note); err != nil {
		t.Fatalf("create shared record: %v", err)
	}

	found, err := repo.FindByID(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("find shared record: %v", err)
	}
	if found.Body != note.Body {
		t.Fatalf("expected %q, got %q", note.Body, found.Body)
	}
}
