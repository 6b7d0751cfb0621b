package repository

import (
	"context"

	"github.com/zooarc/menagerie/errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tenantColumn = "tenant_id"

/* ========================================================================
 * Tenant scope enforcement
 * ========================================================================
 * Every read on a tenant-owned model is filtered to the request tenant;
 * every write is stamped with it. Fail-closed: a missing tenant context
 * matches no rows on reads and rejects writes outright. The only bypass
 * is an explicit GlobalAccess grant, and each use of one is logged.
 * ======================================================================== */

// applyTenantScope narrows db to the request tenant for read paths.
func (r *RepositoryImpl[T]) applyTenantScope(ctx context.Context, db *gorm.DB) *gorm.DB {
	if r.isTenantIgnored(r.newModelPtr()) {
		return db
	}

	if err := r.requireTenantColumn(); err != nil {
		db.AddError(err)
		return db
	}

	if ga, ok := GlobalAccessFromContext(ctx); ok {
		r.log.Info("global data access",
			zap.String("reason", ga.Reason),
			zap.Int64("operator_id", ga.OperatorID),
			zap.String("model", r.modelName()),
		)
		return db
	}

	tc, ok := TenantFromContext(ctx)
	if !ok || !tc.Resolved() {
		// No tenant means see nothing, never see everything.
		return db.Where("1 = 0")
	}

	return db.Where(tenantColumn+" = ?", tc.TenantID)
}

// stampTenant fills the tenant id on a model about to be created.
// Rejected outright when no tenant is resolved: the gateway never invents
// a placeholder tenant.
func (r *RepositoryImpl[T]) stampTenant(ctx context.Context, model any) error {
	if r.isTenantIgnored(model) {
		return nil
	}

	owned, ok := model.(TenantOwned)
	if !ok {
		return errors.Wrapf(errors.ErrCodeInvalidArgument, nil,
			"model %s is neither tenant-owned nor tenant-ignored", r.modelName())
	}

	if ga, ok := GlobalAccessFromContext(ctx); ok {
		// Global mode still refuses records without an explicit owner.
		if owned.GetTenantID() == 0 {
			return errors.Wrap(errors.ErrCodeTenantRequired,
				"global-mode create requires an explicit tenant id", nil)
		}
		r.log.Info("global data access",
			zap.String("reason", ga.Reason),
			zap.Int64("operator_id", ga.OperatorID),
			zap.String("model", r.modelName()),
		)
		return nil
	}

	tc, ok := TenantFromContext(ctx)
	if !ok || !tc.Resolved() {
		return errors.ErrTenantRequired
	}

	if existing := owned.GetTenantID(); existing != 0 && existing != tc.TenantID {
		r.log.Error("cross-tenant create rejected",
			zap.Int64("record_tenant", existing),
			zap.Int64("request_tenant", tc.TenantID),
			zap.String("model", r.modelName()),
		)
		return errors.ErrCrossTenantWrite
	}

	owned.setTenantID(tc.TenantID)
	return nil
}

// guardTenantWrite validates a mutation of an already-persisted record.
// A record whose stored tenant id disagrees with the request tenant is
// rejected even if the caller somehow loaded it, defending against a
// resolved-context swap mid-request.
func (r *RepositoryImpl[T]) guardTenantWrite(ctx context.Context, model any) error {
	if r.isTenantIgnored(model) {
		return nil
	}

	owned, ok := model.(TenantOwned)
	if !ok {
		return errors.Wrapf(errors.ErrCodeInvalidArgument, nil,
			"model %s is neither tenant-owned nor tenant-ignored", r.modelName())
	}

	if _, ok := GlobalAccessFromContext(ctx); ok {
		if owned.GetTenantID() == 0 {
			return errors.Wrap(errors.ErrCodeTenantRequired,
				"global-mode write requires an explicit tenant id", nil)
		}
		return nil
	}

	tc, ok := TenantFromContext(ctx)
	if !ok || !tc.Resolved() {
		return errors.ErrTenantRequired
	}

	if owned.GetTenantID() != tc.TenantID {
		r.log.Error("cross-tenant write rejected",
			zap.Int64("record_tenant", owned.GetTenantID()),
			zap.Int64("request_tenant", tc.TenantID),
			zap.String("model", r.modelName()),
		)
		return errors.ErrCrossTenantWrite
	}

	return nil
}

// requireWriteContext rejects id-based mutations of tenant-owned models
// when no tenant is resolved. Without it an unresolved delete or update
// would fall through to the read scope and report "not found" instead of
// the explicit rejection writes must get.
func (r *RepositoryImpl[T]) requireWriteContext(ctx context.Context) error {
	if r.isTenantIgnored(r.newModelPtr()) {
		return nil
	}

	if _, ok := GlobalAccessFromContext(ctx); ok {
		return nil
	}

	tc, ok := TenantFromContext(ctx)
	if !ok || !tc.Resolved() {
		return errors.ErrTenantRequired
	}

	return nil
}

// requireTenantColumn verifies the model actually maps a tenant_id column.
// A tenant-owned model without one is a schema bug, not a filterable case.
func (r *RepositoryImpl[T]) requireTenantColumn() error {
	schema, err := r.getSchema()
	if err != nil {
		return err
	}
	if _, ok := schema.FieldsByDBName[tenantColumn]; !ok {
		return errors.Wrapf(errors.ErrCodeInvalidArgument, nil,
			"model %s has no %s column", schema.Name, tenantColumn)
	}
	return nil
}

func (r *RepositoryImpl[T]) isTenantIgnored(model any) bool {
	if model == nil {
		return false
	}

	if ignorable, ok := model.(TenantIgnorable); ok {
		return ignorable.TenantIgnored()
	}

	return false
}

func (r *RepositoryImpl[T]) modelName() string {
	schema, err := r.getSchema()
	if err != nil || schema == nil {
		return "unknown"
	}
	return schema.Name
}
