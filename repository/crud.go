package repository

import (
	"context"
	"sync"

	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

/* ========================================================================
 * Tenant-Scoped Data Gateway - CRUD implementation
 * ========================================================================
 * Implements CRUDRepository. All writes are stamped with the request
 * tenant and guarded against cross-tenant mutation; all deletes and
 * updates are additionally constrained by the tenant scope in SQL, so a
 * swapped context cannot touch foreign rows even through a stale model.
 *
 * Usage:
 *   type Specimen struct {
 *       repository.TenantModel
 *       Name string `gorm:"column:name"`
 *   }
 *
 *   repo := repository.NewRepository[Specimen](db, log)
 *   err := repo.Create(ctx, &Specimen{Name: "okapi"})
 *   found, err := repo.FindByID(ctx, id)
 * ======================================================================== */

const (
	// DefaultBatchSize bounds batched inserts.
	DefaultBatchSize = 100
)

// RepositoryImpl is the gateway implementation.
type RepositoryImpl[T any] struct {
	db  *gorm.DB
	log *logger.Logger

	// schema cache, thread safe
	schemaOnce sync.Once
	schema     *schema.Schema
	schemaErr  error
}

// NewRepository creates a gateway for T.
func NewRepository[T any](db *gorm.DB, log *logger.Logger) Repository[T] {
	if log == nil {
		log = logger.NewNop()
	}
	return &RepositoryImpl[T]{db: db, log: log}
}

// GetDB returns the underlying GORM handle.
func (r *RepositoryImpl[T]) GetDB() *gorm.DB {
	return r.db
}

func (r *RepositoryImpl[T]) newModelPtr() *T {
	var model T
	return &model
}

// withContext returns a context-bound DB, joining any open transaction.
func (r *RepositoryImpl[T]) withContext(ctx context.Context) *gorm.DB {
	return getDBFromContext(ctx, r.db)
}

// getSchema parses and caches the model schema.
func (r *RepositoryImpl[T]) getSchema() (*schema.Schema, error) {
	r.schemaOnce.Do(func() {
		stmt := &gorm.Statement{DB: r.db}
		r.schemaErr = stmt.Parse(r.newModelPtr())
		if r.schemaErr == nil {
			r.schema = stmt.Schema
		}
	})
	return r.schema, r.schemaErr
}

/* ========================================================================
 * Create
 * ======================================================================== */

// Create persists one record, stamping the request tenant first.
func (r *RepositoryImpl[T]) Create(ctx context.Context, model *T) error {
	if model == nil {
		return errors.ErrInvalidArgument
	}

	if err := r.stampTenant(ctx, model); err != nil {
		return err
	}

	return r.withContext(ctx).Create(model).Error
}

// CreateBatch persists records in batches; each is tenant-stamped.
func (r *RepositoryImpl[T]) CreateBatch(ctx context.Context, models []*T, batchSize int) error {
	if len(models) == 0 {
		return errors.ErrInvalidArgument
	}

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	validModels := make([]*T, 0, len(models))
	for _, m := range models {
		if m == nil {
			continue
		}
		if err := r.stampTenant(ctx, m); err != nil {
			return err
		}
		validModels = append(validModels, m)
	}

	if len(validModels) == 0 {
		return nil
	}

	return r.withContext(ctx).CreateInBatches(validModels, batchSize).Error
}

/* ========================================================================
 * Update
 * ======================================================================== */

// Update saves a record by primary key. Save writes every field including
// zero values. The SQL is additionally constrained by the tenant scope so
// a stale or foreign model cannot overwrite another tenant's row.
func (r *RepositoryImpl[T]) Update(ctx context.Context, model *T) error {
	if model == nil {
		return errors.ErrInvalidArgument
	}

	if err := r.guardTenantWrite(ctx, model); err != nil {
		return err
	}

	db := r.applyTenantScope(ctx, r.withContext(ctx))
	if db.Error != nil {
		return db.Error
	}

	result := db.Save(model)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "record not found")
	}

	return nil
}

// UpdateByID updates whitelisted fields of one record within the tenant
// scope. The tenant id and primary key are never updatable.
func (r *RepositoryImpl[T]) UpdateByID(ctx context.Context, id int64, updates map[string]any, allowedFields ...string) error {
	if len(updates) == 0 {
		return errors.ErrInvalidArgument
	}

	filteredUpdates, err := r.filterUpdates(updates, allowedFields)
	if err != nil {
		return err
	}

	if len(filteredUpdates) == 0 {
		return errors.ErrInvalidArgument
	}

	if err := r.requireWriteContext(ctx); err != nil {
		return err
	}

	model := r.newModelPtr()
	db := r.applyTenantScope(ctx, r.withContext(ctx))
	if db.Error != nil {
		return db.Error
	}

	result := db.Model(model).Where("id = ?", id).Updates(filteredUpdates)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "record not found")
	}

	return nil
}

// filterUpdates drops columns that are unknown, non-updatable, primary
// key, the tenant id, or outside the whitelist. Prevents field injection
// and mass assignment.
func (r *RepositoryImpl[T]) filterUpdates(updates map[string]any, allowedFields []string) (map[string]any, error) {
	schema, err := r.getSchema()
	if err != nil {
		return nil, err
	}

	allowedSet := make(map[string]struct{})
	for _, f := range allowedFields {
		allowedSet[f] = struct{}{}
	}
	hasWhitelist := len(allowedSet) > 0

	filtered := make(map[string]any)
	for k, v := range updates {
		if hasWhitelist {
			if _, ok := allowedSet[k]; !ok {
				continue
			}
		}

		// Match DB column name first.
		if field, ok := schema.FieldsByDBName[k]; ok {
			if !field.PrimaryKey && field.Updatable && field.DBName != tenantColumn {
				filtered[k] = v
			}
			continue
		}
		// Fall back to struct field name.
		if field, ok := schema.FieldsByName[k]; ok {
			if !field.PrimaryKey && field.Updatable && field.DBName != tenantColumn {
				filtered[field.DBName] = v
			}
			continue
		}
	}

	return filtered, nil
}

/* ========================================================================
 * Delete
 * ======================================================================== */

// Delete soft-deletes a record within the tenant scope.
func (r *RepositoryImpl[T]) Delete(ctx context.Context, id int64) error {
	if err := r.requireWriteContext(ctx); err != nil {
		return err
	}

	model := r.newModelPtr()
	db := r.applyTenantScope(ctx, r.withContext(ctx))
	if db.Error != nil {
		return db.Error
	}

	result := db.Delete(model, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "record not found")
	}

	return nil
}

// DeleteBatch soft-deletes several records within the tenant scope.
func (r *RepositoryImpl[T]) DeleteBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return errors.ErrInvalidArgument
	}

	if err := r.requireWriteContext(ctx); err != nil {
		return err
	}

	model := r.newModelPtr()
	db := r.applyTenantScope(ctx, r.withContext(ctx))
	if db.Error != nil {
		return db.Error
	}

	return db.Delete(model, "id IN ?", ids).Error
}

// HardDelete removes a record permanently, still within the tenant scope.
func (r *RepositoryImpl[T]) HardDelete(ctx context.Context, id int64) error {
	if err := r.requireWriteContext(ctx); err != nil {
		return err
	}

	model := r.newModelPtr()
	db := r.applyTenantScope(ctx, r.withContext(ctx).Unscoped())
	if db.Error != nil {
		return db.Error
	}

	result := db.Delete(model, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "record not found")
	}

	return nil
}
