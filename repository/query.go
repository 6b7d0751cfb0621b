package repository

import (
	"context"

	"github.com/zooarc/menagerie/errors"

	"gorm.io/gorm"
)

/* ========================================================================
 * Tenant-Scoped Data Gateway - query implementation
 * ========================================================================
 * Implements QueryRepository. Every query is built through buildQuery,
 * which applies the tenant scope before anything else; an unresolved
 * tenant therefore matches no rows on every read path.
 * ======================================================================== */

// buildQuery assembles a scoped query with options applied.
func (r *RepositoryImpl[T]) buildQuery(ctx context.Context, opts *QueryOption) *gorm.DB {
	db := r.applyTenantScope(ctx, r.withContext(ctx))

	if opts == nil {
		return db
	}

	if len(opts.Select) > 0 {
		if err := ValidateSelect(opts.Select); err != nil {
			db.AddError(err)
			return db
		}
		db = db.Select(opts.Select)
	}

	for _, join := range opts.Joins {
		if err := ValidateJoin(join); err != nil {
			db.AddError(err)
			return db
		}
		db = db.Joins(join)
	}

	if opts.OrderBy != "" {
		if err := ValidateOrderBy(opts.OrderBy); err != nil {
			db.AddError(err)
			return db
		}
		db = db.Order(opts.OrderBy)
	}

	for _, scope := range opts.Scopes {
		db = scope(db)
	}

	for _, preload := range opts.Preloads {
		db = db.Preload(preload)
	}

	return db
}

/* ========================================================================
 * FindByID
 * ======================================================================== */

// FindByID returns one record by primary key. A record owned by another
// tenant is indistinguishable from a missing one.
func (r *RepositoryImpl[T]) FindByID(ctx context.Context, id int64, opts ...Option) (*T, error) {
	opt := ApplyOptions(opts)
	model := r.newModelPtr()

	query := r.buildQuery(ctx, opt)
	if err := query.First(model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrCodeNotFound, "record not found")
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to find record", err)
	}

	return model, nil
}

// FindByIDs returns the records for ids that exist within the tenant scope.
func (r *RepositoryImpl[T]) FindByIDs(ctx context.Context, ids []int64, opts ...Option) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}

	opt := ApplyOptions(opts)
	var models []*T

	query := r.buildQuery(ctx, opt)
	if err := query.Find(&models, ids).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to find records", err)
	}

	return models, nil
}

/* ========================================================================
 * FindOne / FindByQuery
 * ======================================================================== */

// FindOne returns the first record matching query.
func (r *RepositoryImpl[T]) FindOne(ctx context.Context, query string, args ...any) (*T, error) {
	return r.FindOneWithOpts(ctx, query, nil, args...)
}

// FindOneWithOpts returns the first record matching query, with options.
func (r *RepositoryImpl[T]) FindOneWithOpts(ctx context.Context, query string, opts []Option, args ...any) (*T, error) {
	opt := ApplyOptions(opts)
	model := r.newModelPtr()

	db := r.buildQuery(ctx, opt)
	if query != "" {
		db = db.Where(query, args...)
	}

	if err := db.First(model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrCodeNotFound, "record not found")
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to find record", err)
	}

	return model, nil
}

// FindByQuery returns all records matching query.
func (r *RepositoryImpl[T]) FindByQuery(ctx context.Context, query string, args ...any) ([]*T, error) {
	return r.FindByQueryWithOpts(ctx, query, nil, args...)
}

// FindByQueryWithOpts returns all records matching query, with options.
func (r *RepositoryImpl[T]) FindByQueryWithOpts(ctx context.Context, query string, opts []Option, args ...any) ([]*T, error) {
	opt := ApplyOptions(opts)
	var models []*T

	db := r.buildQuery(ctx, opt)
	if query != "" {
		db = db.Where(query, args...)
	}

	if err := db.Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to find records", err)
	}

	return models, nil
}

/* ========================================================================
 * Count / Exists
 * ======================================================================== */

// Count counts records matching query within the tenant scope.
func (r *RepositoryImpl[T]) Count(ctx context.Context, query string, args ...any) (int64, error) {
	var count int64

	db := r.applyTenantScope(ctx, r.withContext(ctx)).Model(r.newModelPtr())
	if query != "" {
		db = db.Where(query, args...)
	}

	if err := db.Count(&count).Error; err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, "failed to count records", err)
	}

	return count, nil
}

// Exists reports whether any record matches query within the tenant scope.
func (r *RepositoryImpl[T]) Exists(ctx context.Context, query string, args ...any) (bool, error) {
	count, err := r.Count(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
