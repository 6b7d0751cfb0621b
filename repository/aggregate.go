package repository

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/zooarc/menagerie/errors"
)

/* ========================================================================
 * Tenant-Scoped Data Gateway - aggregates
 * ========================================================================
 * Aggregate queries stay inside the tenant scope. Column names are
 * whitelist-validated before they reach the SQL text.
 * ======================================================================== */

var columnRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validateColumn(column string) error {
	if column == "" {
		return errors.New(errors.ErrCodeInvalidArgument, "column cannot be empty")
	}
	if strings.Contains(column, ".") {
		return errors.New(errors.ErrCodeInvalidArgument, "column must not contain table qualifier")
	}
	if !columnRegex.MatchString(column) {
		return errors.New(errors.ErrCodeInvalidArgument, "invalid column name: "+column)
	}
	return nil
}

// Sum sums a column over matching records.
func (r *RepositoryImpl[T]) Sum(ctx context.Context, column string, query string, args ...any) (float64, error) {
	if err := validateColumn(column); err != nil {
		return 0, err
	}

	var result float64
	db := r.applyTenantScope(ctx, r.withContext(ctx)).Model(r.newModelPtr())

	if query != "" {
		db = db.Where(query, args...)
	}

	expr := "COALESCE(SUM(" + column + "), 0)"
	if err := db.Select(expr).Scan(&result).Error; err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, "failed to sum column", err)
	}

	return result, nil
}

// Avg averages a column over matching records.
func (r *RepositoryImpl[T]) Avg(ctx context.Context, column string, query string, args ...any) (float64, error) {
	if err := validateColumn(column); err != nil {
		return 0, err
	}

	var result sql.NullFloat64
	db := r.applyTenantScope(ctx, r.withContext(ctx)).Model(r.newModelPtr())

	if query != "" {
		db = db.Where(query, args...)
	}

	expr := "AVG(" + column + ")"
	if err := db.Select(expr).Scan(&result).Error; err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, "failed to average column", err)
	}

	if !result.Valid {
		return 0, nil
	}
	return result.Float64, nil
}

// Max returns the maximum of a column over matching records.
func (r *RepositoryImpl[T]) Max(ctx context.Context, column string, query string, args ...any) (any, error) {
	return r.aggregate(ctx, "MAX", column, query, args...)
}

// Min returns the minimum of a column over matching records.
func (r *RepositoryImpl[T]) Min(ctx context.Context, column string, query string, args ...any) (any, error) {
	return r.aggregate(ctx, "MIN", column, query, args...)
}

func (r *RepositoryImpl[T]) aggregate(ctx context.Context, fn, column, query string, args ...any) (any, error) {
	if err := validateColumn(column); err != nil {
		return nil, err
	}

	var result any
	db := r.applyTenantScope(ctx, r.withContext(ctx)).Model(r.newModelPtr())

	if query != "" {
		db = db.Where(query, args...)
	}

	expr := fn + "(" + column + ")"
	if err := db.Select(expr).Scan(&result).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to aggregate column", err)
	}

	return result, nil
}
