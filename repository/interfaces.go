package repository

import (
	"context"

	"gorm.io/gorm"
)

/* ========================================================================
 * Repository Interfaces
 * ========================================================================
 * Generic, type-safe data access. Every call site goes through these
 * interfaces; tenant scoping and write stamping are applied inside the
 * implementation, so no entity can opt out by accident.
 * ======================================================================== */

// QueryOption collects optional query modifiers.
type QueryOption struct {
	// Preloads lists associations to eager-load (e.g. "Tenant").
	Preloads []string
	// Scopes are extra gorm scopes applied after tenant filtering.
	Scopes []func(*gorm.DB) *gorm.DB
	// OrderBy orders results (e.g. "create_time DESC"); validated.
	OrderBy string
	// Select restricts returned columns; validated.
	Select []string
	// Joins adds join clauses; validated.
	Joins []string
}

// Option applies a query option.
type Option func(*QueryOption)

// WithPreloads sets associations to eager-load.
func WithPreloads(preloads ...string) Option {
	return func(o *QueryOption) {
		o.Preloads = preloads
	}
}

// WithScopes sets extra gorm scopes.
func WithScopes(scopes ...func(*gorm.DB) *gorm.DB) Option {
	return func(o *QueryOption) {
		o.Scopes = scopes
	}
}

// WithOrderBy sets the result ordering.
func WithOrderBy(orderBy string) Option {
	return func(o *QueryOption) {
		o.OrderBy = orderBy
	}
}

// WithSelect restricts the selected columns.
func WithSelect(selects ...string) Option {
	return func(o *QueryOption) {
		o.Select = selects
	}
}

// WithJoins adds join clauses.
func WithJoins(joins ...string) Option {
	return func(o *QueryOption) {
		o.Joins = joins
	}
}

// ApplyOptions folds options into a QueryOption.
func ApplyOptions(opts []Option) *QueryOption {
	o := &QueryOption{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PageResult is one page of results plus totals.
type PageResult[T any] struct {
	List     []T   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Pages    int64 `json:"pages"`
}

// CRUDRepository covers create, update and delete.
type CRUDRepository[T any] interface {
	// Create persists one record, stamping the request tenant.
	Create(ctx context.Context, model *T) error

	// CreateBatch persists records in batches.
	CreateBatch(ctx context.Context, models []*T, batchSize int) error

	// Update saves a record by primary key; all fields are written.
	Update(ctx context.Context, model *T) error

	// UpdateByID updates whitelisted fields of one record.
	UpdateByID(ctx context.Context, id int64, updates map[string]any, allowedFields ...string) error

	// Delete soft-deletes a record.
	Delete(ctx context.Context, id int64) error

	// DeleteBatch soft-deletes several records.
	DeleteBatch(ctx context.Context, ids []int64) error

	// HardDelete removes a record permanently.
	HardDelete(ctx context.Context, id int64) error
}

// QueryRepository covers lookups.
type QueryRepository[T any] interface {
	// FindByID returns one record by primary key within the tenant scope.
	FindByID(ctx context.Context, id int64, opts ...Option) (*T, error)

	// FindByIDs returns records for the given ids within the tenant scope.
	FindByIDs(ctx context.Context, ids []int64, opts ...Option) ([]*T, error)

	// FindOne returns the first record matching query.
	FindOne(ctx context.Context, query string, args ...any) (*T, error)

	// FindOneWithOpts returns the first record matching query with options.
	FindOneWithOpts(ctx context.Context, query string, opts []Option, args ...any) (*T, error)

	// FindByQuery returns all records matching query.
	FindByQuery(ctx context.Context, query string, args ...any) ([]*T, error)

	// FindByQueryWithOpts returns all records matching query with options.
	FindByQueryWithOpts(ctx context.Context, query string, opts []Option, args ...any) ([]*T, error)

	// Count counts records matching query.
	Count(ctx context.Context, query string, args ...any) (int64, error)

	// Exists reports whether any record matches query.
	Exists(ctx context.Context, query string, args ...any) (bool, error)
}

// PageRepository covers paged queries.
type PageRepository[T any] interface {
	// FindPage returns one page of records matching query.
	FindPage(ctx context.Context, page, pageSize int, query string, args ...any) (*PageResult[T], error)

	// FindPageWithOpts returns one page with options.
	FindPageWithOpts(ctx context.Context, page, pageSize int, query string, opts []Option, args ...any) (*PageResult[T], error)
}

// AggregateRepository covers aggregate queries.
type AggregateRepository[T any] interface {
	// Sum sums a column over matching records.
	Sum(ctx context.Context, column string, query string, args ...any) (float64, error)

	// Avg averages a column over matching records.
	Avg(ctx context.Context, column string, query string, args ...any) (float64, error)

	// Max returns the maximum of a column.
	Max(ctx context.Context, column string, query string, args ...any) (any, error)

	// Min returns the minimum of a column.
	Min(ctx context.Context, column string, query string, args ...any) (any, error)
}

// TransactionRepository covers transactional execution.
type TransactionRepository[T any] interface {
	// Transaction runs fn inside a transaction on the raw DB.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Execute runs fn with a transaction bound into the context, so
	// nested repository calls join it.
	Execute(ctx context.Context, fn func(txCtx context.Context) error) error

	// WithTx returns a repository bound to an existing transaction.
	WithTx(tx *gorm.DB) Repository[T]
}

// Repository combines all sub-interfaces.
type Repository[T any] interface {
	CRUDRepository[T]
	QueryRepository[T]
	PageRepository[T]
	AggregateRepository[T]
	TransactionRepository[T]

	// GetDB exposes the underlying GORM handle for complex queries.
	// Tenant enforcement does not follow it; restrict use to privileged
	// reporting code.
	GetDB() *gorm.DB
}
