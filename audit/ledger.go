package audit

import (
	"context"
	"strings"
	"time"

	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

/* ========================================================================
 * Audit Ledger
 * ========================================================================
 * Append, query, verify. Appends are synchronous: callers wait for the
 * durable write before responding. The never-fail wrapping for callers
 * that must not be blocked by ledger failures lives in Recorder.
 * ======================================================================== */

// Filter narrows ledger queries. Zero values are ignored.
type Filter struct {
	Operation  string
	EntityType string
	OperatorID int64
	TenantID   int64
	Severity   Severity
	From       time.Time
	To         time.Time

	Page     int
	PageSize int
}

// Ledger is the append-only audit store.
type Ledger struct {
	repo   repository.Repository[Entry]
	secret []byte
	log    *logger.Logger
}

// NewLedger creates a Ledger. The secret keys every integrity hash and
// must be non-empty.
func NewLedger(db *gorm.DB, secret string, log *logger.Logger) (*Ledger, error) {
	if secret == "" {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "audit secret is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Ledger{
		repo:   repository.NewRepository[Entry](db, log),
		secret: []byte(secret),
		log:    log,
	}, nil
}

// Append persists one entry. Fills the correlation id, event time,
// severity default and integrity hash; everything else comes from the
// caller. The entry is durable when Append returns nil.
func (l *Ledger) Append(ctx context.Context, e *Entry) error {
	if e == nil || e.Operation == "" {
		return errors.New(errors.ErrCodeInvalidArgument, "audit entry requires an operation")
	}

	if e.CorrelationID == "" {
		e.CorrelationID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	e.IntegrityHash = computeIntegrityHash(l.secret, e)

	if err := l.repo.Create(ctx, e); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "audit append failed", err)
	}
	return nil
}

// GetByID returns one entry.
func (l *Ledger) GetByID(ctx context.Context, id int64) (*Entry, error) {
	return l.repo.FindByID(ctx, id)
}

// Query returns one page of entries matching filter, newest first.
func (l *Ledger) Query(ctx context.Context, f Filter) (*repository.PageResult[Entry], error) {
	query, args := f.conditions()
	opts := []repository.Option{repository.WithOrderBy("id DESC")}
	return l.repo.FindPageWithOpts(ctx, f.Page, f.PageSize, query, opts, args...)
}

// ValidateIntegrity recomputes an entry's hash. A mismatch means the row
// was altered after append or was written under a rotated secret; it is
// reported, never repaired.
func (l *Ledger) ValidateIntegrity(ctx context.Context, id int64) error {
	e, err := l.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !verifyIntegrityHash(l.secret, e) {
		l.log.Error("audit integrity mismatch",
			zap.Int64("entry_id", e.ID),
			zap.String("operation", e.Operation),
			zap.String("correlation_id", e.CorrelationID),
		)
		return errors.ErrIntegrityMismatch
	}
	return nil
}

func (f Filter) conditions() (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.Operation != "" {
		conds = append(conds, "operation = ?")
		args = append(args, f.Operation)
	}
	if f.EntityType != "" {
		conds = append(conds, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.OperatorID != 0 {
		conds = append(conds, "operator_id = ?")
		args = append(args, f.OperatorID)
	}
	if f.TenantID != 0 {
		conds = append(conds, "tenant_id = ?")
		args = append(args, f.TenantID)
	}
	if f.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, f.Severity)
	}
	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.To)
	}

	return strings.Join(conds, " AND "), args
}
