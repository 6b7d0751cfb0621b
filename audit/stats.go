package audit

import (
	"context"
	"time"

	"github.com/zooarc/menagerie/errors"

	"gorm.io/gorm"
)

/* ========================================================================
 * Statistics
 * ========================================================================
 * Grouped counts over a time window, optionally restricted to one
 * tenant. Day bucketing needs a dialect-specific date expression.
 * ======================================================================== */

// Statistics summarizes ledger activity over a window.
type Statistics struct {
	From  time.Time        `json:"from"`
	To    time.Time        `json:"to"`
	Total int64            `json:"total"`

	ByOperation map[string]int64 `json:"by_operation"`
	BySeverity  map[string]int64 `json:"by_severity"`
	ByOperator  map[int64]int64  `json:"by_operator"`
	ByDay       map[string]int64 `json:"by_day"`
}

// Statistics computes grouped counts for entries in [from, to]. A zero
// tenantID means all tenants.
func (l *Ledger) Statistics(ctx context.Context, from, to time.Time, tenantID int64) (*Statistics, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "statistics window is inverted")
	}

	stats := &Statistics{
		From:        from,
		To:          to,
		ByOperation: make(map[string]int64),
		BySeverity:  make(map[string]int64),
		ByOperator:  make(map[int64]int64),
		ByDay:       make(map[string]int64),
	}

	base := func() *gorm.DB {
		db := l.repo.GetDB().WithContext(ctx).Model(&Entry{}).
			Where("occurred_at >= ? AND occurred_at <= ?", from, to)
		if tenantID != 0 {
			db = db.Where("tenant_id = ?", tenantID)
		}
		return db
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "audit statistics failed", err)
	}

	var opRows []struct {
		Operation string
		N         int64
	}
	if err := base().Select("operation, COUNT(*) AS n").Group("operation").Scan(&opRows).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "audit statistics failed", err)
	}
	for _, r := range opRows {
		stats.ByOperation[r.Operation] = r.N
	}

	var sevRows []struct {
		Severity string
		N        int64
	}
	if err := base().Select("severity, COUNT(*) AS n").Group("severity").Scan(&sevRows).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "audit statistics failed", err)
	}
	for _, r := range sevRows {
		stats.BySeverity[r.Severity] = r.N
	}

	var operRows []struct {
		OperatorID int64
		N          int64
	}
	if err := base().Select("operator_id, COUNT(*) AS n").Group("operator_id").Scan(&operRows).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "audit statistics failed", err)
	}
	for _, r := range operRows {
		stats.ByOperator[r.OperatorID] = r.N
	}

	dayExpr := dayExpression(l.repo.GetDB().Dialector.Name())
	var dayRows []struct {
		Day string
		N   int64
	}
	if err := base().Select(dayExpr + " AS day, COUNT(*) AS n").Group(dayExpr).Scan(&dayRows).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "audit statistics failed", err)
	}
	for _, r := range dayRows {
		stats.ByDay[r.Day] = r.N
	}

	return stats, nil
}

// dayExpression returns the dialect's YYYY-MM-DD bucket expression.
func dayExpression(dialect string) string {
	switch dialect {
	case "postgres":
		return "to_char(occurred_at, 'YYYY-MM-DD')"
	case "mysql":
		return "DATE_FORMAT(occurred_at, '%Y-%m-%d')"
	default:
		return "strftime('%Y-%m-%d', occurred_at)"
	}
}
