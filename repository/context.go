package repository

import (
	"context"

	"gorm.io/gorm"
)

/* ========================================================================
 * Transaction context helper
 * ========================================================================
 * Propagates an open transaction through context.Context so nested
 * repository calls join it transparently.
 * ======================================================================== */

type ctxTxKey struct{}

// getDBFromContext returns the transaction DB if ctx carries one, the
// repository's own DB otherwise. The context is always re-bound.
func getDBFromContext(ctx context.Context, originalDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(ctxTxKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return originalDB.WithContext(ctx)
}
