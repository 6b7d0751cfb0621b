package repository

import (
	"context"

	"github.com/zooarc/menagerie/errors"

	"gorm.io/gorm"
)

/* ========================================================================
 * Tenant-Scoped Data Gateway - transactions
 * ========================================================================
 * Implements TransactionRepository. Execute binds the transaction into
 * the context so nested repository calls, including those of other
 * repositories, join the same commit.
 * ======================================================================== */

// Transaction runs fn inside a transaction; fn errors roll back.
func (r *RepositoryImpl[T]) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := r.withContext(ctx)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	}); err != nil {
		if _, ok := errors.AsBizError(err); ok {
			return err
		}
		return errors.Wrap(errors.ErrCodeInternal, "transaction failed", err)
	}

	return nil
}

// Execute runs fn with the transaction bound into the context.
func (r *RepositoryImpl[T]) Execute(ctx context.Context, fn func(txCtx context.Context) error) error {
	db := r.withContext(ctx)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, ctxTxKey{}, tx))
	}); err != nil {
		if _, ok := errors.AsBizError(err); ok {
			return err
		}
		return errors.Wrap(errors.ErrCodeInternal, "transaction failed", err)
	}

	return nil
}

// WithTx returns a repository bound to an existing transaction.
func (r *RepositoryImpl[T]) WithTx(tx *gorm.DB) Repository[T] {
	return &RepositoryImpl[T]{db: tx, log: r.log}
}
