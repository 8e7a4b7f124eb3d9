package repository

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const dbKey contextKey = "gorm_db"

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return GetDB(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		return fn(WithDB(ctx, tx))
	})
}

// WithDB binds a *gorm.DB to the context. The authorization middleware uses
// this to hand repositories the RLS-pinned connection for the request, and
// RunInTx uses it to propagate the open transaction.
func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey, db)
}

// GetDB extracts the context-bound DB if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if db, ok := ctx.Value(dbKey).(*gorm.DB); ok {
		return db.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
