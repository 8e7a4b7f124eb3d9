package database

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Postgres row-level-security policies read these session variables as
// defense-in-depth alongside the application-level tenant filters.
const (
	sessionTenantVar = "app.tenant_id"
	sessionBranchVar = "app.branch_id"
)

// WithTenantContext pins a single pooled connection, sets the RLS session
// variables on it, runs fn with a *gorm.DB bound to that connection, and
// clears the variables before the connection returns to the pool. The clear
// runs on every exit path, including a panicking fn: a connection handed
// back with a stale tenant variable would silently serve the next tenant's
// request with the wrong filter.
func WithTenantContext(ctx context.Context, db *gorm.DB, tenantID, branchID string, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Connection(func(tx *gorm.DB) error {
		if err := setSessionContext(tx, tenantID, branchID); err != nil {
			return err
		}
		defer clearSessionContext(ctx, tx)
		return fn(tx)
	})
}

func setSessionContext(tx *gorm.DB, tenantID, branchID string) error {
	return tx.Exec(
		"SELECT set_config(?, ?, false), set_config(?, ?, false)",
		sessionTenantVar, tenantID, sessionBranchVar, branchID,
	).Error
}

// clearSessionContext resets both variables. Clearing cannot return an error
// to the caller (it runs in a defer); a failure is logged and the connection
// error state will surface on its next use. The clear runs on a detached
// context: when a request is cancelled mid-handler the driver would reject a
// statement on the cancelled context before sending it, and the connection
// would return to the pool with the tenant variable still set.
func clearSessionContext(ctx context.Context, tx *gorm.DB) {
	err := tx.Session(&gorm.Session{Context: context.WithoutCancel(ctx)}).Exec(
		"SELECT set_config(?, '', false), set_config(?, '', false)",
		sessionTenantVar, sessionBranchVar,
	).Error
	if err != nil {
		logrus.WithError(err).Error("failed to clear tenant session context")
	}
}
