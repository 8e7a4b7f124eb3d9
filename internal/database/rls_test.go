package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return gdb, mock
}

func TestWithTenantContextBracketsQueries(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("set_config").
		WithArgs("app.tenant_id", "tenant-1", "app.branch_id", "branch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE patients").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("set_config").
		WithArgs("app.tenant_id", "app.branch_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := WithTenantContext(context.Background(), gdb, "tenant-1", "branch-1", func(tx *gorm.DB) error {
		return tx.Exec("UPDATE patients SET notes = 'x'").Error
	})
	if err != nil {
		t.Fatalf("WithTenantContext: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithTenantContextClearsOnError(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("set_config").
		WithArgs("app.tenant_id", "tenant-1", "app.branch_id", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("set_config").
		WithArgs("app.tenant_id", "app.branch_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	wantErr := errors.New("handler failed")
	err := WithTenantContext(context.Background(), gdb, "tenant-1", "", func(tx *gorm.DB) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("context was not cleared on the error path: %v", err)
	}
}

func TestWithTenantContextClearsAfterCancellation(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("set_config").
		WithArgs("app.tenant_id", "tenant-1", "app.branch_id", "branch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("set_config").
		WithArgs("app.tenant_id", "app.branch_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// A client disconnect cancels the request context while the handler is
	// still on the pinned connection. The clear must reach the driver anyway
	// or the connection goes back to the pool with the variables set.
	ctx, cancel := context.WithCancel(context.Background())
	err := WithTenantContext(ctx, gdb, "tenant-1", "branch-1", func(tx *gorm.DB) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("context was not cleared after cancellation: %v", err)
	}
}

func TestWithTenantContextClearsOnPanic(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("set_config").
		WithArgs("app.tenant_id", "tenant-1", "app.branch_id", "branch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("set_config").
		WithArgs("app.tenant_id", "app.branch_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	panicked := false
	func() {
		defer func() {
			if recover() != nil {
				panicked = true
			}
		}()
		_ = WithTenantContext(context.Background(), gdb, "tenant-1", "branch-1", func(tx *gorm.DB) error {
			panic("downstream handler blew up")
		})
	}()

	if !panicked {
		t.Fatal("panic should propagate to the caller")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("context was not cleared on the panic path: %v", err)
	}
}
