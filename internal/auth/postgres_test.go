package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRevocationLedgerRevokeFirstWriter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expiresAt := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	mock.ExpectExec("insert into invalidated_tokens").
		WithArgs("jti-1", expiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into invalidated_tokens").
		WithArgs("jti-1", expiresAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ledger := NewPGRevocationLedger(db)
	ctx := context.Background()

	first, err := ledger.Revoke(ctx, "jti-1", expiresAt)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !first {
		t.Fatal("expected first insert to report first writer")
	}

	first, err = ledger.Revoke(ctx, "jti-1", expiresAt)
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if first {
		t.Fatal("expected conflicting insert to report not-first")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRevocationLedgerIsRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select exists").
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("select exists").
		WithArgs("jti-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ledger := NewPGRevocationLedger(db)
	ctx := context.Background()

	revoked, err := ledger.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatal("expected jti-1 revoked")
	}
	revoked, err = ledger.IsRevoked(ctx, "jti-2")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("expected jti-2 not revoked")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRevocationLedgerPruneExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("delete from invalidated_tokens").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	ledger := NewPGRevocationLedger(db)
	n, err := ledger.PruneExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 3 {
		t.Fatalf("pruned %d, want 3", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUserStoreFindByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select id, username, full_name, password_hash, status, created_at, updated_at from users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "username", "full_name", "password_hash", "status", "created_at", "updated_at"}).
			AddRow("u-1", "alice", "Alice Tran", "$2a$10$hash", UserStatusActive, now, now))
	mock.ExpectQuery("select role_code from user_roles").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"role_code"}).AddRow("ADMIN").AddRow("FARMER"))

	store := NewPGUserStore(db)
	user, err := store.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.ID != "u-1" || user.Username != "alice" {
		t.Fatalf("user = %+v", user)
	}
	if len(user.Roles) != 2 || user.Roles[0] != RoleAdmin || user.Roles[1] != RoleFarmer {
		t.Fatalf("roles = %v", user.Roles)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUserStoreFindByUsernameNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, username, full_name, password_hash, status, created_at, updated_at from users").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "username", "full_name", "password_hash", "status", "created_at", "updated_at"}))

	store := NewPGUserStore(db)
	if _, err := store.FindByUsername(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUserStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), "alice", "Alice Tran", "$2a$10$hash", UserStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into user_roles").
		WithArgs(sqlmock.AnyArg(), "FARMER").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewPGUserStore(db)
	err = store.Create(context.Background(), &User{
		Username:     "alice",
		FullName:     "Alice Tran",
		PasswordHash: "$2a$10$hash",
		Status:       UserStatusActive,
		Roles:        []Role{RoleFarmer},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
