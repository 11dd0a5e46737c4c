package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/elnino282/acm-backend/internal/ids"
)

var (
	_ UserStore        = (*PGUserStore)(nil)
	_ RevocationLedger = (*PGRevocationLedger)(nil)
)

// PGUserStore implements UserStore on PostgreSQL.
type PGUserStore struct {
	db *sql.DB
}

func NewPGUserStore(db *sql.DB) *PGUserStore {
	return &PGUserStore{db: db}
}

func (s *PGUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`insert into users(id, username, full_name, password_hash, status) values($1,$2,$3,$4,$5)`,
		u.ID, u.Username, u.FullName, u.PasswordHash, u.Status,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	for _, role := range u.Roles {
		if _, err := tx.ExecContext(ctx,
			`insert into user_roles(user_id, role_code) values($1,$2) on conflict do nothing`,
			u.ID, string(role),
		); err != nil {
			return fmt.Errorf("insert role: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PGUserStore) Find(ctx context.Context, id string) (*User, error) {
	return s.findWhere(ctx, `id=$1`, id)
}

func (s *PGUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.findWhere(ctx, `lower(username)=lower($1)`, username)
}

func (s *PGUserStore) findWhere(ctx context.Context, clause string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, username, full_name, password_hash, status, created_at, updated_at from users where `+clause, arg)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `select role_code from user_roles where user_id=$1 order by role_code`, u.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		if role, ok := ParseRole(code); ok {
			u.Roles = append(u.Roles, role)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &u, nil
}

// PGRevocationLedger implements RevocationLedger on PostgreSQL. The insert is
// a single keyed row under read-committed isolation, so the first writer wins
// and any later IsRevoked on the same backend observes the revocation.
type PGRevocationLedger struct {
	db *sql.DB
}

func NewPGRevocationLedger(db *sql.DB) *PGRevocationLedger {
	return &PGRevocationLedger{db: db}
}

func (l *PGRevocationLedger) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`insert into invalidated_tokens(token_id, expires_at) values($1,$2) on conflict (token_id) do nothing`,
		tokenID, expiresAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *PGRevocationLedger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := l.db.QueryRowContext(ctx,
		`select exists(select 1 from invalidated_tokens where token_id=$1)`, tokenID,
	).Scan(&revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

func (l *PGRevocationLedger) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := l.db.ExecContext(ctx, `delete from invalidated_tokens where expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
