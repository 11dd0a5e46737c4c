package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/elnino282/acm-backend/internal/obs"
)

// Manager owns the token lifecycle: issuance, verification, refresh,
// revocation. From its viewpoint a token is Fresh until it is either past
// expiry or present in the revocation ledger; neither state is reversible.
type Manager struct {
	cfg    Config
	codec  codec
	ledger RevocationLedger
	users  UserStore
	now    func() time.Time
}

// ManagerOption configures Manager behavior.
type ManagerOption func(*Manager)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager constructs a Manager from an explicit Config.
func NewManager(cfg Config, ledger RevocationLedger, users UserStore, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, errors.New("auth: revocation ledger is required")
	}
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	m := &Manager{
		cfg:    cfg,
		codec:  codec{secret: cfg.SigningSecret, issuer: cfg.Issuer},
		ledger: ledger,
		users:  users,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a fresh token for the user. The only failure mode is a signing
// error, which surfaces as an internal error.
func (m *Manager) Issue(user *User) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.cfg.ValidDuration)
	claims := &Claims{
		Scope: ScopeFromRoles(user.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := m.codec.encode(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	obs.TokenIssued()
	return signed, expiresAt, nil
}

// Verify checks signature, effective expiry and revocation, in that order.
// With forRefresh the expiry window is issuedAt + RefreshableDuration instead
// of the token's own exp claim, so an access-expired token can still pass for
// refresh while its refresh window is open.
func (m *Manager) Verify(ctx context.Context, raw string, forRefresh bool) (*Claims, error) {
	claims, err := m.codec.decodeAndVerify(raw)
	if err != nil {
		obs.TokenVerifyFailed("signature")
		return nil, ErrUnauthenticated
	}

	expiry := claims.ExpiresAt.Time
	if forRefresh {
		expiry = claims.IssuedAt.Time.Add(m.cfg.RefreshableDuration)
	}
	if m.now().After(expiry) {
		obs.TokenVerifyFailed("expired")
		return nil, ErrUnauthenticated
	}

	revoked, err := m.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("revocation check: %w", err)
	}
	if revoked {
		obs.TokenVerifyFailed("revoked")
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// Refresh retires the presented token and issues a replacement for the same
// subject with the subject's current roles. The old id is written to the
// ledger before the replacement exists; when two refreshes race on the same
// token, only the first writer proceeds to issuance.
func (m *Manager) Refresh(ctx context.Context, raw string) (string, time.Time, error) {
	claims, err := m.Verify(ctx, raw, true)
	if err != nil {
		return "", time.Time{}, err
	}

	first, err := m.retire(ctx, claims)
	if err != nil {
		return "", time.Time{}, err
	}
	if !first {
		// A concurrent refresh already rotated this token.
		return "", time.Time{}, ErrUnauthenticated
	}

	user, err := m.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", time.Time{}, ErrUnauthenticated
		}
		return "", time.Time{}, fmt.Errorf("refresh lookup: %w", err)
	}
	if user.Status != UserStatusActive {
		return "", time.Time{}, ErrUnauthenticated
	}
	return m.Issue(user)
}

// Logout retires the presented token. A token that is already invalid or
// expired is an achieved end state, not an error.
func (m *Manager) Logout(ctx context.Context, raw string) error {
	claims, err := m.Verify(ctx, raw, true)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil
		}
		return err
	}
	if _, err := m.retire(ctx, claims); err != nil {
		return err
	}
	return nil
}

// Introspect reports whether the token currently verifies for access. It
// never returns an error; a failing ledger reads as an invalid token.
func (m *Manager) Introspect(ctx context.Context, raw string) bool {
	_, err := m.Verify(ctx, raw, false)
	return err == nil
}

// PruneRevoked removes ledger entries whose refresh window has passed and
// returns how many were dropped.
func (m *Manager) PruneRevoked(ctx context.Context) (int, error) {
	return m.ledger.PruneExpired(ctx, m.now().UTC())
}

// retire writes the token id to the ledger. The entry outlives the refresh
// window, not just the access window: a revoked token must stay rejected for
// as long as it could otherwise still be exchanged.
func (m *Manager) retire(ctx context.Context, claims *Claims) (bool, error) {
	until := claims.IssuedAt.Time.Add(m.cfg.RefreshableDuration)
	first, err := m.ledger.Revoke(ctx, claims.ID, until)
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	if first {
		obs.TokenRevoked()
	}
	return first, nil
}
