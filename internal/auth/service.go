package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const minPasswordLength = 8

// Session is the result of a successful sign-in or refresh.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Username  string
	Roles     []Role
}

// Authenticator orchestrates credential checks against the user store and
// token issuance through the lifecycle manager.
type Authenticator struct {
	users  UserStore
	tokens *Manager
}

// NewAuthenticator wires the credential store to the token lifecycle manager.
func NewAuthenticator(users UserStore, tokens *Manager) *Authenticator {
	return &Authenticator{users: users, tokens: tokens}
}

// SignIn verifies the credentials and issues a token. Unknown usernames and
// bad passwords are reported through distinct sentinels; no lockout or
// throttling happens here.
func (a *Authenticator) SignIn(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrUserNotFound
		}
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if user.Status != UserStatusActive {
		return Session{}, ErrInvalidCredentials
	}
	token, expiresAt, err := a.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  user.Username,
		Roles:     user.Roles,
	}, nil
}

// SignUp creates a FARMER or BUYER account. The ADMIN role is never
// self-assignable; anything other than BUYER falls back to FARMER.
func (a *Authenticator) SignUp(ctx context.Context, username, password, fullName, roleCode string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username must not be blank", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	role := RoleFarmer
	if parsed, ok := ParseRole(roleCode); ok && parsed == RoleBuyer {
		role = RoleBuyer
	}

	if _, err := a.users.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Username:     username,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		Status:       UserStatusActive,
		Roles:        []Role{role},
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account if no user with that
// username exists yet. Safe to call on every startup.
func (a *Authenticator) EnsureAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: admin credentials are required", ErrInvalidInput)
	}
	_, err := a.users.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("check admin: %w", err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return a.users.Create(ctx, &User{
		Username:     username,
		PasswordHash: hash,
		Status:       UserStatusActive,
		Roles:        []Role{RoleAdmin},
	})
}
