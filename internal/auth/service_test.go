package auth

import (
	"context"
	"errors"
	"testing"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, *MemoryUserStore) {
	t.Helper()
	users := NewMemoryUserStore()
	m, err := NewManager(testConfig(), NewMemoryLedger(), users)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return NewAuthenticator(users, m), users
}

func TestSignUpAndSignIn(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()

	user, err := a.SignUp(ctx, "alice", "password123", "Alice Tran", "")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0] != RoleFarmer {
		t.Fatalf("default role = %v, want FARMER", user.Roles)
	}
	if user.PasswordHash == "password123" {
		t.Fatal("password stored in clear")
	}

	session, err := a.SignIn(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if session.Token == "" || session.Username != "alice" {
		t.Fatalf("session = %+v", session)
	}
}

func TestSignUpRoleAssignment(t *testing.T) {
	cases := []struct {
		role string
		want Role
	}{
		{"", RoleFarmer},
		{"FARMER", RoleFarmer},
		{"BUYER", RoleBuyer},
		{"buyer", RoleBuyer},
		{"ADMIN", RoleFarmer},   // never self-assignable
		{"gibberish", RoleFarmer},
	}
	for _, tc := range cases {
		t.Run("role="+tc.role, func(t *testing.T) {
			a, _ := newTestAuthenticator(t)
			user, err := a.SignUp(context.Background(), "u-"+tc.role, "password123", "", tc.role)
			if err != nil {
				t.Fatalf("sign up: %v", err)
			}
			if len(user.Roles) != 1 || user.Roles[0] != tc.want {
				t.Fatalf("roles = %v, want %v", user.Roles, tc.want)
			}
		})
	}
}

func TestSignUpValidation(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()

	if _, err := a.SignUp(ctx, "", "password123", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank username: got %v", err)
	}
	if _, err := a.SignUp(ctx, "bob", "short", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short password: got %v", err)
	}

	if _, err := a.SignUp(ctx, "carol", "password123", "", ""); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	if _, err := a.SignUp(ctx, "Carol", "password123", "", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate username: got %v", err)
	}
}

func TestSignInFailures(t *testing.T) {
	a, users := newTestAuthenticator(t)
	ctx := context.Background()

	if _, err := a.SignIn(ctx, "ghost", "whatever123"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: got %v", err)
	}
	if _, err := a.SignIn(ctx, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("blank credentials: got %v", err)
	}

	user, err := a.SignUp(ctx, "alice", "password123", "", "")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := a.SignIn(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password: got %v", err)
	}

	users.mu.Lock()
	users.byID[user.ID].Status = UserStatusDisabled
	users.mu.Unlock()
	if _, err := a.SignIn(ctx, "alice", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("disabled user: got %v", err)
	}
}

func TestEnsureAdminIdempotent(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()

	if err := a.EnsureAdmin(ctx, "root", "super-secret-pw"); err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}
	if err := a.EnsureAdmin(ctx, "root", "different-pw"); err != nil {
		t.Fatalf("repeat bootstrap: %v", err)
	}

	session, err := a.SignIn(ctx, "root", "super-secret-pw")
	if err != nil {
		t.Fatalf("admin sign in: %v", err)
	}
	if len(session.Roles) != 1 || session.Roles[0] != RoleAdmin {
		t.Fatalf("admin roles = %v", session.Roles)
	}
}
