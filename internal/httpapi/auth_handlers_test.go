package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elnino282/acm-backend/internal/access"
	"github.com/elnino282/acm-backend/internal/auth"
	"github.com/elnino282/acm-backend/internal/farm"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	h, _ := newTestAPIWithAuthn(t)
	return h
}

func newTestAPIWithAuthn(t *testing.T) (http.Handler, *auth.Authenticator) {
	t.Helper()
	users := auth.NewMemoryUserStore()
	tokens, err := auth.NewManager(auth.Config{
		SigningSecret:       []byte("0123456789abcdef0123456789abcdef"),
		ValidDuration:       time.Hour,
		RefreshableDuration: 10 * time.Hour,
	}, auth.NewMemoryLedger(), users)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	authn := auth.NewAuthenticator(users, tokens)
	store := farm.NewMemoryStore()
	farms := farm.NewService(store, access.NewEvaluator(store))
	api := New(authn, tokens, users, farms, ReadyProbe{}, "test")
	return api.Handler(), authn
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func signUpAndIn(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/api/v1/auth/sign-up", "", map[string]any{
		"username": username,
		"password": "password123",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("sign-up %s: %d %s", username, rr.Code, rr.Body.String())
	}
	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/sign-in", "", map[string]any{
		"username": username,
		"password": "password123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("sign-in %s: %d %s", username, rr.Code, rr.Body.String())
	}
	var resp tokenResponse
	decodeBody(t, rr, &resp)
	return resp.Token
}

func TestAuthFlow(t *testing.T) {
	h := newTestAPI(t)

	// sign-up
	rr := doJSON(t, h, http.MethodPost, "/api/v1/auth/sign-up", "", map[string]any{
		"username":  "alice",
		"password":  "password123",
		"full_name": "Alice Tran",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("sign-up: %d %s", rr.Code, rr.Body.String())
	}

	// duplicate username conflicts
	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/sign-up", "", map[string]any{
		"username": "alice",
		"password": "password123",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate sign-up: %d", rr.Code)
	}

	// sign-in
	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/sign-in", "", map[string]any{
		"username": "alice",
		"password": "password123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("sign-in: %d %s", rr.Code, rr.Body.String())
	}
	var session tokenResponse
	decodeBody(t, rr, &session)
	if session.Token == "" || session.Username != "alice" {
		t.Fatalf("session = %+v", session)
	}

	// introspect valid
	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/introspect", "", map[string]any{"token": session.Token})
	if rr.Code != http.StatusOK {
		t.Fatalf("introspect: %d", rr.Code)
	}
	var intro introspectResponse
	decodeBody(t, rr, &intro)
	if !intro.Valid {
		t.Fatal("expected live token to be valid")
	}

	// refresh rotates
	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/refresh", "", map[string]any{"token": session.Token})
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rr.Code, rr.Body.String())
	}
	var refreshed tokenResponse
	decodeBody(t, rr, &refreshed)
	if refreshed.Token == "" || refreshed.Token == session.Token {
		t.Fatal("expected a new token from refresh")
	}

	// the old token no longer introspects
	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/introspect", "", map[string]any{"token": session.Token})
	decodeBody(t, rr, &intro)
	if intro.Valid {
		t.Fatal("expected rotated-out token to be invalid")
	}

	// a second refresh of the old token is rejected
	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/refresh", "", map[string]any{"token": session.Token})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: %d", rr.Code)
	}

	// logout kills the live token, and repeating it stays 200
	for i := 0; i < 2; i++ {
		rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/logout", "", map[string]any{"token": refreshed.Token})
		if rr.Code != http.StatusOK {
			t.Fatalf("logout #%d: %d", i+1, rr.Code)
		}
	}
	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/introspect", "", map[string]any{"token": refreshed.Token})
	decodeBody(t, rr, &intro)
	if intro.Valid {
		t.Fatal("expected logged-out token to be invalid")
	}
}

func TestSignInFailureStatuses(t *testing.T) {
	h := newTestAPI(t)
	signUpAndIn(t, h, "alice")

	rr := doJSON(t, h, http.MethodPost, "/api/v1/auth/sign-in", "", map[string]any{
		"username": "ghost",
		"password": "password123",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown user: %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/sign-in", "", map[string]any{
		"username": "alice",
		"password": "wrong-password",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rr.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestAPI(t)

	rr := doJSON(t, h, http.MethodGet, "/api/v1/farms", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}

	rr = doJSON(t, h, http.MethodGet, "/api/v1/farms", "not-a-real-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", rr.Code)
	}

	// health endpoints stay public
	rr = doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rr.Code)
	}
}

func TestAuthUnknownOperation(t *testing.T) {
	h := newTestAPI(t)
	rr := doJSON(t, h, http.MethodPost, "/api/v1/auth/unknown", "", map[string]any{})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown op: %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/api/v1/auth/sign-in", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET sign-in: %d", rr.Code)
	}
}

func TestAdminPruneEndpoint(t *testing.T) {
	h, authn := newTestAPIWithAuthn(t)
	if err := authn.EnsureAdmin(context.Background(), "root", "super-secret-pw"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}

	farmerToken := signUpAndIn(t, h, "dana")
	rr := doJSON(t, h, http.MethodPost, "/api/v1/admin/tokens/prune", farmerToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("farmer prune: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/api/v1/auth/sign-in", "", map[string]any{
		"username": "root",
		"password": "super-secret-pw",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("admin sign-in: %d %s", rr.Code, rr.Body.String())
	}
	var adminResp tokenResponse
	decodeBody(t, rr, &adminResp)

	rr = doJSON(t, h, http.MethodPost, "/api/v1/admin/tokens/prune", adminResp.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin prune: %d %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Pruned int `json:"pruned"`
	}
	decodeBody(t, rr, &out)
	if out.Pruned != 0 {
		t.Fatalf("pruned = %d, want 0 on a fresh ledger", out.Pruned)
	}
}
