package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elnino282/acm-backend/internal/auth"
)

func withPrincipal(req *http.Request, roles ...auth.Role) *http.Request {
	p := auth.Principal{UserID: "u-1", Username: "user-1", Roles: roles}
	return req.WithContext(auth.ContextWithPrincipal(req.Context(), p))
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/internal", nil), auth.RoleAdmin)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireRoleRejectsMissingRole(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/internal", nil), auth.RoleFarmer)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got == "" {
		t.Fatalf("expected WWW-Authenticate header set")
	}
}

func TestRequireRoleRejectsMissingUser(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got == "" {
		t.Fatalf("expected WWW-Authenticate header set")
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc.def.ghi", "abc.def.ghi", false},
		{"Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Basic dXNlcjpwdw==", "", true},
		{"Bearer ", "", true},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Errorf("header %q: expected error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Errorf("header %q: %v", tc.header, err)
			continue
		}
		if got != tc.want {
			t.Errorf("header %q: got %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestPublicPaths(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/v1/info", "/api/v1/auth/sign-in"} {
		if !isPublicPath(path) {
			t.Errorf("expected %q public", path)
		}
	}
	for _, path := range []string{"/api/v1/farms", "/api/v1/seasons/abc", "/api/v1/plots"} {
		if isPublicPath(path) {
			t.Errorf("expected %q protected", path)
		}
	}
}
