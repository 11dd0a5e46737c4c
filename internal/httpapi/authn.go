package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/elnino282/acm-backend/internal/auth"
	"github.com/elnino282/acm-backend/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/",
}

var publicPrefixes = []string{
	"/api/v1/auth/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="acm"`)
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.tokens.Verify(r.Context(), token, false)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="acm", error="invalid_token"`)
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		// Role claims come from the token; a user disabled after issuance is
		// still cut off because refresh re-reads the account.
		principal := auth.Principal{
			Username: claims.Subject,
			Roles:    claims.Roles(),
		}
		if a.users != nil {
			user, err := a.users.FindByUsername(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					w.Header().Set("WWW-Authenticate", `Bearer realm="acm", error="invalid_token"`)
					writeError(w, r, http.StatusUnauthorized, "invalid token")
					return
				}
				writeError(w, r, http.StatusInternalServerError, "authentication error")
				return
			}
			if user.Status != auth.UserStatusActive {
				w.Header().Set("WWW-Authenticate", `Bearer realm="acm", error="invalid_token"`)
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			principal.UserID = user.ID
			principal.Roles = user.Roles
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole guards a handler behind a role held by the principal.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="acm"`)
				writeError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			if !p.HasRole(role) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="acm", error="insufficient_scope"`)
				obs.LogEntry(map[string]any{
					"level": "warn",
					"msg":   "role_denied",
					"user":  p.Username,
					"role":  string(role),
					"path":  r.URL.Path,
				})
				writeError(w, r, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
