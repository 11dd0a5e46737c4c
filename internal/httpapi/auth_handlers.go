package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/elnino282/acm-backend/internal/audit"
	"github.com/elnino282/acm-backend/internal/auth"
)

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Valid bool `json:"valid"`
}

type tokenCarrier struct {
	Token string `json:"token"`
}

func (a *API) handleAuth(w http.ResponseWriter, r *http.Request) {
	op := strings.TrimPrefix(r.URL.Path, "/api/v1/auth/")
	if strings.Contains(op, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	switch op {
	case "sign-in":
		a.signIn(w, r)
	case "sign-up":
		a.signUp(w, r)
	case "introspect":
		a.introspect(w, r)
	case "refresh":
		a.refresh(w, r)
	case "logout":
		a.logout(w, r)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.authn.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.sign_in", map[string]any{
		"username":   session.Username,
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Username:  session.Username,
		Roles:     rolesAsStrings(session.Roles),
	})
}

func (a *API) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.authn.SignUp(r.Context(), req.Username, req.Password, req.FullName, req.Role)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.sign_up", map[string]any{
		"username": user.Username,
		"roles":    rolesAsStrings(user.Roles),
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        user.ID,
		"username":  user.Username,
		"full_name": user.FullName,
		"roles":     rolesAsStrings(user.Roles),
	})
}

func (a *API) introspect(w http.ResponseWriter, r *http.Request) {
	var req introspectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, introspectResponse{
		Valid: a.tokens.Introspect(r.Context(), req.Token),
	})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req tokenCarrier
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, expiresAt, err := a.tokens.Refresh(r.Context(), req.Token)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	var req tokenCarrier
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.tokens.Logout(r.Context(), req.Token); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", nil)

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// pruneTokens drops expired revocation entries. The prune loop does the same
// on a schedule; this endpoint lets an operator force a pass.
func (a *API) pruneTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	n, err := a.tokens.PruneRevoked(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.tokens_prune", map[string]any{"pruned": n})

	writeJSON(w, http.StatusOK, map[string]any{"pruned": n})
}

func rolesAsStrings(roles []auth.Role) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}
