package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elnino282/acm-backend/internal/access"
	"github.com/elnino282/acm-backend/internal/auth"
	"github.com/elnino282/acm-backend/internal/farm"
	"github.com/elnino282/acm-backend/internal/obs"
)

// ReadyProbe reports backend readiness (database ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	authn      *auth.Authenticator
	tokens     *auth.Manager
	users      auth.UserStore
	farms      *farm.Service
	readyProbe ReadyProbe
	version    string
}

func New(authn *auth.Authenticator, tokens *auth.Manager, users auth.UserStore, farms *farm.Service, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		authn:      authn,
		tokens:     tokens,
		users:      users,
		farms:      farms,
		readyProbe: rp,
		version:    version,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.HandleFunc("/api/v1/auth/", a.handleAuth)

	// farm management
	a.mux.HandleFunc("/api/v1/farms", a.handleFarmsCollection)
	a.mux.HandleFunc("/api/v1/farms/", a.handleFarmResource)
	a.mux.HandleFunc("/api/v1/plots", a.handlePlotsCollection)
	a.mux.HandleFunc("/api/v1/plots/", a.handlePlotResource)
	a.mux.HandleFunc("/api/v1/seasons", a.handleSeasonsCollection)
	a.mux.HandleFunc("/api/v1/seasons/", a.handleSeasonResource)

	// admin maintenance
	a.mux.Handle("/api/v1/admin/tokens/prune", RequireRole(auth.RoleAdmin)(http.HandlerFunc(a.pruneTokens)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RateLimit(h, 100, 50)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "acm-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "acm-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parsePage(r *http.Request) (page, size int, err error) {
	page, err = parseBoundedInt(r.URL.Query().Get("page"), 0, 0, 1<<20)
	if err != nil {
		return 0, 0, errors.New("page must be a non-negative integer")
	}
	size, err = parseBoundedInt(r.URL.Query().Get("size"), 20, 1, 200)
	if err != nil {
		return 0, 0, errors.New("size must be between 1 and 200")
	}
	return page, size, nil
}

func parseBoundedInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min || val > max {
		return 0, errors.New("out of range")
	}
	return val, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// principal returns the authenticated caller or writes a 401.
func (a *API) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="acm"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	}
	return p, ok
}

// handleDomainError maps service sentinels onto HTTP statuses. Access denials
// surface as not-found so foreign identifiers stay unprobeable.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="acm"`)
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, access.ErrSeasonOrphaned),
		errors.Is(err, farm.ErrFarmNotFound),
		errors.Is(err, farm.ErrPlotNotFound),
		errors.Is(err, farm.ErrSeasonNotFound),
		errors.Is(err, farm.ErrExpenseNotFound),
		errors.Is(err, farm.ErrHarvestNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, farm.ErrFarmNameExists),
		errors.Is(err, farm.ErrPlotNameExists),
		errors.Is(err, farm.ErrSeasonOverlap):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, farm.ErrInvalidInput),
		errors.Is(err, farm.ErrInvalidSeasonDates),
		errors.Is(err, farm.ErrInvalidTransition),
		errors.Is(err, farm.ErrSeasonClosed),
		errors.Is(err, farm.ErrFarmHasChildren),
		errors.Is(err, farm.ErrPlotHasActiveSeasons),
		errors.Is(err, farm.ErrSeasonHasChildren),
		errors.Is(err, farm.ErrHarvestBeforeStart),
		errors.Is(err, farm.ErrInvalidQuantity),
		errors.Is(err, farm.ErrInvalidArea):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
