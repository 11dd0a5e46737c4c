package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/elnino282/acm-backend/internal/audit"
	"github.com/elnino282/acm-backend/internal/farm"
)

type farmRequest struct {
	Name       string `json:"name"`
	ProvinceID string `json:"province_id"`
	WardID     string `json:"ward_id"`
	Address    string `json:"address"`
}

func (fr farmRequest) input() farm.FarmInput {
	return farm.FarmInput{
		Name:       fr.Name,
		ProvinceID: fr.ProvinceID,
		WardID:     fr.WardID,
		Address:    fr.Address,
	}
}

func (a *API) handleFarmsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listFarms(w, r)
	case http.MethodPost:
		a.createFarm(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleFarmResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/farms/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "farm not found")
		return
	}

	switch sub {
	case "plots":
		switch r.Method {
		case http.MethodGet:
			a.listFarmPlots(w, r, id)
		case http.MethodPost:
			a.createFarmPlot(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	case "restore":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		a.restoreFarm(w, r, id)
		return
	case "":
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getFarm(w, r, id)
	case http.MethodPut:
		a.updateFarm(w, r, id)
	case http.MethodDelete:
		a.deactivateFarm(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listFarms(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	page, size, err := parsePage(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := farm.FarmQuery{
		Keyword: r.URL.Query().Get("keyword"),
		Page:    page,
		Size:    size,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "active must be a boolean")
			return
		}
		q.Active = &active
	}

	result, err := a.farms.ListFarms(r.Context(), p, q)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) createFarm(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req farmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	f, err := a.farms.CreateFarm(r.Context(), p, req.input())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "farm.create", map[string]any{
		"farm_id": f.ID,
		"name":    f.Name,
	})

	w.Header().Set("Location", "/api/v1/farms/"+f.ID)
	writeJSON(w, http.StatusCreated, f)
}

func (a *API) getFarm(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	f, err := a.farms.GetFarm(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (a *API) updateFarm(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req farmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	f, err := a.farms.UpdateFarm(r.Context(), p, id, req.input())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "farm.update", map[string]any{
		"farm_id": f.ID,
	})

	writeJSON(w, http.StatusOK, f)
}

func (a *API) deactivateFarm(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := a.farms.DeactivateFarm(r.Context(), p, id); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "farm.deactivate", map[string]any{
		"farm_id": id,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) restoreFarm(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	f, err := a.farms.RestoreFarm(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "farm.restore", map[string]any{
		"farm_id": f.ID,
	})

	writeJSON(w, http.StatusOK, f)
}

func (a *API) createFarmPlot(w http.ResponseWriter, r *http.Request, farmID string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req plotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	in := req.input()
	in.FarmID = farmID

	plot, err := a.farms.CreatePlot(r.Context(), p, in)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "plot.create", map[string]any{
		"plot_id": plot.ID,
		"farm_id": farmID,
	})

	w.Header().Set("Location", "/api/v1/plots/"+plot.ID)
	writeJSON(w, http.StatusCreated, plot)
}

func (a *API) listFarmPlots(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	plots, err := a.farms.ListFarmPlots(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": plots})
}
