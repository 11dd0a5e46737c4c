package httpapi

import (
	"net/http"
	"strings"

	"github.com/elnino282/acm-backend/internal/audit"
	"github.com/elnino282/acm-backend/internal/farm"
)

type plotRequest struct {
	Name     string  `json:"name"`
	AreaM2   float64 `json:"area_m2"`
	SoilType string  `json:"soil_type"`
	FarmID   string  `json:"farm_id"`
}

func (pr plotRequest) input() farm.PlotInput {
	return farm.PlotInput{
		Name:     pr.Name,
		AreaM2:   pr.AreaM2,
		SoilType: pr.SoilType,
		FarmID:   pr.FarmID,
	}
}

func (a *API) handlePlotsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listMyPlots(w, r)
	case http.MethodPost:
		a.createPlot(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePlotResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/plots/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getPlot(w, r, path)
	case http.MethodPut:
		a.updatePlot(w, r, path)
	case http.MethodDelete:
		a.deletePlot(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listMyPlots(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	plots, err := a.farms.ListMyPlots(r.Context(), p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": plots})
}

func (a *API) createPlot(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req plotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pl, err := a.farms.CreatePlot(r.Context(), p, req.input())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "plot.create", map[string]any{
		"plot_id": pl.ID,
		"name":    pl.Name,
	})

	w.Header().Set("Location", "/api/v1/plots/"+pl.ID)
	writeJSON(w, http.StatusCreated, pl)
}

func (a *API) getPlot(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	pl, err := a.farms.GetPlot(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (a *API) updatePlot(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req plotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pl, err := a.farms.UpdatePlot(r.Context(), p, id, req.input())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "plot.update", map[string]any{
		"plot_id": pl.ID,
	})

	writeJSON(w, http.StatusOK, pl)
}

func (a *API) deletePlot(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := a.farms.DeletePlot(r.Context(), p, id); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "plot.delete", map[string]any{
		"plot_id": id,
	})

	w.WriteHeader(http.StatusNoContent)
}
