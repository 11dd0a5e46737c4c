package httpapi

import (
	"net/http"
	"strings"

	"github.com/elnino282/acm-backend/internal/audit"
	"github.com/elnino282/acm-backend/internal/farm"
)

type seasonRequest struct {
	PlotID             string  `json:"plot_id"`
	CropName           string  `json:"crop_name"`
	Name               string  `json:"name"`
	StartDate          string  `json:"start_date"`
	PlannedHarvestDate string  `json:"planned_harvest_date"`
	EndDate            string  `json:"end_date"`
	InitialPlantCount  int     `json:"initial_plant_count"`
	ExpectedYieldKg    float64 `json:"expected_yield_kg"`
	Notes              string  `json:"notes"`
}

type seasonUpdateRequest struct {
	Name               string  `json:"name"`
	StartDate          string  `json:"start_date"`
	PlannedHarvestDate string  `json:"planned_harvest_date"`
	EndDate            string  `json:"end_date"`
	CurrentPlantCount  *int    `json:"current_plant_count"`
	Notes              *string `json:"notes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type expenseRequest struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note"`
	SpentAt  string  `json:"spent_at"`
}

type harvestRequest struct {
	QuantityKg  float64 `json:"quantity_kg"`
	Quality     string  `json:"quality"`
	HarvestedAt string  `json:"harvested_at"`
}

func (a *API) handleSeasonsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.searchSeasons(w, r)
	case http.MethodPost:
		a.createSeason(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSeasonResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/seasons/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getSeason(w, r, id)
		case http.MethodPut:
			a.updateSeason(w, r, id)
		case http.MethodDelete:
			a.deleteSeason(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case "status":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		a.changeSeasonStatus(w, r, id)
	case "expenses":
		switch r.Method {
		case http.MethodGet:
			a.listExpenses(w, r, id)
		case http.MethodPost:
			a.addExpense(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case "harvests":
		switch r.Method {
		case http.MethodGet:
			a.listHarvests(w, r, id)
		case http.MethodPost:
			a.addHarvest(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) searchSeasons(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	page, size, err := parsePage(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	filter := farm.SeasonFilter{
		PlotID: strings.TrimSpace(q.Get("plot_id")),
		Crop:   strings.TrimSpace(q.Get("crop")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, ok := farm.ParseSeasonStatus(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown season status")
			return
		}
		filter.Status = status
	}
	if filter.From, err = parseDate(q.Get("from")); err != nil {
		writeError(w, r, http.StatusBadRequest, "from must be a date")
		return
	}
	if filter.To, err = parseDate(q.Get("to")); err != nil {
		writeError(w, r, http.StatusBadRequest, "to must be a date")
		return
	}

	result, err := a.farms.SearchSeasons(r.Context(), p, filter, page, size)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) createSeason(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req seasonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	in := farm.SeasonInput{
		PlotID:            req.PlotID,
		CropName:          req.CropName,
		Name:              req.Name,
		InitialPlantCount: req.InitialPlantCount,
		ExpectedYieldKg:   req.ExpectedYieldKg,
		Notes:             req.Notes,
	}
	var err error
	if in.StartDate, err = parseDate(req.StartDate); err != nil {
		writeError(w, r, http.StatusBadRequest, "start_date must be a date")
		return
	}
	if in.PlannedHarvestDate, err = parseDate(req.PlannedHarvestDate); err != nil {
		writeError(w, r, http.StatusBadRequest, "planned_harvest_date must be a date")
		return
	}
	if in.EndDate, err = parseDate(req.EndDate); err != nil {
		writeError(w, r, http.StatusBadRequest, "end_date must be a date")
		return
	}

	season, err := a.farms.CreateSeason(r.Context(), p, in)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "season.create", map[string]any{
		"season_id": season.ID,
		"plot_id":   season.PlotID,
		"crop":      season.CropName,
	})

	w.Header().Set("Location", "/api/v1/seasons/"+season.ID)
	writeJSON(w, http.StatusCreated, season)
}

func (a *API) getSeason(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	season, err := a.farms.GetSeason(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, season)
}

func (a *API) updateSeason(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req seasonUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	upd := farm.SeasonUpdate{
		Name:              req.Name,
		CurrentPlantCount: req.CurrentPlantCount,
		Notes:             req.Notes,
	}
	var err error
	if upd.StartDate, err = parseDate(req.StartDate); err != nil {
		writeError(w, r, http.StatusBadRequest, "start_date must be a date")
		return
	}
	if upd.PlannedHarvestDate, err = parseDate(req.PlannedHarvestDate); err != nil {
		writeError(w, r, http.StatusBadRequest, "planned_harvest_date must be a date")
		return
	}
	if upd.EndDate, err = parseDate(req.EndDate); err != nil {
		writeError(w, r, http.StatusBadRequest, "end_date must be a date")
		return
	}

	season, err := a.farms.UpdateSeason(r.Context(), p, id, upd)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "season.update", map[string]any{
		"season_id": season.ID,
	})

	writeJSON(w, http.StatusOK, season)
}

func (a *API) changeSeasonStatus(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	next, valid := farm.ParseSeasonStatus(req.Status)
	if !valid {
		writeError(w, r, http.StatusBadRequest, "unknown season status")
		return
	}

	season, err := a.farms.ChangeSeasonStatus(r.Context(), p, id, next)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "season.status_change", map[string]any{
		"season_id": season.ID,
		"status":    string(season.Status),
	})

	writeJSON(w, http.StatusOK, season)
}

func (a *API) deleteSeason(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := a.farms.DeleteSeason(r.Context(), p, id); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "season.delete", map[string]any{
		"season_id": id,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listExpenses(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	expenses, err := a.farms.ListExpenses(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": expenses})
}

func (a *API) addExpense(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	in := farm.ExpenseInput{
		Category: req.Category,
		Amount:   req.Amount,
		Note:     req.Note,
	}
	var err error
	if in.SpentAt, err = parseDate(req.SpentAt); err != nil {
		writeError(w, r, http.StatusBadRequest, "spent_at must be a date")
		return
	}

	expense, err := a.farms.AddExpense(r.Context(), p, id, in)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "season.expense_add", map[string]any{
		"season_id":  id,
		"expense_id": expense.ID,
	})

	writeJSON(w, http.StatusCreated, expense)
}

func (a *API) listHarvests(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	harvests, err := a.farms.ListHarvests(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": harvests})
}

func (a *API) addHarvest(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req harvestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	in := farm.HarvestInput{
		QuantityKg: req.QuantityKg,
		Quality:    req.Quality,
	}
	var err error
	if in.HarvestedAt, err = parseDate(req.HarvestedAt); err != nil {
		writeError(w, r, http.StatusBadRequest, "harvested_at must be a date")
		return
	}

	harvest, err := a.farms.AddHarvest(r.Context(), p, id, in)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "season.harvest_add", map[string]any{
		"season_id":  id,
		"harvest_id": harvest.ID,
	})

	writeJSON(w, http.StatusCreated, harvest)
}
