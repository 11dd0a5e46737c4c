package farm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/elnino282/acm-backend/internal/auth"
	"github.com/elnino282/acm-backend/internal/ids"
)

// AccessDecider is the ownership evaluator consulted before every read or
// mutation of a specific entity. Implemented by internal/access.
type AccessDecider interface {
	CanAccessFarm(ctx context.Context, p auth.Principal, f *Farm) (bool, error)
	CanAccessPlot(ctx context.Context, p auth.Principal, pl *Plot) (bool, error)
	CanAccessSeason(ctx context.Context, p auth.Principal, s *Season) (bool, error)
	AccessibleFarmIDs(ctx context.Context, p auth.Principal) ([]string, error)
}

// Page is a paginated result envelope.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Service implements the farm-management operations. Every entity-scoped
// operation takes the caller principal and applies the ownership policy: a
// principal who is neither owner nor admin gets the not-found sentinel, never
// a forbidden one, so probing for foreign ids is no cheaper than probing for
// owned ones.
type Service struct {
	store  Store
	access AccessDecider
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the store and the access evaluator.
func NewService(store Store, access AccessDecider, opts ...ServiceOption) *Service {
	s := &Service{store: store, access: access, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Farms ---

// FarmInput carries farm create/update fields. On update, empty strings mean
// "leave unchanged".
type FarmInput struct {
	Name       string
	ProvinceID string
	WardID     string
	Address    string
}

// FarmQuery narrows and pages the farm list.
type FarmQuery struct {
	Keyword string
	Active  *bool
	Page    int
	Size    int
}

// ListFarms returns the caller's farms, newest first, filtered by keyword and
// active flag.
func (s *Service) ListFarms(ctx context.Context, p auth.Principal, q FarmQuery) (Page[*Farm], error) {
	farms, err := s.store.FarmsByOwner(ctx, p.UserID)
	if err != nil {
		return Page[*Farm]{}, err
	}
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))
	filtered := farms[:0:0]
	for _, f := range farms {
		if q.Active != nil && f.Active != *q.Active {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(f.Name), keyword) {
			continue
		}
		filtered = append(filtered, f)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID > filtered[j].ID })
	return paginate(filtered, q.Page, q.Size), nil
}

// CreateFarm registers a farm owned by the caller. Farm names are unique per
// owner, case-insensitively.
func (s *Service) CreateFarm(ctx context.Context, p auth.Principal, in FarmInput) (*Farm, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: farm name is required", ErrInvalidInput)
	}
	taken, err := s.store.FarmNameTaken(ctx, p.UserID, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrFarmNameExists
	}
	f := &Farm{
		ID:         ids.New(),
		OwnerID:    p.UserID,
		Name:       name,
		ProvinceID: strings.TrimSpace(in.ProvinceID),
		WardID:     strings.TrimSpace(in.WardID),
		Address:    strings.TrimSpace(in.Address),
		Active:     true,
	}
	if err := s.store.CreateFarm(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// GetFarm loads a farm the caller may access.
func (s *Service) GetFarm(ctx context.Context, p auth.Principal, id string) (*Farm, error) {
	return s.loadFarm(ctx, p, id)
}

// UpdateFarm applies the non-empty fields of in to an accessible farm.
func (s *Service) UpdateFarm(ctx context.Context, p auth.Principal, id string, in FarmInput) (*Farm, error) {
	f, err := s.loadFarm(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" && !strings.EqualFold(name, f.Name) {
		taken, err := s.store.FarmNameTaken(ctx, f.OwnerID, name, f.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrFarmNameExists
		}
		f.Name = name
	}
	if v := strings.TrimSpace(in.ProvinceID); v != "" {
		f.ProvinceID = v
	}
	if v := strings.TrimSpace(in.WardID); v != "" {
		f.WardID = v
	}
	if v := strings.TrimSpace(in.Address); v != "" {
		f.Address = v
	}
	if err := s.store.UpdateFarm(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// DeactivateFarm soft-deletes a farm. Farms with plots or seasons cannot be
// removed.
func (s *Service) DeactivateFarm(ctx context.Context, p auth.Principal, id string) error {
	f, err := s.loadFarm(ctx, p, id)
	if err != nil {
		return err
	}
	hasPlots, err := s.store.FarmHasPlots(ctx, f.ID)
	if err != nil {
		return err
	}
	hasSeasons, err := s.store.FarmHasSeasons(ctx, f.ID)
	if err != nil {
		return err
	}
	if hasPlots || hasSeasons {
		return ErrFarmHasChildren
	}
	f.Active = false
	return s.store.UpdateFarm(ctx, f)
}

// RestoreFarm reactivates a deactivated farm. Restoring an active farm is a
// no-op.
func (s *Service) RestoreFarm(ctx context.Context, p auth.Principal, id string) (*Farm, error) {
	f, err := s.loadFarm(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if f.Active {
		return f, nil
	}
	f.Active = true
	if err := s.store.UpdateFarm(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) loadFarm(ctx context.Context, p auth.Principal, id string) (*Farm, error) {
	f, err := s.store.FarmByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.access.CanAccessFarm(ctx, p, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrFarmNotFound
	}
	return f, nil
}

// --- Plots ---

// PlotInput carries plot create/update fields.
type PlotInput struct {
	Name     string
	AreaM2   float64
	SoilType string
	FarmID   string
}

// ListMyPlots returns the plots the caller directly owns.
func (s *Service) ListMyPlots(ctx context.Context, p auth.Principal) ([]*Plot, error) {
	plots, err := s.store.PlotsByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	sort.Slice(plots, func(i, j int) bool { return plots[i].ID > plots[j].ID })
	return plots, nil
}

// ListFarmPlots returns the plots attached to an accessible farm.
func (s *Service) ListFarmPlots(ctx context.Context, p auth.Principal, farmID string) ([]*Plot, error) {
	f, err := s.loadFarm(ctx, p, farmID)
	if err != nil {
		return nil, err
	}
	plots, err := s.store.PlotsByFarm(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	sort.Slice(plots, func(i, j int) bool { return plots[i].ID > plots[j].ID })
	return plots, nil
}

// CreatePlot registers a plot owned by the caller, optionally attached to one
// of the caller's farms.
func (s *Service) CreatePlot(ctx context.Context, p auth.Principal, in PlotInput) (*Plot, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: plot name is required", ErrInvalidInput)
	}
	if in.AreaM2 <= 0 {
		return nil, ErrInvalidArea
	}
	taken, err := s.store.PlotNameTaken(ctx, p.UserID, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrPlotNameExists
	}
	farmID := strings.TrimSpace(in.FarmID)
	if farmID != "" {
		if _, err := s.loadFarm(ctx, p, farmID); err != nil {
			return nil, err
		}
	}
	pl := &Plot{
		ID:       ids.New(),
		OwnerID:  p.UserID,
		FarmID:   farmID,
		Name:     name,
		AreaM2:   in.AreaM2,
		SoilType: strings.TrimSpace(in.SoilType),
	}
	if err := s.store.CreatePlot(ctx, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

// GetPlot loads a plot the caller may access.
func (s *Service) GetPlot(ctx context.Context, p auth.Principal, id string) (*Plot, error) {
	return s.loadPlot(ctx, p, id)
}

// UpdatePlot applies the non-zero fields of in to an accessible plot.
func (s *Service) UpdatePlot(ctx context.Context, p auth.Principal, id string, in PlotInput) (*Plot, error) {
	pl, err := s.loadPlot(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" && !strings.EqualFold(name, pl.Name) {
		taken, err := s.store.PlotNameTaken(ctx, pl.OwnerID, name, pl.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrPlotNameExists
		}
		pl.Name = name
	}
	if in.AreaM2 != 0 {
		if in.AreaM2 < 0 {
			return nil, ErrInvalidArea
		}
		pl.AreaM2 = in.AreaM2
	}
	if v := strings.TrimSpace(in.SoilType); v != "" {
		pl.SoilType = v
	}
	if err := s.store.UpdatePlot(ctx, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

// DeletePlot removes a plot without planned or active seasons.
func (s *Service) DeletePlot(ctx context.Context, p auth.Principal, id string) error {
	pl, err := s.loadPlot(ctx, p, id)
	if err != nil {
		return err
	}
	busy, err := s.store.PlotHasSeasonsIn(ctx, pl.ID, []SeasonStatus{SeasonPlanned, SeasonActive})
	if err != nil {
		return err
	}
	if busy {
		return ErrPlotHasActiveSeasons
	}
	return s.store.DeletePlot(ctx, pl.ID)
}

func (s *Service) loadPlot(ctx context.Context, p auth.Principal, id string) (*Plot, error) {
	pl, err := s.store.PlotByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.access.CanAccessPlot(ctx, p, pl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPlotNotFound
	}
	return pl, nil
}

// --- Seasons ---

// SeasonInput carries season creation fields.
type SeasonInput struct {
	PlotID             string
	CropName           string
	Name               string
	StartDate          time.Time
	PlannedHarvestDate time.Time
	EndDate            time.Time
	InitialPlantCount  int
	ExpectedYieldKg    float64
	Notes              string
}

// SeasonUpdate carries season update fields; zero values mean "unchanged".
type SeasonUpdate struct {
	Name               string
	StartDate          time.Time
	PlannedHarvestDate time.Time
	EndDate            time.Time
	CurrentPlantCount  *int
	Notes              *string
}

// SearchSeasons returns the caller's seasons across directly owned plots and
// plots reachable through accessible farms. The farm-id pre-filter is an
// optimization only; every row still passes the per-entity check before it is
// returned.
func (s *Service) SearchSeasons(ctx context.Context, p auth.Principal, filter SeasonFilter, page, size int) (Page[*Season], error) {
	farmIDs, err := s.access.AccessibleFarmIDs(ctx, p)
	if err != nil {
		return Page[*Season]{}, err
	}
	var all []*Season
	if len(farmIDs) > 0 {
		viaFarms, err := s.store.SeasonsByFarmIDs(ctx, farmIDs)
		if err != nil {
			return Page[*Season]{}, err
		}
		all = append(all, viaFarms...)
	}
	direct, err := s.store.SeasonsByPlotOwner(ctx, p.UserID)
	if err != nil {
		return Page[*Season]{}, err
	}
	all = append(all, direct...)

	seen := make(map[string]struct{}, len(all))
	var result []*Season
	for _, season := range all {
		if _, dup := seen[season.ID]; dup {
			continue
		}
		seen[season.ID] = struct{}{}
		if !matchesFilter(season, filter) {
			continue
		}
		ok, err := s.access.CanAccessSeason(ctx, p, season)
		if err != nil || !ok {
			continue
		}
		result = append(result, season)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return paginate(result, page, size), nil
}

// CreateSeason opens a PLANNED season on an accessible plot after date and
// overlap validation.
func (s *Service) CreateSeason(ctx context.Context, p auth.Principal, in SeasonInput) (*Season, error) {
	pl, err := s.loadPlot(ctx, p, in.PlotID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CropName) == "" {
		return nil, fmt.Errorf("%w: crop name is required", ErrInvalidInput)
	}
	if in.StartDate.IsZero() {
		return nil, ErrInvalidSeasonDates
	}
	if !in.PlannedHarvestDate.IsZero() && in.PlannedHarvestDate.Before(in.StartDate) {
		return nil, ErrInvalidSeasonDates
	}
	if !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return nil, ErrInvalidSeasonDates
	}

	season := &Season{
		ID:                 ids.New(),
		PlotID:             pl.ID,
		CropName:           strings.TrimSpace(in.CropName),
		Name:               strings.TrimSpace(in.Name),
		Status:             SeasonPlanned,
		StartDate:          in.StartDate,
		PlannedHarvestDate: in.PlannedHarvestDate,
		EndDate:            in.EndDate,
		InitialPlantCount:  in.InitialPlantCount,
		CurrentPlantCount:  in.InitialPlantCount,
		ExpectedYieldKg:    in.ExpectedYieldKg,
		Notes:              strings.TrimSpace(in.Notes),
	}
	if err := s.ensureNoOverlap(ctx, pl.ID, season); err != nil {
		return nil, err
	}
	if err := s.store.CreateSeason(ctx, season); err != nil {
		return nil, err
	}
	return season, nil
}

// GetSeason loads a season the caller may access.
func (s *Service) GetSeason(ctx context.Context, p auth.Principal, id string) (*Season, error) {
	return s.loadSeason(ctx, p, id)
}

// UpdateSeason applies upd to an open, accessible season. Date changes are
// re-validated against the plot's other seasons.
func (s *Service) UpdateSeason(ctx context.Context, p auth.Principal, id string, upd SeasonUpdate) (*Season, error) {
	season, err := s.loadSeason(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if season.Status.Closed() {
		return nil, ErrSeasonClosed
	}
	if upd.Name != "" {
		season.Name = strings.TrimSpace(upd.Name)
	}
	datesChanged := false
	if !upd.StartDate.IsZero() {
		season.StartDate = upd.StartDate
		datesChanged = true
	}
	if !upd.PlannedHarvestDate.IsZero() {
		season.PlannedHarvestDate = upd.PlannedHarvestDate
		datesChanged = true
	}
	if !upd.EndDate.IsZero() {
		season.EndDate = upd.EndDate
		datesChanged = true
	}
	if datesChanged {
		if !season.PlannedHarvestDate.IsZero() && season.PlannedHarvestDate.Before(season.StartDate) {
			return nil, ErrInvalidSeasonDates
		}
		if !season.EndDate.IsZero() && season.EndDate.Before(season.StartDate) {
			return nil, ErrInvalidSeasonDates
		}
		if err := s.ensureNoOverlap(ctx, season.PlotID, season); err != nil {
			return nil, err
		}
	}
	if upd.CurrentPlantCount != nil {
		if *upd.CurrentPlantCount < 0 {
			return nil, fmt.Errorf("%w: plant count must not be negative", ErrInvalidInput)
		}
		season.CurrentPlantCount = *upd.CurrentPlantCount
	}
	if upd.Notes != nil {
		season.Notes = strings.TrimSpace(*upd.Notes)
	}
	if err := s.store.UpdateSeason(ctx, season); err != nil {
		return nil, err
	}
	return season, nil
}

// ChangeSeasonStatus moves a season along its lifecycle. Completing a season
// without an end date stamps the current date.
func (s *Service) ChangeSeasonStatus(ctx context.Context, p auth.Principal, id string, next SeasonStatus) (*Season, error) {
	season, err := s.loadSeason(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !season.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}
	season.Status = next
	if next == SeasonCompleted && season.EndDate.IsZero() {
		season.EndDate = s.now().UTC()
	}
	if err := s.store.UpdateSeason(ctx, season); err != nil {
		return nil, err
	}
	return season, nil
}

// DeleteSeason removes a season without expenses or harvests.
func (s *Service) DeleteSeason(ctx context.Context, p auth.Principal, id string) error {
	season, err := s.loadSeason(ctx, p, id)
	if err != nil {
		return err
	}
	hasExpenses, err := s.store.SeasonHasExpenses(ctx, season.ID)
	if err != nil {
		return err
	}
	hasHarvests, err := s.store.SeasonHasHarvests(ctx, season.ID)
	if err != nil {
		return err
	}
	if hasExpenses || hasHarvests {
		return ErrSeasonHasChildren
	}
	return s.store.DeleteSeason(ctx, season.ID)
}

func (s *Service) loadSeason(ctx context.Context, p auth.Principal, id string) (*Season, error) {
	season, err := s.store.SeasonByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.access.CanAccessSeason(ctx, p, season)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSeasonNotFound
	}
	return season, nil
}

// ensureNoOverlap rejects seasons whose occupied range intersects another
// planned or active season on the same plot.
func (s *Service) ensureNoOverlap(ctx context.Context, plotID string, candidate *Season) error {
	others, err := s.store.SeasonsByPlot(ctx, plotID)
	if err != nil {
		return err
	}
	cStart, cEnd := candidate.StartDate, candidate.effectiveEnd()
	for _, other := range others {
		if other.ID == candidate.ID {
			continue
		}
		if other.Status != SeasonPlanned && other.Status != SeasonActive {
			continue
		}
		oStart, oEnd := other.StartDate, other.effectiveEnd()
		if !cEnd.Before(oStart) && !cStart.After(oEnd) {
			return ErrSeasonOverlap
		}
	}
	return nil
}

func matchesFilter(season *Season, f SeasonFilter) bool {
	if f.PlotID != "" && season.PlotID != f.PlotID {
		return false
	}
	if f.Crop != "" && !strings.EqualFold(season.CropName, f.Crop) {
		return false
	}
	if f.Status != "" && season.Status != f.Status {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		start, end := season.StartDate, season.effectiveEnd()
		if !f.From.IsZero() && end.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && start.After(f.To) {
			return false
		}
	}
	return true
}

// --- Season children ---

// ExpenseInput carries expense creation fields.
type ExpenseInput struct {
	Category string
	Amount   float64
	Note     string
	SpentAt  time.Time
}

// AddExpense books a cost against an open, accessible season.
func (s *Service) AddExpense(ctx context.Context, p auth.Principal, seasonID string, in ExpenseInput) (*Expense, error) {
	season, err := s.loadSeason(ctx, p, seasonID)
	if err != nil {
		return nil, err
	}
	if season.Status.Closed() {
		return nil, ErrSeasonClosed
	}
	if strings.TrimSpace(in.Category) == "" {
		return nil, fmt.Errorf("%w: expense category is required", ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: expense amount must be greater than zero", ErrInvalidInput)
	}
	spentAt := in.SpentAt
	if spentAt.IsZero() {
		spentAt = s.now().UTC()
	}
	e := &Expense{
		ID:       ids.New(),
		SeasonID: season.ID,
		Category: strings.TrimSpace(in.Category),
		Amount:   in.Amount,
		Note:     strings.TrimSpace(in.Note),
		SpentAt:  spentAt,
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListExpenses returns the expenses of an accessible season.
func (s *Service) ListExpenses(ctx context.Context, p auth.Principal, seasonID string) ([]*Expense, error) {
	season, err := s.loadSeason(ctx, p, seasonID)
	if err != nil {
		return nil, err
	}
	return s.store.ExpensesBySeason(ctx, season.ID)
}

// HarvestInput carries harvest creation fields.
type HarvestInput struct {
	QuantityKg  float64
	Quality     string
	HarvestedAt time.Time
}

// AddHarvest books a yield record against an open, accessible season. The
// harvest date must not precede the season start.
func (s *Service) AddHarvest(ctx context.Context, p auth.Principal, seasonID string, in HarvestInput) (*Harvest, error) {
	season, err := s.loadSeason(ctx, p, seasonID)
	if err != nil {
		return nil, err
	}
	if season.Status.Closed() {
		return nil, ErrSeasonClosed
	}
	if in.QuantityKg <= 0 {
		return nil, ErrInvalidQuantity
	}
	harvestedAt := in.HarvestedAt
	if harvestedAt.IsZero() {
		harvestedAt = s.now().UTC()
	}
	if harvestedAt.Before(season.StartDate) {
		return nil, ErrHarvestBeforeStart
	}
	h := &Harvest{
		ID:          ids.New(),
		SeasonID:    season.ID,
		QuantityKg:  in.QuantityKg,
		Quality:     strings.TrimSpace(in.Quality),
		HarvestedAt: harvestedAt,
	}
	if err := s.store.CreateHarvest(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// ListHarvests returns the harvests of an accessible season.
func (s *Service) ListHarvests(ctx context.Context, p auth.Principal, seasonID string) ([]*Harvest, error) {
	season, err := s.loadSeason(ctx, p, seasonID)
	if err != nil {
		return nil, err
	}
	return s.store.HarvestsBySeason(ctx, season.ID)
}

func paginate[T any](items []T, page, size int) Page[T] {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	total := len(items)
	totalPages := (total + size - 1) / size
	from := page * size
	if from > total {
		from = total
	}
	to := from + size
	if to > total {
		to = total
	}
	return Page[T]{
		Items:      items[from:to],
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
