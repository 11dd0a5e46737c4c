package farm

import (
	"context"
	"time"
)

// Store describes persistence for farms, plots, seasons and their child
// records. Lookups return the sentinel not-found errors from errors.go.
type Store interface {
	CreateFarm(ctx context.Context, f *Farm) error
	FarmByID(ctx context.Context, id string) (*Farm, error)
	FarmsByOwner(ctx context.Context, ownerID string) ([]*Farm, error)
	OwnedFarmIDs(ctx context.Context, ownerID string) ([]string, error)
	FarmNameTaken(ctx context.Context, ownerID, name, excludeID string) (bool, error)
	UpdateFarm(ctx context.Context, f *Farm) error
	FarmHasPlots(ctx context.Context, farmID string) (bool, error)

	CreatePlot(ctx context.Context, p *Plot) error
	PlotByID(ctx context.Context, id string) (*Plot, error)
	PlotsByOwner(ctx context.Context, ownerID string) ([]*Plot, error)
	PlotsByFarm(ctx context.Context, farmID string) ([]*Plot, error)
	PlotNameTaken(ctx context.Context, ownerID, name, excludeID string) (bool, error)
	UpdatePlot(ctx context.Context, p *Plot) error
	DeletePlot(ctx context.Context, id string) error

	CreateSeason(ctx context.Context, s *Season) error
	SeasonByID(ctx context.Context, id string) (*Season, error)
	SeasonsByPlot(ctx context.Context, plotID string) ([]*Season, error)
	SeasonsByPlotOwner(ctx context.Context, ownerID string) ([]*Season, error)
	SeasonsByFarmIDs(ctx context.Context, farmIDs []string) ([]*Season, error)
	FarmHasSeasons(ctx context.Context, farmID string) (bool, error)
	PlotHasSeasonsIn(ctx context.Context, plotID string, statuses []SeasonStatus) (bool, error)
	UpdateSeason(ctx context.Context, s *Season) error
	DeleteSeason(ctx context.Context, id string) error

	CreateExpense(ctx context.Context, e *Expense) error
	ExpensesBySeason(ctx context.Context, seasonID string) ([]*Expense, error)
	SeasonHasExpenses(ctx context.Context, seasonID string) (bool, error)

	CreateHarvest(ctx context.Context, h *Harvest) error
	HarvestsBySeason(ctx context.Context, seasonID string) ([]*Harvest, error)
	SeasonHasHarvests(ctx context.Context, seasonID string) (bool, error)
}

// SeasonFilter narrows a season search. Zero values mean "no filter".
type SeasonFilter struct {
	PlotID string
	Crop   string
	Status SeasonStatus
	From   time.Time
	To     time.Time
}
