package farm

import "errors"

var (
	ErrFarmNotFound    = errors.New("farm: farm not found")
	ErrPlotNotFound    = errors.New("farm: plot not found")
	ErrSeasonNotFound  = errors.New("farm: season not found")
	ErrExpenseNotFound = errors.New("farm: expense not found")
	ErrHarvestNotFound = errors.New("farm: harvest not found")

	ErrFarmNameExists = errors.New("farm: farm name already exists")
	ErrPlotNameExists = errors.New("farm: plot name already exists")

	ErrFarmHasChildren      = errors.New("farm: cannot delete farm with related plots or seasons")
	ErrPlotHasActiveSeasons = errors.New("farm: cannot delete plot with planned or active seasons")
	ErrSeasonHasChildren    = errors.New("farm: cannot delete season with related expenses or harvests")

	ErrInvalidInput        = errors.New("farm: invalid input")
	ErrInvalidSeasonDates  = errors.New("farm: invalid season dates")
	ErrSeasonOverlap       = errors.New("farm: season dates overlap with an existing season on the same plot")
	ErrInvalidTransition   = errors.New("farm: invalid season status transition")
	ErrSeasonClosed        = errors.New("farm: season is closed")
	ErrHarvestBeforeStart  = errors.New("farm: harvest date cannot be before the season start date")
	ErrInvalidQuantity     = errors.New("farm: quantity must be greater than zero")
	ErrInvalidArea         = errors.New("farm: plot area must be greater than zero")
)
