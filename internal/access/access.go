// Package access decides whether a principal may act on a farm, plot or
// season by walking the ownership hierarchy: a season belongs to its plot's
// owner, and a plot is reachable either through direct ownership or through
// the farm it is attached to. Admins pass every check.
package access

import (
	"context"
	"errors"

	"github.com/elnino282/acm-backend/internal/auth"
	"github.com/elnino282/acm-backend/internal/farm"
)

// ErrSeasonOrphaned marks a season whose plot is missing. That is a data
// integrity fault, not a permission decision.
var ErrSeasonOrphaned = errors.New("access: season is not linked to a plot")

// ResourceReader is the read-only slice of the farm store the evaluator
// needs to resolve ownership.
type ResourceReader interface {
	FarmByID(ctx context.Context, id string) (*farm.Farm, error)
	PlotByID(ctx context.Context, id string) (*farm.Plot, error)
	OwnedFarmIDs(ctx context.Context, ownerID string) ([]string, error)
}

// Evaluator answers ALLOW/DENY for a principal and a target entity.
type Evaluator struct {
	store ResourceReader
}

// NewEvaluator constructs an Evaluator over the given resource reader.
func NewEvaluator(store ResourceReader) *Evaluator {
	return &Evaluator{store: store}
}

// CanAccessFarm reports whether the principal owns the farm or is an admin.
func (e *Evaluator) CanAccessFarm(_ context.Context, p auth.Principal, f *farm.Farm) (bool, error) {
	if f == nil {
		return false, nil
	}
	if p.IsAdmin() {
		return true, nil
	}
	return f.OwnerID == p.UserID, nil
}

// CanAccessPlot resolves the plot's ownership variant: a direct owner match
// always wins; a plot attached to a farm is additionally reachable through
// farm access; a stand-alone plot has no indirect path.
func (e *Evaluator) CanAccessPlot(ctx context.Context, p auth.Principal, pl *farm.Plot) (bool, error) {
	if pl == nil {
		return false, nil
	}
	if p.IsAdmin() || pl.OwnerID == p.UserID {
		return true, nil
	}
	if pl.FarmID == "" {
		return false, nil
	}
	f, err := e.store.FarmByID(ctx, pl.FarmID)
	if err != nil {
		if errors.Is(err, farm.ErrFarmNotFound) {
			// Dangling farm reference: the indirect path simply does not exist.
			return false, nil
		}
		return false, err
	}
	return e.CanAccessFarm(ctx, p, f)
}

// CanAccessSeason delegates to the season's plot. A season without a
// resolvable plot surfaces ErrSeasonOrphaned.
func (e *Evaluator) CanAccessSeason(ctx context.Context, p auth.Principal, s *farm.Season) (bool, error) {
	if s == nil || s.PlotID == "" {
		return false, ErrSeasonOrphaned
	}
	pl, err := e.store.PlotByID(ctx, s.PlotID)
	if err != nil {
		if errors.Is(err, farm.ErrPlotNotFound) {
			return false, ErrSeasonOrphaned
		}
		return false, err
	}
	return e.CanAccessPlot(ctx, p, pl)
}

// AccessibleFarmIDs returns every farm id the principal could pass
// CanAccessFarm for, used by list endpoints as a pre-filter. It is a superset
// of the per-entity check for non-admins; the per-row check still runs on
// each result, so the filter stays purely an optimization.
func (e *Evaluator) AccessibleFarmIDs(ctx context.Context, p auth.Principal) ([]string, error) {
	return e.store.OwnedFarmIDs(ctx, p.UserID)
}
