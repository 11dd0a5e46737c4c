package farm

import (
	"strings"
	"time"
)

// SeasonStatus is the lifecycle state of a growing season.
type SeasonStatus string

const (
	SeasonPlanned   SeasonStatus = "PLANNED"
	SeasonActive    SeasonStatus = "ACTIVE"
	SeasonCompleted SeasonStatus = "COMPLETED"
	SeasonCancelled SeasonStatus = "CANCELLED"
	SeasonArchived  SeasonStatus = "ARCHIVED"
)

// ParseSeasonStatus maps a status code to its enum value.
func ParseSeasonStatus(code string) (SeasonStatus, bool) {
	switch SeasonStatus(strings.ToUpper(strings.TrimSpace(code))) {
	case SeasonPlanned:
		return SeasonPlanned, true
	case SeasonActive:
		return SeasonActive, true
	case SeasonCompleted:
		return SeasonCompleted, true
	case SeasonCancelled:
		return SeasonCancelled, true
	case SeasonArchived:
		return SeasonArchived, true
	default:
		return "", false
	}
}

// Closed reports whether the season is read-only. Closed seasons reject
// updates and new child records.
func (s SeasonStatus) Closed() bool {
	return s == SeasonCompleted || s == SeasonCancelled || s == SeasonArchived
}

// CanTransitionTo encodes the allowed status transitions:
// PLANNED to ACTIVE or CANCELLED; ACTIVE to COMPLETED, CANCELLED or
// ARCHIVED; COMPLETED and CANCELLED to ARCHIVED; ARCHIVED is terminal.
func (s SeasonStatus) CanTransitionTo(next SeasonStatus) bool {
	switch s {
	case SeasonPlanned:
		return next == SeasonActive || next == SeasonCancelled
	case SeasonActive:
		return next == SeasonCompleted || next == SeasonCancelled || next == SeasonArchived
	case SeasonCompleted, SeasonCancelled:
		return next == SeasonArchived
	default:
		return false
	}
}

// Farm is a named land holding owned by a single user.
type Farm struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Name       string    `json:"name"`
	ProvinceID string    `json:"province_id,omitempty"`
	WardID     string    `json:"ward_id,omitempty"`
	Address    string    `json:"address,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Plot is a cultivated parcel. It is always directly owned by a user and may
// additionally be attached to one of that owner's farms; an empty FarmID
// means the plot stands alone.
type Plot struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	FarmID    string    `json:"farm_id,omitempty"`
	Name      string    `json:"name"`
	AreaM2    float64   `json:"area_m2"`
	SoilType  string    `json:"soil_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Season is one crop cycle on a plot. Its effective owner is the plot's
// owner, resolved through the ownership hierarchy at access time.
type Season struct {
	ID                 string       `json:"id"`
	PlotID             string       `json:"plot_id"`
	CropName           string       `json:"crop_name"`
	Name               string       `json:"name"`
	Status             SeasonStatus `json:"status"`
	StartDate          time.Time    `json:"start_date"`
	PlannedHarvestDate time.Time    `json:"planned_harvest_date,omitzero"`
	EndDate            time.Time    `json:"end_date,omitzero"`
	InitialPlantCount  int          `json:"initial_plant_count"`
	CurrentPlantCount  int          `json:"current_plant_count"`
	ExpectedYieldKg    float64      `json:"expected_yield_kg,omitempty"`
	Notes              string       `json:"notes,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// effectiveEnd is the last date the season occupies its plot, used for
// overlap checks: end date when set, else planned harvest date, else start.
func (s *Season) effectiveEnd() time.Time {
	if !s.EndDate.IsZero() {
		return s.EndDate
	}
	if !s.PlannedHarvestDate.IsZero() {
		return s.PlannedHarvestDate
	}
	return s.StartDate
}

// Expense is a cost booked against a season.
type Expense struct {
	ID        string    `json:"id"`
	SeasonID  string    `json:"season_id"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note,omitempty"`
	SpentAt   time.Time `json:"spent_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Harvest is a yield record booked against a season.
type Harvest struct {
	ID          string    `json:"id"`
	SeasonID    string    `json:"season_id"`
	QuantityKg  float64   `json:"quantity_kg"`
	Quality     string    `json:"quality,omitempty"`
	HarvestedAt time.Time `json:"harvested_at"`
	CreatedAt   time.Time `json:"created_at"`
}
