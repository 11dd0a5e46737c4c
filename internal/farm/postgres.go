package farm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL through database/sql.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const farmColumns = `id, owner_id, name, province_id, ward_id, address, active, created_at, updated_at`

func scanFarm(row interface{ Scan(...any) error }) (*Farm, error) {
	var f Farm
	var province, ward, address sql.NullString
	err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &province, &ward, &address, &f.Active, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.ProvinceID, f.WardID, f.Address = province.String, ward.String, address.String
	return &f, nil
}

func (s *PGStore) CreateFarm(ctx context.Context, f *Farm) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`insert into farms(id, owner_id, name, province_id, ward_id, address, active, created_at, updated_at)
		 values($1,$2,$3,nullif($4,''),nullif($5,''),nullif($6,''),$7,$8,$8)`,
		f.ID, f.OwnerID, f.Name, f.ProvinceID, f.WardID, f.Address, f.Active, now,
	)
	if err != nil {
		return fmt.Errorf("insert farm: %w", err)
	}
	f.CreatedAt, f.UpdatedAt = now, now
	return nil
}

func (s *PGStore) FarmByID(ctx context.Context, id string) (*Farm, error) {
	f, err := scanFarm(s.db.QueryRowContext(ctx,
		`select `+farmColumns+` from farms where id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrFarmNotFound
	}
	return f, err
}

func (s *PGStore) FarmsByOwner(ctx context.Context, ownerID string) ([]*Farm, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+farmColumns+` from farms where owner_id=$1 order by id desc`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Farm
	for rows.Next() {
		f, err := scanFarm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PGStore) OwnedFarmIDs(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id from farms where owner_id=$1 and active`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PGStore) FarmNameTaken(ctx context.Context, ownerID, name, excludeID string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from farms where owner_id=$1 and lower(name)=lower($2) and id<>$3)`,
		ownerID, name, excludeID,
	).Scan(&taken)
	return taken, err
}

func (s *PGStore) UpdateFarm(ctx context.Context, f *Farm) error {
	res, err := s.db.ExecContext(ctx,
		`update farms set name=$2, province_id=nullif($3,''), ward_id=nullif($4,''), address=nullif($5,''), active=$6, updated_at=$7 where id=$1`,
		f.ID, f.Name, f.ProvinceID, f.WardID, f.Address, f.Active, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update farm: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFarmNotFound
	}
	return nil
}

func (s *PGStore) FarmHasPlots(ctx context.Context, farmID string) (bool, error) {
	var has bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from plots where farm_id=$1)`, farmID).Scan(&has)
	return has, err
}

const plotColumns = `id, owner_id, farm_id, name, area_m2, soil_type, created_at, updated_at`

func scanPlot(row interface{ Scan(...any) error }) (*Plot, error) {
	var p Plot
	var farmID, soil sql.NullString
	err := row.Scan(&p.ID, &p.OwnerID, &farmID, &p.Name, &p.AreaM2, &soil, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.FarmID, p.SoilType = farmID.String, soil.String
	return &p, nil
}

func (s *PGStore) CreatePlot(ctx context.Context, p *Plot) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`insert into plots(id, owner_id, farm_id, name, area_m2, soil_type, created_at, updated_at)
		 values($1,$2,nullif($3,''),$4,$5,nullif($6,''),$7,$7)`,
		p.ID, p.OwnerID, p.FarmID, p.Name, p.AreaM2, p.SoilType, now,
	)
	if err != nil {
		return fmt.Errorf("insert plot: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (s *PGStore) PlotByID(ctx context.Context, id string) (*Plot, error) {
	p, err := scanPlot(s.db.QueryRowContext(ctx,
		`select `+plotColumns+` from plots where id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrPlotNotFound
	}
	return p, err
}

func (s *PGStore) PlotsByOwner(ctx context.Context, ownerID string) ([]*Plot, error) {
	return s.plotsWhere(ctx, `owner_id=$1`, ownerID)
}

func (s *PGStore) PlotsByFarm(ctx context.Context, farmID string) ([]*Plot, error) {
	return s.plotsWhere(ctx, `farm_id=$1`, farmID)
}

func (s *PGStore) plotsWhere(ctx context.Context, clause string, arg any) ([]*Plot, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+plotColumns+` from plots where `+clause+` order by id desc`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Plot
	for rows.Next() {
		p, err := scanPlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) PlotNameTaken(ctx context.Context, ownerID, name, excludeID string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from plots where owner_id=$1 and lower(name)=lower($2) and id<>$3)`,
		ownerID, name, excludeID,
	).Scan(&taken)
	return taken, err
}

func (s *PGStore) UpdatePlot(ctx context.Context, p *Plot) error {
	res, err := s.db.ExecContext(ctx,
		`update plots set farm_id=nullif($2,''), name=$3, area_m2=$4, soil_type=nullif($5,''), updated_at=$6 where id=$1`,
		p.ID, p.FarmID, p.Name, p.AreaM2, p.SoilType, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update plot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPlotNotFound
	}
	return nil
}

func (s *PGStore) DeletePlot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from plots where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPlotNotFound
	}
	return nil
}

var seasonCols = []string{
	"id", "plot_id", "crop_name", "name", "status", "start_date", "planned_harvest_date",
	"end_date", "initial_plant_count", "current_plant_count", "expected_yield_kg",
	"notes", "created_at", "updated_at",
}

var seasonColumns = strings.Join(seasonCols, ", ")

func prefixedSeasonColumns(alias string) string {
	cols := make([]string, len(seasonCols))
	for i, c := range seasonCols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanSeason(row interface{ Scan(...any) error }) (*Season, error) {
	var se Season
	var planned, end sql.NullTime
	var notes sql.NullString
	var status string
	err := row.Scan(&se.ID, &se.PlotID, &se.CropName, &se.Name, &status, &se.StartDate, &planned, &end,
		&se.InitialPlantCount, &se.CurrentPlantCount, &se.ExpectedYieldKg, &notes, &se.CreatedAt, &se.UpdatedAt)
	if err != nil {
		return nil, err
	}
	se.Status = SeasonStatus(status)
	se.PlannedHarvestDate, se.EndDate = planned.Time, end.Time
	se.Notes = notes.String
	return &se, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (s *PGStore) CreateSeason(ctx context.Context, se *Season) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`insert into seasons(id, plot_id, crop_name, name, status, start_date, planned_harvest_date, end_date,
		   initial_plant_count, current_plant_count, expected_yield_kg, notes, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,nullif($12,''),$13,$13)`,
		se.ID, se.PlotID, se.CropName, se.Name, string(se.Status), se.StartDate,
		nullTime(se.PlannedHarvestDate), nullTime(se.EndDate),
		se.InitialPlantCount, se.CurrentPlantCount, se.ExpectedYieldKg, se.Notes, now,
	)
	if err != nil {
		return fmt.Errorf("insert season: %w", err)
	}
	se.CreatedAt, se.UpdatedAt = now, now
	return nil
}

func (s *PGStore) SeasonByID(ctx context.Context, id string) (*Season, error) {
	se, err := scanSeason(s.db.QueryRowContext(ctx,
		`select `+seasonColumns+` from seasons where id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrSeasonNotFound
	}
	return se, err
}

func (s *PGStore) SeasonsByPlot(ctx context.Context, plotID string) ([]*Season, error) {
	return s.seasonsQuery(ctx,
		`select `+seasonColumns+` from seasons where plot_id=$1 order by id desc`, plotID)
}

func (s *PGStore) SeasonsByPlotOwner(ctx context.Context, ownerID string) ([]*Season, error) {
	return s.seasonsQuery(ctx,
		`select `+prefixedSeasonColumns("s")+`
		 from seasons s join plots p on p.id = s.plot_id
		 where p.owner_id=$1 order by s.id desc`, ownerID)
}

func (s *PGStore) SeasonsByFarmIDs(ctx context.Context, farmIDs []string) ([]*Season, error) {
	if len(farmIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(farmIDs))
	args := make([]any, len(farmIDs))
	for i, id := range farmIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	return s.seasonsQuery(ctx,
		`select `+prefixedSeasonColumns("s")+`
		 from seasons s join plots p on p.id = s.plot_id
		 where p.farm_id in (`+strings.Join(placeholders, ",")+`) order by s.id desc`, args...)
}

func (s *PGStore) seasonsQuery(ctx context.Context, query string, args ...any) ([]*Season, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Season
	for rows.Next() {
		se, err := scanSeason(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

func (s *PGStore) FarmHasSeasons(ctx context.Context, farmID string) (bool, error) {
	var has bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from seasons s join plots p on p.id = s.plot_id where p.farm_id=$1)`,
		farmID).Scan(&has)
	return has, err
}

func (s *PGStore) PlotHasSeasonsIn(ctx context.Context, plotID string, statuses []SeasonStatus) (bool, error) {
	if len(statuses) == 0 {
		return false, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	args = append(args, plotID)
	for i, st := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, string(st))
	}
	var has bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from seasons where plot_id=$1 and status in (`+strings.Join(placeholders, ",")+`))`,
		args...,
	).Scan(&has)
	return has, err
}

func (s *PGStore) UpdateSeason(ctx context.Context, se *Season) error {
	res, err := s.db.ExecContext(ctx,
		`update seasons set name=$2, status=$3, start_date=$4, planned_harvest_date=$5, end_date=$6,
		   current_plant_count=$7, notes=nullif($8,''), updated_at=$9 where id=$1`,
		se.ID, se.Name, string(se.Status), se.StartDate,
		nullTime(se.PlannedHarvestDate), nullTime(se.EndDate),
		se.CurrentPlantCount, se.Notes, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update season: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSeasonNotFound
	}
	return nil
}

func (s *PGStore) DeleteSeason(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from seasons where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSeasonNotFound
	}
	return nil
}

func (s *PGStore) CreateExpense(ctx context.Context, e *Expense) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`insert into expenses(id, season_id, category, amount, note, spent_at, created_at)
		 values($1,$2,$3,$4,nullif($5,''),$6,$7)`,
		e.ID, e.SeasonID, e.Category, e.Amount, e.Note, e.SpentAt, now,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	e.CreatedAt = now
	return nil
}

func (s *PGStore) ExpensesBySeason(ctx context.Context, seasonID string) ([]*Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, season_id, category, amount, coalesce(note,''), spent_at, created_at
		 from expenses where season_id=$1 order by spent_at desc, id desc`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.SeasonID, &e.Category, &e.Amount, &e.Note, &e.SpentAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PGStore) SeasonHasExpenses(ctx context.Context, seasonID string) (bool, error) {
	var has bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from expenses where season_id=$1)`, seasonID).Scan(&has)
	return has, err
}

func (s *PGStore) SeasonHasHarvests(ctx context.Context, seasonID string) (bool, error) {
	var has bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from harvests where season_id=$1)`, seasonID).Scan(&has)
	return has, err
}

func (s *PGStore) CreateHarvest(ctx context.Context, h *Harvest) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`insert into harvests(id, season_id, quantity_kg, quality, harvested_at, created_at)
		 values($1,$2,$3,nullif($4,''),$5,$6)`,
		h.ID, h.SeasonID, h.QuantityKg, h.Quality, h.HarvestedAt, now,
	)
	if err != nil {
		return fmt.Errorf("insert harvest: %w", err)
	}
	h.CreatedAt = now
	return nil
}

func (s *PGStore) HarvestsBySeason(ctx context.Context, seasonID string) ([]*Harvest, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, season_id, quantity_kg, coalesce(quality,''), harvested_at, created_at
		 from harvests where season_id=$1 order by harvested_at desc, id desc`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Harvest
	for rows.Next() {
		var h Harvest
		if err := rows.Scan(&h.ID, &h.SeasonID, &h.QuantityKg, &h.Quality, &h.HarvestedAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}
