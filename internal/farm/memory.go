package farm

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory Store, used in tests and as a
// standalone mode when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	farms    map[string]*Farm
	plots    map[string]*Plot
	seasons  map[string]*Season
	expenses map[string]*Expense
	harvests map[string]*Harvest
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		farms:    make(map[string]*Farm),
		plots:    make(map[string]*Plot),
		seasons:  make(map[string]*Season),
		expenses: make(map[string]*Expense),
		harvests: make(map[string]*Harvest),
	}
}

func (m *MemoryStore) CreateFarm(_ context.Context, f *Farm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cp := *f
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.farms[cp.ID] = &cp
	f.CreatedAt, f.UpdatedAt = now, now
	return nil
}

func (m *MemoryStore) FarmByID(_ context.Context, id string) (*Farm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.farms[id]
	if !ok {
		return nil, ErrFarmNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MemoryStore) FarmsByOwner(_ context.Context, ownerID string) ([]*Farm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Farm
	for _, f := range m.farms {
		if f.OwnerID == ownerID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) OwnedFarmIDs(_ context.Context, ownerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, f := range m.farms {
		if f.OwnerID == ownerID && f.Active {
			out = append(out, f.ID)
		}
	}
	return out, nil
}

func (m *MemoryStore) FarmNameTaken(_ context.Context, ownerID, name, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.farms {
		if f.ID == excludeID {
			continue
		}
		if f.OwnerID == ownerID && strings.EqualFold(f.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) UpdateFarm(_ context.Context, f *Farm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.farms[f.ID]
	if !ok {
		return ErrFarmNotFound
	}
	cp := *f
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	m.farms[cp.ID] = &cp
	return nil
}

func (m *MemoryStore) FarmHasPlots(_ context.Context, farmID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.plots {
		if p.FarmID == farmID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) CreatePlot(_ context.Context, p *Plot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cp := *p
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.plots[cp.ID] = &cp
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (m *MemoryStore) PlotByID(_ context.Context, id string) (*Plot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plots[id]
	if !ok {
		return nil, ErrPlotNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) PlotsByOwner(_ context.Context, ownerID string) ([]*Plot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Plot
	for _, p := range m.plots {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) PlotsByFarm(_ context.Context, farmID string) ([]*Plot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Plot
	for _, p := range m.plots {
		if p.FarmID == farmID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) PlotNameTaken(_ context.Context, ownerID, name, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.plots {
		if p.ID == excludeID {
			continue
		}
		if p.OwnerID == ownerID && strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) UpdatePlot(_ context.Context, p *Plot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.plots[p.ID]
	if !ok {
		return ErrPlotNotFound
	}
	cp := *p
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	m.plots[cp.ID] = &cp
	return nil
}

func (m *MemoryStore) DeletePlot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plots[id]; !ok {
		return ErrPlotNotFound
	}
	delete(m.plots, id)
	return nil
}

func (m *MemoryStore) CreateSeason(_ context.Context, s *Season) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cp := *s
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.seasons[cp.ID] = &cp
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}

func (m *MemoryStore) SeasonByID(_ context.Context, id string) (*Season, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.seasons[id]
	if !ok {
		return nil, ErrSeasonNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) SeasonsByPlot(_ context.Context, plotID string) ([]*Season, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Season
	for _, s := range m.seasons {
		if s.PlotID == plotID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) SeasonsByPlotOwner(_ context.Context, ownerID string) ([]*Season, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Season
	for _, s := range m.seasons {
		p, ok := m.plots[s.PlotID]
		if ok && p.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) SeasonsByFarmIDs(_ context.Context, farmIDs []string) ([]*Season, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[string]struct{}, len(farmIDs))
	for _, id := range farmIDs {
		want[id] = struct{}{}
	}
	var out []*Season
	for _, s := range m.seasons {
		p, ok := m.plots[s.PlotID]
		if !ok || p.FarmID == "" {
			continue
		}
		if _, hit := want[p.FarmID]; hit {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) FarmHasSeasons(_ context.Context, farmID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.seasons {
		p, ok := m.plots[s.PlotID]
		if ok && p.FarmID == farmID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) PlotHasSeasonsIn(_ context.Context, plotID string, statuses []SeasonStatus) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.seasons {
		if s.PlotID != plotID {
			continue
		}
		for _, st := range statuses {
			if s.Status == st {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *MemoryStore) UpdateSeason(_ context.Context, s *Season) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.seasons[s.ID]
	if !ok {
		return ErrSeasonNotFound
	}
	cp := *s
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	m.seasons[cp.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteSeason(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seasons[id]; !ok {
		return ErrSeasonNotFound
	}
	delete(m.seasons, id)
	return nil
}

func (m *MemoryStore) CreateExpense(_ context.Context, e *Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	cp.CreatedAt = time.Now().UTC()
	m.expenses[cp.ID] = &cp
	e.CreatedAt = cp.CreatedAt
	return nil
}

func (m *MemoryStore) ExpensesBySeason(_ context.Context, seasonID string) ([]*Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Expense
	for _, e := range m.expenses {
		if e.SeasonID == seasonID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) SeasonHasExpenses(_ context.Context, seasonID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.expenses {
		if e.SeasonID == seasonID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) CreateHarvest(_ context.Context, h *Harvest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *h
	cp.CreatedAt = time.Now().UTC()
	m.harvests[cp.ID] = &cp
	h.CreatedAt = cp.CreatedAt
	return nil
}

func (m *MemoryStore) HarvestsBySeason(_ context.Context, seasonID string) ([]*Harvest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Harvest
	for _, h := range m.harvests {
		if h.SeasonID == seasonID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) SeasonHasHarvests(_ context.Context, seasonID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.harvests {
		if h.SeasonID == seasonID {
			return true, nil
		}
	}
	return false, nil
}
