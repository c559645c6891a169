package building

import (
	"context"
	"sort"
	"sync"

	"gatehouse/internal/tenant/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	buildings map[id.BuildingID]*models.Building
}

func NewInMemory() *InMemory {
	return &InMemory{buildings: make(map[id.BuildingID]*models.Building)}
}

func (m *InMemory) Create(_ context.Context, b *models.Building) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.buildings[b.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *b
	m.buildings[b.ID] = &cp
	return nil
}

func (m *InMemory) FindByID(_ context.Context, buildingID id.BuildingID) (*models.Building, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buildings[buildingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// ListBySociety orders by sort_order, then name.
func (m *InMemory) ListBySociety(_ context.Context, societyID id.SocietyID) ([]*models.Building, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Building
	for _, b := range m.buildings {
		if b.SocietyID == societyID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
