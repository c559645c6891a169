package society

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gatehouse/internal/tenant/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// InMemory stores societies keyed by id with a slug index.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[id.SocietyID]*models.Society
	bySlug map[string]id.SocietyID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[id.SocietyID]*models.Society),
		bySlug: make(map[string]id.SocietyID),
	}
}

// CreateIfSlugAvailable inserts s unless its slug is taken.
func (m *InMemory) CreateIfSlugAvailable(_ context.Context, s *models.Society) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.bySlug[s.Slug]; taken {
		return sentinel.ErrConflict
	}
	cp := *s
	m.byID[s.ID] = &cp
	m.bySlug[s.Slug] = s.ID
	return nil
}

func (m *InMemory) FindByID(_ context.Context, societyID id.SocietyID) (*models.Society, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[societyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *InMemory) FindBySlug(_ context.Context, slug string) (*models.Society, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	societyID, ok := m.bySlug[slug]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m.byID[societyID]
	return &cp, nil
}

// List returns societies whose name or slug contains q (case-insensitive),
// ordered by name.
func (m *InMemory) List(_ context.Context, q string, limit int) ([]*models.Society, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]*models.Society, 0, len(m.byID))
	for _, s := range m.byID {
		if q != "" && !strings.Contains(strings.ToLower(s.Name), q) && !strings.Contains(s.Slug, q) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *InMemory) Update(_ context.Context, s *models.Society) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[s.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}
