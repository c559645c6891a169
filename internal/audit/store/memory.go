package store

import (
	"context"
	"maps"
	"sync"

	"gatehouse/internal/audit/models"
	id "gatehouse/pkg/domain"
)

// InMemory keeps audit entries for the process lifetime. Nothing is relayed.
type InMemory struct {
	mu      sync.RWMutex
	entries []models.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	cp.Details = maps.Clone(e.Details)
	s.entries = append(s.entries, cp)
	return nil
}

// List returns entries newest first, limited to societyID when given.
func (s *InMemory) List(_ context.Context, societyID *id.SocietyID, limit int) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if societyID != nil && (e.SocietyID == nil || *e.SocietyID != *societyID) {
			continue
		}
		e.Details = maps.Clone(e.Details)
		out = append(out, &e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
