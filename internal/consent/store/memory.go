package store

import (
	"context"
	"sync"

	"gatehouse/internal/consent/models"
	id "gatehouse/pkg/domain"
)

// InMemory is an append-only consent log.
type InMemory struct {
	mu   sync.RWMutex
	logs []models.Log
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, l *models.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *l)
	return nil
}

// ListByVisit returns the visit's consent events in the order recorded.
func (s *InMemory) ListByVisit(_ context.Context, visitID id.VisitID) ([]*models.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Log, 0)
	for i := range s.logs {
		if s.logs[i].VisitID == visitID {
			cp := s.logs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
