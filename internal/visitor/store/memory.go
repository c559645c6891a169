package store

import (
	"context"
	"sync"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// InMemory keeps visitors in maps keyed by id and phone.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.VisitorID]*models.Visitor
	byPhone map[string]id.VisitorID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.VisitorID]*models.Visitor),
		byPhone: make(map[string]id.VisitorID),
	}
}

func (s *InMemory) Create(_ context.Context, v *models.Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byPhone[v.Phone]; taken {
		return sentinel.ErrConflict
	}
	cp := *v
	s.byID[v.ID] = &cp
	s.byPhone[v.Phone] = v.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[visitorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *InMemory) FindByPhone(_ context.Context, phone string) (*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	visitorID, ok := s.byPhone[models.NormalizePhone(phone)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[visitorID]
	return &cp, nil
}

// Update overwrites the mutable details. The phone never changes.
func (s *InMemory) Update(_ context.Context, v *models.Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[v.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cp := *v
	cp.Phone = existing.Phone
	s.byID[v.ID] = &cp
	return nil
}

func (s *InMemory) SetBlacklisted(_ context.Context, visitorID id.VisitorID, flag bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[visitorID]
	if !ok {
		return sentinel.ErrNotFound
	}
	v.IsBlacklisted = flag
	return nil
}
