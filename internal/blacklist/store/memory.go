package store

import (
	"context"
	"sort"
	"sync"

	"gatehouse/internal/blacklist/models"
	id "gatehouse/pkg/domain"
)

// InMemory holds blacklist entries per visitor.
type InMemory struct {
	mu        sync.RWMutex
	byVisitor map[id.VisitorID][]*models.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{byVisitor: make(map[id.VisitorID][]*models.Entry)}
}

func (s *InMemory) Create(_ context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.byVisitor[e.VisitorID] = append(s.byVisitor[e.VisitorID], &cp)
	return nil
}

// IsBanned reports an active entry for the society or a global one.
func (s *InMemory) IsBanned(_ context.Context, visitorID id.VisitorID, societyID id.SocietyID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.byVisitor[visitorID] {
		if e.Covers(societyID) {
			return true, nil
		}
	}
	return false, nil
}

// DeactivateForSociety deactivates the society's active entries for the
// visitor and returns how many changed. Global entries are left alone.
func (s *InMemory) DeactivateForSociety(_ context.Context, visitorID id.VisitorID, societyID id.SocietyID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.byVisitor[visitorID] {
		if e.IsActive && e.SocietyID != nil && *e.SocietyID == societyID {
			e.IsActive = false
			n++
		}
	}
	return n, nil
}

func (s *InMemory) HasAnyActive(_ context.Context, visitorID id.VisitorID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.byVisitor[visitorID] {
		if e.IsActive {
			return true, nil
		}
	}
	return false, nil
}

// ListActiveBySociety returns the society's active entries, newest first.
func (s *InMemory) ListActiveBySociety(_ context.Context, societyID id.SocietyID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Entry
	for _, entries := range s.byVisitor {
		for _, e := range entries {
			if e.IsActive && e.SocietyID != nil && *e.SocietyID == societyID {
				cp := *e
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
