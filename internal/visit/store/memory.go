package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"gatehouse/internal/visit/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// InMemory keeps visits in a map. The society of a visit is the one recorded
// at creation, which is the host's society.
type InMemory struct {
	mu     sync.RWMutex
	visits map[id.VisitID]*models.Visit
}

func NewInMemory() *InMemory {
	return &InMemory{visits: make(map[id.VisitID]*models.Visit)}
}

func (s *InMemory) Create(_ context.Context, v *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.visits[v.ID]; exists {
		return sentinel.ErrConflict
	}
	if v.QRCode != "" {
		for _, other := range s.visits {
			if other.QRCode == v.QRCode {
				return sentinel.ErrConflict
			}
		}
	}
	s.visits[v.ID] = clone(v)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, visitID id.VisitID) (*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visits[visitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}

// FindByOTP returns the newest visit whose OTP matches and is still usable.
func (s *InMemory) FindByOTP(_ context.Context, otp string, now time.Time) (*models.Visit, error) {
	return s.findToken(func(v *models.Visit) bool { return v.OTP == otp }, now)
}

// FindByQR returns the visit whose QR code matches and is still usable.
func (s *InMemory) FindByQR(_ context.Context, qr string, now time.Time) (*models.Visit, error) {
	return s.findToken(func(v *models.Visit) bool { return v.QRCode == qr }, now)
}

func (s *InMemory) findToken(match func(*models.Visit) bool, now time.Time) (*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Visit
	for _, v := range s.visits {
		if !match(v) || !v.TokenUsable(now) {
			continue
		}
		if found == nil || newer(v, found) {
			found = v
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return clone(found), nil
}

func (s *InMemory) Update(_ context.Context, v *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.visits[v.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cp := clone(v)
	cp.SocietyID = existing.SocietyID
	s.visits[v.ID] = cp
	return nil
}

// List returns matching visits, newest first.
func (s *InMemory) List(_ context.Context, f Filter) ([]*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Visit, 0)
	for _, v := range s.visits {
		if f.SocietyID != nil && v.SocietyID != *f.SocietyID {
			continue
		}
		if f.HostID != nil && v.HostID != *f.HostID {
			continue
		}
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*models.Visit{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CountDistinctVisitorsBetween counts visitors with a visit created in
// [from, to).
func (s *InMemory) CountDistinctVisitorsBetween(_ context.Context, societyID *id.SocietyID, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[id.VisitorID]struct{})
	for _, v := range s.visits {
		if societyID != nil && v.SocietyID != *societyID {
			continue
		}
		if v.CreatedAt.Before(from) || !v.CreatedAt.Before(to) {
			continue
		}
		seen[v.VisitorID] = struct{}{}
	}
	return len(seen), nil
}

func (s *InMemory) CountByStatus(_ context.Context, societyID *id.SocietyID, status models.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.visits {
		if societyID != nil && v.SocietyID != *societyID {
			continue
		}
		if v.Status == status {
			n++
		}
	}
	return n, nil
}

func newer(a, b *models.Visit) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func clone(v *models.Visit) *models.Visit {
	cp := *v
	if v.Metadata.GuardID != nil {
		g := *v.Metadata.GuardID
		cp.Metadata.GuardID = &g
	}
	return &cp
}
