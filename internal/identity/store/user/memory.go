package user

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gatehouse/internal/identity/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// InMemory is the user store used when no database is configured.
type InMemory struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemory) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := models.NormalizeEmail(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return sentinel.ErrConflict
	}
	if _, exists := s.users[u.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[email] = u.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.users[userID]
	return &cp, nil
}

// ListBySociety returns active users of a society ordered by name. An empty
// role matches every role.
func (s *InMemory) ListBySociety(_ context.Context, societyID id.SocietyID, role models.Role) ([]*models.User, error) {
	return s.collect(func(u *models.User) bool {
		return u.SocietyID == societyID && (role == "" || u.Role == role)
	}, byName, 0), nil
}

// FindHostsByFlat returns active residents and admins registered on the
// flat, oldest first.
func (s *InMemory) FindHostsByFlat(_ context.Context, societyID id.SocietyID, buildingID id.BuildingID, flat string) ([]*models.User, error) {
	flat = strings.ToLower(strings.TrimSpace(flat))
	return s.collect(func(u *models.User) bool {
		return u.SocietyID == societyID && isHost(u) &&
			u.BuildingID != nil && *u.BuildingID == buildingID &&
			strings.ToLower(strings.TrimSpace(u.FlatNumber)) == flat
	}, byCreated, 0), nil
}

// SearchHosts lists active residents and admins whose name, email or flat
// contains q.
func (s *InMemory) SearchHosts(_ context.Context, societyID id.SocietyID, q string, limit int) ([]*models.User, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	return s.collect(func(u *models.User) bool {
		if u.SocietyID != societyID || !isHost(u) {
			return false
		}
		return q == "" ||
			strings.Contains(strings.ToLower(u.FullName), q) ||
			strings.Contains(u.Email, q) ||
			strings.Contains(strings.ToLower(u.FlatNumber), q)
	}, byName, limit), nil
}

func (s *InMemory) collect(keep func(*models.User) bool, less func(a, b *models.User) bool, limit int) []*models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0)
	for _, u := range s.users {
		if u.IsActive && keep(u) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func isHost(u *models.User) bool {
	return u.Role == models.RoleResident || u.Role == models.RoleAdmin
}

func byName(a, b *models.User) bool {
	if a.FullName != b.FullName {
		return a.FullName < b.FullName
	}
	return a.ID.String() < b.ID.String()
}

func byCreated(a, b *models.User) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
