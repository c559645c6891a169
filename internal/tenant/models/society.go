package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

// Society is the tenant aggregate: the unit of isolation for users,
// buildings, visits and the blacklist.
//
// Invariants:
//   - Name is non-empty and at most 200 characters
//   - Slug is non-empty, URL safe and unique across societies (store enforced)
//   - Status transitions: active ↔ inactive only
//   - Inactive societies cannot be resolved by slug and accept no signups
type Society struct {
	ID                 id.SocietyID  `json:"id"`
	Name               string        `json:"name"`
	Slug               string        `json:"slug"`
	Address            string        `json:"address,omitempty"`
	City               string        `json:"city,omitempty"`
	State              string        `json:"state,omitempty"`
	Pincode            string        `json:"pincode,omitempty"`
	Country            string        `json:"country,omitempty"`
	ContactEmail       string        `json:"contact_email,omitempty"`
	ContactPhone       string        `json:"contact_phone,omitempty"`
	RegistrationNumber string        `json:"registration_number,omitempty"`
	Plan               string        `json:"plan"`
	Status             SocietyStatus `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

type SocietyStatus string

const (
	SocietyStatusActive   SocietyStatus = "active"
	SocietyStatusInactive SocietyStatus = "inactive"

	DefaultPlan = "basic"
)

func (s SocietyStatus) CanTransitionTo(target SocietyStatus) bool {
	switch s {
	case SocietyStatusActive:
		return target == SocietyStatusInactive
	case SocietyStatusInactive:
		return target == SocietyStatusActive
	}
	return false
}

func (s *Society) IsActive() bool {
	return s.Status == SocietyStatusActive
}

// CanDeactivate checks if the society can transition to inactive.
func (s *Society) CanDeactivate() error {
	if !s.Status.CanTransitionTo(SocietyStatusInactive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "society is already inactive")
	}
	return nil
}

func (s *Society) ApplyDeactivation(now time.Time) {
	s.Status = SocietyStatusInactive
	s.UpdatedAt = now
}

// NewSociety builds an active society on the basic plan. An empty slug is
// derived from the name.
func NewSociety(societyID id.SocietyID, name, slug string, now time.Time) (*Society, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "society name cannot be empty")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "society name must be 200 characters or less")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if !validSlug.MatchString(slug) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "slug may contain only lowercase letters, digits and hyphens")
	}
	return &Society{
		ID:        societyID,
		Name:      name,
		Slug:      slug,
		Plan:      DefaultPlan,
		Status:    SocietyStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9_\s-]`)
	slugSpacing  = regexp.MustCompile(`[-_\s]+`)
	validSlug    = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Slugify lower-cases text and joins its words with hyphens. Text with no
// usable characters yields a short random slug.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = strings.Trim(slugSpacing.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return s
}
