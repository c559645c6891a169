package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

const (
	minPhoneLength = 10
	maxPhoneLength = 20
	maxNameLength  = 255
)

// Visitor is a person who visits societies, independent of any single visit.
//
// Invariants:
//   - Phone is the natural key: at most one visitor per phone (store enforced)
//   - Name is non-empty
//   - IsBlacklisted caches "banned somewhere"; active blacklist entries are
//     authoritative
type Visitor struct {
	ID            id.VisitorID `json:"id"`
	Phone         string       `json:"phone"`
	Name          string       `json:"full_name"`
	Email         string       `json:"email,omitempty"`
	IDProofType   string       `json:"id_proof_type,omitempty"`
	IDProofNumber string       `json:"-"`
	PhotoURL      string       `json:"photo_url,omitempty"`
	IsBlacklisted bool         `json:"is_blacklisted"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NormalizePhone trims surrounding whitespace. Phones are otherwise matched
// exactly as entered.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

func ValidatePhone(phone string) error {
	n := utf8.RuneCountInString(NormalizePhone(phone))
	if n < minPhoneLength || n > maxPhoneLength {
		return dErrors.New(dErrors.CodeValidation, "visitor_phone must be 10 to 20 characters")
	}
	return nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "visitor_name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "visitor_name must be at most 255 characters")
	}
	return nil
}

func NewVisitor(visitorID id.VisitorID, phone, name, email string, now time.Time) (*Visitor, error) {
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Visitor{
		ID:        visitorID,
		Phone:     NormalizePhone(phone),
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Refresh applies the details given on a re-invite. It reports whether
// anything changed. An empty email leaves the stored one in place.
func (v *Visitor) Refresh(name, email string, now time.Time) bool {
	changed := false
	if name = strings.TrimSpace(name); name != "" && name != v.Name {
		v.Name = name
		changed = true
	}
	if email = strings.TrimSpace(email); email != "" && email != v.Email {
		v.Email = email
		changed = true
	}
	if changed {
		v.UpdatedAt = now
	}
	return changed
}
