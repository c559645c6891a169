package models

import (
	"net/mail"
	"strings"
	"time"

	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

// User is a member account.
//
// Invariants:
//   - Email is non-empty, valid and stored lower-case
//   - Role is one of the fixed roles
//   - A user belongs to at most one society
//   - BuildingID, when set, references a building of the same society
type User struct {
	ID           id.UserID      `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	FullName     string         `json:"full_name"`
	Phone        string         `json:"phone,omitempty"`
	Role         Role           `json:"role"`
	SocietyID    id.SocietyID   `json:"society_id"`
	BuildingID   *id.BuildingID `json:"building_id,omitempty"`
	FlatNumber   string         `json:"flat_number,omitempty"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewUser validates and normalizes a new account.
func NewUser(userID id.UserID, email, passwordHash, fullName string, role Role, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email is invalid")
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "full name cannot be empty")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "role is invalid")
	}
	return &User{
		ID:           userID,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
	}, nil
}

// Roles derives the principal role set: admins may also act as hosts.
func (u *User) Roles() RoleSet {
	s := NewRoleSet(u.Role)
	if u.Role == RoleAdmin {
		s |= NewRoleSet(RoleResident)
	}
	return s
}

func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, SocietyID: u.SocietyID, Roles: u.Roles()}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
