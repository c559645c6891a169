package models

import (
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

// Principal is the authenticated caller. Services trust it as given; token
// verification happens before it is built.
type Principal struct {
	UserID    id.UserID
	SocietyID id.SocietyID // nil when the user has not joined a society yet
	Roles     RoleSet
}

func (p Principal) HasSociety() bool {
	return !p.SocietyID.IsNil()
}

func (p Principal) IsAdmin() bool {
	return p.Roles.Has(RoleAdmin)
}

func (p Principal) Can(c Capability) bool {
	return p.Roles.Allows(c)
}

// Require returns CodeForbidden when the principal lacks c.
func (p Principal) Require(c Capability) error {
	if p.Can(c) {
		return nil
	}
	switch c {
	case CapHostVisits:
		return dErrors.New(dErrors.CodeForbidden, "Resident or admin access required")
	case CapGateOperations:
		return dErrors.New(dErrors.CodeForbidden, "Guard or admin access required")
	case CapManageSociety:
		return dErrors.New(dErrors.CodeForbidden, "Admin access required")
	default:
		return dErrors.New(dErrors.CodeForbidden, "Not authorized")
	}
}

// RequireSociety returns the principal's society or CodeForbidden.
func (p Principal) RequireSociety() (id.SocietyID, error) {
	if !p.HasSociety() {
		return id.SocietyID{}, dErrors.New(dErrors.CodeForbidden, "User must belong to a society")
	}
	return p.SocietyID, nil
}

// SameSociety enforces tenant isolation against a resource's society.
func (p Principal) SameSociety(other id.SocietyID) error {
	if other.IsNil() || p.SocietyID != other {
		return dErrors.New(dErrors.CodeTenantMismatch, "Resource belongs to a different society")
	}
	return nil
}
