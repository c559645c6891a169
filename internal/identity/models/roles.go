package models

import (
	"strings"

	dErrors "gatehouse/pkg/domain-errors"
)

// Role is one of the four fixed roles a user account can hold.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleGuard      Role = "guard"
	RoleResident   Role = "resident"
	RoleSuperAdmin Role = "super_admin"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleGuard, RoleResident, RoleSuperAdmin:
		return r, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "role must be one of admin, guard, resident, super_admin")
}

// RoleSet is a closed set of roles held by a principal.
type RoleSet uint8

const (
	roleBitAdmin RoleSet = 1 << iota
	roleBitGuard
	roleBitResident
	roleBitSuperAdmin
)

func roleBit(r Role) RoleSet {
	switch r {
	case RoleAdmin:
		return roleBitAdmin
	case RoleGuard:
		return roleBitGuard
	case RoleResident:
		return roleBitResident
	case RoleSuperAdmin:
		return roleBitSuperAdmin
	}
	return 0
}

func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= roleBit(r)
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	b := roleBit(r)
	return b != 0 && s&b == b
}

func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Roles lists members in precedence order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, 4)
	for _, r := range []Role{RoleSuperAdmin, RoleAdmin, RoleGuard, RoleResident} {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Primary picks the role shown to clients: admin, then guard, then resident.
func (s RoleSet) Primary() Role {
	for _, r := range []Role{RoleAdmin, RoleGuard, RoleResident, RoleSuperAdmin} {
		if s.Has(r) {
			return r
		}
	}
	return ""
}

// Capability names an action class checked by services.
type Capability int

const (
	// CapHostVisits covers inviting visitors, approving visits one hosts and
	// reading one's own visits and requests.
	CapHostVisits Capability = iota
	// CapGateOperations covers walk-ins, check-in, check-out, blacklist
	// management, the residents list and the muster.
	CapGateOperations
	// CapManageSociety covers users and buildings of the caller's society.
	CapManageSociety
	// CapManageAllSocieties lets a platform operator see every tenant.
	CapManageAllSocieties
)

// capabilityRoles is the single rule table for derived permissions. Admin is
// listed explicitly where it applies rather than implying a blanket superset;
// it does not, for example, grant CapManageAllSocieties.
var capabilityRoles = map[Capability]RoleSet{
	CapHostVisits:         NewRoleSet(RoleResident, RoleAdmin),
	CapGateOperations:     NewRoleSet(RoleGuard, RoleAdmin),
	CapManageSociety:      NewRoleSet(RoleAdmin),
	CapManageAllSocieties: NewRoleSet(RoleSuperAdmin),
}

func (c Capability) String() string {
	switch c {
	case CapHostVisits:
		return "host_visits"
	case CapGateOperations:
		return "gate_operations"
	case CapManageSociety:
		return "manage_society"
	case CapManageAllSocieties:
		return "manage_all_societies"
	}
	return "unknown"
}

// Allows reports whether any role in s grants c.
func (s RoleSet) Allows(c Capability) bool {
	return s&capabilityRoles[c] != 0
}
