package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

func TestCapabilityRules(t *testing.T) {
	tests := []struct {
		role  Role
		allow []Capability
		deny  []Capability
	}{
		{RoleResident, []Capability{CapHostVisits}, []Capability{CapGateOperations, CapManageSociety, CapManageAllSocieties}},
		{RoleGuard, []Capability{CapGateOperations}, []Capability{CapHostVisits, CapManageSociety, CapManageAllSocieties}},
		{RoleAdmin, []Capability{CapHostVisits, CapGateOperations, CapManageSociety}, []Capability{CapManageAllSocieties}},
		{RoleSuperAdmin, []Capability{CapManageAllSocieties}, []Capability{CapHostVisits, CapGateOperations}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			p := Principal{UserID: id.NewUserID(), Roles: NewRoleSet(tt.role)}
			for _, c := range tt.allow {
				assert.True(t, p.Can(c), "expected %s to allow %s", tt.role, c)
				assert.NoError(t, p.Require(c))
			}
			for _, c := range tt.deny {
				assert.False(t, p.Can(c), "expected %s to deny %s", tt.role, c)
				assert.True(t, dErrors.HasCode(p.Require(c), dErrors.CodeForbidden))
			}
		})
	}
}

func TestRoleSet(t *testing.T) {
	s := NewRoleSet(RoleResident, RoleAdmin)
	assert.True(t, s.Has(RoleAdmin))
	assert.False(t, s.Has(RoleGuard))
	assert.False(t, s.Has(Role("janitor")))
	assert.Equal(t, RoleAdmin, s.Primary())
	assert.Equal(t, []Role{RoleAdmin, RoleResident}, s.Roles())
	assert.Equal(t, RoleGuard, NewRoleSet(RoleGuard, RoleResident).Primary())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Guard ")
	require.NoError(t, err)
	assert.Equal(t, RoleGuard, r)

	_, err = ParseRole("owner")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestPrincipalTenantChecks(t *testing.T) {
	society := id.NewSocietyID()
	p := Principal{UserID: id.NewUserID(), SocietyID: society, Roles: NewRoleSet(RoleGuard)}

	got, err := p.RequireSociety()
	require.NoError(t, err)
	assert.Equal(t, society, got)
	assert.NoError(t, p.SameSociety(society))
	assert.True(t, dErrors.HasCode(p.SameSociety(id.NewSocietyID()), dErrors.CodeTenantMismatch))
	assert.True(t, dErrors.HasCode(p.SameSociety(id.SocietyID{}), dErrors.CodeTenantMismatch))

	_, err = Principal{UserID: id.NewUserID()}.RequireSociety()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestNewUser(t *testing.T) {
	now := time.Now()

	u, err := NewUser(id.NewUserID(), "  Admin@Example.COM ", "hash", "Asha Rao", RoleAdmin, now)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.True(t, u.Roles().Has(RoleResident), "admins may host visits")

	_, err = NewUser(id.NewUserID(), "not-an-email", "hash", "X", RoleGuard, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewUser(id.NewUserID(), "g@example.com", "hash", " ", RoleGuard, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewUser(id.NewUserID(), "g@example.com", "hash", "G", Role("owner"), now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
