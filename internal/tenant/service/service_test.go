package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identity "gatehouse/internal/identity/models"
	buildingstore "gatehouse/internal/tenant/store/building"
	societystore "gatehouse/internal/tenant/store/society"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	txcontext "gatehouse/pkg/platform/tx"
	"gatehouse/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	service   *Service
	societies *societystore.InMemory
	audited   []string
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	s.societies = societystore.NewInMemory()
	s.audited = nil
	s.service = New(s.societies, buildingstore.NewInMemory(), txcontext.NewMemoryRunner(),
		WithAuditLogger(auditFunc(func(action string) { s.audited = append(s.audited, action) })))
}

type auditFunc func(action string)

func (f auditFunc) LogAdminAction(_ context.Context, _ identity.Principal, action string, _ map[string]any) {
	f(action)
}

func (s *ServiceSuite) provision(name string, buildings ...string) *identity.Principal {
	details, err := s.service.Provision(s.ctx, CreateSocietyRequest{Name: name}, buildings)
	s.Require().NoError(err)
	return &identity.Principal{
		UserID:    id.NewUserID(),
		SocietyID: details.ID,
		Roles:     identity.NewRoleSet(identity.RoleAdmin, identity.RoleResident),
	}
}

func (s *ServiceSuite) TestProvision() {
	s.Run("derives slug and creates buildings in order", func() {
		details, err := s.service.Provision(s.ctx, CreateSocietyRequest{Name: "Green Meadows"}, []string{"Tower A", " ", "Tower B"})
		s.Require().NoError(err)
		s.Equal("green-meadows", details.Slug)
		s.Equal("basic", details.Plan)
		s.Equal("India", details.Country)
		s.Require().Len(details.Buildings, 2)

		found, err := s.service.GetBySlug(s.ctx, "green-meadows")
		s.Require().NoError(err)
		s.Require().Len(found.Buildings, 2)
		s.Equal("Tower A", found.Buildings[0].Name)
	})

	s.Run("duplicate slug is a conflict", func() {
		_, err := s.service.Provision(s.ctx, CreateSocietyRequest{Name: "Lake View"}, nil)
		s.Require().NoError(err)
		_, err = s.service.Provision(s.ctx, CreateSocietyRequest{Name: "Other", Slug: "Lake View"}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("missing name is a validation error", func() {
		_, err := s.service.Provision(s.ctx, CreateSocietyRequest{Name: "  "}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestCreate() {
	s.Run("members of a society are refused", func() {
		admin := s.provision("Palm Grove")
		_, err := s.service.Create(s.ctx, *admin, CreateSocietyRequest{Name: "New", ContactEmail: "a@b.in"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("platform operator creates a society", func() {
		operator := identity.Principal{UserID: id.NewUserID(), Roles: identity.NewRoleSet(identity.RoleSuperAdmin)}
		soc, err := s.service.Create(s.ctx, operator, CreateSocietyRequest{Name: "Harbor Heights", ContactEmail: "Office@Harbor.in"})
		s.Require().NoError(err)
		s.Equal("harbor-heights", soc.Slug)
		s.Equal("office@harbor.in", soc.ContactEmail)
	})
}

func (s *ServiceSuite) TestGetBySlugHidesInactive() {
	s.provision("Quiet Court")
	soc, err := s.societies.FindBySlug(s.ctx, "quiet-court")
	s.Require().NoError(err)
	soc.ApplyDeactivation(time.Now())
	s.Require().NoError(s.societies.Update(s.ctx, soc))

	_, err = s.service.GetBySlug(s.ctx, "quiet-court")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestList() {
	admin := s.provision("Oak Residency")
	s.provision("Pine Residency")

	own, err := s.service.List(s.ctx, *admin, "")
	s.Require().NoError(err)
	s.Require().Len(own, 1)
	s.Equal("Oak Residency", own[0].Name)

	operator := identity.Principal{UserID: id.NewUserID(), Roles: identity.NewRoleSet(identity.RoleSuperAdmin)}
	all, err := s.service.List(s.ctx, operator, "residency")
	s.Require().NoError(err)
	s.Len(all, 2)

	lonely := identity.Principal{UserID: id.NewUserID(), Roles: identity.NewRoleSet(identity.RoleResident)}
	_, err = s.service.List(s.ctx, lonely, "")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestBuildings() {
	admin := s.provision("Cedar Park", "Block 1")
	other := s.provision("Birch Park")

	s.Run("admin adds to own society and it is audited", func() {
		b, err := s.service.CreateBuilding(s.ctx, *admin, CreateBuildingRequest{Name: "Block 2", SortOrder: 5})
		s.Require().NoError(err)
		s.Equal(admin.SocietyID, b.SocietyID)
		s.Equal([]string{"create_building"}, s.audited)

		list, err := s.service.ListBuildings(s.ctx, *admin, id.SocietyID{})
		s.Require().NoError(err)
		s.Len(list, 2)
	})

	s.Run("cross-society access is refused", func() {
		_, err := s.service.CreateBuilding(s.ctx, *admin, CreateBuildingRequest{SocietyID: other.SocietyID, Name: "X"})
		s.True(dErrors.HasCode(err, dErrors.CodeTenantMismatch))
		_, err = s.service.ListBuildings(s.ctx, *admin, other.SocietyID)
		s.True(dErrors.HasCode(err, dErrors.CodeTenantMismatch))
	})

	s.Run("guards cannot add buildings", func() {
		guard := identity.Principal{UserID: id.NewUserID(), SocietyID: admin.SocietyID, Roles: identity.NewRoleSet(identity.RoleGuard)}
		_, err := s.service.CreateBuilding(s.ctx, guard, CreateBuildingRequest{Name: "X"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("BuildingInSociety checks ownership", func() {
		list, err := s.service.ListBuildings(s.ctx, *admin, admin.SocietyID)
		s.Require().NoError(err)
		_, err = s.service.BuildingInSociety(s.ctx, list[0].ID, admin.SocietyID)
		s.NoError(err)
		_, err = s.service.BuildingInSociety(s.ctx, list[0].ID, other.SocietyID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
