package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatehouse/internal/identity/models"
	"gatehouse/internal/identity/secrets"
	userstore "gatehouse/internal/identity/store/user"
	jwttoken "gatehouse/internal/jwt_token"
	tenantservice "gatehouse/internal/tenant/service"
	buildingstore "gatehouse/internal/tenant/store/building"
	societystore "gatehouse/internal/tenant/store/society"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	txcontext "gatehouse/pkg/platform/tx"
	"gatehouse/pkg/requestcontext"
)

type fakeVerifier struct {
	claims *jwttoken.KeycloakClaims
	err    error
}

func (f fakeVerifier) Verify(context.Context, string) (*jwttoken.KeycloakClaims, error) {
	return f.claims, f.err
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	users   *userstore.InMemory
	tenants *tenantservice.Service
	tokens  *jwttoken.JWTService
	service *Service
	audited []string
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	s.users = userstore.NewInMemory()
	runner := txcontext.NewMemoryRunner()
	s.tenants = tenantservice.New(societystore.NewInMemory(), buildingstore.NewInMemory(), runner)
	s.tokens = jwttoken.NewJWTService("test-signing-key", "gatehouse", "gatehouse-api")
	s.audited = nil
	s.service = New(s.users, s.tenants, s.tokens, runner,
		WithAuditLogger(auditFunc(func(action string) { s.audited = append(s.audited, action) })))
}

type auditFunc func(action string)

func (f auditFunc) LogAdminAction(_ context.Context, _ models.Principal, action string, _ map[string]any) {
	f(action)
}

func (s *ServiceSuite) register() *AuthResult {
	res, err := s.service.RegisterSociety(s.ctx, RegisterSocietyRequest{
		Society: tenantservice.CreateSocietyRequest{
			Name:         "Green Meadows",
			ContactEmail: "office@greenmeadows.in",
		},
		Buildings: []string{"Tower A", "Tower B"},
		Email:     "Admin@GreenMeadows.in",
		Password:  "secret123",
		FullName:  "Asha Rao",
		Flat:      "A-101",
	})
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) TestRegisterSociety() {
	s.Run("creates society, buildings and admin", func() {
		res := s.register()
		s.NotEmpty(res.AccessToken)
		s.Equal("bearer", res.TokenType)
		s.Equal("admin@greenmeadows.in", res.User.Email)
		s.Equal("admin", res.User.Role)
		s.Equal([]string{"admin", "resident"}, res.User.Roles)
		s.Require().NotNil(res.User.Society)
		s.Equal("green-meadows", res.User.Society.Slug)
		s.Require().NotNil(res.User.BuildingID)

		details, err := s.tenants.GetBySlug(s.ctx, "green-meadows")
		s.Require().NoError(err)
		s.Require().Len(details.Buildings, 2)
		s.Equal(details.Buildings[0].ID, *res.User.BuildingID)

		claims, err := s.tokens.ValidateToken(res.AccessToken)
		s.Require().NoError(err)
		s.Equal(details.ID.String(), claims.SocietyID)
	})

	s.Run("duplicate email leaves no society behind", func() {
		_, err := s.service.RegisterSociety(s.ctx, RegisterSocietyRequest{
			Society:  tenantservice.CreateSocietyRequest{Name: "Second Place", ContactEmail: "x@second.in"},
			Email:    "admin@greenmeadows.in",
			Password: "secret123",
			FullName: "Someone",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		_, err = s.tenants.GetBySlug(s.ctx, "second-place")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("short password", func() {
		_, err := s.service.RegisterSociety(s.ctx, RegisterSocietyRequest{
			Society:  tenantservice.CreateSocietyRequest{Name: "Third", ContactEmail: "x@third.in"},
			Email:    "a@third.in",
			Password: "123",
			FullName: "A",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("contact email required", func() {
		_, err := s.service.RegisterSociety(s.ctx, RegisterSocietyRequest{
			Society:  tenantservice.CreateSocietyRequest{Name: "Fourth"},
			Email:    "a@fourth.in",
			Password: "secret123",
			FullName: "A",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestSignup() {
	s.register()
	details, err := s.tenants.GetBySlug(s.ctx, "green-meadows")
	s.Require().NoError(err)

	s.Run("guard joins", func() {
		res, err := s.service.Signup(s.ctx, SignupRequest{
			Email:       "guard@greenmeadows.in",
			Password:    "secret123",
			FullName:    "Gate Keeper",
			Role:        "guard",
			SocietySlug: "green-meadows",
		})
		s.Require().NoError(err)
		s.Equal([]string{"guard"}, res.User.Roles)
		s.Equal(details.ID, *res.User.SocietyID)
	})

	s.Run("resident with building", func() {
		res, err := s.service.Signup(s.ctx, SignupRequest{
			Email:       "r@greenmeadows.in",
			Password:    "secret123",
			FullName:    "Ravi",
			Role:        "resident",
			SocietySlug: "green-meadows",
			BuildingID:  details.Buildings[1].ID.String(),
			FlatNumber:  " B-202 ",
		})
		s.Require().NoError(err)
		s.Equal("B-202", res.User.FlatNumber)
	})

	tests := []struct {
		name string
		req  SignupRequest
		code dErrors.Code
		msg  string
	}{
		{"admin refused", SignupRequest{Email: "x@y.in", Password: "secret123", FullName: "X", Role: "admin", SocietySlug: "green-meadows"}, dErrors.CodeValidation, "Admin can only be created via Register Society"},
		{"unknown role", SignupRequest{Email: "x@y.in", Password: "secret123", FullName: "X", Role: "owner", SocietySlug: "green-meadows"}, dErrors.CodeValidation, "Role must be guard or resident"},
		{"unknown society", SignupRequest{Email: "x@y.in", Password: "secret123", FullName: "X", Role: "guard", SocietySlug: "nowhere"}, dErrors.CodeNotFound, "Society not found"},
		{"foreign building", SignupRequest{Email: "x@y.in", Password: "secret123", FullName: "X", Role: "guard", SocietySlug: "green-meadows", BuildingID: id.NewBuildingID().String()}, dErrors.CodeNotFound, "Building (tower) not found or does not belong to your society"},
		{"duplicate email", SignupRequest{Email: "GUARD@greenmeadows.in", Password: "secret123", FullName: "X", Role: "guard", SocietySlug: "green-meadows"}, dErrors.CodeConflict, "Email already registered"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Signup(s.ctx, tt.req)
			de, ok := dErrors.As(err)
			s.Require().True(ok, "expected domain error, got %v", err)
			s.Equal(tt.code, de.Code)
			s.Equal(tt.msg, de.Message)
		})
	}
}

func (s *ServiceSuite) TestLogin() {
	s.register()

	s.Run("success returns society", func() {
		res, err := s.service.Login(s.ctx, " ADMIN@greenmeadows.in", "secret123")
		s.Require().NoError(err)
		s.Require().NotNil(res.User.Society)
		s.Equal("Green Meadows", res.User.Society.Name)
	})

	s.Run("wrong password and unknown email look the same", func() {
		_, err1 := s.service.Login(s.ctx, "admin@greenmeadows.in", "wrong-pass")
		_, err2 := s.service.Login(s.ctx, "nobody@greenmeadows.in", "secret123")
		s.True(dErrors.HasCode(err1, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(err2, dErrors.CodeUnauthorized))
		s.Equal(err1.Error(), err2.Error())
	})

	s.Run("disabled account", func() {
		hash, err := secrets.HashPassword("secret123")
		s.Require().NoError(err)
		u, err := models.NewUser(id.NewUserID(), "former@greenmeadows.in", hash, "Former Guard", models.RoleGuard, time.Now())
		s.Require().NoError(err)
		u.IsActive = false
		s.Require().NoError(s.users.Create(s.ctx, u))

		_, err = s.service.Login(s.ctx, "former@greenmeadows.in", "secret123")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestResolve() {
	res := s.register()

	s.Run("local token", func() {
		p, err := s.service.Resolve(s.ctx, res.AccessToken)
		s.Require().NoError(err)
		s.Equal(res.User.ID, p.UserID)
		s.True(p.Can(models.CapManageSociety))
	})

	s.Run("no token without demo mode", func() {
		_, err := s.service.Resolve(s.ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("garbage token", func() {
		_, err := s.service.Resolve(s.ctx, "not-a-jwt")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("demo mode grants every society role", func() {
		svc := New(s.users, s.tenants, s.tokens, txcontext.NewMemoryRunner(), WithDemoMode(res.User.ID))
		p, err := svc.Resolve(s.ctx, "")
		s.Require().NoError(err)
		s.True(p.Can(models.CapGateOperations))
		s.True(p.Can(models.CapHostVisits))
		s.False(p.Can(models.CapManageAllSocieties))
	})

	s.Run("external token maps by email", func() {
		external := New(s.users, s.tenants, s.tokens, txcontext.NewMemoryRunner(),
			WithExternalVerifier(fakeVerifier{claims: &jwttoken.KeycloakClaims{Email: "admin@greenmeadows.in"}}))
		p, err := external.Resolve(s.ctx, "opaque-rs256-token")
		s.Require().NoError(err)
		s.Equal(res.User.ID, p.UserID)

		unknown := New(s.users, s.tenants, s.tokens, txcontext.NewMemoryRunner(),
			WithExternalVerifier(fakeVerifier{claims: &jwttoken.KeycloakClaims{Email: "ghost@nowhere.in"}}))
		_, err = unknown.Resolve(s.ctx, "opaque-rs256-token")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestUserAdministration() {
	res := s.register()
	admin, err := s.service.Resolve(s.ctx, res.AccessToken)
	s.Require().NoError(err)

	s.Run("create and list", func() {
		view, err := s.service.CreateUser(s.ctx, admin, CreateUserRequest{
			Email: "guard2@greenmeadows.in", FullName: "Bala", Role: "guard", Password: "secret123",
		})
		s.Require().NoError(err)
		s.Equal("guard", view.Role)
		s.Equal([]string{"create_user"}, s.audited)

		all, err := s.service.ListUsers(s.ctx, admin, "")
		s.Require().NoError(err)
		s.Len(all, 2)
		s.Equal("Asha Rao", all[0].FullName)

		guards, err := s.service.ListUsers(s.ctx, admin, "guard")
		s.Require().NoError(err)
		s.Len(guards, 1)
	})

	s.Run("password hashed", func() {
		u, err := s.users.FindByEmail(s.ctx, "guard2@greenmeadows.in")
		s.Require().NoError(err)
		s.NoError(secrets.VerifyPassword("secret123", u.PasswordHash))
	})

	s.Run("non-admin refused", func() {
		guard := models.Principal{UserID: id.NewUserID(), SocietyID: admin.SocietyID, Roles: models.NewRoleSet(models.RoleGuard)}
		_, err := s.service.ListUsers(s.ctx, guard, "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("super admin role cannot be granted", func() {
		_, err := s.service.CreateUser(s.ctx, admin, CreateUserRequest{
			Email: "root@greenmeadows.in", FullName: "Root", Role: "super_admin", Password: "secret123",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("me", func() {
		view, err := s.service.Me(s.ctx, admin)
		s.Require().NoError(err)
		s.Equal("admin@greenmeadows.in", view.Email)
		s.Require().NotNil(view.Society)
		s.Equal("green-meadows", view.Society.Slug)
	})
}
