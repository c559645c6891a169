package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	jwttoken "gatehouse/internal/jwt_token"
	"gatehouse/internal/identity/models"
	"gatehouse/internal/identity/secrets"
	tenantmodels "gatehouse/internal/tenant/models"
	tenantservice "gatehouse/internal/tenant/service"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListBySociety(ctx context.Context, societyID id.SocietyID, role models.Role) ([]*models.User, error)
}

// Tenants is the slice of the tenant directory the auth flows need.
type Tenants interface {
	Provision(ctx context.Context, req tenantservice.CreateSocietyRequest, buildingNames []string) (*tenantmodels.SocietyDetails, error)
	GetBySlug(ctx context.Context, slug string) (*tenantmodels.SocietyDetails, error)
	Get(ctx context.Context, societyID id.SocietyID) (*tenantmodels.Society, error)
	BuildingInSociety(ctx context.Context, buildingID id.BuildingID, societyID id.SocietyID) (*tenantmodels.Building, error)
}

type TokenIssuer interface {
	GenerateAccessToken(subject jwttoken.TokenSubject, expiresIn time.Duration) (string, error)
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// ExternalVerifier validates tokens minted by the identity provider.
type ExternalVerifier interface {
	Verify(ctx context.Context, tokenString string) (*jwttoken.KeycloakClaims, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditLogger interface {
	LogAdminAction(ctx context.Context, actor models.Principal, action string, details map[string]any)
}

// Service implements local authentication, principal resolution and user
// administration.
type Service struct {
	users    UserStore
	tenants  Tenants
	tokens   TokenIssuer
	tx       TxRunner
	external ExternalVerifier
	audit    AuditLogger
	logger   *slog.Logger
	tokenTTL time.Duration
	demoMode bool
	demoUser id.UserID
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithExternalVerifier accepts identity provider tokens next to local ones.
func WithExternalVerifier(v ExternalVerifier) Option {
	return func(s *Service) { s.external = v }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithDemoMode resolves requests without a token to demoUser.
func WithDemoMode(demoUser id.UserID) Option {
	return func(s *Service) {
		s.demoMode = true
		s.demoUser = demoUser
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

func New(users UserStore, tenants Tenants, tokens TokenIssuer, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tenants:  tenants,
		tokens:   tokens,
		tx:       tx,
		logger:   slog.Default(),
		tokenTTL: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve maps a bearer token to the principal of an active user. Roles
// come from the stored account, not the token, so role changes and
// deactivation apply immediately.
func (s *Service) Resolve(ctx context.Context, token string) (models.Principal, error) {
	if token == "" {
		if s.demoMode {
			return s.demoPrincipal(ctx)
		}
		return models.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "Not authenticated")
	}

	var (
		u   *models.User
		err error
	)
	switch {
	case jwttoken.IsLocal(token):
		u, err = s.resolveLocal(ctx, token)
	case s.external != nil:
		u, err = s.resolveExternal(ctx, token)
	default:
		err = dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if err != nil {
		return models.Principal{}, err
	}
	if !u.IsActive {
		return models.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "Account is disabled")
	}
	return u.Principal(), nil
}

func (s *Service) resolveLocal(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return s.loadUser(ctx, func() (*models.User, error) { return s.users.FindByID(ctx, userID) })
}

func (s *Service) resolveExternal(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.external.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no email")
	}
	return s.loadUser(ctx, func() (*models.User, error) { return s.users.FindByEmail(ctx, claims.Email) })
}

func (s *Service) loadUser(ctx context.Context, find func() (*models.User, error)) (*models.User, error) {
	u, err := find()
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "User not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

// The demo account may act in every society role.
func (s *Service) demoPrincipal(ctx context.Context) (models.Principal, error) {
	u, err := s.loadUser(ctx, func() (*models.User, error) { return s.users.FindByID(ctx, s.demoUser) })
	if err != nil {
		return models.Principal{}, err
	}
	p := u.Principal()
	p.Roles |= models.NewRoleSet(models.RoleAdmin, models.RoleGuard, models.RoleResident)
	return p, nil
}

type RegisterSocietyRequest struct {
	Society   tenantservice.CreateSocietyRequest
	Buildings []string
	Email     string
	Password  string
	FullName  string
	Phone     string
	Flat      string
}

// RegisterSociety creates a society, its buildings and its first admin in
// one unit of work and signs the admin in.
func (s *Service) RegisterSociety(ctx context.Context, req RegisterSocietyRequest) (*AuthResult, error) {
	if strings.TrimSpace(req.Society.ContactEmail) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "contact_email is required")
	}
	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var (
		admin   *models.User
		details *tenantmodels.SocietyDetails
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureEmailAvailable(ctx, req.Email); err != nil {
			return err
		}
		var txErr error
		details, txErr = s.tenants.Provision(ctx, req.Society, req.Buildings)
		if txErr != nil {
			return txErr
		}
		admin, txErr = s.newAccount(ctx, req.Email, hash, req.FullName, models.RoleAdmin)
		if txErr != nil {
			return txErr
		}
		admin.SocietyID = details.ID
		admin.Phone = strings.TrimSpace(req.Phone)
		admin.FlatNumber = strings.TrimSpace(req.Flat)
		if len(details.Buildings) > 0 {
			first := details.Buildings[0].ID
			admin.BuildingID = &first
		}
		return s.createUser(ctx, admin)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "society registered",
		"society_id", details.ID,
		"user_id", admin.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return s.authResult(admin, details.Society)
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	SocietySlug string `json:"society_slug"`
	BuildingID  string `json:"building_id"`
	Phone       string `json:"phone"`
	FlatNumber  string `json:"flat_number"`
}

// Signup joins a guard or resident to an existing active society.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "Role must be guard or resident")
	}
	switch role {
	case models.RoleGuard, models.RoleResident:
	case models.RoleAdmin:
		return nil, dErrors.New(dErrors.CodeValidation, "Admin can only be created via Register Society")
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "Role must be guard or resident")
	}
	if strings.TrimSpace(req.SocietySlug) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "society_slug is required")
	}
	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	details, err := s.tenants.GetBySlug(ctx, req.SocietySlug)
	if err != nil {
		return nil, err
	}
	var buildingID *id.BuildingID
	if strings.TrimSpace(req.BuildingID) != "" {
		parsed, err := id.ParseBuildingID(strings.TrimSpace(req.BuildingID))
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "Invalid building_id")
		}
		if _, err := s.tenants.BuildingInSociety(ctx, parsed, details.ID); err != nil {
			return nil, err
		}
		buildingID = &parsed
	}

	u, err := s.newAccount(ctx, req.Email, hash, req.FullName, role)
	if err != nil {
		return nil, err
	}
	u.SocietyID = details.ID
	u.BuildingID = buildingID
	u.Phone = strings.TrimSpace(req.Phone)
	u.FlatNumber = strings.TrimSpace(req.FlatNumber)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureEmailAvailable(ctx, u.Email); err != nil {
			return err
		}
		return s.createUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return s.authResult(u, details.Society)
}

// Login authenticates by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid email or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := secrets.VerifyPassword(password, u.PasswordHash); err != nil {
		s.logger.WarnContext(ctx, "login failed",
			"user_id", u.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !u.IsActive {
		return nil, dErrors.New(dErrors.CodeForbidden, "Account is disabled")
	}

	var society *tenantmodels.Society
	if !u.SocietyID.IsNil() {
		society, err = s.tenants.Get(ctx, u.SocietyID)
		if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
	}
	return s.authResult(u, society)
}

// Me describes the caller.
func (s *Service) Me(ctx context.Context, actor models.Principal) (*UserView, error) {
	u, err := s.loadUser(ctx, func() (*models.User, error) { return s.users.FindByID(ctx, actor.UserID) })
	if err != nil {
		return nil, err
	}
	view := newUserView(u)
	view.Roles = roleNames(actor.Roles)
	view.Role = string(actor.Roles.Primary())
	if !u.SocietyID.IsNil() {
		if society, err := s.tenants.Get(ctx, u.SocietyID); err == nil {
			view.Society = &SocietyRef{ID: society.ID, Slug: society.Slug, Name: society.Name}
		}
	}
	return view, nil
}

// ListUsers lists active members of the admin's society.
func (s *Service) ListUsers(ctx context.Context, actor models.Principal, role string) ([]*UserView, error) {
	societyID, err := s.requireSocietyAdmin(actor)
	if err != nil {
		return nil, err
	}
	var filter models.Role
	if strings.TrimSpace(role) != "" {
		if filter, err = models.ParseRole(role); err != nil {
			return nil, err
		}
	}
	users, err := s.users.ListBySociety(ctx, societyID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	return views, nil
}

type CreateUserRequest struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	FlatNumber string `json:"flat_number"`
}

// CreateUser adds an admin, guard or resident to the admin's society.
func (s *Service) CreateUser(ctx context.Context, actor models.Principal, req CreateUserRequest) (*UserView, error) {
	societyID, err := s.requireSocietyAdmin(actor)
	if err != nil {
		return nil, err
	}
	role, err := models.ParseRole(req.Role)
	if err != nil || role == models.RoleSuperAdmin {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be one of admin, guard, resident")
	}
	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.newAccount(ctx, req.Email, hash, req.FullName, role)
	if err != nil {
		return nil, err
	}
	u.SocietyID = societyID
	u.Phone = strings.TrimSpace(req.Phone)
	u.FlatNumber = strings.TrimSpace(req.FlatNumber)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureEmailAvailable(ctx, u.Email); err != nil {
			return err
		}
		if err := s.createUser(ctx, u); err != nil {
			return err
		}
		if s.audit != nil {
			s.audit.LogAdminAction(ctx, actor, "create_user", map[string]any{
				"user_id": u.ID.String(),
				"role":    string(u.Role),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newUserView(u), nil
}

func (s *Service) requireSocietyAdmin(actor models.Principal) (id.SocietyID, error) {
	if err := actor.Require(models.CapManageSociety); err != nil {
		return id.SocietyID{}, err
	}
	if !actor.HasSociety() {
		return id.SocietyID{}, dErrors.New(dErrors.CodeForbidden, "No society context")
	}
	return actor.SocietyID, nil
}

func (s *Service) newAccount(ctx context.Context, email, hash, fullName string, role models.Role) (*models.User, error) {
	u, err := models.NewUser(id.UserID(uuid.New()), email, hash, fullName, role, requestcontext.Now(ctx))
	if err != nil {
		if de, ok := dErrors.As(err); ok {
			return nil, dErrors.New(dErrors.CodeValidation, de.Message)
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) ensureEmailAvailable(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return dErrors.New(dErrors.CodeConflict, "Email already registered")
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}
}

func (s *Service) createUser(ctx context.Context, u *models.User) error {
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "Email already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return nil
}

func (s *Service) authResult(u *models.User, society *tenantmodels.Society) (*AuthResult, error) {
	subject := jwttoken.TokenSubject{
		UserID:   uuid.UUID(u.ID),
		Email:    u.Email,
		FullName: u.FullName,
		Roles:    roleNames(u.Roles()),
	}
	if !u.SocietyID.IsNil() {
		subject.SocietyID = u.SocietyID.String()
	}
	if u.BuildingID != nil {
		subject.BuildingID = u.BuildingID.String()
	}
	token, err := s.tokens.GenerateAccessToken(subject, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	view := newUserView(u)
	if society != nil {
		view.Society = &SocietyRef{ID: society.ID, Slug: society.Slug, Name: society.Name}
	}
	return &AuthResult{AccessToken: token, TokenType: "bearer", User: view}, nil
}
