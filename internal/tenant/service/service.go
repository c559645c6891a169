package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	identity "gatehouse/internal/identity/models"
	"gatehouse/internal/tenant/metrics"
	"gatehouse/internal/tenant/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

type SocietyStore interface {
	CreateIfSlugAvailable(ctx context.Context, society *models.Society) error
	FindByID(ctx context.Context, societyID id.SocietyID) (*models.Society, error)
	FindBySlug(ctx context.Context, slug string) (*models.Society, error)
	List(ctx context.Context, q string, limit int) ([]*models.Society, error)
}

type BuildingStore interface {
	Create(ctx context.Context, building *models.Building) error
	FindByID(ctx context.Context, buildingID id.BuildingID) (*models.Building, error)
	ListBySociety(ctx context.Context, societyID id.SocietyID) ([]*models.Building, error)
}

// TxRunner runs fn as one unit of work.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditLogger interface {
	LogAdminAction(ctx context.Context, actor identity.Principal, action string, details map[string]any)
}

const maxSocietyList = 200

// Service manages societies and their buildings.
type Service struct {
	societies SocietyStore
	buildings BuildingStore
	tx        TxRunner
	logger    *slog.Logger
	audit     AuditLogger
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditLogger(audit AuditLogger) Option {
	return func(s *Service) {
		s.audit = audit
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(societies SocietyStore, buildings BuildingStore, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		societies: societies,
		buildings: buildings,
		tx:        tx,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSocietyRequest carries the society profile for both the platform
// create endpoint and the self-service registration flow.
type CreateSocietyRequest struct {
	Name               string `json:"name"`
	Slug               string `json:"slug"`
	Address            string `json:"address"`
	City               string `json:"city"`
	State              string `json:"state"`
	Pincode            string `json:"pincode"`
	Country            string `json:"country"`
	ContactEmail       string `json:"contact_email"`
	ContactPhone       string `json:"contact_phone"`
	RegistrationNumber string `json:"registration_number"`
}

func (r *CreateSocietyRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if slug := strings.TrimSpace(r.Slug); slug != "" {
		r.Slug = models.Slugify(slug)
	}
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.State = strings.TrimSpace(r.State)
	r.Pincode = strings.TrimSpace(r.Pincode)
	r.Country = strings.TrimSpace(r.Country)
	if r.Country == "" {
		r.Country = "India"
	}
	r.ContactEmail = strings.ToLower(strings.TrimSpace(r.ContactEmail))
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	r.RegistrationNumber = strings.TrimSpace(r.RegistrationNumber)
}

func (r *CreateSocietyRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "society name is required")
	}
	if r.ContactEmail != "" {
		if _, err := mail.ParseAddress(r.ContactEmail); err != nil {
			return dErrors.New(dErrors.CodeValidation, "contact_email is invalid")
		}
	}
	return nil
}

// Provision creates a society and its initial buildings. It performs no
// authorization; callers are the registration flow and Create.
func (s *Service) Provision(ctx context.Context, req CreateSocietyRequest, buildingNames []string) (*models.SocietyDetails, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	society, err := models.NewSociety(id.NewSocietyID(), req.Name, req.Slug, now)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrorMessage(err))
	}
	society.Address = req.Address
	society.City = req.City
	society.State = req.State
	society.Pincode = req.Pincode
	society.Country = req.Country
	society.ContactEmail = req.ContactEmail
	society.ContactPhone = req.ContactPhone
	society.RegistrationNumber = req.RegistrationNumber

	details := &models.SocietyDetails{Society: society}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.societies.CreateIfSlugAvailable(ctx, society); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "Society with this slug already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create society")
		}
		for i, name := range buildingNames {
			if strings.TrimSpace(name) == "" {
				continue
			}
			b, err := models.NewBuilding(id.NewBuildingID(), society.ID, name, i, now)
			if err != nil {
				return dErrors.New(dErrors.CodeValidation, dErrorMessage(err))
			}
			if err := s.buildings.Create(ctx, b); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create building")
			}
			details.Buildings = append(details.Buildings, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "society created",
		"society_id", society.ID,
		"slug", society.Slug,
		"buildings", len(details.Buildings),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementSocietyCreated()
	return details, nil
}

// Create is the platform operator path. Members of a society must use the
// registration flow instead.
func (s *Service) Create(ctx context.Context, actor identity.Principal, req CreateSocietyRequest) (*models.Society, error) {
	if actor.HasSociety() {
		return nil, dErrors.New(dErrors.CodeForbidden,
			"Only platform admin can create societies from here. Use Register Society to create a society with first admin.")
	}
	req.Normalize()
	if req.ContactEmail == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "contact_email is required")
	}
	details, err := s.Provision(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	return details.Society, nil
}

// GetBySlug resolves an active society for the public signup flow.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.SocietyDetails, error) {
	start := time.Now()
	defer s.metrics.ObserveSlugLookup(start)

	society, err := s.societies.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Society not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load society")
	}
	if !society.IsActive() {
		return nil, dErrors.New(dErrors.CodeNotFound, "Society not found")
	}
	buildings, err := s.buildings.ListBySociety(ctx, society.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load buildings")
	}
	return &models.SocietyDetails{Society: society, Buildings: buildings}, nil
}

func (s *Service) Get(ctx context.Context, societyID id.SocietyID) (*models.Society, error) {
	society, err := s.societies.FindByID(ctx, societyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Society not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load society")
	}
	return society, nil
}

// List returns the caller's own society, or every active society for a
// platform operator.
func (s *Service) List(ctx context.Context, actor identity.Principal, q string) ([]*models.Society, error) {
	if actor.HasSociety() {
		society, err := s.Get(ctx, actor.SocietyID)
		if err != nil {
			return nil, err
		}
		if !society.IsActive() || !matches(society, q) {
			return []*models.Society{}, nil
		}
		return []*models.Society{society}, nil
	}
	if err := actor.Require(identity.CapManageAllSocieties); err != nil {
		return nil, err
	}
	all, err := s.societies.List(ctx, q, maxSocietyList)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list societies")
	}
	active := make([]*models.Society, 0, len(all))
	for _, soc := range all {
		if soc.IsActive() {
			active = append(active, soc)
		}
	}
	return active, nil
}

// ListBuildings lists buildings of societyID, defaulting to the caller's.
func (s *Service) ListBuildings(ctx context.Context, actor identity.Principal, societyID id.SocietyID) ([]*models.Building, error) {
	if societyID.IsNil() {
		societyID = actor.SocietyID
	}
	if societyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "society_id is required")
	}
	if actor.HasSociety() && actor.SocietyID != societyID {
		return nil, dErrors.New(dErrors.CodeTenantMismatch, "Not allowed to list buildings of another society")
	}
	buildings, err := s.buildings.ListBySociety(ctx, societyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list buildings")
	}
	return buildings, nil
}

type CreateBuildingRequest struct {
	SocietyID id.SocietyID `json:"society_id"`
	Name      string       `json:"name"`
	SortOrder int          `json:"sort_order"`
}

// CreateBuilding adds a building to the admin's own society.
func (s *Service) CreateBuilding(ctx context.Context, actor identity.Principal, req CreateBuildingRequest) (*models.Building, error) {
	if err := actor.Require(identity.CapManageSociety); err != nil {
		return nil, err
	}
	if req.SocietyID.IsNil() {
		req.SocietyID = actor.SocietyID
	}
	if actor.HasSociety() && actor.SocietyID != req.SocietyID {
		return nil, dErrors.New(dErrors.CodeTenantMismatch, "Not allowed to add building to another society")
	}
	if _, err := s.Get(ctx, req.SocietyID); err != nil {
		return nil, err
	}

	b, err := models.NewBuilding(id.NewBuildingID(), req.SocietyID, req.Name, req.SortOrder, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrorMessage(err))
	}
	if err := s.buildings.Create(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create building")
	}
	s.metrics.IncrementBuildingCreated()
	if s.audit != nil {
		s.audit.LogAdminAction(ctx, actor, "create_building", map[string]any{
			"building_id": b.ID.String(),
			"name":        b.Name,
		})
	}
	return b, nil
}

// BuildingInSociety loads a building and checks it belongs to societyID.
func (s *Service) BuildingInSociety(ctx context.Context, buildingID id.BuildingID, societyID id.SocietyID) (*models.Building, error) {
	b, err := s.buildings.FindByID(ctx, buildingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Building (tower) not found or does not belong to your society")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load building")
	}
	if b.SocietyID != societyID {
		return nil, dErrors.New(dErrors.CodeNotFound, "Building (tower) not found or does not belong to your society")
	}
	return b, nil
}

func matches(society *models.Society, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(society.Name), q) || strings.Contains(society.Slug, q)
}

func dErrorMessage(err error) string {
	if de, ok := dErrors.As(err); ok {
		return de.Message
	}
	return err.Error()
}
