package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	identity "gatehouse/internal/identity/models"
	"gatehouse/internal/platform/config"
	tenantmodels "gatehouse/internal/tenant/models"
	"gatehouse/internal/visit/cache"
	"gatehouse/internal/visit/metrics"
	"gatehouse/internal/visit/models"
	"gatehouse/internal/visit/store"
	visitormodels "gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, v *models.Visit) error
	FindByID(ctx context.Context, visitID id.VisitID) (*models.Visit, error)
	FindByOTP(ctx context.Context, otp string, now time.Time) (*models.Visit, error)
	FindByQR(ctx context.Context, qr string, now time.Time) (*models.Visit, error)
	Update(ctx context.Context, v *models.Visit) error
	List(ctx context.Context, f store.Filter) ([]*models.Visit, error)
}

type Visitors interface {
	FindOrCreate(ctx context.Context, phone, name, email string) (*visitormodels.Visitor, error)
	Get(ctx context.Context, visitorID id.VisitorID) (*visitormodels.Visitor, error)
}

type Blacklist interface {
	IsBlacklisted(ctx context.Context, visitorID id.VisitorID, societyID id.SocietyID) (bool, error)
}

// Residents resolves hosts within a society.
type Residents interface {
	Get(ctx context.Context, userID id.UserID) (*identity.User, error)
	EnsureInSociety(ctx context.Context, userID id.UserID, societyID id.SocietyID) (*identity.User, error)
	EnsureBuildingInSociety(ctx context.Context, buildingID id.BuildingID, societyID id.SocietyID) (*tenantmodels.Building, error)
	FindByBuildingAndFlat(ctx context.Context, societyID id.SocietyID, buildingID id.BuildingID, flat string) (*identity.User, error)
}

// ConsentRecorder appends the evidentiary consent row for a check-in.
type ConsentRecorder interface {
	Record(ctx context.Context, visitorID id.VisitorID, visitID id.VisitID) error
}

type TokenCache interface {
	Put(ctx context.Context, visitID id.VisitID, otp, qr string, ttl time.Duration) error
	Get(ctx context.Context, kind cache.Kind, token string) (id.VisitID, bool, error)
	Delete(ctx context.Context, otp, qr string) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditLogger interface {
	LogAdminAction(ctx context.Context, actor identity.Principal, action string, details map[string]any)
}

const tokenAttempts = 5

// Service is the visit lifecycle engine: invitations, walk-ins, approval,
// gate check-in and check-out.
type Service struct {
	store     Store
	visitors  Visitors
	blacklist Blacklist
	residents Residents
	notifier  Notifier
	consent   ConsentRecorder
	tx        TxRunner

	messenger Messenger
	cache     TokenCache
	audit     AuditLogger
	metrics   *metrics.Metrics
	logger    *slog.Logger
	policy    config.VisitPolicy
	tokens    *models.TokenGenerator
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

func WithMessenger(m Messenger) Option {
	return func(s *Service) { s.messenger = m }
}

// WithTokenCache indexes gate tokens outside the store. Omit it to look
// tokens up in the store only.
func WithTokenCache(c TokenCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithPolicy(p config.VisitPolicy) Option {
	return func(s *Service) { s.policy = p }
}

func New(store Store, visitors Visitors, blacklist Blacklist, residents Residents,
	notifier Notifier, consent ConsentRecorder, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		store:     store,
		visitors:  visitors,
		blacklist: blacklist,
		residents: residents,
		notifier:  notifier,
		consent:   consent,
		tx:        tx,
		logger:    slog.Default(),
		policy:    config.DefaultVisitPolicy(),
		tracer:    otel.Tracer("gatehouse/visit"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = models.NewTokenGenerator(s.policy.OTPLength, s.policy.QRPrefix)
	return s
}

func (s *Service) startSpan(ctx context.Context, op string, actor identity.Principal) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "visit."+op, trace.WithAttributes(
		attribute.String("user.id", actor.UserID.String()),
		attribute.String("society.id", actor.SocietyID.String()),
	))
	return ctx, span, time.Now()
}

func (s *Service) endSpan(span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
	s.metrics.ObserveDuration(op, start)
}

// CreateInvitation registers a pending visit hosted by the actor and issues
// its OTP and QR code. The WhatsApp invite goes out after commit and never
// affects the result.
func (s *Service) CreateInvitation(ctx context.Context, actor identity.Principal, req InvitationRequest) (detail *Detail, err error) {
	ctx, span, start := s.startSpan(ctx, "create_invitation", actor)
	defer func() { s.endSpan(span, "create_invitation", start, err) }()

	if err := actor.Require(identity.CapHostVisits); err != nil {
		return nil, err
	}
	societyID, err := actor.RequireSociety()
	if err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var (
		visit   *models.Visit
		visitor *visitormodels.Visitor
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		visitor, txErr = s.admissibleVisitor(ctx, req.VisitorPhone, req.VisitorName, req.VisitorEmail, societyID)
		if txErr != nil {
			return txErr
		}
		visit, txErr = s.createInvitation(ctx, visitor.ID, actor.UserID, societyID, req, now)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("visit.id", visit.ID.String()))

	s.metrics.IncrementCreated("invitation")
	if s.cache != nil {
		if err := s.cache.Put(ctx, visit.ID, visit.OTP, visit.QRCode, visit.OTPExpiresAt.Sub(now)); err != nil {
			s.logger.WarnContext(ctx, "failed to cache visit tokens", "visit_id", visit.ID, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "visit invitation created",
		"visit_id", visit.ID,
		"host_id", actor.UserID,
		"society_id", societyID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.audit != nil {
		s.audit.LogAdminAction(ctx, actor, "invite_visitor", map[string]any{
			"visit_id":      visit.ID.String(),
			"visitor_phone": visitor.Phone,
		})
	}
	s.sendInvite(ctx, visitor, visit)

	return s.describe(ctx, visit, visitor)
}

func (s *Service) createInvitation(ctx context.Context, visitorID id.VisitorID, hostID id.UserID, societyID id.SocietyID,
	req InvitationRequest, now time.Time) (*models.Visit, error) {
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		otp, err := s.tokens.OTP()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate OTP")
		}
		qr, err := s.tokens.QR()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate QR code")
		}
		// An OTP only identifies a visit while it is usable, so it must not
		// collide with another live invitation.
		if _, err := s.store.FindByOTP(ctx, otp, now); err == nil {
			continue
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check OTP")
		}

		visit := models.NewInvitation(id.NewVisitID(), visitorID, hostID, societyID,
			req.Purpose, req.ExpectedArrival, otp, qr, now.Add(s.policy.OTPValidity), now)
		err = s.store.Create(ctx, visit)
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create visit")
		}
		return visit, nil
	}
	return nil, dErrors.New(dErrors.CodeInternal, "failed to allocate visit tokens")
}

// admissibleVisitor finds or registers the visitor and refuses one banned in
// the society.
func (s *Service) admissibleVisitor(ctx context.Context, phone, name, email string, societyID id.SocietyID) (*visitormodels.Visitor, error) {
	visitor, err := s.visitors.FindOrCreate(ctx, phone, name, email)
	if err != nil {
		return nil, err
	}
	banned, err := s.blacklist.IsBlacklisted(ctx, visitor.ID, societyID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, dErrors.New(dErrors.CodeBlacklisted, "Visitor is blacklisted in this society")
	}
	return visitor, nil
}

func (s *Service) sendInvite(ctx context.Context, visitor *visitormodels.Visitor, visit *models.Visit) {
	if s.messenger == nil {
		return
	}
	sent := s.messenger.SendInvite(ctx, visitor.Phone, visitor.Name, visit.OTP, visit.QRCode)
	s.metrics.IncrementInvite(sent)
	if !sent {
		s.logger.InfoContext(ctx, "whatsapp invite not delivered", "visit_id", visit.ID)
	}
}

// CreateWalkIn registers a visitor standing at the gate. The host, found by
// id or by building and flat, is asked to approve.
func (s *Service) CreateWalkIn(ctx context.Context, actor identity.Principal, req WalkInRequest) (detail *Detail, err error) {
	ctx, span, start := s.startSpan(ctx, "create_walkin", actor)
	defer func() { s.endSpan(span, "create_walkin", start, err) }()

	if err := actor.Require(identity.CapGateOperations); err != nil {
		return nil, err
	}
	if !actor.HasSociety() {
		return nil, dErrors.New(dErrors.CodeForbidden, "You must be assigned to a society to register walk-ins")
	}
	societyID := actor.SocietyID
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	host, location, err := s.resolveHost(ctx, req, societyID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var (
		visit   *models.Visit
		visitor *visitormodels.Visitor
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		visitor, txErr = s.admissibleVisitor(ctx, req.VisitorPhone, req.VisitorName, "", societyID)
		if txErr != nil {
			return txErr
		}
		visit = models.NewWalkIn(id.NewVisitID(), visitor.ID, host.ID, societyID, req.Purpose, actor.UserID, now)
		if txErr = s.store.Create(ctx, visit); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to create visit")
		}
		s.notifier.Notify(ctx, host.ID, "walkin_pending", "Visitor at gate", walkInBody(visitor.Name, location),
			map[string]any{
				"visit_id":      visit.ID.String(),
				"visitor_name":  visitor.Name,
				"visitor_phone": visitor.Phone,
			})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCreated("walkin")
	s.logger.InfoContext(ctx, "walk-in registered",
		"visit_id", visit.ID,
		"host_id", host.ID,
		"guard_id", actor.UserID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.audit != nil {
		s.audit.LogAdminAction(ctx, actor, "walkin_visitor", map[string]any{
			"visit_id": visit.ID.String(),
			"host_id":  host.ID.String(),
		})
	}
	return s.describeWithHost(ctx, visit, visitor, host)
}

// resolveHost returns the host and the "building - flat" label used in the
// notification.
func (s *Service) resolveHost(ctx context.Context, req WalkInRequest, societyID id.SocietyID) (*identity.User, string, error) {
	if req.HostID != nil {
		host, err := s.residents.EnsureInSociety(ctx, *req.HostID, societyID)
		if err != nil {
			return nil, "", err
		}
		buildingName := ""
		if host.BuildingID != nil {
			if b, err := s.residents.EnsureBuildingInSociety(ctx, *host.BuildingID, societyID); err == nil {
				buildingName = b.Name
			}
		}
		return host, joinLocation(buildingName, host.FlatNumber), nil
	}

	b, err := s.residents.EnsureBuildingInSociety(ctx, *req.BuildingID, societyID)
	if err != nil {
		return nil, "", err
	}
	host, err := s.residents.FindByBuildingAndFlat(ctx, societyID, b.ID, req.FlatNumber)
	if err != nil {
		return nil, "", err
	}
	return host, joinLocation(b.Name, req.FlatNumber), nil
}

// Approve moves a pending visit to approved. Only its host or an admin of
// the same society may approve. A walk-in is then checked in right away; if
// that fails the visit stays approved.
func (s *Service) Approve(ctx context.Context, actor identity.Principal, visitID id.VisitID) (detail *Detail, err error) {
	ctx, span, start := s.startSpan(ctx, "approve", actor)
	defer func() { s.endSpan(span, "approve", start, err) }()

	if err := actor.Require(identity.CapHostVisits); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	var visit *models.Visit
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		if visit, txErr = s.load(ctx, visitID); txErr != nil {
			return txErr
		}
		if !actor.IsAdmin() && visit.HostID != actor.UserID {
			return dErrors.New(dErrors.CodeForbidden, "Not authorized to approve this visit. Only the host may approve.")
		}
		if txErr = sameSociety(actor, visit); txErr != nil {
			return txErr
		}
		if txErr = visit.Approve(now); txErr != nil {
			return txErr
		}
		return s.update(ctx, visit)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementTransition(string(models.StatusApproved))
	s.logger.InfoContext(ctx, "visit approved",
		"visit_id", visit.ID,
		"user_id", actor.UserID,
		"request_id", requestcontext.RequestID(ctx),
	)

	if visit.IsWalkIn() {
		var checkedIn *models.Visit
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			fresh, txErr := s.load(ctx, visitID)
			if txErr != nil {
				return txErr
			}
			if txErr = s.checkIn(ctx, fresh, ""); txErr != nil {
				return txErr
			}
			checkedIn = fresh
			return nil
		})
		if err != nil {
			s.logger.WarnContext(ctx, "walk-in auto check-in failed; visit stays approved",
				"visit_id", visit.ID,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		} else {
			visit = checkedIn
			s.afterCheckIn(ctx, visit)
		}
	}

	if s.audit != nil {
		s.audit.LogAdminAction(ctx, actor, "approve_visit", map[string]any{"visit_id": visitID.String()})
	}
	return s.describe(ctx, visit, nil)
}

// CheckInByOTP admits the visitor holding a usable OTP. Callers must have
// obtained the visitor's consent first.
func (s *Service) CheckInByOTP(ctx context.Context, actor identity.Principal, otp, photoURL string) (*models.Visit, error) {
	return s.checkInByToken(ctx, actor, cache.KindOTP, otp, photoURL)
}

// CheckInByQR admits the visitor holding a usable QR code. Callers must have
// obtained the visitor's consent first.
func (s *Service) CheckInByQR(ctx context.Context, actor identity.Principal, qr, photoURL string) (*models.Visit, error) {
	return s.checkInByToken(ctx, actor, cache.KindQR, qr, photoURL)
}

func (s *Service) checkInByToken(ctx context.Context, actor identity.Principal, kind cache.Kind, token, photoURL string) (visit *models.Visit, err error) {
	op := "checkin_" + string(kind)
	ctx, span, start := s.startSpan(ctx, op, actor)
	defer func() { s.endSpan(span, op, start, err) }()

	if err := actor.Require(identity.CapGateOperations); err != nil {
		return nil, err
	}
	token = trimToken(token)
	if token == "" {
		if kind == cache.KindOTP {
			return nil, dErrors.New(dErrors.CodeValidation, "OTP required")
		}
		return nil, dErrors.New(dErrors.CodeValidation, "QR code required")
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		if visit, txErr = s.lookupToken(ctx, kind, token, now); txErr != nil {
			return txErr
		}
		if txErr = sameSociety(actor, visit); txErr != nil {
			return txErr
		}
		return s.checkIn(ctx, visit, photoURL)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("visit.id", visit.ID.String()))
	s.afterCheckIn(ctx, visit)
	if s.audit != nil {
		s.audit.LogAdminAction(ctx, actor, op, map[string]any{"visit_id": visit.ID.String()})
	}
	return visit, nil
}

// lookupToken resolves a usable token. A cache hit is re-validated against
// the store before it is trusted.
func (s *Service) lookupToken(ctx context.Context, kind cache.Kind, token string, now time.Time) (*models.Visit, error) {
	if s.cache != nil {
		visitID, ok, err := s.cache.Get(ctx, kind, token)
		if err != nil {
			s.logger.WarnContext(ctx, "visit token cache unavailable", "error", err)
		}
		if ok {
			v, err := s.store.FindByID(ctx, visitID)
			if err == nil && v.TokenUsable(now) && tokenOf(v, kind) == token {
				return v, nil
			}
		}
	}

	var (
		v   *models.Visit
		err error
	)
	if kind == cache.KindOTP {
		v, err = s.store.FindByOTP(ctx, token, now)
	} else {
		v, err = s.store.FindByQR(ctx, token, now)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		s.metrics.IncrementRejection("invalid_token")
		if kind == cache.KindOTP {
			return nil, dErrors.New(dErrors.CodeNotFound, "Invalid or expired OTP")
		}
		return nil, dErrors.New(dErrors.CodeNotFound, "Invalid or expired QR code")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up visit")
	}
	return v, nil
}

// checkIn runs inside the caller's unit of work. It re-checks the blacklist
// and the arrival window, then writes the visit, the consent row and the
// host notification together.
func (s *Service) checkIn(ctx context.Context, visit *models.Visit, photoURL string) error {
	banned, err := s.blacklist.IsBlacklisted(ctx, visit.VisitorID, visit.SocietyID)
	if err != nil {
		return err
	}
	if banned {
		s.metrics.IncrementRejection("blacklisted")
		return dErrors.New(dErrors.CodeBlacklisted, "Visitor is blacklisted - access denied")
	}

	now := requestcontext.Now(ctx)
	if err := models.CheckArrivalWindow(visit.ExpectedArrival, now, s.policy.ArrivalWindow); err != nil {
		s.metrics.IncrementRejection("arrival_window")
		return err
	}
	if err := visit.CheckIn(now, photoURL); err != nil {
		return err
	}
	if err := s.update(ctx, visit); err != nil {
		return err
	}
	if err := s.consent.Record(ctx, visit.VisitorID, visit.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record consent")
	}

	visitor, err := s.visitors.Get(ctx, visit.VisitorID)
	if err != nil {
		return err
	}
	s.notifier.Notify(ctx, visit.HostID, "visitor_arrived", "Visitor checked in", visitor.Name+" has checked in.",
		map[string]any{
			"visit_id":     visit.ID.String(),
			"visitor_name": visitor.Name,
		})
	return nil
}

func (s *Service) afterCheckIn(ctx context.Context, visit *models.Visit) {
	s.metrics.IncrementTransition(string(models.StatusCheckedIn))
	s.dropTokens(ctx, visit)
	s.logger.InfoContext(ctx, "visitor checked in",
		"visit_id", visit.ID,
		"visitor_id", visit.VisitorID,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) dropTokens(ctx context.Context, visit *models.Visit) {
	if s.cache == nil || (visit.OTP == "" && visit.QRCode == "") {
		return
	}
	if err := s.cache.Delete(ctx, visit.OTP, visit.QRCode); err != nil {
		s.logger.WarnContext(ctx, "failed to drop cached visit tokens", "visit_id", visit.ID, "error", err)
	}
}

// CheckOut records the visitor's departure.
func (s *Service) CheckOut(ctx context.Context, actor identity.Principal, visitID id.VisitID) (visit *models.Visit, err error) {
	ctx, span, start := s.startSpan(ctx, "checkout", actor)
	defer func() { s.endSpan(span, "checkout", start, err) }()

	if err := actor.Require(identity.CapGateOperations); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		if visit, txErr = s.load(ctx, visitID); txErr != nil {
			return txErr
		}
		if txErr = sameSociety(actor, visit); txErr != nil {
			return txErr
		}
		if txErr = visit.CheckOut(now); txErr != nil {
			return txErr
		}
		return s.update(ctx, visit)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(models.StatusCheckedOut))
	s.dropTokens(ctx, visit)
	s.logger.InfoContext(ctx, "visitor checked out",
		"visit_id", visit.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.audit != nil {
		s.audit.LogAdminAction(ctx, actor, "checkout", map[string]any{"visit_id": visit.ID.String()})
	}
	return visit, nil
}

// Get returns one visit. Hosts see their own visits; gate staff see the
// visits of their society.
func (s *Service) Get(ctx context.Context, actor identity.Principal, visitID id.VisitID) (*Detail, error) {
	visit, err := s.load(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if actor.Can(identity.CapGateOperations) {
		if err := sameSociety(actor, visit); err != nil {
			return nil, err
		}
	} else if visit.HostID != actor.UserID {
		return nil, dErrors.New(dErrors.CodeForbidden, "Not authorized to view this visit.")
	}
	return s.describe(ctx, visit, nil)
}

// List returns visits newest first. Callers without gate access only ever
// see the visits they host.
func (s *Service) List(ctx context.Context, actor identity.Principal, req ListRequest) ([]*Detail, error) {
	filter, err := s.listFilter(actor, req)
	if err != nil {
		return nil, err
	}
	visits, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visits")
	}
	return s.Describe(ctx, visits)
}

func (s *Service) listFilter(actor identity.Principal, req ListRequest) (store.Filter, error) {
	if err := req.Validate(); err != nil {
		return store.Filter{}, err
	}
	f := store.Filter{Limit: req.Limit, Offset: req.Offset}
	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	if req.Status != "" {
		status, err := models.ParseStatus(req.Status)
		if err != nil {
			return store.Filter{}, err
		}
		f.Status = status
	}

	gate := actor.Can(identity.CapGateOperations)
	self := actor.UserID
	switch {
	case req.HostID == "me":
		f.HostID = &self
	case req.HostID != "":
		if !gate {
			return store.Filter{}, dErrors.New(dErrors.CodeForbidden, "Not authorized. Residents may only list own visits (host_id=me).")
		}
		hostID, err := id.ParseUserID(req.HostID)
		if err != nil {
			return store.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "host_id must be a UUID or 'me'")
		}
		f.HostID = &hostID
	case !gate:
		f.HostID = &self
	}

	switch {
	case actor.HasSociety():
		society := actor.SocietyID
		f.SocietyID = &society
	case !actor.Can(identity.CapManageAllSocieties):
		f.HostID = &self
	}
	return f, nil
}

func (s *Service) load(ctx context.Context, visitID id.VisitID) (*models.Visit, error) {
	v, err := s.store.FindByID(ctx, visitID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "Visit not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load visit")
	}
	return v, nil
}

func (s *Service) update(ctx context.Context, v *models.Visit) error {
	if err := s.store.Update(ctx, v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update visit")
	}
	return nil
}

func sameSociety(actor identity.Principal, v *models.Visit) error {
	if actor.Can(identity.CapManageAllSocieties) && !actor.HasSociety() {
		return nil
	}
	if err := actor.SameSociety(v.SocietyID); err != nil {
		return dErrors.New(dErrors.CodeTenantMismatch, "Visit does not belong to your society")
	}
	return nil
}

func tokenOf(v *models.Visit, kind cache.Kind) string {
	if kind == cache.KindOTP {
		return v.OTP
	}
	return v.QRCode
}
