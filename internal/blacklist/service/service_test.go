package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/blacklist/metrics"
	"gatehouse/internal/blacklist/models"
	"gatehouse/internal/blacklist/store"
	identity "gatehouse/internal/identity/models"
	visitorservice "gatehouse/internal/visitor/service"
	visitorstore "gatehouse/internal/visitor/store"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	txcontext "gatehouse/pkg/platform/tx"
	"gatehouse/pkg/requestcontext"
)

type BlacklistServiceSuite struct {
	suite.Suite
	ctx      context.Context
	entries  *store.InMemory
	visitors *visitorservice.Service
	metrics  *metrics.Metrics
	service  *Service
	guardA   identity.Principal
	guardB   identity.Principal
	audited  []string
}

func TestBlacklistServiceSuite(t *testing.T) {
	suite.Run(t, new(BlacklistServiceSuite))
}

type auditFunc func(action string)

func (f auditFunc) LogAdminAction(_ context.Context, _ identity.Principal, action string, _ map[string]any) {
	f(action)
}

func (s *BlacklistServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	s.entries = store.NewInMemory()
	s.visitors = visitorservice.New(visitorstore.NewInMemory())
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.audited = nil
	s.service = New(s.entries, s.visitors, txcontext.NewMemoryRunner(),
		WithMetrics(s.metrics),
		WithAuditLogger(auditFunc(func(action string) { s.audited = append(s.audited, action) })),
	)
	s.guardA = identity.Principal{UserID: id.NewUserID(), SocietyID: id.NewSocietyID(), Roles: identity.NewRoleSet(identity.RoleGuard)}
	s.guardB = identity.Principal{UserID: id.NewUserID(), SocietyID: id.NewSocietyID(), Roles: identity.NewRoleSet(identity.RoleGuard)}
}

func (s *BlacklistServiceSuite) visitor(phone string) id.VisitorID {
	v, err := s.visitors.FindOrCreate(s.ctx, phone, "Test", "")
	s.Require().NoError(err)
	return v.ID
}

func (s *BlacklistServiceSuite) banned(visitorID id.VisitorID, society id.SocietyID) bool {
	banned, err := s.service.IsBlacklisted(s.ctx, visitorID, society)
	s.Require().NoError(err)
	return banned
}

func (s *BlacklistServiceSuite) TestAddThenRemove() {
	visitorID := s.visitor("9876543210")
	s.False(s.banned(visitorID, s.guardA.SocietyID))

	v, err := s.service.Add(s.ctx, s.guardA, visitorID, "trespassing")
	s.Require().NoError(err)
	s.True(v.IsBlacklisted)
	s.True(s.banned(visitorID, s.guardA.SocietyID))
	s.False(s.banned(visitorID, s.guardB.SocietyID), "ban is society scoped")

	v, err = s.service.Remove(s.ctx, s.guardA, visitorID)
	s.Require().NoError(err)
	s.False(v.IsBlacklisted)
	s.False(s.banned(visitorID, s.guardA.SocietyID))

	stored, err := s.visitors.Get(s.ctx, visitorID)
	s.Require().NoError(err)
	s.False(stored.IsBlacklisted)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Changes.WithLabelValues("add")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Changes.WithLabelValues("remove")))
}

func (s *BlacklistServiceSuite) TestDuplicateAdd() {
	visitorID := s.visitor("9876543210")
	_, err := s.service.Add(s.ctx, s.guardA, visitorID, "first")
	s.Require().NoError(err)

	_, err = s.service.Add(s.ctx, s.guardA, visitorID, "second")
	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.CodeConflict, de.Code)
	s.Equal("Visitor is already blacklisted in this society", de.Message)

	_, err = s.service.Add(s.ctx, s.guardB, visitorID, "other society")
	s.NoError(err)
}

func (s *BlacklistServiceSuite) TestRemoveKeepsFlagWhileOtherBansRemain() {
	visitorID := s.visitor("9876543210")
	_, err := s.service.Add(s.ctx, s.guardA, visitorID, "a")
	s.Require().NoError(err)
	_, err = s.service.Add(s.ctx, s.guardB, visitorID, "b")
	s.Require().NoError(err)

	v, err := s.service.Remove(s.ctx, s.guardA, visitorID)
	s.Require().NoError(err)
	s.True(v.IsBlacklisted)
	s.False(s.banned(visitorID, s.guardA.SocietyID))
	s.True(s.banned(visitorID, s.guardB.SocietyID))
}

func (s *BlacklistServiceSuite) TestGlobalLegacyBan() {
	visitorID := s.visitor("9876543210")
	s.Require().NoError(s.entries.Create(s.ctx, &models.Entry{
		ID: id.NewBlacklistID(), VisitorID: visitorID, Reason: "legacy", IsActive: true, CreatedAt: time.Now(),
	}))

	s.True(s.banned(visitorID, s.guardA.SocietyID))
	s.True(s.banned(visitorID, s.guardB.SocietyID))

	_, err := s.service.Add(s.ctx, s.guardA, visitorID, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.Remove(s.ctx, s.guardA, visitorID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), "global bans are not lifted per society")
}

func (s *BlacklistServiceSuite) TestRemoveWithoutBan() {
	visitorID := s.visitor("9876543210")
	_, err := s.service.Remove(s.ctx, s.guardA, visitorID)
	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.CodeInvalidTransition, de.Code)
	s.Equal("Visitor is not blacklisted in this society", de.Message)
}

func (s *BlacklistServiceSuite) TestAddByPhone() {
	v, err := s.service.AddByPhone(s.ctx, s.guardA, "9123456780", "Unknown Person", "harassment")
	s.Require().NoError(err)
	s.True(s.banned(v.ID, s.guardA.SocietyID))
	s.Equal([]string{"blacklist_add_by_phone"}, s.audited)

	_, err = s.service.AddByPhone(s.ctx, s.guardA, "9123456780", "Unknown Person", "again")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *BlacklistServiceSuite) TestAddUnknownVisitor() {
	_, err := s.service.Add(s.ctx, s.guardA, id.NewVisitorID(), "x")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *BlacklistServiceSuite) TestList() {
	base := s.ctx
	first := s.visitor("9000000001")
	second := s.visitor("9000000002")

	_, err := s.service.Add(base, s.guardA, first, "older")
	s.Require().NoError(err)
	_, err = s.service.Add(requestcontext.WithTime(base, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)), s.guardA, second, "newer")
	s.Require().NoError(err)
	_, err = s.service.Add(base, s.guardB, first, "elsewhere")
	s.Require().NoError(err)

	listed, err := s.service.List(s.ctx, s.guardA)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(second, listed[0].VisitorID)
	s.Equal("newer", listed[0].Reason)
	s.Equal("9000000001", listed[1].VisitorPhone)
}

func (s *BlacklistServiceSuite) TestAuthorization() {
	visitorID := s.visitor("9876543210")
	resident := identity.Principal{UserID: id.NewUserID(), SocietyID: s.guardA.SocietyID, Roles: identity.NewRoleSet(identity.RoleResident)}
	_, err := s.service.Add(s.ctx, resident, visitorID, "x")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	homeless := identity.Principal{UserID: id.NewUserID(), Roles: identity.NewRoleSet(identity.RoleGuard)}
	_, err = s.service.List(s.ctx, homeless)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
