package service

import (
	"context"
	"strings"
	"time"

	identity "gatehouse/internal/identity/models"
	"gatehouse/internal/visit/models"
	visitormodels "gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

type InvitationRequest struct {
	VisitorPhone    string     `json:"visitor_phone"`
	VisitorName     string     `json:"visitor_name"`
	VisitorEmail    string     `json:"visitor_email,omitempty"`
	Purpose         string     `json:"purpose,omitempty"`
	ExpectedArrival *time.Time `json:"expected_arrival,omitempty"`
}

func (r *InvitationRequest) Normalize() {
	r.VisitorPhone = visitormodels.NormalizePhone(r.VisitorPhone)
	r.VisitorName = strings.TrimSpace(r.VisitorName)
	r.VisitorEmail = strings.TrimSpace(r.VisitorEmail)
	r.Purpose = strings.TrimSpace(r.Purpose)
}

func (r *InvitationRequest) Validate() error {
	if err := visitormodels.ValidatePhone(r.VisitorPhone); err != nil {
		return err
	}
	return visitormodels.ValidateName(r.VisitorName)
}

// WalkInRequest names the host either directly or by building and flat.
type WalkInRequest struct {
	VisitorPhone string         `json:"visitor_phone"`
	VisitorName  string         `json:"visitor_name"`
	Purpose      string         `json:"purpose,omitempty"`
	HostID       *id.UserID     `json:"host_id,omitempty"`
	BuildingID   *id.BuildingID `json:"building_id,omitempty"`
	FlatNumber   string         `json:"flat_number,omitempty"`
}

func (r *WalkInRequest) Normalize() {
	r.VisitorPhone = visitormodels.NormalizePhone(r.VisitorPhone)
	r.VisitorName = strings.TrimSpace(r.VisitorName)
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.FlatNumber = strings.TrimSpace(r.FlatNumber)
}

func (r *WalkInRequest) Validate() error {
	if err := visitormodels.ValidatePhone(r.VisitorPhone); err != nil {
		return err
	}
	if err := visitormodels.ValidateName(r.VisitorName); err != nil {
		return err
	}
	if r.HostID == nil && (r.BuildingID == nil || r.FlatNumber == "") {
		return dErrors.New(dErrors.CodeValidation, "Provide either host_id or both building_id and flat_number")
	}
	return nil
}

// ListRequest carries the raw query. HostID is "me", a user id or empty.
type ListRequest struct {
	Limit  int
	Offset int
	Status string
	HostID string
}

func (r ListRequest) Validate() error {
	if r.Limit < 0 || r.Limit > MaxListLimit {
		return dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 100")
	}
	if r.Offset < 0 {
		return dErrors.New(dErrors.CodeValidation, "offset must not be negative")
	}
	return nil
}

// Detail is a visit with the names clients display next to it.
type Detail struct {
	*models.Visit
	VisitorName  string `json:"visitor_name"`
	VisitorPhone string `json:"visitor_phone"`
	HostName     string `json:"host_name"`
	IsWalkIn     bool   `json:"is_walkin"`
}

// Describe attaches visitor and host names, loading each person once.
func (s *Service) Describe(ctx context.Context, visits []*models.Visit) ([]*Detail, error) {
	visitors := make(map[id.VisitorID]*visitormodels.Visitor)
	hosts := make(map[id.UserID]*identity.User)
	out := make([]*Detail, 0, len(visits))
	for _, v := range visits {
		visitor, ok := visitors[v.VisitorID]
		if !ok {
			var err error
			if visitor, err = s.visitors.Get(ctx, v.VisitorID); err != nil {
				return nil, err
			}
			visitors[v.VisitorID] = visitor
		}
		host, ok := hosts[v.HostID]
		if !ok {
			host = s.lookupHost(ctx, v.HostID)
			hosts[v.HostID] = host
		}
		out = append(out, newDetail(v, visitor, host))
	}
	return out, nil
}

func (s *Service) describe(ctx context.Context, v *models.Visit, visitor *visitormodels.Visitor) (*Detail, error) {
	return s.describeWithHost(ctx, v, visitor, s.lookupHost(ctx, v.HostID))
}

func (s *Service) describeWithHost(ctx context.Context, v *models.Visit, visitor *visitormodels.Visitor, host *identity.User) (*Detail, error) {
	if visitor == nil {
		var err error
		if visitor, err = s.visitors.Get(ctx, v.VisitorID); err != nil {
			return nil, err
		}
	}
	return newDetail(v, visitor, host), nil
}

// lookupHost tolerates a missing host; the name is only decoration.
func (s *Service) lookupHost(ctx context.Context, hostID id.UserID) *identity.User {
	host, err := s.residents.Get(ctx, hostID)
	if err != nil {
		s.logger.DebugContext(ctx, "host lookup failed", "host_id", hostID, "error", err)
		return nil
	}
	return host
}

func newDetail(v *models.Visit, visitor *visitormodels.Visitor, host *identity.User) *Detail {
	d := &Detail{
		Visit:        v,
		VisitorName:  visitor.Name,
		VisitorPhone: visitor.Phone,
		IsWalkIn:     v.IsWalkIn(),
	}
	if host != nil {
		d.HostName = host.FullName
	}
	return d
}

func walkInBody(visitorName, location string) string {
	body := visitorName + " is at the gate."
	if location != "" {
		body += " Flat: " + location + "."
	}
	return body + " Approve or reject from the app."
}

func joinLocation(building, flat string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{strings.TrimSpace(building), strings.TrimSpace(flat)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}

func trimToken(token string) string {
	return strings.TrimSpace(token)
}
