package models

import (
	"strings"
	"time"

	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

// Status is the lifecycle state of a visit.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	// StatusCancelled is terminal. No operation currently reaches it.
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown visit status")
}

func (s Status) IsTerminal() bool {
	return s == StatusCheckedOut || s == StatusCancelled
}

// rank orders the forward path. Cancelled sits outside it.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusApproved:
		return 1
	case StatusCheckedIn:
		return 2
	case StatusCheckedOut:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether target lies strictly ahead of s on
// pending → approved → checked_in → checked_out.
func (s Status) CanTransitionTo(target Status) bool {
	from, to := s.rank(), target.rank()
	return from >= 0 && to > from
}

// Metadata records how a visit was created.
type Metadata struct {
	WalkIn  bool       `json:"walkin"`
	GuardID *id.UserID `json:"guard_id,omitempty"`
}

// Visit is one gate entry event.
//
// Invariants:
//   - Status only moves forward (see CanTransitionTo)
//   - Invitations carry an OTP, a QR code and their shared expiry; walk-ins
//     carry neither and have Metadata.WalkIn set
//   - SocietyID is the host's society; it is derived, not owned
type Visit struct {
	ID               id.VisitID   `json:"id"`
	VisitorID        id.VisitorID `json:"visitor_id"`
	HostID           id.UserID    `json:"host_id"`
	SocietyID        id.SocietyID `json:"-"`
	Status           Status       `json:"status"`
	Purpose          string       `json:"purpose,omitempty"`
	ExpectedArrival  *time.Time   `json:"expected_arrival,omitempty"`
	ActualArrival    *time.Time   `json:"actual_arrival,omitempty"`
	ActualDeparture  *time.Time   `json:"actual_departure,omitempty"`
	QRCode           string       `json:"qr_code,omitempty"`
	OTP              string       `json:"otp,omitempty"`
	OTPExpiresAt     *time.Time   `json:"-"`
	ConsentGiven     bool         `json:"consent_given"`
	ConsentTimestamp *time.Time   `json:"consent_timestamp,omitempty"`
	PhotoURL         string       `json:"photo_url,omitempty"`
	Metadata         Metadata     `json:"metadata"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewInvitation builds a pending visit reachable by otp and qr until expiresAt.
func NewInvitation(visitID id.VisitID, visitorID id.VisitorID, hostID id.UserID, societyID id.SocietyID,
	purpose string, expectedArrival *time.Time, otp, qr string, expiresAt, now time.Time) *Visit {
	v := newVisit(visitID, visitorID, hostID, societyID, purpose, now)
	if expectedArrival != nil {
		t := expectedArrival.UTC()
		v.ExpectedArrival = &t
	}
	v.OTP = otp
	v.QRCode = qr
	v.OTPExpiresAt = &expiresAt
	return v
}

// NewWalkIn builds a pending visit registered at the gate by guardID.
func NewWalkIn(visitID id.VisitID, visitorID id.VisitorID, hostID id.UserID, societyID id.SocietyID,
	purpose string, guardID id.UserID, now time.Time) *Visit {
	if strings.TrimSpace(purpose) == "" {
		purpose = "Walk-in"
	}
	v := newVisit(visitID, visitorID, hostID, societyID, purpose, now)
	v.Metadata = Metadata{WalkIn: true, GuardID: &guardID}
	return v
}

func newVisit(visitID id.VisitID, visitorID id.VisitorID, hostID id.UserID, societyID id.SocietyID, purpose string, now time.Time) *Visit {
	return &Visit{
		ID:        visitID,
		VisitorID: visitorID,
		HostID:    hostID,
		SocietyID: societyID,
		Status:    StatusPending,
		Purpose:   strings.TrimSpace(purpose),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (v *Visit) IsWalkIn() bool {
	return v.Metadata.WalkIn
}

// TokenUsable reports whether the OTP and QR code still admit the visitor.
// Both share one expiry, which is exclusive.
func (v *Visit) TokenUsable(now time.Time) bool {
	if v.Status != StatusPending && v.Status != StatusApproved {
		return false
	}
	return v.OTPExpiresAt != nil && v.OTPExpiresAt.After(now)
}

func (v *Visit) Approve(now time.Time) error {
	if v.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidTransition, "Cannot approve visit with status "+string(v.Status))
	}
	v.Status = StatusApproved
	v.UpdatedAt = now
	return nil
}

// CheckIn admits the visitor. Consent is recorded as given: callers invoke
// it only after consent was obtained.
func (v *Visit) CheckIn(now time.Time, photoURL string) error {
	if v.Status != StatusPending && v.Status != StatusApproved {
		return dErrors.New(dErrors.CodeInvalidTransition, "Cannot check in visit with status "+string(v.Status))
	}
	v.Status = StatusCheckedIn
	v.ActualArrival = &now
	v.ConsentGiven = true
	v.ConsentTimestamp = &now
	if photoURL = strings.TrimSpace(photoURL); photoURL != "" {
		v.PhotoURL = photoURL
	}
	v.UpdatedAt = now
	return nil
}

// CheckOut records departure from any status before checked_out.
func (v *Visit) CheckOut(now time.Time) error {
	switch v.Status {
	case StatusCheckedOut:
		return dErrors.New(dErrors.CodeInvalidTransition, "Already checked out")
	case StatusCancelled:
		return dErrors.New(dErrors.CodeInvalidTransition, "Cannot check out visit with status cancelled")
	}
	v.Status = StatusCheckedOut
	v.ActualDeparture = &now
	v.UpdatedAt = now
	return nil
}
