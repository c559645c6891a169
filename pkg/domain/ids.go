// Package domain holds the strongly typed identifiers shared across modules.
//
// Every aggregate is addressed by a UUID, but each one gets its own named type
// so a VisitorID can never be passed where a SocietyID is expected. Construct
// IDs from external input with the Parse* functions; they reject empty, nil and
// malformed values with CodeInvalidInput.
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "gatehouse/pkg/domain-errors"
)

type (
	SocietyID      uuid.UUID
	BuildingID     uuid.UUID
	UserID         uuid.UUID
	VisitorID      uuid.UUID
	VisitID        uuid.UUID
	BlacklistID    uuid.UUID
	NotificationID uuid.UUID
	ConsentLogID   uuid.UUID
	AuditLogID     uuid.UUID
)

// maxIDLength bounds input before it reaches uuid.Parse.
const maxIDLength = 64

func parseID(s, kind string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return parsed, nil
}

func ParseSocietyID(s string) (SocietyID, error) {
	u, err := parseID(s, "society_id")
	return SocietyID(u), err
}

func ParseBuildingID(s string) (BuildingID, error) {
	u, err := parseID(s, "building_id")
	return BuildingID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseID(s, "user_id")
	return UserID(u), err
}

func ParseVisitorID(s string) (VisitorID, error) {
	u, err := parseID(s, "visitor_id")
	return VisitorID(u), err
}

func ParseVisitID(s string) (VisitID, error) {
	u, err := parseID(s, "visit_id")
	return VisitID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseID(s, "notification_id")
	return NotificationID(u), err
}

func (id SocietyID) String() string      { return uuid.UUID(id).String() }
func (id BuildingID) String() string     { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id VisitorID) String() string      { return uuid.UUID(id).String() }
func (id VisitID) String() string        { return uuid.UUID(id).String() }
func (id BlacklistID) String() string    { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id ConsentLogID) String() string   { return uuid.UUID(id).String() }
func (id AuditLogID) String() string     { return uuid.UUID(id).String() }

func (id SocietyID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id BuildingID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id VisitorID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id VisitID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id SocietyID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id BuildingID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id VisitorID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id VisitID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id BlacklistID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ConsentLogID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id AuditLogID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *SocietyID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *BuildingID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VisitorID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VisitID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *BlacklistID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ConsentLogID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AuditLogID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewVisitID and friends mint fresh random identifiers.
func NewSocietyID() SocietyID           { return SocietyID(uuid.New()) }
func NewBuildingID() BuildingID         { return BuildingID(uuid.New()) }
func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewVisitorID() VisitorID           { return VisitorID(uuid.New()) }
func NewVisitID() VisitID               { return VisitID(uuid.New()) }
func NewBlacklistID() BlacklistID       { return BlacklistID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }
func NewConsentLogID() ConsentLogID     { return ConsentLogID(uuid.New()) }
func NewAuditLogID() AuditLogID         { return AuditLogID(uuid.New()) }
