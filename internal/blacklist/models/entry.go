package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

const maxReasonLength = 500

// Entry bans a visitor from a society.
//
// Invariants:
//   - At most one active entry per (visitor, society). The service checks
//     before inserting; there is no unique index, so concurrent adds can race.
//   - A nil SocietyID is a legacy global ban that applies to every society.
//   - Entries are deactivated, never deleted.
type Entry struct {
	ID        id.BlacklistID
	VisitorID id.VisitorID
	SocietyID *id.SocietyID
	Reason    string
	CreatedBy id.UserID
	IsActive  bool
	CreatedAt time.Time
}

func NewEntry(entryID id.BlacklistID, visitorID id.VisitorID, societyID id.SocietyID, reason string, createdBy id.UserID, now time.Time) (*Entry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, dErrors.New(dErrors.CodeValidation, "reason must be at most 500 characters")
	}
	if societyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "blacklist entries are society scoped")
	}
	return &Entry{
		ID:        entryID,
		VisitorID: visitorID,
		SocietyID: &societyID,
		Reason:    reason,
		CreatedBy: createdBy,
		IsActive:  true,
		CreatedAt: now,
	}, nil
}

// Covers reports whether an active entry bans the visitor in societyID.
func (e *Entry) Covers(societyID id.SocietyID) bool {
	if !e.IsActive {
		return false
	}
	return e.SocietyID == nil || *e.SocietyID == societyID
}

// Listed is one row of a society's blacklist.
type Listed struct {
	EntryID       id.BlacklistID `json:"id"`
	VisitorID     id.VisitorID   `json:"visitor_id"`
	VisitorName   string         `json:"visitor_name"`
	VisitorPhone  string         `json:"visitor_phone"`
	Reason        string         `json:"reason"`
	BlacklistedBy id.UserID      `json:"blacklisted_by"`
	CreatedAt     time.Time      `json:"created_at"`
}
