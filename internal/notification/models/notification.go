package models

import (
	"time"

	id "gatehouse/pkg/domain"
)

// Kinds raised by the visit engine.
const (
	KindWalkInPending  = "walkin_pending"
	KindVisitorArrived = "visitor_arrived"
)

// Notification is an in-app alert for one user.
type Notification struct {
	ID        id.NotificationID `json:"id"`
	UserID    id.UserID         `json:"-"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Read      bool              `json:"read"`
	Metadata  map[string]any    `json:"extra_data"`
	CreatedAt time.Time         `json:"created_at"`
}

func New(notificationID id.NotificationID, userID id.UserID, kind, title, body string, metadata map[string]any, now time.Time) *Notification {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Notification{
		ID:        notificationID,
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Body:      body,
		Metadata:  metadata,
		CreatedAt: now,
	}
}
