package models

import (
	"time"

	id "gatehouse/pkg/domain"
)

// Entry is one admin action. Entries are append-only.
type Entry struct {
	ID        id.AuditLogID  `json:"id"`
	UserID    id.UserID      `json:"user_id"`
	SocietyID *id.SocietyID  `json:"society_id,omitempty"`
	Action    string         `json:"action"`
	Endpoint  string         `json:"endpoint"`
	Method    string         `json:"method,omitempty"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}

// OutboxEntry is an event waiting to be relayed to the audit topic.
type OutboxEntry struct {
	ID            id.AuditLogID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}
