package models

import (
	"strings"
	"time"

	"github.com/mssola/useragent"

	id "gatehouse/pkg/domain"
)

const (
	TypeDataCollection = "data_collection"
	DataCollectionText = "I consent to my data being collected for this visit (DPDP Act 2023)"
)

// Log is one consent event captured at the gate. Rows are append-only; they
// are the evidence that consent was obtained and are never changed.
type Log struct {
	ID           id.ConsentLogID `json:"id"`
	VisitorID    id.VisitorID    `json:"visitor_id"`
	VisitID      id.VisitID      `json:"visit_id"`
	ConsentType  string          `json:"consent_type"`
	ConsentGiven bool            `json:"consent_given"`
	ConsentText  string          `json:"consent_text"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	Device       string          `json:"device,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewDataCollection records consent to data collection for a visit, as
// given from the client at ip using userAgent.
func NewDataCollection(logID id.ConsentLogID, visitorID id.VisitorID, visitID id.VisitID, ip, userAgent string, now time.Time) *Log {
	return &Log{
		ID:           logID,
		VisitorID:    visitorID,
		VisitID:      visitID,
		ConsentType:  TypeDataCollection,
		ConsentGiven: true,
		ConsentText:  DataCollectionText,
		IPAddress:    ip,
		UserAgent:    userAgent,
		Device:       DeviceSummary(userAgent),
		CreatedAt:    now,
	}
}

// DeviceSummary renders a user agent as "Browser on OS".
func DeviceSummary(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser) + " on " + strings.TrimSpace(os)
}
