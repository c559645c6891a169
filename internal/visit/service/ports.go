package service

import (
	"context"

	id "gatehouse/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Notifier delivers in-app notifications. Delivery failures are its own
// concern; it never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, userID id.UserID, kind, title, body string, metadata map[string]any)
}

// Messenger sends the invitation to the visitor's phone. It reports whether
// the message went out.
type Messenger interface {
	SendInvite(ctx context.Context, phone, visitorName, otp, qrCode string) bool
}
