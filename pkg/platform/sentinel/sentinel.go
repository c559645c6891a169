// Package sentinel holds the store-level error values.
//
// Stores return these (optionally wrapped with fmt.Errorf and %w) to describe
// facts about persisted state. Services translate them into domain errors;
// handlers never see them directly.
package sentinel

import "errors"

var (
	// ErrNotFound: no row matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness rule (phone, slug, email) rejected the write.
	ErrConflict = errors.New("conflict")
	// ErrExpired: an OTP or QR token exists but its validity has passed.
	ErrExpired = errors.New("expired")
	// ErrInvalidState: the row is in the wrong state for the requested write.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: a backing service (Redis, Kafka) cannot be reached.
	ErrUnavailable = errors.New("unavailable")
)
