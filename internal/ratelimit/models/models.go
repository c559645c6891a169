package models

import "time"

// Result is the outcome of one limiter check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until the window resets; zero when allowed.
	RetryAfter int
	// Degraded is set when the in-memory fallback answered.
	Degraded bool
}

// IPKey namespaces a client IP for one limited route class.
func IPKey(class, ip string) string {
	return "ip:" + class + ":" + ip
}
