// Package store persists visits. Token lookups only return visits whose OTP
// or QR code is still usable.
package store

import (
	"gatehouse/internal/visit/models"
	id "gatehouse/pkg/domain"
)

// Filter narrows List. Nil society and host match everything; an empty
// status matches every status. Limit 0 means no limit.
type Filter struct {
	SocietyID *id.SocietyID
	HostID    *id.UserID
	Status    models.Status
	Limit     int
	Offset    int
}
