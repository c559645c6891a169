package models

import (
	"strings"
	"time"

	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

// Building (tower/block) inside a society. Residents reference one by id
// together with a flat number.
type Building struct {
	ID        id.BuildingID `json:"id"`
	SocietyID id.SocietyID  `json:"society_id"`
	Name      string        `json:"name"`
	SortOrder int           `json:"sort_order"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewBuilding(buildingID id.BuildingID, societyID id.SocietyID, name string, sortOrder int, now time.Time) (*Building, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "building name cannot be empty")
	}
	if societyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "building must belong to a society")
	}
	return &Building{ID: buildingID, SocietyID: societyID, Name: name, SortOrder: sortOrder, CreatedAt: now}, nil
}

// SocietyDetails is a society with its buildings, as returned by slug lookup.
type SocietyDetails struct {
	*Society
	Buildings []*Building `json:"buildings,omitempty"`
}
