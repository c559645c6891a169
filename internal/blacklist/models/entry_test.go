package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

func TestNewEntry(t *testing.T) {
	society := id.NewSocietyID()
	e, err := NewEntry(id.NewBlacklistID(), id.NewVisitorID(), society, "  trespassing ", id.NewUserID(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "trespassing", e.Reason)
	assert.True(t, e.IsActive)

	_, err = NewEntry(id.NewBlacklistID(), id.NewVisitorID(), society, " ", id.NewUserID(), time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewEntry(id.NewBlacklistID(), id.NewVisitorID(), society, strings.Repeat("x", 501), id.NewUserID(), time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewEntry(id.NewBlacklistID(), id.NewVisitorID(), id.SocietyID{}, "x", id.NewUserID(), time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestCovers(t *testing.T) {
	societyA, societyB := id.NewSocietyID(), id.NewSocietyID()

	scoped := &Entry{SocietyID: &societyA, IsActive: true}
	assert.True(t, scoped.Covers(societyA))
	assert.False(t, scoped.Covers(societyB))

	global := &Entry{IsActive: true}
	assert.True(t, global.Covers(societyA))
	assert.True(t, global.Covers(societyB))

	inactive := &Entry{SocietyID: &societyA}
	assert.False(t, inactive.Covers(societyA))
}
