package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "gatehouse/pkg/domain"
)

func TestDeviceSummary(t *testing.T) {
	t.Run("empty user agent", func(t *testing.T) {
		assert.Equal(t, "Unknown Device", DeviceSummary(""))
	})

	t.Run("chrome on desktop", func(t *testing.T) {
		got := DeviceSummary("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Contains(t, got, "Chrome")
		assert.Contains(t, got, " on ")
		assert.NotContains(t, got, "  ")
	})

	t.Run("safari on iphone", func(t *testing.T) {
		got := DeviceSummary("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.Contains(t, got, "iPhone")
	})

	t.Run("unknown agent still reads as a device", func(t *testing.T) {
		got := DeviceSummary("Unknown/1.0")
		assert.Contains(t, got, " on ")
		assert.Equal(t, got, strings.TrimSpace(got))
	})
}

func TestNewDataCollection(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	l := NewDataCollection(id.NewConsentLogID(), id.NewVisitorID(), id.NewVisitID(), "10.0.0.1", "", now)
	assert.True(t, l.ConsentGiven)
	assert.Equal(t, TypeDataCollection, l.ConsentType)
	assert.Equal(t, DataCollectionText, l.ConsentText)
	assert.Equal(t, "Unknown Device", l.Device)
	assert.Equal(t, now, l.CreatedAt)
}
