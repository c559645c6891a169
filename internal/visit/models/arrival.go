package models

import (
	"fmt"
	"time"

	dErrors "gatehouse/pkg/domain-errors"
)

// CheckArrivalWindow accepts now within [expected-window, expected+window],
// both ends inclusive. A nil expected arrival is always accepted.
func CheckArrivalWindow(expected *time.Time, now time.Time, window time.Duration) error {
	if expected == nil {
		return nil
	}
	minutes := int(window / time.Minute)
	clock := expected.Format("15:04")
	if now.Before(expected.Add(-window)) {
		return dErrors.New(dErrors.CodeOutsideArrivalWindow, fmt.Sprintf(
			"Check-in too early. Expected arrival: %s. You can check in up to %d minutes before.", clock, minutes))
	}
	if now.After(expected.Add(window)) {
		return dErrors.New(dErrors.CodeOutsideArrivalWindow, fmt.Sprintf(
			"Check-in window expired. Expected arrival: %s. Check-in allowed up to %d minutes after.", clock, minutes))
	}
	return nil
}
