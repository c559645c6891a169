// Package strings holds small string helpers shared by config parsing and
// request normalization.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value, trimming entries and dropping
// empties and duplicates. Order is preserved.
func SplitList(csv string) []string {
	if csv == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(csv, ","))
}

// DedupeAndTrim removes duplicates and blank entries, trimming each element.
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// DigitsOnly strips everything but ASCII digits. Phone numbers are compared
// and normalized in this form.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
