package server

import (
	"strconv"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseBoundedInt returns def for an empty value and rejects values outside
// [1, max].
func parseBoundedInt(value string, def, max int) (int, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def, true
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 1 || parsed > max {
		return 0, false
	}
	return parsed, true
}

// parseOptionalDate accepts RFC 3339 timestamps and plain dates. Plain dates
// resolve to midnight UTC.
func parseOptionalDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, true
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		return parsed.UTC(), true
	}
	return time.Time{}, false
}
