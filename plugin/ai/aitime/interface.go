// Package aitime parses short natural-language schedule text in Chinese and
// English into schedule candidates.
package aitime

import (
	"context"
	"time"
)

// TimeService defines the time parsing service interface.
type TimeService interface {
	// Normalize resolves a time expression to its start instant.
	// Supports: "明天3点", "下午3点半", "2026-1-28 15:00", "tomorrow 3pm"
	Normalize(ctx context.Context, input string, timezone string) (time.Time, error)

	// ParseNaturalTime parses natural language time expressions.
	// reference: reference time point (usually current time)
	// Returns: time range
	ParseNaturalTime(ctx context.Context, input string, reference time.Time) (TimeRange, error)
}

// TimeRange represents a time range.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
