// Package timezone resolves request timezones and formats schedule times.
package timezone

import (
	"fmt"
	"strings"
	"time"
)

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Shanghai").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// Resolve returns the location named by tz, or fallback when tz is empty.
// An unknown name is an error so callers can reject the request.
func Resolve(tz string, fallback *time.Location) (*time.Location, error) {
	if strings.TrimSpace(tz) == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	return ParseTimezone(strings.TrimSpace(tz))
}

// ParseDay parses a day given as "2006-01-02", "today" or "tomorrow" and
// returns its midnight in loc. Empty means today.
func ParseDay(s string, now time.Time, loc *time.Location) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return StartOfDay(now, loc), nil
	case "tomorrow":
		return StartOfDay(now, loc).AddDate(0, 0, 1), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want YYYY-MM-DD: %w", s, err)
	}
	return day, nil
}

// FormatScheduleTime formats a schedule's time for display.
// Rules:
//   - All-day event: "2006-01-02"
//   - With end time: "2006-01-02 15:04 - 16:00"
//   - No end time: "2006-01-02 15:00"
func FormatScheduleTime(startTs int64, endTs *int64, allDay bool, tz *time.Location) string {
	if tz == nil {
		tz = time.UTC
	}
	startTime := time.Unix(startTs, 0).In(tz)

	if allDay {
		return startTime.Format("2006-01-02")
	}

	if endTs != nil {
		endTime := time.Unix(*endTs, 0).In(tz)
		return fmt.Sprintf("%s - %s",
			startTime.Format("2006-01-02 15:04"),
			endTime.Format("15:04"))
	}

	return startTime.Format("2006-01-02 15:04")
}

// FormatScheduleLine formats one schedule for a numbered listing.
// Format: "1. 2026-01-21 14:00 - 16:00 Team Meeting @ Room A"
func FormatScheduleLine(index int, startTs int64, endTs *int64, allDay bool, title, location string, tz *time.Location) string {
	line := fmt.Sprintf("%d. %s %s", index+1, FormatScheduleTime(startTs, endTs, allDay, tz), title)
	if location != "" {
		line += " @ " + location
	}
	return line
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = time.UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}
