package schedule

import "time"

// Package-level constants for schedule management.

const (
	// DefaultTimezone is the default timezone for schedule operations when not specified.
	DefaultTimezone = "Asia/Shanghai"

	// DayStartHour and DayEndHour bound the free-slot search window.
	DayStartHour = 8
	DayEndHour   = 22

	// MaxSlots is the maximum number of slots returned for one day.
	MaxSlots = 3

	// SlotGranularity is the boundary "now" is rounded up to when searching today.
	SlotGranularity = 30 * time.Minute

	// DefaultDuration is assumed for stored schedules without an end time.
	DefaultDuration = time.Hour
)
