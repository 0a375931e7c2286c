package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// RowStatus is the status for a row.
type RowStatus string

const (
	// Normal is the status for a normal row.
	Normal RowStatus = "NORMAL"
	// Archived is the status for an archived row.
	Archived RowStatus = "ARCHIVED"
)

func (r RowStatus) String() string {
	return string(r)
}

// DefaultScheduleDuration is assumed for schedules stored without an end time.
const DefaultScheduleDuration = time.Hour

// Schedule is the object representing a schedule.
type Schedule struct {
	ID        int32
	UID       string
	CreatorID int32
	RowStatus RowStatus
	CreatedTs int64
	UpdatedTs int64

	Title       string
	Description string
	Location    string
	StartTs     int64
	EndTs       *int64
	AllDay      bool
	Timezone    string
	// Source records where the schedule came from, e.g. "local", "ai" or "ics".
	Source string
}

// FindSchedule is the find condition for schedule.
type FindSchedule struct {
	ID        *int32
	UID       *string
	CreatorID *int32

	// StartTs and EndTs select schedules overlapping the window [StartTs, EndTs).
	// Schedules without an end time are treated as lasting DefaultScheduleDuration.
	StartTs *int64
	EndTs   *int64

	// Status filter
	RowStatus *RowStatus

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateSchedule is the update request for schedule.
type UpdateSchedule struct {
	ID          int32
	UpdatedTs   *int64
	RowStatus   *RowStatus
	Title       *string
	Description *string
	Location    *string
	StartTs     *int64
	EndTs       *int64
	AllDay      *bool
	Timezone    *string
}

// DeleteSchedule is the delete request for schedule.
type DeleteSchedule struct {
	ID int32
}

// NewScheduleUID returns a short, URL-safe unique schedule identifier.
func NewScheduleUID() string {
	return shortuuid.New()
}

// CreateSchedule creates a new schedule. An empty UID is generated.
func (s *Store) CreateSchedule(ctx context.Context, create *Schedule) (*Schedule, error) {
	if create.UID == "" {
		create.UID = NewScheduleUID()
	}
	return s.driver.CreateSchedule(ctx, create)
}

// ListSchedules lists schedules with filter.
func (s *Store) ListSchedules(ctx context.Context, find *FindSchedule) ([]*Schedule, error) {
	return s.driver.ListSchedules(ctx, find)
}

// GetSchedule gets the first schedule matching find, or nil.
func (s *Store) GetSchedule(ctx context.Context, find *FindSchedule) (*Schedule, error) {
	list, err := s.driver.ListSchedules(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateSchedule updates a schedule.
func (s *Store) UpdateSchedule(ctx context.Context, update *UpdateSchedule) error {
	return s.driver.UpdateSchedule(ctx, update)
}

// DeleteSchedule deletes a schedule.
func (s *Store) DeleteSchedule(ctx context.Context, delete *DeleteSchedule) error {
	return s.driver.DeleteSchedule(ctx, delete)
}

// EffectiveEndTs returns EndTs, or StartTs plus DefaultScheduleDuration when
// the schedule has no end time.
func (s *Schedule) EffectiveEndTs() int64 {
	if s.EndTs != nil && *s.EndTs > s.StartTs {
		return *s.EndTs
	}
	return s.StartTs + int64(DefaultScheduleDuration/time.Second)
}

// ParseStartTime parses the schedule start time to time.Time.
func (s *Schedule) ParseStartTime() time.Time {
	return time.Unix(s.StartTs, 0)
}

// ParseEndTime parses the schedule end time to time.Time.
func (s *Schedule) ParseEndTime() *time.Time {
	if s.EndTs == nil {
		return nil
	}
	t := time.Unix(*s.EndTs, 0)
	return &t
}
