package schedule

import (
	"context"
	"time"

	"github.com/hrygo/schedkit/store"
)

// Service defines the core business logic interface for schedule management.
// The HTTP handlers and the assistant call it directly.
type Service interface {
	// FindSchedules returns the user's active schedules overlapping [start, end).
	FindSchedules(ctx context.Context, userID int32, start, end time.Time) ([]ExistingSchedule, error)

	// CreateSchedule validates and stores a schedule. Unless AllowConflict is
	// set, a request overlapping an existing schedule fails with a *ConflictError.
	CreateSchedule(ctx context.Context, userID int32, create *CreateScheduleRequest) (*store.Schedule, error)

	// DeleteSchedule deletes a schedule by UID.
	DeleteSchedule(ctx context.Context, userID int32, uid string) error

	// CheckConflicts returns the user's schedules overlapping [startTs, endTs),
	// skipping excludeUID.
	CheckConflicts(ctx context.Context, userID int32, startTs, endTs int64, excludeUID string) ([]ConflictRecord, error)
}

// Store is the interface for store operations needed by the schedule service.
type Store interface {
	CreateSchedule(ctx context.Context, create *store.Schedule) (*store.Schedule, error)
	ListSchedules(ctx context.Context, find *store.FindSchedule) ([]*store.Schedule, error)
	GetSchedule(ctx context.Context, find *store.FindSchedule) (*store.Schedule, error)
	DeleteSchedule(ctx context.Context, delete *store.DeleteSchedule) error
}

// CreateScheduleRequest represents the request to create a schedule.
type CreateScheduleRequest struct {
	UID         string
	Title       string
	Description string
	Location    string
	StartTs     int64
	// EndTs defaults to StartTs + DefaultDuration.
	EndTs    *int64
	AllDay   bool
	Timezone string
	Source   string

	// AllowConflict stores the schedule even when it overlaps others.
	AllowConflict bool
}
