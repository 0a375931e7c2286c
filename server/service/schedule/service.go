package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/schedkit/store"
)

// Schedule-specific errors that can be checked with errors.Is.
var (
	// ErrScheduleConflict is returned when a schedule conflicts with existing schedules.
	ErrScheduleConflict = errors.New("schedule conflicts detected")
	// ErrInvalidInterval is returned when end is not after start.
	ErrInvalidInterval = errors.New("end_ts must be greater than start_ts")
	// ErrTitleRequired is returned for blank titles.
	ErrTitleRequired = errors.New("title is required")
)

// ConflictError carries the conflicts that blocked a create. It matches
// ErrScheduleConflict with errors.Is.
type ConflictError struct {
	Conflicts []ConflictRecord `json:"conflicts"`
}

func (e *ConflictError) Error() string {
	titles := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		titles = append(titles, c.Schedule.Title)
	}
	return fmt.Sprintf("%s: %s", ErrScheduleConflict, strings.Join(titles, ", "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrScheduleConflict
}

type service struct {
	store Store
}

// NewService creates a new schedule service.
func NewService(store Store) Service {
	return &service{store: store}
}

// FindSchedules returns the user's active schedules overlapping [start, end).
func (s *service) FindSchedules(ctx context.Context, userID int32, start, end time.Time) ([]ExistingSchedule, error) {
	return s.listWindow(ctx, userID, start.Unix(), end.Unix())
}

func (s *service) listWindow(ctx context.Context, userID int32, startTs, endTs int64) ([]ExistingSchedule, error) {
	normalStatus := store.Normal
	list, err := s.store.ListSchedules(ctx, &store.FindSchedule{
		CreatorID: &userID,
		RowStatus: &normalStatus,
		StartTs:   &startTs,
		EndTs:     &endTs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return toExisting(list), nil
}

// CheckConflicts returns the user's schedules overlapping [startTs, endTs).
func (s *service) CheckConflicts(ctx context.Context, userID int32, startTs, endTs int64, excludeUID string) ([]ConflictRecord, error) {
	if endTs <= startTs {
		return nil, ErrInvalidInterval
	}
	existing, err := s.listWindow(ctx, userID, startTs, endTs)
	if err != nil {
		return nil, err
	}
	return DetectConflicts(startTs, endTs, existing, excludeUID), nil
}

func (s *service) CreateSchedule(ctx context.Context, userID int32, create *CreateScheduleRequest) (*store.Schedule, error) {
	title := strings.TrimSpace(create.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if create.StartTs <= 0 {
		return nil, fmt.Errorf("%w: start_ts must be a positive timestamp", ErrInvalidInterval)
	}

	endTs := create.StartTs + int64(DefaultDuration/time.Second)
	if create.EndTs != nil {
		endTs = *create.EndTs
	}
	if endTs <= create.StartTs {
		return nil, ErrInvalidInterval
	}

	timezone := create.Timezone
	if timezone == "" {
		timezone = DefaultTimezone
	}

	if !create.AllowConflict {
		conflicts, err := s.CheckConflicts(ctx, userID, create.StartTs, endTs, "")
		if err != nil {
			return nil, fmt.Errorf("failed to check conflicts: %w", err)
		}
		if len(conflicts) > 0 {
			return nil, &ConflictError{Conflicts: conflicts}
		}
	}

	created, err := s.store.CreateSchedule(ctx, &store.Schedule{
		UID:         create.UID,
		CreatorID:   userID,
		RowStatus:   store.Normal,
		Title:       title,
		Description: create.Description,
		Location:    create.Location,
		StartTs:     create.StartTs,
		EndTs:       &endTs,
		AllDay:      create.AllDay,
		Timezone:    timezone,
		Source:      create.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	slog.Debug("schedule created",
		"user_id", userID,
		"uid", created.UID,
		"start_ts", created.StartTs,
	)
	return created, nil
}

// DeleteSchedule deletes a schedule by UID.
func (s *service) DeleteSchedule(ctx context.Context, userID int32, uid string) error {
	// Get existing schedule to verify ownership
	existing, err := s.store.GetSchedule(ctx, &store.FindSchedule{
		UID:       &uid,
		CreatorID: &userID,
	})
	if err != nil {
		return fmt.Errorf("failed to get schedule: %w", err)
	}
	if existing == nil {
		return store.ErrNotFound
	}

	if err := s.store.DeleteSchedule(ctx, &store.DeleteSchedule{ID: existing.ID}); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

// ToExisting converts a stored schedule to the engine's read-only view.
// Schedules without an end time last DefaultDuration.
func ToExisting(sched *store.Schedule) ExistingSchedule {
	return ExistingSchedule{
		UID:      sched.UID,
		Title:    sched.Title,
		StartTs:  sched.StartTs,
		EndTs:    sched.EffectiveEndTs(),
		Location: sched.Location,
	}
}

func toExisting(list []*store.Schedule) []ExistingSchedule {
	out := make([]ExistingSchedule, 0, len(list))
	for _, sched := range list {
		out = append(out, ToExisting(sched))
	}
	return out
}
