package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ConflictResolver detects conflicts for a requested interval against the
// user's stored schedules and suggests alternative slots.
type ConflictResolver struct {
	service Service
	filter  *SlotFilter
	now     func() time.Time
}

// ResolverOption configures a ConflictResolver.
type ResolverOption func(*ConflictResolver)

// WithSlotFilter applies filter to every list of suggested slots.
func WithSlotFilter(filter *SlotFilter) ResolverOption {
	return func(r *ConflictResolver) { r.filter = filter }
}

// WithNow sets the clock used to skip past slots.
func WithNow(now func() time.Time) ResolverOption {
	return func(r *ConflictResolver) { r.now = now }
}

// NewConflictResolver creates a new conflict resolver.
func NewConflictResolver(service Service, opts ...ResolverOption) *ConflictResolver {
	r := &ConflictResolver{
		service: service,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConflictResolution represents the result of conflict resolution.
type ConflictResolution struct {
	OriginalStart time.Time        `json:"original_start"`
	OriginalEnd   time.Time        `json:"original_end"`
	Conflicts     []ConflictRecord `json:"conflicts"`
	// Alternatives is empty when there are no conflicts.
	Alternatives []SuggestedSlot `json:"alternatives"`
}

// HasConflict reports whether the requested interval overlaps anything.
func (c *ConflictResolution) HasConflict() bool {
	return len(c.Conflicts) > 0
}

// Resolve detects conflicts for [start, end). When there are any, it
// searches the start's day for slots of the same length, rolling over to
// the next day when the day is full.
func (r *ConflictResolver) Resolve(ctx context.Context, userID int32, start, end time.Time) (*ConflictResolution, error) {
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}

	conflicts, err := r.service.CheckConflicts(ctx, userID, start.Unix(), end.Unix(), "")
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}

	resolution := &ConflictResolution{
		OriginalStart: start,
		OriginalEnd:   end,
		Conflicts:     conflicts,
	}
	if len(conflicts) == 0 {
		return resolution, nil
	}

	slog.Info("conflicts detected",
		"user_id", userID,
		"requested_start", start,
		"conflict_count", len(conflicts),
	)

	minutes := int((end.Sub(start) + time.Minute - 1) / time.Minute)
	alternatives, err := r.FindFreeSlots(ctx, userID, start, minutes)
	if err != nil {
		return nil, err
	}
	resolution.Alternatives = alternatives
	return resolution, nil
}

// FindFreeSlots returns up to MaxSlots free slots of durationMinutes on
// day, or on the following day when day has none.
func (r *ConflictResolver) FindFreeSlots(ctx context.Context, userID int32, day time.Time, durationMinutes int) ([]SuggestedSlot, error) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 2)

	existing, err := r.service.FindSchedules(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	return findSlotsWithRollover(from, durationMinutes, existing, r.now(), r.filter), nil
}
