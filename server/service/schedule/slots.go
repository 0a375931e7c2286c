package schedule

import (
	"fmt"
	"sort"
	"time"
)

// SlotReason says why a slot was offered. Values are stable keys for
// frontend i18n.
type SlotReason string

const (
	// ReasonGap is a free gap between two commitments.
	ReasonGap SlotReason = "gap"
	// ReasonTail is the free time after the last commitment of the day.
	ReasonTail SlotReason = "tail"
	// ReasonNextDay marks slots found by rolling the search to the following day.
	ReasonNextDay SlotReason = "next_day"
)

// SuggestedSlot is a proposed free interval. EndTs - StartTs always equals
// the requested duration.
type SuggestedSlot struct {
	StartTs int64      `json:"start_ts"`
	EndTs   int64      `json:"end_ts"`
	Label   string     `json:"label"`
	Reason  SlotReason `json:"reason"`
}

// FindSlots searches day for up to MaxSlots free intervals of
// durationMinutes, using the search window [08:00, 22:00) in day's
// location. When now is later than 08:00 of day the window starts at now
// rounded up to the next half hour, so a day entirely in the past yields
// nothing. Every returned slot is conflict-free against existing.
//
// One slot is emitted per sufficient gap, at the start of the gap, in
// chronological order.
func FindSlots(day time.Time, durationMinutes int, existing []ExistingSchedule, now time.Time) []SuggestedSlot {
	if durationMinutes <= 0 {
		return nil
	}

	loc := day.Location()
	y, m, d := day.Date()
	lower := time.Date(y, m, d, DayStartHour, 0, 0, 0, loc)
	upper := time.Date(y, m, d, DayEndHour, 0, 0, 0, loc)
	if n := now.In(loc); n.After(lower) {
		lower = roundUp(n, SlotGranularity)
	}
	if !lower.Before(upper) {
		return nil
	}

	lo, hi := lower.Unix(), upper.Unix()
	need := int64(durationMinutes) * 60

	// Schedules are selected by overlap with the window rather than by start
	// date, so a commitment spilling in from the previous evening still blocks.
	busy := make([]ExistingSchedule, 0, len(existing))
	for _, sched := range existing {
		if Overlaps(sched.StartTs, sched.EndTs, lo, hi) {
			busy = append(busy, sched)
		}
	}
	sort.SliceStable(busy, func(i, j int) bool {
		return busy[i].StartTs < busy[j].StartTs
	})

	var slots []SuggestedSlot
	cursor := lo
	for _, sched := range busy {
		if len(slots) >= MaxSlots {
			return slots
		}
		if sched.EndTs <= cursor || sched.StartTs >= hi {
			continue
		}
		if cursor < sched.StartTs && sched.StartTs-cursor >= need {
			slots = append(slots, newSlot(cursor, cursor+need, ReasonGap, loc))
		}
		cursor = max(cursor, sched.EndTs)
	}

	if len(slots) < MaxSlots && hi-cursor >= need {
		slots = append(slots, newSlot(cursor, cursor+need, ReasonTail, loc))
	}
	return slots
}

// FindSlotsWithRollover runs FindSlots for day and, when that yields
// nothing, for the following day with every reason relabeled ReasonNextDay.
// existing must cover both days.
func FindSlotsWithRollover(day time.Time, durationMinutes int, existing []ExistingSchedule, now time.Time) []SuggestedSlot {
	return findSlotsWithRollover(day, durationMinutes, existing, now, nil)
}

func findSlotsWithRollover(day time.Time, durationMinutes int, existing []ExistingSchedule, now time.Time, filter *SlotFilter) []SuggestedSlot {
	if slots := filter.Apply(FindSlots(day, durationMinutes, existing, now), day.Location()); len(slots) > 0 {
		return slots
	}

	next := day.AddDate(0, 0, 1)
	slots := filter.Apply(FindSlots(next, durationMinutes, existing, now), next.Location())
	for i := range slots {
		slots[i].Reason = ReasonNextDay
	}
	return slots
}

func newSlot(start, end int64, reason SlotReason, loc *time.Location) SuggestedSlot {
	return SuggestedSlot{
		StartTs: start,
		EndTs:   end,
		Label:   FormatSlotLabel(start, end, loc),
		Reason:  reason,
	}
}

// FormatSlotLabel renders "HH:MM-HH:MM" in loc.
func FormatSlotLabel(start, end int64, loc *time.Location) string {
	return fmt.Sprintf("%s-%s",
		time.Unix(start, 0).In(loc).Format("15:04"),
		time.Unix(end, 0).In(loc).Format("15:04"),
	)
}

// roundUp rounds t up to the next multiple of step after local midnight.
// Instants already on a boundary are unchanged.
func roundUp(t time.Time, step time.Duration) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	elapsed := t.Sub(midnight)
	if r := elapsed % step; r != 0 {
		elapsed += step - r
	}
	return midnight.Add(elapsed)
}
