package schedule

import (
	"fmt"
)

// ConflictKind classifies an overlap.
type ConflictKind string

const (
	// ConflictFull means the candidate lies entirely within the existing schedule.
	ConflictFull ConflictKind = "full"
	// ConflictPartial is any other overlap.
	ConflictPartial ConflictKind = "partial"
)

// ConflictRecord describes one existing schedule a candidate overlaps.
type ConflictRecord struct {
	Schedule     ExistingSchedule `json:"schedule"`
	Kind         ConflictKind     `json:"kind"`
	OverlapStart int64            `json:"overlap_start"`
	OverlapEnd   int64            `json:"overlap_end"`
}

// DetectConflicts returns the schedules in existing that overlap the
// candidate [start, end), in input order. A schedule whose UID equals
// excludeUID is skipped; an empty excludeUID excludes nothing.
//
// The candidate must be a valid interval. DetectConflicts panics when
// end <= start; callers validate candidates before this point.
func DetectConflicts(start, end int64, existing []ExistingSchedule, excludeUID string) []ConflictRecord {
	if end <= start {
		panic(fmt.Sprintf("schedule: invalid candidate interval [%d, %d)", start, end))
	}

	var conflicts []ConflictRecord
	for _, sched := range existing {
		if excludeUID != "" && sched.UID == excludeUID {
			continue
		}
		if !Overlaps(start, end, sched.StartTs, sched.EndTs) {
			continue
		}

		kind := ConflictPartial
		if start >= sched.StartTs && end <= sched.EndTs {
			kind = ConflictFull
		}
		conflicts = append(conflicts, ConflictRecord{
			Schedule:     sched,
			Kind:         kind,
			OverlapStart: max(start, sched.StartTs),
			OverlapEnd:   min(end, sched.EndTs),
		})
	}
	return conflicts
}
