package schedule

import (
	"time"
)

// ExistingSchedule is a read-only view of a committed schedule. The engine
// never mutates it.
type ExistingSchedule struct {
	UID      string `json:"uid"`
	Title    string `json:"title"`
	StartTs  int64  `json:"start_ts"`
	EndTs    int64  `json:"end_ts"`
	Location string `json:"location,omitempty"`
}

// Start returns the start instant in loc.
func (s ExistingSchedule) Start(loc *time.Location) time.Time {
	return time.Unix(s.StartTs, 0).In(loc)
}

// End returns the end instant in loc.
func (s ExistingSchedule) End(loc *time.Location) time.Time {
	return time.Unix(s.EndTs, 0).In(loc)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// 区间约定 Convention: [start, end) 左闭右开, so back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int64) bool {
	return aStart < bEnd && aEnd > bStart
}
