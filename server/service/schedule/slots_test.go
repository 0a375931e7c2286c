package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDay is Tuesday 2026-01-27; the default "now" is the evening before.
var (
	testDay      = time.Date(2026, 1, 27, 0, 0, 0, 0, testLoc)
	testEveOfDay = time.Date(2026, 1, 26, 20, 0, 0, 0, testLoc)
)

func labels(slots []SuggestedSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Label)
	}
	return out
}

func TestFindSlots(t *testing.T) {
	tests := []struct {
		name     string
		existing []ExistingSchedule
		duration int
		want     []string
		reasons  []SlotReason
	}{
		{
			name:     "empty day",
			duration: 60,
			want:     []string{"08:00-09:00"},
			reasons:  []SlotReason{ReasonTail},
		},
		{
			name: "gaps and tail",
			existing: []ExistingSchedule{
				sched("a", 9, 0, 10, 0),
				sched("b", 11, 0, 12, 0),
			},
			duration: 60,
			want:     []string{"08:00-09:00", "10:00-11:00", "12:00-13:00"},
			reasons:  []SlotReason{ReasonGap, ReasonGap, ReasonTail},
		},
		{
			name: "unsorted input",
			existing: []ExistingSchedule{
				sched("b", 11, 0, 12, 0),
				sched("a", 8, 0, 10, 0),
			},
			duration: 60,
			want:     []string{"10:00-11:00", "12:00-13:00"},
			reasons:  []SlotReason{ReasonGap, ReasonTail},
		},
		{
			name: "gap too short",
			existing: []ExistingSchedule{
				sched("a", 8, 30, 12, 0),
			},
			duration: 45,
			want:     []string{"12:00-12:45"},
			reasons:  []SlotReason{ReasonTail},
		},
		{
			name: "capped at three",
			existing: []ExistingSchedule{
				sched("a", 9, 0, 10, 0),
				sched("b", 11, 0, 12, 0),
				sched("c", 13, 0, 14, 0),
				sched("d", 15, 0, 16, 0),
			},
			duration: 30,
			want:     []string{"08:00-08:30", "10:00-10:30", "12:00-12:30"},
			reasons:  []SlotReason{ReasonGap, ReasonGap, ReasonGap},
		},
		{
			name: "nested schedules",
			existing: []ExistingSchedule{
				sched("outer", 9, 0, 11, 0),
				sched("inner", 9, 30, 10, 0),
			},
			duration: 60,
			want:     []string{"08:00-09:00", "11:00-12:00"},
			reasons:  []SlotReason{ReasonGap, ReasonTail},
		},
		{
			name: "spill over from previous evening",
			existing: []ExistingSchedule{
				{UID: "night", StartTs: time.Date(2026, 1, 26, 21, 0, 0, 0, testLoc).Unix(), EndTs: ts(9, 0)},
			},
			duration: 60,
			want:     []string{"09:00-10:00"},
			reasons:  []SlotReason{ReasonTail},
		},
		{
			name: "schedules outside the window are ignored",
			existing: []ExistingSchedule{
				sched("early", 6, 0, 7, 0),
				sched("late", 22, 0, 23, 0),
			},
			duration: 60,
			want:     []string{"08:00-09:00"},
			reasons:  []SlotReason{ReasonTail},
		},
		{
			name:     "tail reaches window end",
			existing: []ExistingSchedule{sched("a", 8, 0, 21, 0)},
			duration: 60,
			want:     []string{"21:00-22:00"},
			reasons:  []SlotReason{ReasonTail},
		},
		{
			name:     "duration longer than window",
			duration: 15 * 60,
		},
		{
			name:     "non-positive duration",
			duration: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := FindSlots(testDay, tt.duration, tt.existing, testEveOfDay)

			assert.Equal(t, len(tt.want), len(slots))
			if len(tt.want) == 0 {
				return
			}
			assert.Equal(t, tt.want, labels(slots))
			for i, s := range slots {
				assert.Equal(t, tt.reasons[i], s.Reason)
			}
		})
	}
}

func TestFindSlots_SlotsAreValid(t *testing.T) {
	existing := []ExistingSchedule{
		sched("a", 8, 15, 9, 5),
		sched("b", 9, 0, 9, 40),
		sched("c", 12, 10, 13, 20),
		sched("d", 17, 0, 21, 30),
	}
	lower := ts(DayStartHour, 0)
	upper := ts(DayEndHour, 0)

	for _, duration := range []int{15, 30, 45, 60, 90, 120, 180} {
		slots := FindSlots(testDay, duration, existing, testEveOfDay)
		require.LessOrEqual(t, len(slots), MaxSlots)

		for i, s := range slots {
			assert.Equal(t, int64(duration)*60, s.EndTs-s.StartTs)
			assert.GreaterOrEqual(t, s.StartTs, lower)
			assert.LessOrEqual(t, s.EndTs, upper)
			assert.Empty(t, DetectConflicts(s.StartTs, s.EndTs, existing, ""), "slot %s overlaps", s.Label)
			if i > 0 {
				assert.Less(t, slots[i-1].StartTs, s.StartTs, "slots are chronological")
			}
		}
	}
}

func TestFindSlots_Today(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want []string
	}{
		{
			name: "rounded up to next half hour",
			now:  time.Date(2026, 1, 27, 10, 7, 0, 0, testLoc),
			want: []string{"10:30-11:30"},
		},
		{
			name: "on a boundary",
			now:  time.Date(2026, 1, 27, 10, 30, 0, 0, testLoc),
			want: []string{"10:30-11:30"},
		},
		{
			name: "before day start",
			now:  time.Date(2026, 1, 27, 7, 12, 0, 0, testLoc),
			want: []string{"08:00-09:00"},
		},
		{
			name: "too late for the duration",
			now:  time.Date(2026, 1, 27, 21, 10, 0, 0, testLoc),
		},
		{
			name: "after window end",
			now:  time.Date(2026, 1, 27, 22, 30, 0, 0, testLoc),
		},
		{
			name: "day already past",
			now:  time.Date(2026, 1, 28, 9, 0, 0, 0, testLoc),
		},
		{
			name: "now in another timezone",
			now:  time.Date(2026, 1, 27, 2, 7, 0, 0, time.UTC), // 10:07 in Shanghai
			want: []string{"10:30-11:30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := FindSlots(testDay, 60, nil, tt.now)
			if len(tt.want) == 0 {
				assert.Empty(t, slots)
				return
			}
			assert.Equal(t, tt.want, labels(slots))
		})
	}
}

func TestFindSlotsWithRollover_FullDay(t *testing.T) {
	// Booked 08:00-22:00 except 13:00-13:30.
	existing := []ExistingSchedule{
		sched("morning", 8, 0, 13, 0),
		sched("afternoon", 13, 30, 22, 0),
	}

	assert.Empty(t, FindSlots(testDay, 60, existing, testEveOfDay))

	slots := FindSlotsWithRollover(testDay, 60, existing, testEveOfDay)
	require.Len(t, slots, 1)
	assert.Equal(t, "08:00-09:00", slots[0].Label)
	assert.Equal(t, ReasonNextDay, slots[0].Reason)
	assert.Equal(t, time.Date(2026, 1, 28, 8, 0, 0, 0, testLoc).Unix(), slots[0].StartTs)
}

func TestFindSlotsWithRollover_SameDay(t *testing.T) {
	existing := []ExistingSchedule{sched("a", 8, 0, 9, 0)}

	slots := FindSlotsWithRollover(testDay, 60, existing, testEveOfDay)
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00-10:00", slots[0].Label)
	assert.Equal(t, ReasonTail, slots[0].Reason)
}

func TestFormatSlotLabel(t *testing.T) {
	assert.Equal(t, "09:05-10:35", FormatSlotLabel(ts(9, 5), ts(10, 35), testLoc))
	assert.Equal(t, "01:05-02:35", FormatSlotLabel(ts(9, 5), ts(10, 35), time.UTC))
}

func TestRoundUp(t *testing.T) {
	base := time.Date(2026, 1, 27, 0, 0, 0, 0, testLoc)
	tests := []struct {
		in, want time.Duration
	}{
		{0, 0},
		{time.Minute, 30 * time.Minute},
		{29*time.Minute + 59*time.Second, 30 * time.Minute},
		{30 * time.Minute, 30 * time.Minute},
		{30*time.Minute + time.Second, time.Hour},
	}
	for _, tt := range tests {
		got := roundUp(base.Add(tt.in), SlotGranularity)
		assert.True(t, base.Add(tt.want).Equal(got), "roundUp(%s) = %s", tt.in, got.Format("15:04:05"))
	}
}

func BenchmarkFindSlots(b *testing.B) {
	existing := make([]ExistingSchedule, 0, 28)
	for h := 8; h < 22; h++ {
		existing = append(existing, sched("s", h, 0, h, 20))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = FindSlots(testDay, 30, existing, testEveOfDay)
	}
}
