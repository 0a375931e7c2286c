package aitime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHour(t *testing.T) {
	tests := []struct {
		name   string
		hour   int
		period Period
		want   int
		ok     bool
	}{
		{"none passes through", 15, PeriodNone, 15, true},
		{"none rejects 24", 24, PeriodNone, 0, false},
		{"morning keeps 9", 9, PeriodMorning, 9, true},
		{"morning allows 12", 12, PeriodMorning, 12, true},
		{"morning rejects 13", 13, PeriodMorning, 0, false},
		{"noon keeps 12", 12, PeriodNoon, 12, true},
		{"noon moves 1 to 13", 1, PeriodNoon, 13, true},
		{"noon keeps 11", 11, PeriodNoon, 11, true},
		{"afternoon adds 12", 3, PeriodAfternoon, 15, true},
		{"afternoon rejects 12", 12, PeriodAfternoon, 0, false},
		{"evening rejects 12", 12, PeriodEvening, 0, false},
		{"afternoon literal 13", 13, PeriodAfternoon, 13, true},
		{"evening adds 12", 8, PeriodEvening, 20, true},
		{"evening literal 20", 20, PeriodEvening, 20, true},
		{"evening rejects 25", 25, PeriodEvening, 0, false},
		{"12am is midnight", 12, PeriodAM, 0, true},
		{"am rejects 0", 0, PeriodAM, 0, false},
		{"am rejects 13", 13, PeriodAM, 0, false},
		{"12pm is noon", 12, PeriodPM, 12, true},
		{"3pm", 3, PeriodPM, 15, true},
		{"pm rejects 13", 13, PeriodPM, 0, false},
		{"negative", -1, PeriodNone, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveHour(tt.hour, tt.period)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParsePeriodAndDayOffset(t *testing.T) {
	assert.Equal(t, PeriodAM, ParsePeriod("AM"))
	assert.Equal(t, PeriodPM, ParsePeriod("p.m."))
	assert.Equal(t, PeriodAfternoon, ParsePeriod("下午"))
	assert.Equal(t, PeriodEvening, ParsePeriod("Tonight"))
	assert.Equal(t, PeriodNone, ParsePeriod("whenever"))
	assert.Equal(t, "noon", PeriodNoon.String())

	offset, ok := DayOffset("大后天")
	assert.True(t, ok)
	assert.Equal(t, 3, offset)

	offset, ok = DayOffset("Tomorrow")
	assert.True(t, ok)
	assert.Equal(t, 1, offset)

	_, ok = DayOffset("someday")
	assert.False(t, ok)
}
