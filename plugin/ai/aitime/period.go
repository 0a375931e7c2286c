package aitime

import (
	"regexp"
	"strings"
)

// Period is a period-of-day qualifier used to resolve 12-hour ambiguity.
type Period int

const (
	PeriodNone Period = iota
	PeriodMorning
	PeriodNoon
	PeriodAfternoon
	PeriodEvening
	// PeriodAM and PeriodPM come from explicit am/pm suffixes.
	PeriodAM
	PeriodPM
)

// String returns the string representation of Period.
func (p Period) String() string {
	switch p {
	case PeriodMorning:
		return "morning"
	case PeriodNoon:
		return "noon"
	case PeriodAfternoon:
		return "afternoon"
	case PeriodEvening:
		return "evening"
	case PeriodAM:
		return "am"
	case PeriodPM:
		return "pm"
	default:
		return "none"
	}
}

// dayOffsets maps day keywords to offsets from the reference date.
var dayOffsets = map[string]int{
	"today":     0,
	"tomorrow":  1,
	"yesterday": -1,
	"今天":        0,
	"明天":        1,
	"后天":        2,
	"大后天":       3,
	"昨天":        -1,
	"前天":        -2,
}

// periodKeywords maps period-of-day keywords to periods.
var periodKeywords = map[string]Period{
	"morning":   PeriodMorning,
	"forenoon":  PeriodMorning,
	"早上":        PeriodMorning,
	"早晨":        PeriodMorning,
	"上午":        PeriodMorning,
	"noon":      PeriodNoon,
	"中午":        PeriodNoon,
	"afternoon": PeriodAfternoon,
	"下午":        PeriodAfternoon,
	"evening":   PeriodEvening,
	"tonight":   PeriodEvening,
	"晚上":        PeriodEvening,
	"傍晚":        PeriodEvening,
	"夜里":        PeriodEvening,
}

// DayKeywordExpr and PeriodKeywordExpr are regexp alternations of the
// keywords DayOffset and ParsePeriod accept. Longer keywords come first so
// that 大后天 wins over 后天.
const (
	DayKeywordExpr    = `大后天|后天|前天|今天|明天|昨天|\btoday\b|\btomorrow\b|\byesterday\b`
	PeriodKeywordExpr = `早上|早晨|上午|中午|下午|晚上|傍晚|夜里|\bmorning\b|\bforenoon\b|\bnoon\b|\bafternoon\b|\bevening\b|\btonight\b`
)

var (
	dayKeywordPattern    = regexp.MustCompile(`(?i)(` + DayKeywordExpr + `)`)
	periodKeywordPattern = regexp.MustCompile(`(?i)(` + PeriodKeywordExpr + `)`)
)

// DayOffset returns the day offset for a day keyword such as "tomorrow" or "明天".
func DayOffset(keyword string) (int, bool) {
	offset, ok := dayOffsets[strings.ToLower(strings.TrimSpace(keyword))]
	return offset, ok
}

// ParsePeriod returns the period for a period-of-day keyword or am/pm suffix.
func ParsePeriod(keyword string) Period {
	k := strings.ToLower(strings.TrimSpace(keyword))
	switch k {
	case "am", "a.m.":
		return PeriodAM
	case "pm", "p.m.":
		return PeriodPM
	}
	return periodKeywords[k]
}

// ResolveHour applies a period qualifier to a literal hour and reports
// whether the result is a valid 24-hour clock hour.
//
//	morning   hour must be <= 12
//	noon      12 stays, 1-5 move to the afternoon band, 6-11 unchanged
//	afternoon 1-12 gain 12 hours, literal hours > 12 pass through; 12
//	          becomes 24 and is rejected
//	evening   same as afternoon
//	am        1-12, 12am is midnight
//	pm        1-12, 12pm is noon
func ResolveHour(hour int, period Period) (int, bool) {
	if hour < 0 {
		return 0, false
	}

	switch period {
	case PeriodMorning:
		if hour > 12 {
			return 0, false
		}
	case PeriodNoon:
		if hour >= 1 && hour <= 5 {
			hour += 12
		}
	case PeriodAfternoon, PeriodEvening:
		if hour >= 1 && hour <= 12 {
			hour += 12
		}
	case PeriodAM:
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case PeriodPM:
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour < 12 {
			hour += 12
		}
	}

	if hour > 23 {
		return 0, false
	}
	return hour, true
}
