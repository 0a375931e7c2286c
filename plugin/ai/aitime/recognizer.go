package aitime

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Patterns for the recognizers. Clock tokens need an explicit marker
// (":MM", 点/时, or am/pm) so bare numbers in titles are not read as hours.
var (
	clockPattern = regexp.MustCompile(`(?i)(?:\bat\s+)?(\d{1,2})(?:[:：](\d{2})|\s*(点钟?|时)(?:\s*(半|(\d{1,2})\s*分?))?)?\s*(a\.m\.|p\.m\.|(?:am|pm)\b)?`)
	datePattern  = regexp.MustCompile(`(\d{4})[-/年](\d{1,2})[-/月](\d{1,2})[日号]?`)

	// rangeEndPattern is the second half of a clock range, anchored at the
	// end of the first clock token.
	rangeEndPattern = regexp.MustCompile(`(?i)^\s*(?:到|至|[-–~]|\bto\b)\s*(\d{1,2})(?:[:：](\d{2})|\s*(点钟?|时)(?:\s*(半|(\d{1,2})\s*分?))?)?\s*(a\.m\.|p\.m\.|(?:am|pm)\b)?`)

	relativeInPattern    = regexp.MustCompile(`(?i)\bin\s+(\d+)\s*(minutes?|mins?|hours?|hrs?|days?|weeks?)\b`)
	relativeLaterPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(minutes?|mins?|hours?|hrs?|days?|weeks?)\s+later\b`)
	relativeZhPattern    = regexp.MustCompile(`(\d+)\s*(分钟|个小时|小时|天|周|个星期|星期)(?:之后|以后|后)`)

	allDayPattern = regexp.MustCompile(`(?i)(一整天|全天|整天|\ball[\s-]day\b)`)

	// Request fillers stripped from the head of a title.
	titleFillerPattern = regexp.MustCompile(`(?i)^(?:帮我|请|给我|please\s+)?(?:安排|创建|添加|新建|schedule\s+|add\s+|create\s+)?`)
)

// recognizer is one entry of the ordered recognizer list. The first
// recognizer that matches a line wins.
type recognizer struct {
	name  string
	match func(p *Parser, line string, ref time.Time) (*ScheduleCandidate, bool)
}

var defaultRecognizers = []recognizer{
	{name: "clock", match: (*Parser).matchClock},
	{name: "relative", match: (*Parser).matchRelative},
	{name: "all_day", match: (*Parser).matchAllDay},
}

// span is a byte range [start, end) of a recognized token within a line.
type span struct {
	start, end int
}

func (s span) valid() bool {
	return s.start >= 0 && s.end > s.start
}

func (s span) overlaps(o span) bool {
	return s.valid() && o.valid() && s.start < o.end && s.end > o.start
}

// dayAnchor is the day part of an expression: an explicit date or a day keyword.
type dayAnchor struct {
	span     span
	offset   int
	date     time.Time
	hasDate  bool
	explicit bool
}

// findDayAnchor locates an explicit date first and falls back to a day keyword.
func (p *Parser) findDayAnchor(line string) dayAnchor {
	if m := datePattern.FindStringSubmatchIndex(line); m != nil {
		year, _ := strconv.Atoi(line[m[2]:m[3]])
		month, _ := strconv.Atoi(line[m[4]:m[5]])
		day, _ := strconv.Atoi(line[m[6]:m[7]])
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.timezone)
		// time.Date normalizes out-of-range values; reject those instead.
		if d.Year() == year && int(d.Month()) == month && d.Day() == day {
			return dayAnchor{span: span{m[0], m[1]}, date: d, hasDate: true, explicit: true}
		}
	}
	if m := dayKeywordPattern.FindStringSubmatchIndex(line); m != nil {
		offset, _ := DayOffset(line[m[2]:m[3]])
		return dayAnchor{span: span{m[0], m[1]}, offset: offset, explicit: true}
	}
	return dayAnchor{span: span{-1, -1}}
}

// dayStart returns midnight of the anchored day in the parser's timezone.
func (p *Parser) dayStart(anchor dayAnchor, ref time.Time) time.Time {
	if anchor.hasDate {
		return anchor.date
	}
	y, m, d := ref.In(p.timezone).Date()
	return time.Date(y, m, d+anchor.offset, 0, 0, 0, 0, p.timezone)
}

// matchClock recognizes "[day] [period] H[:MM]" style expressions.
func (p *Parser) matchClock(line string, ref time.Time) (*ScheduleCandidate, bool) {
	anchor := p.findDayAnchor(line)

	for _, m := range clockPattern.FindAllStringSubmatchIndex(line, -1) {
		hourStart, hourEnd := m[2], m[3]
		if hourStart > 0 && isDigit(line[hourStart-1]) {
			continue
		}
		clock := span{m[0], m[1]}
		if clock.overlaps(anchor.span) {
			continue
		}

		hasColon := m[4] >= 0
		hasMarker := m[6] >= 0
		hasMeridiem := m[12] >= 0
		if !hasColon && !hasMarker && !hasMeridiem {
			continue
		}

		hour, _ := strconv.Atoi(line[hourStart:hourEnd])
		minute := 0
		switch {
		case hasColon:
			minute, _ = strconv.Atoi(line[m[4]:m[5]])
		case m[10] >= 0:
			minute, _ = strconv.Atoi(line[m[10]:m[11]])
		case m[8] >= 0:
			minute = 30
		}
		if minute > 59 {
			return nil, false
		}

		period, periodSpan := periodBefore(line, clock.start, anchor.span)
		if hasMeridiem {
			period = ParsePeriod(line[m[12]:m[13]])
		}

		resolved, ok := ResolveHour(hour, period)
		if !ok {
			// Invalid construction such as "morning 13:00": reject the whole match.
			return nil, false
		}

		day := p.dayStart(anchor, ref)
		start := time.Date(day.Year(), day.Month(), day.Day(), resolved, minute, 0, 0, p.timezone)
		if p.rollover == RolloverAlways || !anchor.explicit {
			start = Rollover(start, ref)
		}

		end := start.Add(p.defaultDuration)
		if rangeEnd, n, ok := p.matchRangeEnd(line[clock.end:], start, period); n > 0 {
			clock.end += n
			if ok {
				end = rangeEnd
			}
		}

		return &ScheduleCandidate{
			Title:      p.titleFrom(line, anchor.span, periodSpan, clock),
			StartTs:    start.Unix(),
			EndTs:      end.Unix(),
			Confidence: ConfidenceClock,
			Source:     SourceLocal,
		}, true
	}

	return nil, false
}

// periodBefore returns the period keyword that directly precedes the clock
// token at clockStart. Only whitespace and the day anchor may separate them,
// so a period word inside the title never qualifies the hour.
func periodBefore(line string, clockStart int, anchor span) (Period, span) {
	for _, pm := range periodKeywordPattern.FindAllStringSubmatchIndex(line, -1) {
		if pm[1] > clockStart {
			break
		}
		gap := line[pm[1]:clockStart]
		if anchor.valid() && anchor.start >= pm[1] && anchor.end <= clockStart {
			gap = line[pm[1]:anchor.start] + line[anchor.end:clockStart]
		}
		if strings.TrimSpace(gap) == "" {
			return ParsePeriod(line[pm[2]:pm[3]]), span{pm[0], pm[1]}
		}
	}
	return PeriodNone, span{-1, -1}
}

// matchRangeEnd reads the end of a "3点到5点" / "10:00-11:30" / "3pm to 5pm"
// range at the head of rest. n is the number of bytes the range consumed, 0
// when rest does not start with one. ok is false when the end does not
// resolve to an instant after start; the range text is still consumed.
func (p *Parser) matchRangeEnd(rest string, start time.Time, period Period) (time.Time, int, bool) {
	m := rangeEndPattern.FindStringSubmatchIndex(rest)
	if m == nil {
		return time.Time{}, 0, false
	}
	n := m[1]

	hour, _ := strconv.Atoi(rest[m[2]:m[3]])
	minute := 0
	switch {
	case m[4] >= 0:
		minute, _ = strconv.Atoi(rest[m[4]:m[5]])
	case m[10] >= 0:
		minute, _ = strconv.Atoi(rest[m[10]:m[11]])
	case m[8] >= 0:
		minute = 30
	}
	if m[12] >= 0 {
		period = ParsePeriod(rest[m[12]:m[13]])
	}
	resolved, ok := ResolveHour(hour, period)
	if !ok || minute > 59 {
		return time.Time{}, n, false
	}

	end := time.Date(start.Year(), start.Month(), start.Day(), resolved, minute, 0, 0, p.timezone)
	if !end.After(start) {
		return time.Time{}, n, false
	}
	return end, n, true
}

// matchRelative recognizes "N units later", "in N units" and "N单位后".
func (p *Parser) matchRelative(line string, ref time.Time) (*ScheduleCandidate, bool) {
	for _, pattern := range []*regexp.Regexp{relativeZhPattern, relativeLaterPattern, relativeInPattern} {
		m := pattern.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(line[m[2]:m[3]])
		if err != nil {
			continue
		}
		start, ok := addOffset(ref.In(p.timezone), n, line[m[4]:m[5]])
		if !ok {
			continue
		}

		return &ScheduleCandidate{
			Title:      p.titleFrom(line, span{m[0], m[1]}),
			StartTs:    start.Unix(),
			EndTs:      start.Add(p.defaultDuration).Unix(),
			Confidence: ConfidenceRelative,
			Source:     SourceLocal,
		}, true
	}
	return nil, false
}

// matchAllDay recognizes an all-day keyword combined with a day.
func (p *Parser) matchAllDay(line string, ref time.Time) (*ScheduleCandidate, bool) {
	m := allDayPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return nil, false
	}
	anchor := p.findDayAnchor(line)
	if !anchor.explicit {
		return nil, false
	}

	start := p.dayStart(anchor, ref)
	end := start.AddDate(0, 0, 1)

	return &ScheduleCandidate{
		Title:      p.titleFrom(line, anchor.span, span{m[0], m[1]}),
		StartTs:    start.Unix(),
		EndTs:      end.Unix(),
		AllDay:     true,
		Confidence: ConfidenceAllDay,
		Source:     SourceLocal,
	}, true
}

// addOffset adds n units to t. Day and week offsets use calendar arithmetic.
func addOffset(t time.Time, n int, unit string) (time.Time, bool) {
	switch strings.ToLower(unit) {
	case "分钟", "minute", "minutes", "min", "mins":
		return t.Add(time.Duration(n) * time.Minute), true
	case "小时", "个小时", "hour", "hours", "hr", "hrs":
		return t.Add(time.Duration(n) * time.Hour), true
	case "天", "day", "days":
		return t.AddDate(0, 0, n), true
	case "周", "星期", "个星期", "week", "weeks":
		return t.AddDate(0, 0, 7*n), true
	}
	return time.Time{}, false
}

// Rollover moves an instant strictly before ref forward by one day, on the
// assumption that the user means the next occurrence. Instants at or after
// ref are returned unchanged.
func Rollover(t, ref time.Time) time.Time {
	if t.Before(ref) {
		return t.AddDate(0, 0, 1)
	}
	return t
}

// titleFrom takes the text before the first recognized token. When that is
// empty it uses the line with all tokens removed, and finally the placeholder.
func (p *Parser) titleFrom(line string, spans ...span) string {
	valid := make([]span, 0, len(spans))
	for _, s := range spans {
		if s.valid() {
			valid = append(valid, s)
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].start < valid[j].start })

	if len(valid) > 0 {
		if title := cleanTitle(line[:valid[0].start]); title != "" {
			return title
		}
	}

	var b strings.Builder
	last := 0
	for _, s := range valid {
		if s.start >= last {
			b.WriteString(line[last:s.start])
			b.WriteByte(' ')
		}
		if s.end > last {
			last = s.end
		}
	}
	b.WriteString(line[last:])

	if title := cleanTitle(b.String()); title != "" {
		return title
	}
	return p.messages.PlaceholderTitle
}

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = titleFillerPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, "，。、,.:：;； ")
	return strings.TrimSpace(s)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
