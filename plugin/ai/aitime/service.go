package aitime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Service implements TimeService on top of per-timezone Parsers.
type Service struct {
	defaultTimezone *time.Location
	opts            []Option
	now             func() time.Time

	mu      sync.Mutex
	parsers map[string]*Parser
}

// NewService creates a new time service. Unknown timezone names fall back to UTC.
func NewService(defaultTimezone string, opts ...Option) *Service {
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	return &Service{
		defaultTimezone: loc,
		opts:            opts,
		now:             time.Now,
		parsers:         make(map[string]*Parser),
	}
}

// WithNow fixes the service clock. Intended for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// DefaultTimezone returns the location used when a request names none.
func (s *Service) DefaultTimezone() *time.Location {
	return s.defaultTimezone
}

// ParserFor returns the shared parser for a timezone name. Empty or
// unknown names resolve to the default timezone.
func (s *Service) ParserFor(timezone string) *Parser {
	loc := s.defaultTimezone
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := loc.String()
	if p, ok := s.parsers[key]; ok {
		return p
	}
	p := NewParser(loc, append([]Option{WithClock(s.now)}, s.opts...)...)
	s.parsers[key] = p
	return p
}

// SweepCaches drops expired memo entries from every parser.
func (s *Service) SweepCaches() int {
	s.mu.Lock()
	parsers := make([]*Parser, 0, len(s.parsers))
	for _, p := range s.parsers {
		parsers = append(parsers, p)
	}
	s.mu.Unlock()

	removed := 0
	for _, p := range parsers {
		removed += p.SweepCache()
	}
	return removed
}

// Normalize resolves a time expression to its start instant.
func (s *Service) Normalize(_ context.Context, input string, timezone string) (time.Time, error) {
	p := s.ParserFor(timezone)
	result := p.Parse(input, s.now())
	if result.Candidate == nil || result.Candidate.IsPartial() {
		return time.Time{}, fmt.Errorf("unable to parse time expression: %s", input)
	}
	return time.Unix(result.Candidate.StartTs, 0).In(p.Timezone()), nil
}

// ParseNaturalTime parses range keywords such as "明天" or "next week"
// first and falls back to a single schedule expression.
func (s *Service) ParseNaturalTime(_ context.Context, input string, reference time.Time) (TimeRange, error) {
	if tr, err := parseRangeKeyword(strings.TrimSpace(input), reference); err == nil {
		return tr, nil
	}

	p := NewParser(reference.Location(), s.opts...)
	result := p.Parse(input, reference)
	if result.Candidate == nil || result.Candidate.IsPartial() {
		return TimeRange{}, fmt.Errorf("unable to parse time expression: %s", input)
	}

	loc := reference.Location()
	return TimeRange{
		Start: time.Unix(result.Candidate.StartTs, 0).In(loc),
		End:   time.Unix(result.Candidate.EndTs, 0).In(loc),
	}, nil
}

// parseRangeKeyword parses whole-input day, week and month keywords.
func parseRangeKeyword(input string, ref time.Time) (TimeRange, error) {
	loc := ref.Location()
	dayStart := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
	keyword := strings.TrimSuffix(strings.ToLower(input), "的")

	if offset, ok := DayOffset(keyword); ok {
		start := dayStart.AddDate(0, 0, offset)
		return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}, nil
	}

	weekday := int(ref.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := dayStart.AddDate(0, 0, -(weekday - 1))

	switch keyword {
	case "这周", "本周", "这个周", "this week":
		return TimeRange{Start: monday, End: monday.AddDate(0, 0, 7)}, nil
	case "下周", "下一周", "next week":
		start := monday.AddDate(0, 0, 7)
		return TimeRange{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case "上周", "上一周", "last week":
		start := monday.AddDate(0, 0, -7)
		return TimeRange{Start: start, End: monday}, nil
	}

	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)

	switch keyword {
	case "这个月", "本月", "this month":
		return TimeRange{Start: monthStart, End: monthStart.AddDate(0, 1, 0)}, nil
	case "下个月", "下月", "next month":
		start := monthStart.AddDate(0, 1, 0)
		return TimeRange{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case "上个月", "上月", "last month":
		start := monthStart.AddDate(0, -1, 0)
		return TimeRange{Start: start, End: monthStart}, nil
	}

	return TimeRange{}, fmt.Errorf("unable to parse time expression: %s", input)
}

// Ensure Service implements TimeService
var _ TimeService = (*Service)(nil)
