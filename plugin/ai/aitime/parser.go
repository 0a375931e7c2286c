package aitime

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hrygo/schedkit/plugin/ai/cache"
)

const (
	// DefaultDuration is the length given to candidates without an explicit end.
	DefaultDuration = 60 * time.Minute

	// MaxTitleOnlyLength is the rune limit below which unrecognized text
	// becomes a title-only partial candidate.
	MaxTitleOnlyLength = 50
)

// RolloverPolicy decides whether clock times with an explicit day keyword
// are moved to the next day when they fall before the reference instant.
type RolloverPolicy int

const (
	// RolloverAlways rolls every past clock time forward by one day.
	RolloverAlways RolloverPolicy = iota
	// RolloverUnlessExplicitDay only rolls clock times that carry no day keyword or date.
	RolloverUnlessExplicitDay
)

// ParseRolloverPolicy maps a config value to a policy. Unknown values yield RolloverAlways.
func ParseRolloverPolicy(s string) RolloverPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unless_explicit_day", "unless-explicit-day":
		return RolloverUnlessExplicitDay
	default:
		return RolloverAlways
	}
}

// String returns the config spelling of the policy.
func (p RolloverPolicy) String() string {
	if p == RolloverUnlessExplicitDay {
		return "unless_explicit_day"
	}
	return "always"
}

// Messages holds the user-facing strings produced by the parser.
type Messages struct {
	PlaceholderTitle string
	NeedStartTime    string
	NeedConfirmation string
}

// DefaultMessages are the zh-CN defaults.
var DefaultMessages = Messages{
	PlaceholderTitle: "新日程",
	NeedStartTime:    "请补充开始时间和时长",
	NeedConfirmation: "请确认日程时间",
}

// EnglishMessages are the en-US strings.
var EnglishMessages = Messages{
	PlaceholderTitle: "New event",
	NeedStartTime:    "Please add a start time and duration",
	NeedConfirmation: "Please confirm the time",
}

// Parser turns short free-form text into a ScheduleCandidate. Successful
// results are memoized per (text, reference second).
type Parser struct {
	timezone        *time.Location
	now             func() time.Time
	rollover        RolloverPolicy
	defaultDuration time.Duration
	messages        Messages
	recognizers     []recognizer
	cache           *cache.TTLCache[*ParseResult]
}

// Option configures a Parser.
type Option func(*Parser)

// WithRollover sets the rollover policy.
func WithRollover(policy RolloverPolicy) Option {
	return func(p *Parser) { p.rollover = policy }
}

// WithMessages replaces the user-facing strings. Empty fields keep their defaults.
func WithMessages(m Messages) Option {
	return func(p *Parser) {
		if m.PlaceholderTitle != "" {
			p.messages.PlaceholderTitle = m.PlaceholderTitle
		}
		if m.NeedStartTime != "" {
			p.messages.NeedStartTime = m.NeedStartTime
		}
		if m.NeedConfirmation != "" {
			p.messages.NeedConfirmation = m.NeedConfirmation
		}
	}
}

// WithClock sets the clock used by ParseNow.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithDefaultDuration overrides DefaultDuration.
func WithDefaultDuration(d time.Duration) Option {
	return func(p *Parser) {
		if d > 0 {
			p.defaultDuration = d
		}
	}
}

// WithCache sets the memo cache size and entry lifetime.
func WithCache(capacity int, ttl time.Duration) Option {
	return func(p *Parser) { p.cache = cache.NewTTLCache[*ParseResult](capacity, ttl) }
}

// NewParser creates a parser for the given timezone. A nil timezone means UTC.
func NewParser(timezone *time.Location, opts ...Option) *Parser {
	if timezone == nil {
		timezone = time.UTC
	}
	p := &Parser{
		timezone:        timezone,
		now:             time.Now,
		rollover:        RolloverAlways,
		defaultDuration: DefaultDuration,
		messages:        DefaultMessages,
		recognizers:     defaultRecognizers,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = cache.NewTTLCache[*ParseResult](cache.DefaultCapacity, cache.DefaultTTL)
	}
	return p
}

// Timezone returns the parser's location.
func (p *Parser) Timezone() *time.Location {
	return p.timezone
}

// Now returns the parser's clock reading in its timezone.
func (p *Parser) Now() time.Time {
	return p.now().In(p.timezone)
}

// ParseNow parses text against the parser's clock.
func (p *Parser) ParseNow(text string) *ParseResult {
	return p.Parse(text, p.now())
}

// Parse recognizes a schedule in text relative to reference. Lines are
// tried in order and the first line any recognizer accepts decides the
// result. Text no recognizer accepts yields a title-only partial when it
// is short, and idle otherwise.
func (p *Parser) Parse(text string, reference time.Time) *ParseResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return &ParseResult{State: StateIdle}
	}

	key := cacheKey(text, reference)
	if cached, ok := p.cache.Get(key); ok {
		return cached.Clone()
	}

	result := p.parse(text, reference)
	if result.State == StateSuccess {
		p.cache.Set(key, result.Clone())
	}
	return result
}

// SweepCache drops expired memo entries and returns how many were removed.
func (p *Parser) SweepCache() int {
	return p.cache.CleanupExpired()
}

func (p *Parser) parse(text string, reference time.Time) *ParseResult {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, r := range p.recognizers {
			candidate, ok := r.match(p, line, reference)
			if !ok {
				continue
			}
			if err := candidate.Validate(); err != nil {
				slog.Debug("discarding recognized candidate",
					"recognizer", r.name,
					"error", err,
				)
				continue
			}
			slog.Debug("schedule text recognized",
				"recognizer", r.name,
				"confidence", candidate.Confidence,
			)
			return p.promote(candidate)
		}
	}

	if utf8.RuneCountInString(text) < MaxTitleOnlyLength {
		return p.promote(p.titleOnly(text, reference))
	}
	return &ParseResult{State: StateIdle}
}

// titleOnly builds a partial candidate that carries the whole text as its
// title, anchored at reference with the default duration.
func (p *Parser) titleOnly(text string, reference time.Time) *ScheduleCandidate {
	title := cleanTitle(strings.ReplaceAll(text, "\n", " "))
	if title == "" {
		title = p.messages.PlaceholderTitle
	}
	return &ScheduleCandidate{
		Title:         title,
		StartTs:       reference.Unix(),
		EndTs:         reference.Add(p.defaultDuration).Unix(),
		Confidence:    ConfidenceTitleOnly,
		Source:        SourceLocal,
		MissingFields: []MissingField{FieldStartTime, FieldDuration},
	}
}

// promote maps a candidate to a result: confident complete candidates
// succeed, everything else needs confirmation.
func (p *Parser) promote(c *ScheduleCandidate) *ParseResult {
	if c.Confidence >= AcceptThreshold && !c.IsPartial() {
		return &ParseResult{State: StateSuccess, Candidate: c}
	}

	msg := p.messages.NeedConfirmation
	if c.IsPartial() {
		msg = p.messages.NeedStartTime
	}
	return &ParseResult{
		State:         StatePartial,
		Candidate:     c,
		MissingFields: slices.Clone(c.MissingFields),
		Message:       msg,
	}
}

// cacheKey keys a result by text and reference second. Relative offsets
// depend on the reference, so wall-clock callers only hit within one second.
func cacheKey(text string, reference time.Time) string {
	return strconv.FormatInt(reference.Unix(), 10) + "|" + text
}
