// Package schedule recovers schedule candidates from assistant prose and
// drives the parse, agent and resolve pipeline.
package schedule

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hrygo/schedkit/plugin/ai/aitime"
)

const (
	// MaxSuggestions caps the candidates recovered from one reply.
	MaxSuggestions = 3

	// ConfidenceExtracted is the confidence of candidates recovered from prose.
	ConfidenceExtracted = 0.8
)

// Extractor recovers up to MaxSuggestions schedule candidates from
// free-form assistant replies. It understands two phrasings:
//
//	建议创建：明天下午3点 项目评审
//	1. 明天 14:00-15:30 项目评审
type Extractor struct {
	timezone        *time.Location
	now             func() time.Time
	defaultDuration time.Duration
	markdown        goldmark.Markdown
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorClock sets the clock day keywords are resolved against.
func WithExtractorClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) { e.now = now }
}

// WithExtractorDuration sets the length of candidates without an end time.
func WithExtractorDuration(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d > 0 {
			e.defaultDuration = d
		}
	}
}

// NewExtractor creates an extractor for timezone. A nil timezone means UTC.
func NewExtractor(timezone *time.Location, opts ...ExtractorOption) *Extractor {
	if timezone == nil {
		timezone = time.UTC
	}
	e := &Extractor{
		timezone:        timezone,
		now:             time.Now,
		defaultDuration: aitime.DefaultDuration,
		markdown:        goldmark.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// suggestionPatterns holds the two phrasings compiled for one pair of day labels.
type suggestionPatterns struct {
	explicit *regexp.Regexp
	listed   *regexp.Regexp
}

const (
	clockExpr = `(\d{1,2})(?:(?:[:：](\d{2})|\s*(?:点钟?|时)(?:\s*(半|(\d{1,2})\s*分?))?)\s*(am|pm)?|\s*(am|pm)\b)`
	hhmmExpr  = `(\d{1,2})[:：](\d{2})`
)

func compileSuggestionPatterns(todayLabel, tomorrowLabel string) suggestionPatterns {
	days := aitime.DayKeywordExpr
	for _, label := range []string{tomorrowLabel, todayLabel} {
		if label = strings.TrimSpace(label); label != "" {
			days = regexp.QuoteMeta(label) + "|" + days
		}
	}
	day := `(` + days + `)`
	period := `(` + aitime.PeriodKeywordExpr + `)`

	return suggestionPatterns{
		// 建议创建：<day>?<period>?<clock> <title>
		explicit: regexp.MustCompile(`(?i)(?:建议创建|建议安排|suggest(?:ed)?\s+creating|suggest\s+scheduling)\s*[:：]?\s*` +
			day + `?\s*` + period + `?\s*` + clockExpr + `\s*[,，]?\s*(.+)$`),
		// <N.>? <day> <period>? HH:MM[-HH:MM] <title>
		listed: regexp.MustCompile(`(?i)^(?:\d+\s*[.、)）]\s*)?` + day + `\s*` + period + `?\s*` +
			hhmmExpr + `(?:\s*[-–~至到]\s*` + hhmmExpr + `)?\s*[,，]?\s*(.+)$`),
	}
}

// Extract returns the candidates found in prose in first-mention order.
// todayLabel and tomorrowLabel are the localized words the prose uses for
// the two days, in addition to the built-in day keywords. Identical matches
// are reported once.
func (e *Extractor) Extract(prose, todayLabel, tomorrowLabel string) []*aitime.ScheduleCandidate {
	if strings.TrimSpace(prose) == "" {
		return nil
	}

	patterns := compileSuggestionPatterns(todayLabel, tomorrowLabel)
	labels := dayLabels{today: strings.TrimSpace(todayLabel), tomorrow: strings.TrimSpace(tomorrowLabel)}
	ref := e.now().In(e.timezone)

	seen := make(map[string]struct{})
	var candidates []*aitime.ScheduleCandidate
	for _, line := range e.flatten(prose) {
		if len(candidates) >= MaxSuggestions {
			break
		}

		raw, candidate, ok := e.matchExplicit(patterns.explicit, line, labels, ref)
		if !ok {
			raw, candidate, ok = e.matchListed(patterns.listed, line, labels, ref)
		}
		if !ok {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		if err := candidate.Validate(); err != nil {
			slog.Debug("dropping extracted suggestion", "line", line, "error", err)
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

type dayLabels struct {
	today, tomorrow string
}

func (l dayLabels) offset(word string) (int, bool) {
	switch {
	case word == "":
		return 0, true
	case l.today != "" && strings.EqualFold(word, l.today):
		return 0, true
	case l.tomorrow != "" && strings.EqualFold(word, l.tomorrow):
		return 1, true
	}
	return aitime.DayOffset(word)
}

func (e *Extractor) matchExplicit(re *regexp.Regexp, line string, labels dayLabels, ref time.Time) (string, *aitime.ScheduleCandidate, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", nil, false
	}
	// m: 1 day, 2 period, 3 hour, 4 :MM, 5 半, 6 N分, 7-8 am/pm, 9 title
	offset, ok := labels.offset(m[1])
	if !ok {
		return "", nil, false
	}

	hour, _ := strconv.Atoi(m[3])
	minute := 0
	switch {
	case m[4] != "":
		minute, _ = strconv.Atoi(m[4])
	case m[6] != "":
		minute, _ = strconv.Atoi(m[6])
	case m[5] != "":
		minute = 30
	}

	period := aitime.ParsePeriod(m[2])
	if meridiem := m[7] + m[8]; meridiem != "" {
		period = aitime.ParsePeriod(meridiem)
	}

	start, ok := e.at(ref, offset, hour, minute, period)
	if !ok {
		return "", nil, false
	}
	title := cleanSuggestionTitle(m[9])
	if title == "" {
		return "", nil, false
	}

	return strings.TrimSpace(m[0]), e.candidate(title, start, start.Add(e.defaultDuration)), true
}

func (e *Extractor) matchListed(re *regexp.Regexp, line string, labels dayLabels, ref time.Time) (string, *aitime.ScheduleCandidate, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", nil, false
	}
	// m: 1 day, 2 period, 3 HH, 4 MM, 5 end HH, 6 end MM, 7 title
	offset, ok := labels.offset(m[1])
	if !ok {
		return "", nil, false
	}
	period := aitime.ParsePeriod(m[2])

	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])
	start, ok := e.at(ref, offset, hour, minute, period)
	if !ok {
		return "", nil, false
	}

	end := start.Add(e.defaultDuration)
	if m[5] != "" {
		endHour, _ := strconv.Atoi(m[5])
		endMinute, _ := strconv.Atoi(m[6])
		if end, ok = e.at(ref, offset, endHour, endMinute, period); !ok {
			return "", nil, false
		}
	}

	title := cleanSuggestionTitle(m[7])
	if title == "" {
		return "", nil, false
	}

	return strings.TrimSpace(m[0]), e.candidate(title, start, end), true
}

// at resolves a day offset and a clock time. Extracted times are taken
// literally and never rolled over.
func (e *Extractor) at(ref time.Time, offset, hour, minute int, period aitime.Period) (time.Time, bool) {
	if minute > 59 {
		return time.Time{}, false
	}
	resolved, ok := aitime.ResolveHour(hour, period)
	if !ok {
		return time.Time{}, false
	}
	y, mo, d := ref.Date()
	return time.Date(y, mo, d+offset, resolved, minute, 0, 0, e.timezone), true
}

func (e *Extractor) candidate(title string, start, end time.Time) *aitime.ScheduleCandidate {
	return &aitime.ScheduleCandidate{
		Title:      title,
		StartTs:    start.Unix(),
		EndTs:      end.Unix(),
		Confidence: ConfidenceExtracted,
		Source:     aitime.SourceAI,
	}
}

// flatten renders markdown prose to plain text lines: list markers,
// emphasis and headings are dropped and every block ends a line.
func (e *Extractor) flatten(prose string) []string {
	src := []byte(prose)
	doc := e.markdown.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			case *ast.String:
				b.Write(node.Value)
			case *ast.CodeBlock, *ast.FencedCodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
			}
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock {
			b.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func cleanSuggestionTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(strings.Trim(s, "，。、,.;；:：!！-—「」\"' "))
}
