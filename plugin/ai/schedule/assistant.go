package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/schedkit/plugin/ai/aitime"
	schedulesvc "github.com/hrygo/schedkit/server/service/schedule"
)

// ResponseType says which stage of the pipeline produced an AssistResult.
type ResponseType string

const (
	// ResponseTypeParsed means the local parser recognized the text.
	ResponseTypeParsed ResponseType = "parsed"
	// ResponseTypeAgent means the agent reply was mined for suggestions.
	ResponseTypeAgent ResponseType = "agent"
	// ResponseTypeFallback means neither produced a usable schedule; the
	// caller should ask the user for the missing fields.
	ResponseTypeFallback ResponseType = "fallback"
)

// ErrAgentFailed wraps errors returned by the agent collaborator.
var ErrAgentFailed = errors.New("agent completion failed")

// Resolver checks a candidate interval against the user's schedules.
type Resolver interface {
	Resolve(ctx context.Context, userID int32, start, end time.Time) (*schedulesvc.ConflictResolution, error)
}

// Suggestion is a candidate together with its conflict check.
type Suggestion struct {
	Candidate  *aitime.ScheduleCandidate       `json:"candidate"`
	Resolution *schedulesvc.ConflictResolution `json:"resolution"`
	Preview    string                          `json:"preview"`
}

// AssistResult is the outcome of one Assist call.
type AssistResult struct {
	Type        ResponseType        `json:"type"`
	Parse       *aitime.ParseResult `json:"parse"`
	Reply       string              `json:"reply,omitempty"`
	Suggestions []*Suggestion       `json:"suggestions"`
}

// Assistant runs the parse, agent and resolve pipeline for free text.
type Assistant struct {
	times    *aitime.Service
	resolver Resolver
	agent    AgentClient
	prompts  PromptSet
	timezone string
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

// WithAgent enables the agent fallback.
func WithAgent(agent AgentClient) AssistantOption {
	return func(a *Assistant) { a.agent = agent }
}

// WithPrompts sets the prompt language.
func WithPrompts(p PromptSet) AssistantOption {
	return func(a *Assistant) { a.prompts = p }
}

// WithTimezone sets the timezone used for parsing. Empty means the time
// service default.
func WithTimezone(tz string) AssistantOption {
	return func(a *Assistant) { a.timezone = tz }
}

// NewAssistant creates an Assistant. Without WithAgent, text the parser
// cannot handle yields a fallback result.
func NewAssistant(times *aitime.Service, resolver Resolver, opts ...AssistantOption) *Assistant {
	a := &Assistant{
		times:    times,
		resolver: resolver,
		prompts:  PromptsFor("zh"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InTimezone returns a copy of the assistant parsing in tz. Empty keeps the
// current setting.
func (a *Assistant) InTimezone(tz string) *Assistant {
	if tz == "" {
		return a
	}
	c := *a
	c.timezone = tz
	return &c
}

// HasAgent reports whether the agent fallback is enabled.
func (a *Assistant) HasAgent() bool {
	return a.agent != nil
}

// Assist turns text into checked schedule suggestions. Text the parser
// recognizes with confidence is resolved directly. Otherwise the text is
// sent to the agent and up to MaxSuggestions candidates are recovered from
// its reply. A reply that arrives after a newer Assist call on the same
// session yields ErrStaleResponse.
func (a *Assistant) Assist(ctx context.Context, session *Session, userID int32, text string) (*AssistResult, error) {
	seq := session.Begin()

	parser := a.times.ParserFor(a.timezone)
	parsed := parser.ParseNow(text)

	if parsed.State == aitime.StateSuccess {
		suggestion, err := a.resolve(ctx, userID, parsed.Candidate, parser.Timezone())
		if err != nil {
			return nil, err
		}
		return &AssistResult{
			Type:        ResponseTypeParsed,
			Parse:       parsed,
			Suggestions: []*Suggestion{suggestion},
		}, nil
	}

	if a.agent == nil {
		return &AssistResult{Type: ResponseTypeFallback, Parse: parsed}, nil
	}

	reply, err := a.agent.Complete(ctx, a.prompts.UserPrompt(text, parser.Now()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}
	if !session.IsLatest(seq) {
		slog.Debug("dropping stale agent reply",
			"session", session.ID,
			"seq", seq,
		)
		return nil, ErrStaleResponse
	}

	extractor := NewExtractor(parser.Timezone(), WithExtractorClock(parser.Now))
	candidates := extractor.Extract(reply, a.prompts.TodayLabel, a.prompts.TomorrowLabel)

	result := &AssistResult{
		Type:  ResponseTypeAgent,
		Parse: parsed,
		Reply: reply,
	}
	for _, candidate := range candidates {
		suggestion, err := a.resolve(ctx, userID, candidate, parser.Timezone())
		if err != nil {
			return nil, err
		}
		result.Suggestions = append(result.Suggestions, suggestion)
	}
	if len(result.Suggestions) == 0 {
		result.Type = ResponseTypeFallback
	}
	return result, nil
}

func (a *Assistant) resolve(ctx context.Context, userID int32, c *aitime.ScheduleCandidate, loc *time.Location) (*Suggestion, error) {
	start := time.Unix(c.StartTs, 0).In(loc)
	end := time.Unix(c.EndTs, 0).In(loc)

	resolution, err := a.resolver.Resolve(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", c.Title, err)
	}
	return &Suggestion{
		Candidate:  c,
		Resolution: resolution,
		Preview:    generatePreview(c, loc),
	}, nil
}

// generatePreview generates a human-readable preview of the candidate.
func generatePreview(c *aitime.ScheduleCandidate, loc *time.Location) string {
	if c == nil {
		return ""
	}

	start := time.Unix(c.StartTs, 0).In(loc)
	end := time.Unix(c.EndTs, 0).In(loc)
	if c.AllDay {
		return fmt.Sprintf("📅 %s\n⏰ %s 全天", c.Title, start.Format("01月02日"))
	}
	return fmt.Sprintf("📅 %s\n⏰ %s - %s\n⏱️ %d 分钟",
		c.Title,
		start.Format("01月02日 15:04"),
		end.Format("15:04"),
		int(end.Sub(start).Minutes()),
	)
}
