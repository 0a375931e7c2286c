package aitime

import (
	"errors"
	"fmt"
	"slices"
)

// ParseState is the outcome class of a parse.
type ParseState string

const (
	// StateIdle means nothing usable was recognized.
	StateIdle ParseState = "idle"
	// StateSuccess means a confident, complete candidate was produced.
	StateSuccess ParseState = "success"
	// StatePartial means the caller must confirm or supply missing fields.
	StatePartial ParseState = "partial"
)

// CandidateSource records where a candidate came from.
type CandidateSource string

const (
	SourceLocal    CandidateSource = "local"
	SourceAI       CandidateSource = "ai"
	SourceManual   CandidateSource = "manual"
	SourceTemplate CandidateSource = "template"
)

// MissingField names a field the caller still has to provide.
type MissingField string

const (
	FieldTitle     MissingField = "title"
	FieldStartTime MissingField = "startTime"
	FieldEndTime   MissingField = "endTime"
	FieldDuration  MissingField = "duration"
)

// Confidence scores and thresholds.
const (
	ConfidenceClock     = 0.95
	ConfidenceAllDay    = 0.95
	ConfidenceRelative  = 0.85
	ConfidenceTitleOnly = 0.5

	// AcceptThreshold is the minimum confidence for a success result.
	AcceptThreshold = 0.8
)

// ErrInvalidCandidate is returned when a complete candidate has an empty or inverted range.
var ErrInvalidCandidate = errors.New("invalid schedule candidate")

// ScheduleCandidate is a schedule constructed from text but not yet persisted.
type ScheduleCandidate struct {
	Title         string          `json:"title"`
	StartTs       int64           `json:"start_ts"`
	EndTs         int64           `json:"end_ts"`
	AllDay        bool            `json:"all_day"`
	Confidence    float64         `json:"confidence"`
	Source        CandidateSource `json:"source"`
	MissingFields []MissingField  `json:"missing_fields,omitempty"`
}

// IsPartial reports whether the candidate still lacks fields.
func (c *ScheduleCandidate) IsPartial() bool {
	return len(c.MissingFields) > 0
}

// DurationSeconds returns EndTs - StartTs.
func (c *ScheduleCandidate) DurationSeconds() int64 {
	return c.EndTs - c.StartTs
}

// Validate rejects complete candidates whose range is empty or inverted.
func (c *ScheduleCandidate) Validate() error {
	if c.IsPartial() {
		return nil
	}
	if c.StartTs >= c.EndTs {
		return fmt.Errorf("%w: start %d is not before end %d", ErrInvalidCandidate, c.StartTs, c.EndTs)
	}
	return nil
}

// Clone returns a deep copy.
func (c *ScheduleCandidate) Clone() *ScheduleCandidate {
	if c == nil {
		return nil
	}
	out := *c
	out.MissingFields = slices.Clone(c.MissingFields)
	return &out
}

// ParseResult is returned by Parser.Parse.
type ParseResult struct {
	State         ParseState         `json:"state"`
	Candidate     *ScheduleCandidate `json:"candidate,omitempty"`
	MissingFields []MissingField     `json:"missing_fields,omitempty"`
	Message       string             `json:"message,omitempty"`
}

// Clone returns a deep copy.
func (r *ParseResult) Clone() *ParseResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Candidate = r.Candidate.Clone()
	out.MissingFields = slices.Clone(r.MissingFields)
	return &out
}
