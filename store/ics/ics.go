// Package ics imports and exports schedules as iCalendar data.
package ics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	"github.com/hrygo/schedkit/store"
)

// SourceICS marks schedules created by the importer.
const SourceICS = "ics"

// ErrInvalidCalendar is returned when the input is not an iCalendar document.
var ErrInvalidCalendar = errors.New("invalid calendar")

// Event is a VEVENT normalized to the fields a schedule keeps.
type Event struct {
	UID         string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	// Recurring is set when the event carries an RRULE. Only the first
	// occurrence is imported.
	Recurring bool
}

// Parse reads all VEVENTs from r. All-day events are anchored at midnight
// in loc. Events without a UID or a start are skipped.
func Parse(r io.Reader, loc *time.Location) ([]Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}

	events := make([]Event, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, loc)
		if err != nil {
			slog.Warn("skipping vevent", "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (Event, error) {
	var out Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || strings.TrimSpace(uidProp.Value) == "" {
		return out, errors.New("missing UID")
	}
	out.UID = strings.TrimSpace(uidProp.Value)

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	out.Recurring = ve.GetProperty(ical.ComponentPropertyRrule) != nil

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.Errorf("event %s: missing DTSTART", out.UID)
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return out, errors.Wrapf(err, "event %s: invalid DTSTART", out.UID)
		}
		out.Start = midnight(start, loc)
		out.End = out.Start.AddDate(0, 0, 1)
		if end, err := ve.GetAllDayEndAt(); err == nil && midnight(end, loc).After(out.Start) {
			out.End = midnight(end, loc)
		}
		return out, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, errors.Wrapf(err, "event %s: invalid DTSTART", out.UID)
	}
	out.Start = start.In(loc)
	out.End = out.Start.Add(store.DefaultScheduleDuration)
	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		out.End = end.In(loc)
	}
	return out, nil
}

// isDateValue reports whether a DTSTART holds a date rather than a date-time.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Store is the subset of store.Store the importer needs.
type Store interface {
	CreateSchedule(ctx context.Context, create *store.Schedule) (*store.Schedule, error)
	GetSchedule(ctx context.Context, find *store.FindSchedule) (*store.Schedule, error)
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// Importer writes parsed events into the schedule store.
type Importer struct {
	store Store
	loc   *time.Location
}

// NewImporter creates an importer. loc anchors all-day events and is stored
// as the schedule timezone.
func NewImporter(s Store, loc *time.Location) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	return &Importer{store: s, loc: loc}
}

// Import creates a schedule for every event in r. Events whose UID the user
// already has are skipped, so importing the same file twice is harmless.
func (i *Importer) Import(ctx context.Context, userID int32, r io.Reader) (*ImportResult, error) {
	events, err := Parse(r, i.loc)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Created: []string{}, Skipped: []string{}}
	for _, ev := range events {
		uid := ev.UID
		existing, err := i.store.GetSchedule(ctx, &store.FindSchedule{UID: &uid, CreatorID: &userID})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to look up %s", uid)
		}
		if existing != nil {
			result.Skipped = append(result.Skipped, uid)
			continue
		}

		title := ev.Title
		if title == "" {
			title = "(untitled)"
		}
		endTs := ev.End.Unix()
		if _, err := i.store.CreateSchedule(ctx, &store.Schedule{
			UID:         uid,
			CreatorID:   userID,
			RowStatus:   store.Normal,
			Title:       title,
			Description: ev.Description,
			Location:    ev.Location,
			StartTs:     ev.Start.Unix(),
			EndTs:       &endTs,
			AllDay:      ev.AllDay,
			Timezone:    i.loc.String(),
			Source:      SourceICS,
		}); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", uid)
		}
		if ev.Recurring {
			slog.Info("imported first occurrence of recurring event", "uid", uid)
		}
		result.Created = append(result.Created, uid)
	}
	return result, nil
}

// Export renders schedules as an iCalendar document.
func Export(schedules []*store.Schedule, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetProductId("-//schedkit//EN")
	cal.SetMethod(ical.MethodPublish)

	for _, s := range schedules {
		event := cal.AddEvent(s.UID)
		event.SetDtStampTime(now)
		event.SetSummary(s.Title)
		if s.Description != "" {
			event.SetDescription(s.Description)
		}
		if s.Location != "" {
			event.SetLocation(s.Location)
		}

		start := time.Unix(s.StartTs, 0)
		end := time.Unix(s.EffectiveEndTs(), 0)
		if s.AllDay {
			loc := scheduleLocation(s)
			event.SetAllDayStartAt(start.In(loc))
			event.SetAllDayEndAt(end.In(loc))
			continue
		}
		event.SetStartAt(start.UTC())
		event.SetEndAt(end.UTC())
	}
	return cal.Serialize()
}

func scheduleLocation(s *store.Schedule) *time.Location {
	if s.Timezone != "" {
		if loc, err := time.LoadLocation(s.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// ExportUser renders all active schedules of a user.
func ExportUser(ctx context.Context, lister interface {
	ListSchedules(ctx context.Context, find *store.FindSchedule) ([]*store.Schedule, error)
}, userID int32, now time.Time) (string, error) {
	normal := store.Normal
	list, err := lister.ListSchedules(ctx, &store.FindSchedule{CreatorID: &userID, RowStatus: &normal})
	if err != nil {
		return "", fmt.Errorf("failed to list schedules: %w", err)
	}
	return Export(list, now), nil
}
