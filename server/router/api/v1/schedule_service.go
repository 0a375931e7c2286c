package v1

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/schedkit/plugin/ai/aitime"
	aischedule "github.com/hrygo/schedkit/plugin/ai/schedule"
	apperrors "github.com/hrygo/schedkit/server/internal/errors"
	schedulesvc "github.com/hrygo/schedkit/server/service/schedule"
	"github.com/hrygo/schedkit/server/timezone"
	"github.com/hrygo/schedkit/store"
	"github.com/hrygo/schedkit/store/ics"
)

const (
	// maxTextLength bounds the free text accepted by parse, suggestions and assist.
	maxTextLength = 2000
	// maxImportBytes bounds an uploaded iCalendar document.
	maxImportBytes = 1 << 20
	// defaultListDays is the window listed when no range is given.
	defaultListDays = 7
)

// ParseRequest is the body of POST /schedule/parse.
type ParseRequest struct {
	Text     string `json:"text"`
	Timezone string `json:"timezone"`
	// ReferenceTs overrides the reference instant; 0 means now.
	ReferenceTs int64 `json:"reference_ts"`
}

// ConflictsRequest is the body of POST /schedule/conflicts.
type ConflictsRequest struct {
	StartTs    int64  `json:"start_ts"`
	EndTs      int64  `json:"end_ts"`
	ExcludeUID string `json:"exclude_uid"`
	// WithAlternatives also suggests free slots when there are conflicts.
	WithAlternatives bool   `json:"with_alternatives"`
	Timezone         string `json:"timezone"`
}

// ConflictsResponse is the result of POST /schedule/conflicts.
type ConflictsResponse struct {
	Conflicts    []schedulesvc.ConflictRecord `json:"conflicts"`
	Alternatives []schedulesvc.SuggestedSlot  `json:"alternatives,omitempty"`
}

// SlotsRequest is the body of POST /schedule/slots.
type SlotsRequest struct {
	// Day is "YYYY-MM-DD", "today" or "tomorrow".
	Day             string `json:"day"`
	DurationMinutes int    `json:"duration_minutes"`
	Timezone        string `json:"timezone"`
}

// SlotsResponse is the result of POST /schedule/slots.
type SlotsResponse struct {
	Slots []schedulesvc.SuggestedSlot `json:"slots"`
}

// SuggestionsRequest is the body of POST /schedule/suggestions.
type SuggestionsRequest struct {
	Text          string `json:"text"`
	Timezone      string `json:"timezone"`
	TodayLabel    string `json:"today_label"`
	TomorrowLabel string `json:"tomorrow_label"`
}

// SuggestionsResponse is the result of POST /schedule/suggestions.
type SuggestionsResponse struct {
	Candidates []*aitime.ScheduleCandidate `json:"candidates"`
}

// AssistRequest is the body of POST /schedule/assist.
type AssistRequest struct {
	Text      string `json:"text"`
	Timezone  string `json:"timezone"`
	SessionID string `json:"session_id"`
}

// CreateScheduleRequest is the body of POST /schedules.
type CreateScheduleRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	StartTs       int64  `json:"start_ts"`
	EndTs         *int64 `json:"end_ts"`
	AllDay        bool   `json:"all_day"`
	Timezone      string `json:"timezone"`
	AllowConflict bool   `json:"allow_conflict"`
}

// ScheduleResponse is a stored schedule as returned by the API.
type ScheduleResponse struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	StartTs     int64  `json:"start_ts"`
	EndTs       int64  `json:"end_ts"`
	AllDay      bool   `json:"all_day"`
	Timezone    string `json:"timezone"`
	Source      string `json:"source,omitempty"`
	Display     string `json:"display"`
}

// ListSchedulesResponse is the result of GET /schedules.
type ListSchedulesResponse struct {
	Schedules []schedulesvc.ExistingSchedule `json:"schedules"`
}

func (s *APIV1Service) location(tz string) (*time.Location, error) {
	loc, err := timezone.Resolve(tz, s.Profile.Location())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, fmt.Sprintf("invalid timezone %q", tz))
	}
	return loc, nil
}

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.InvalidArgument("text is required")
	}
	if len([]rune(text)) > maxTextLength {
		return "", apperrors.InvalidArgument(fmt.Sprintf("text exceeds %d characters", maxTextLength))
	}
	return text, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, "malformed request body")
	}
	return nil
}

// ParseSchedule handles POST /api/v1/schedule/parse.
func (s *APIV1Service) ParseSchedule(c echo.Context) error {
	var req ParseRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}
	text, err := validateText(req.Text)
	if err != nil {
		return s.respondError(c, err)
	}
	loc, err := s.location(req.Timezone)
	if err != nil {
		return s.respondError(c, err)
	}

	parser := s.Times.ParserFor(loc.String())
	reference := parser.Now()
	if req.ReferenceTs > 0 {
		reference = time.Unix(req.ReferenceTs, 0).In(loc)
	}
	return c.JSON(http.StatusOK, parser.Parse(text, reference))
}

// CheckConflicts handles POST /api/v1/schedule/conflicts.
func (s *APIV1Service) CheckConflicts(c echo.Context) error {
	var req ConflictsRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}
	if req.EndTs <= req.StartTs {
		return s.respondError(c, schedulesvc.ErrInvalidInterval)
	}
	ctx := c.Request().Context()
	userID := currentUserID(c)

	if req.WithAlternatives && req.ExcludeUID == "" {
		loc, err := s.location(req.Timezone)
		if err != nil {
			return s.respondError(c, err)
		}
		resolution, err := s.Resolver.Resolve(ctx, userID,
			time.Unix(req.StartTs, 0).In(loc), time.Unix(req.EndTs, 0).In(loc))
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(http.StatusOK, ConflictsResponse{
			Conflicts:    nonNil(resolution.Conflicts),
			Alternatives: resolution.Alternatives,
		})
	}

	conflicts, err := s.Schedules.CheckConflicts(ctx, userID, req.StartTs, req.EndTs, req.ExcludeUID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, ConflictsResponse{Conflicts: nonNil(conflicts)})
}

// FindSlots handles POST /api/v1/schedule/slots.
func (s *APIV1Service) FindSlots(c echo.Context) error {
	var req SlotsRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}
	if req.DurationMinutes <= 0 {
		return s.respondError(c, apperrors.InvalidArgument("duration_minutes must be positive"))
	}
	loc, err := s.location(req.Timezone)
	if err != nil {
		return s.respondError(c, err)
	}
	day, err := timezone.ParseDay(req.Day, s.now(), loc)
	if err != nil {
		return s.respondError(c, apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, err.Error()))
	}

	slots, err := s.Resolver.FindFreeSlots(c.Request().Context(), currentUserID(c), day, req.DurationMinutes)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, SlotsResponse{Slots: nonNil(slots)})
}

// ExtractSuggestions handles POST /api/v1/schedule/suggestions. The text is
// assistant prose; up to three schedule candidates are recovered from it.
func (s *APIV1Service) ExtractSuggestions(c echo.Context) error {
	var req SuggestionsRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}
	text, err := validateText(req.Text)
	if err != nil {
		return s.respondError(c, err)
	}
	loc, err := s.location(req.Timezone)
	if err != nil {
		return s.respondError(c, err)
	}

	today, tomorrow := req.TodayLabel, req.TomorrowLabel
	if today == "" {
		today = s.Prompts.TodayLabel
	}
	if tomorrow == "" {
		tomorrow = s.Prompts.TomorrowLabel
	}

	extractor := aischedule.NewExtractor(loc, aischedule.WithExtractorClock(s.now))
	return c.JSON(http.StatusOK, SuggestionsResponse{
		Candidates: nonNil(extractor.Extract(text, today, tomorrow)),
	})
}

// Assist handles POST /api/v1/schedule/assist.
func (s *APIV1Service) Assist(c echo.Context) error {
	var req AssistRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}
	text, err := validateText(req.Text)
	if err != nil {
		return s.respondError(c, err)
	}
	loc, err := s.location(req.Timezone)
	if err != nil {
		return s.respondError(c, err)
	}

	userID := currentUserID(c)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}
	session := s.Sessions.Get(fmt.Sprintf("%d:%s", userID, sessionID))

	result, err := s.Assistant.InTimezone(loc.String()).Assist(c.Request().Context(), session, userID, text)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListSchedules handles GET /api/v1/schedules?start_ts=&end_ts=.
func (s *APIV1Service) ListSchedules(c echo.Context) error {
	startOfToday := timezone.StartOfDay(s.now(), s.Profile.Location())
	start, err := queryTs(c, "start_ts", startOfToday.Unix())
	if err != nil {
		return s.respondError(c, err)
	}
	end, err := queryTs(c, "end_ts", time.Unix(start, 0).AddDate(0, 0, defaultListDays).Unix())
	if err != nil {
		return s.respondError(c, err)
	}
	if end <= start {
		return s.respondError(c, schedulesvc.ErrInvalidInterval)
	}

	list, err := s.Schedules.FindSchedules(c.Request().Context(), currentUserID(c), time.Unix(start, 0), time.Unix(end, 0))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, ListSchedulesResponse{Schedules: nonNil(list)})
}

func queryTs(c echo.Context, name string, fallback int64) (int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ts <= 0 {
		return 0, apperrors.InvalidArgument(fmt.Sprintf("%s must be a positive unix timestamp", name))
	}
	return ts, nil
}

// CreateSchedule handles POST /api/v1/schedules. Conflicting schedules are
// rejected with 409 unless allow_conflict is set.
func (s *APIV1Service) CreateSchedule(c echo.Context) error {
	var req CreateScheduleRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}
	loc, err := s.location(req.Timezone)
	if err != nil {
		return s.respondError(c, err)
	}

	created, err := s.Schedules.CreateSchedule(c.Request().Context(), currentUserID(c), &schedulesvc.CreateScheduleRequest{
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		StartTs:       req.StartTs,
		EndTs:         req.EndTs,
		AllDay:        req.AllDay,
		Timezone:      loc.String(),
		Source:        string(aitime.SourceManual),
		AllowConflict: req.AllowConflict,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, scheduleResponse(created, loc))
}

// DeleteSchedule handles DELETE /api/v1/schedules/:uid.
func (s *APIV1Service) DeleteSchedule(c echo.Context) error {
	if err := s.Schedules.DeleteSchedule(c.Request().Context(), currentUserID(c), c.Param("uid")); err != nil {
		return s.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ImportSchedules handles POST /api/v1/schedules/import with an iCalendar body.
func (s *APIV1Service) ImportSchedules(c echo.Context) error {
	body := io.LimitReader(c.Request().Body, maxImportBytes)
	result, err := s.Importer.Import(c.Request().Context(), currentUserID(c), body)
	if errors.Is(err, ics.ErrInvalidCalendar) {
		return s.respondError(c, apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, "invalid calendar"))
	}
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ExportSchedules handles GET /api/v1/schedules/export.
func (s *APIV1Service) ExportSchedules(c echo.Context) error {
	out, err := ics.ExportUser(c.Request().Context(), s.Store, currentUserID(c), s.now())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(out))
}

func scheduleResponse(sched *store.Schedule, loc *time.Location) ScheduleResponse {
	end := sched.EffectiveEndTs()
	return ScheduleResponse{
		UID:         sched.UID,
		Title:       sched.Title,
		Description: sched.Description,
		Location:    sched.Location,
		StartTs:     sched.StartTs,
		EndTs:       end,
		AllDay:      sched.AllDay,
		Timezone:    sched.Timezone,
		Source:      sched.Source,
		Display:     timezone.FormatScheduleTime(sched.StartTs, &end, sched.AllDay, loc),
	}
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
