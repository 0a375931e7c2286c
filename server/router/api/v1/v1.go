package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/schedkit/internal/profile"
	"github.com/hrygo/schedkit/plugin/ai"
	"github.com/hrygo/schedkit/plugin/ai/aitime"
	aischedule "github.com/hrygo/schedkit/plugin/ai/schedule"
	"github.com/hrygo/schedkit/server/auth"
	"github.com/hrygo/schedkit/server/internal/observability"
	ratelimit "github.com/hrygo/schedkit/server/middleware"
	schedulesvc "github.com/hrygo/schedkit/server/service/schedule"
	"github.com/hrygo/schedkit/store/ics"
)

const (
	sessionCapacity = 1024
	sessionTTL      = 30 * time.Minute
)

// APIV1Service serves the /api/v1 schedule endpoints.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     schedulesvc.Store
	Schedules schedulesvc.Service
	Resolver  *schedulesvc.ConflictResolver
	Times     *aitime.Service
	Assistant *aischedule.Assistant
	Sessions  *aischedule.SessionRegistry
	Importer  *ics.Importer
	Prompts   aischedule.PromptSet
	Metrics   *observability.Metrics

	authenticator *auth.Authenticator
	limiter       *ratelimit.RateLimiter
	now           func() time.Time
}

// Option configures an APIV1Service.
type Option func(*options)

type options struct {
	agent aischedule.AgentClient
	now   func() time.Time
}

// WithAgent overrides the agent built from the profile.
func WithAgent(agent aischedule.AgentClient) Option {
	return func(o *options) { o.agent = agent }
}

// WithClock fixes the clock of every component. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewAPIV1Service wires the schedule services on top of store.
func NewAPIV1Service(p *profile.Profile, store schedulesvc.Store, opts ...Option) (*APIV1Service, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	var resolverOpts []schedulesvc.ResolverOption
	resolverOpts = append(resolverOpts, schedulesvc.WithNow(o.now))
	if p.SlotFilter != "" {
		filter, err := schedulesvc.NewSlotFilter(p.SlotFilter)
		if err != nil {
			return nil, err
		}
		resolverOpts = append(resolverOpts, schedulesvc.WithSlotFilter(filter))
	}

	aiConfig := ai.NewConfigFromProfile(p)
	prompts := aischedule.PromptsFor(aiConfig.PromptLocale)

	messages := aitime.DefaultMessages
	if aiConfig.PromptLocale == "en" {
		messages = aitime.EnglishMessages
	}
	times := aitime.NewService(p.Timezone,
		aitime.WithRollover(aitime.ParseRolloverPolicy(p.RolloverPolicy)),
		aitime.WithCache(p.ParseCacheSize, p.ParseCacheTTL),
		aitime.WithMessages(messages),
	).WithNow(o.now)

	agent := o.agent
	if agent == nil && aiConfig.Enabled {
		if err := aiConfig.Validate(); err != nil {
			return nil, err
		}
		agent = aischedule.NewOpenAIAgent(aiConfig.LLM, prompts.System)
	}

	schedules := schedulesvc.NewService(store)
	resolver := schedulesvc.NewConflictResolver(schedules, resolverOpts...)

	assistantOpts := []aischedule.AssistantOption{
		aischedule.WithPrompts(prompts),
		aischedule.WithTimezone(p.Timezone),
	}
	if agent != nil {
		assistantOpts = append(assistantOpts, aischedule.WithAgent(agent))
	}

	return &APIV1Service{
		Profile:       p,
		Store:         store,
		Schedules:     schedules,
		Resolver:      resolver,
		Times:         times,
		Assistant:     aischedule.NewAssistant(times, resolver, assistantOpts...),
		Sessions:      aischedule.NewSessionRegistry(sessionCapacity, sessionTTL),
		Importer:      ics.NewImporter(store, p.Location()),
		Prompts:       prompts,
		Metrics:       observability.NewMetrics(1000),
		authenticator: auth.NewAuthenticator(p.JWTSecret),
		limiter:       ratelimit.NewRateLimiter(p.RateLimit, 0),
		now:           o.now,
	}, nil
}

// Register mounts the API on e.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.Use(middleware.Recover())
	e.Use(s.requestContextMiddleware)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	e.GET("/healthz", s.Healthz)

	api := e.Group("/api/v1", s.authMiddleware, s.rateLimitMiddleware)
	api.GET("/metrics", s.GetMetrics)

	api.POST("/schedule/parse", s.ParseSchedule)
	api.POST("/schedule/conflicts", s.CheckConflicts)
	api.POST("/schedule/slots", s.FindSlots)
	api.POST("/schedule/suggestions", s.ExtractSuggestions)
	api.POST("/schedule/assist", s.Assist)

	api.GET("/schedules", s.ListSchedules)
	api.POST("/schedules", s.CreateSchedule)
	api.DELETE("/schedules/:uid", s.DeleteSchedule)
	api.POST("/schedules/import", s.ImportSchedules)
	api.GET("/schedules/export", s.ExportSchedules)

	slog.Debug("api v1 registered", "ai_agent", s.Assistant.HasAgent())
}

// Maintain drops expired parser cache entries, sessions and idle rate
// limiters. The server runs it periodically.
func (s *APIV1Service) Maintain() {
	caches := s.Times.SweepCaches()
	sessions := s.Sessions.Sweep()
	limiters := s.limiter.Sweep(time.Hour)
	slog.Debug("maintenance sweep",
		"parse_cache_entries", caches,
		"sessions", sessions,
		"rate_limiters", limiters,
	)
}
