package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64                  `json:"total_requests"`
	SuccessRate   float64                `json:"success_rate"`
	P50LatencyMs  int64                  `json:"p50_latency_ms"`
	P95LatencyMs  int64                  `json:"p95_latency_ms"`
	ErrorCount    int64                  `json:"error_count"`
	Operations    map[string]interface{} `json:"operations"`
}

// GetMetrics returns the in-process request metrics.
// GET /api/v1/metrics
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	snap := s.Metrics.Snapshot()
	ops := make(map[string]interface{}, len(snap.Operations))
	for name, op := range snap.Operations {
		ops[name] = op
	}
	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		TotalRequests: snap.RequestTotal,
		SuccessRate:   snap.SuccessRate(),
		P50LatencyMs:  snap.P50LatencyMs,
		P95LatencyMs:  snap.P95LatencyMs,
		ErrorCount:    snap.RequestFailed,
		Operations:    ops,
	})
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports whether the server and its store are reachable.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	if p, ok := s.Store.(Pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Version: s.Profile.Version})
		}
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.Profile.Version})
}
