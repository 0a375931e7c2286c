// Package server runs the schedkit HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"

	"github.com/hrygo/schedkit/internal/profile"
	apiv1 "github.com/hrygo/schedkit/server/router/api/v1"
	"github.com/hrygo/schedkit/store"
)

// MaintenanceSpec is the cron schedule of the cache and session sweep.
const MaintenanceSpec = "@every 1m"

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
	cron       *cron.Cron
}

func NewServer(_ context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	s.echoServer = echoServer

	apiV1, err := apiv1.NewAPIV1Service(profile, store)
	if err != nil {
		return nil, fmt.Errorf("failed to create api v1 service: %w", err)
	}
	apiV1.Register(echoServer)
	s.apiV1 = apiV1

	s.cron = cron.New(cron.WithLocation(profile.Location()))
	if _, err := s.cron.AddFunc(MaintenanceSpec, apiV1.Maintain); err != nil {
		return nil, fmt.Errorf("failed to schedule maintenance: %w", err)
	}

	return s, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.echoServer.Server.Handler = s.echoServer
	s.cron.Start()
	go func() {
		if err := s.echoServer.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	slog.Info("schedkit server started",
		"address", address,
		"mode", s.Profile.Mode,
		"driver", s.Profile.Driver,
		"timezone", s.Profile.Timezone,
	)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	// Wait for a running maintenance job to finish.
	<-s.cron.Stop().Done()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("server stopped properly")
}
