package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	aischedule "github.com/hrygo/schedkit/plugin/ai/schedule"
	apperrors "github.com/hrygo/schedkit/server/internal/errors"
	"github.com/hrygo/schedkit/server/internal/observability"
	schedulesvc "github.com/hrygo/schedkit/server/service/schedule"
	"github.com/hrygo/schedkit/store"
)

const (
	headerRequestID = "X-Request-ID"
	userIDKey       = "user_id"
	// demoUserID owns all requests when no JWT secret is configured.
	demoUserID int32 = 1
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Details map[string]any      `json:"details,omitempty"`
}

// requestContextMiddleware attaches an observability.RequestContext and
// records the request in the metrics.
func (s *APIV1Service) requestContextMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rc := observability.NewRequestContextWithID(slog.Default(), req.Header.Get(headerRequestID), c.Path(), 0)
		c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))
		c.Response().Header().Set(headerRequestID, rc.RequestID)

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		duration := rc.Duration()
		s.Metrics.RecordRequest(c.Path(), duration, status >= http.StatusBadRequest)
		rc.Debug("request completed",
			slog.String("method", req.Method),
			slog.Int("status", status),
			slog.Int64(observability.LogFieldDuration, duration.Milliseconds()),
		)
		return nil
	}
}

// authMiddleware verifies the bearer token and stores the user id.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := demoUserID
		if s.Profile.JWTSecret != "" {
			id, err := s.authenticator.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return s.respondError(c, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "authentication required"))
			}
			userID = id
		}

		c.Set(userIDKey, userID)
		if rc, ok := observability.FromContext(c.Request().Context()); ok {
			rc.UserID = userID
		}
		return next(c)
	}
}

// rateLimitMiddleware applies the per-user request budget.
func (s *APIV1Service) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := "user:" + strconv.Itoa(int(currentUserID(c)))
		if !s.limiter.Allow(key) {
			return s.respondError(c, apperrors.RateLimitExceeded("too many requests"))
		}
		return next(c)
	}
}

func currentUserID(c echo.Context) int32 {
	if id, ok := c.Get(userIDKey).(int32); ok {
		return id
	}
	return 0
}

// toAppError maps service errors onto API error codes.
func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	var conflictErr *schedulesvc.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		return apperrors.Wrap(err, apperrors.ErrCodeScheduleConflict, "schedule conflicts with existing schedules").
			WithDetail("conflicts", conflictErr.Conflicts)
	case errors.Is(err, schedulesvc.ErrInvalidInterval), errors.Is(err, schedulesvc.ErrTitleRequired):
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "schedule not found")
	case errors.Is(err, aischedule.ErrStaleResponse):
		return apperrors.Wrap(err, apperrors.ErrCodeStaleResponse, "superseded by a newer request")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "operation timed out")
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeContextCanceled, "operation canceled")
	case errors.Is(err, aischedule.ErrAgentFailed):
		return apperrors.Wrap(err, apperrors.ErrCodeAgentExecutionFailed, "assistant is unavailable")
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "internal error")
	}
}

// respondError writes err as an ErrorResponse. Internal causes are logged,
// not returned to the client.
func (s *APIV1Service) respondError(c echo.Context, err error) error {
	appErr := toAppError(err)
	status := appErr.Code.HTTPStatus()

	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		attrs := []slog.Attr{slog.String(observability.LogFieldErrorCode, string(appErr.Code))}
		if status >= http.StatusInternalServerError {
			rc.Error("request failed", err, attrs...)
		} else {
			rc.Debug("request rejected", append(attrs, slog.String("error", err.Error()))...)
		}
	}

	return c.JSON(status, ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}
