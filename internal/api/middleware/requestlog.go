package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

type requestIDCtxKey struct{}

// RequestIDFromContext returns the request ID stored by RequestLog, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

// RequestLog returns Echo middleware that assigns every request an ID and
// logs it once it completes. The ID is taken from X-Request-ID when the
// client sends one, echoed in the response and stored in the request
// context for handlers. Probe endpoints log at debug level; server errors at
// error level.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set(requestIDKey, reqID)
			c.Response().Header().Set(requestIDHeader, reqID)
			req := c.Request()
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), requestIDCtxKey{}, reqID)))

			err := next(c)
			if err != nil {
				c.Error(err)
				err = nil
			}

			status := c.Response().Status
			log.Log(req.Context(), levelFor(c.Path(), status), "request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			)

			return err
		}
	}
}

func levelFor(route string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case route == "/healthz" || route == "/readyz" || route == "/metrics":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
