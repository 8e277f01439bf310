package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		status        int
		providedReqID string
		wantLogFields []string
	}{
		{
			name:   "logs GET request with generated ID",
			method: http.MethodGet,
			path:   "/api/v1/users/42/subscriptions",
			status: http.StatusOK,
			wantLogFields: []string{
				"level=INFO",
				"method=GET",
				"path=/api/v1/users/42/subscriptions",
				"status=200",
				"duration_ms=",
				"request_id=",
			},
		},
		{
			name:   "logs POST request",
			method: http.MethodPost,
			path:   "/api/v1/users/42/subscriptions",
			status: http.StatusCreated,
			wantLogFields: []string{
				"method=POST",
				"status=201",
			},
		},
		{
			name:   "server error logged at error level",
			method: http.MethodPost,
			path:   "/api/v1/scan",
			status: http.StatusInternalServerError,
			wantLogFields: []string{
				"level=ERROR",
				"status=500",
			},
		},
		{
			name:          "uses provided request ID",
			method:        http.MethodGet,
			path:          "/api/v1/jobs",
			status:        http.StatusOK,
			providedReqID: "custom-req-id-123",
			wantLogFields: []string{
				"request_id=custom-req-id-123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			e := echo.New()
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.providedReqID != "" {
				req.Header.Set(requestIDHeader, tt.providedReqID)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var ctxID string
			handler := RequestLog(logger)(func(c echo.Context) error {
				ctxID = RequestIDFromContext(c.Request().Context())
				return c.NoContent(tt.status)
			})

			require.NoError(t, handler(c))

			for _, field := range tt.wantLogFields {
				assert.Contains(t, buf.String(), field)
			}

			respID := rec.Header().Get(requestIDHeader)
			assert.NotEmpty(t, respID)
			assert.Equal(t, respID, ctxID)
			assert.Equal(t, respID, c.Get(requestIDKey))
			if tt.providedReqID != "" {
				assert.Equal(t, tt.providedReqID, respID)
			}
		})
	}
}

func TestRequestLog_ProbesAtDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	e := echo.New()
	e.Use(RequestLog(logger))
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, buf.String(), "probe requests are below info level")
}

func TestRequestLog_HandlerErrorStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLog(logger))
	e.GET("/api/v1/jobs", func(_ echo.Context) error {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "down")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, buf.String(), "status=503")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, levelFor("/readyz", http.StatusOK))
	assert.Equal(t, slog.LevelError, levelFor("/readyz", http.StatusServiceUnavailable))
	assert.Equal(t, slog.LevelInfo, levelFor("/api/v1/scan", http.StatusConflict))
}
