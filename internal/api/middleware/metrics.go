// Package middleware provides the Echo middleware stack of the API server.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/price-drop-tracker/internal/metrics"
)

// unmatchedPath labels requests that hit no route, keeping path cardinality
// bounded when the server is probed with arbitrary URLs.
const unmatchedPath = "unmatched"

// probePaths are excluded from request metrics. Health probes update their
// up/down gauge instead.
var probePaths = map[string]prometheus.Gauge{
	"/metrics": nil,
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
}

// Metrics returns Echo middleware that records request duration and status,
// labeled by route template.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if gauge, ok := probePaths[path]; ok {
				err := next(c)
				if gauge != nil {
					setUp(gauge, c.Response().Status)
				}
				return err
			}
			if path == "" {
				path = unmatchedPath
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the error so the recorded status is final.
				c.Error(err)
				err = nil
			}

			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()

			return err
		}
	}
}

func setUp(g prometheus.Gauge, status int) {
	if status >= 200 && status < 300 {
		g.Set(1)
		return
	}
	g.Set(0)
}
