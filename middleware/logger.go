package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// LoggerMiddleware logs one line per request. Health probes are not logged.
func LoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			if req.URL.Path == "/health" {
				return nil
			}

			path := req.URL.Path
			if req.URL.RawQuery != "" {
				path += "?" + req.URL.RawQuery
			}
			status := c.Response().Status

			// GET /api/snapshots/latest -> 200 OK (3ms) from 127.0.0.1
			log.Printf("%s %s -> %d %s (%dms) from %s",
				req.Method, path, status, http.StatusText(status), time.Since(start).Milliseconds(), c.RealIP())

			return nil
		}
	}
}
