package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
)

// Logger writes a request line once the handler and error handler are done.
// Server errors log at error level, client errors at warn.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			ctx := c.Request().Context()
			status := c.Response().Status
			entry := logger.WithContext(ctx).WithFields(map[string]any{
				"request_id":  fernctx.GetRequestID(ctx),
				"method":      c.Request().Method,
				"route":       c.Path(),
				"status":      status,
				"duration_ms": time.Since(started).Milliseconds(),
				"bytes_out":   c.Response().Size,
			})
			if batchID := fernctx.GetBatchID(ctx); batchID != "" {
				entry = entry.WithField("batch_id", batchID)
			}

			switch {
			case status >= 500:
				entry.Error("Request failed")
			case status >= 400:
				entry.Warn("Request rejected")
			default:
				entry.Info("Request")
			}
			return nil
		}
	}
}
