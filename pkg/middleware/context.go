package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
)

// HeaderBatchID lets a caller correlate an HTTP request with a batch
const HeaderBatchID = "X-Batch-ID"

// Context copies request metadata into the request context. A request
// without an id is given one, echoed in the response.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := req.Context()
			ctx = fernctx.SetRequestID(ctx, requestID)
			ctx = fernctx.SetMethod(ctx, req.Method)
			ctx = fernctx.SetRoute(ctx, req.URL.Path)
			ctx = fernctx.SetRemoteIP(ctx, c.RealIP())
			if batchID := req.Header.Get(HeaderBatchID); batchID != "" {
				ctx = fernctx.SetBatchID(ctx, batchID)
			}

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
