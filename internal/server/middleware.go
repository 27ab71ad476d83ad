package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/iksnae/chatdesk/internal"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func newRequestID() string {
	return uuid.NewString()
}

// accessLog writes one structured line per request through the shared logger
func accessLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []zap.Field{
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			if res.Status >= 500 {
				internal.Logger().Error("request", fields...)
			} else {
				internal.Logger().Debug("request", fields...)
			}
			return nil
		}
	}
}
