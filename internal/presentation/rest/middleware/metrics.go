package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// MetricsMiddleware メトリクス記録ミドルウェア
// ErrorHandlerMiddlewareの外側に置き、書き込まれたステータスで分類する
func MetricsMiddleware(metrics *otelinfra.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()
			method := c.Request().Method

			metrics.RecordRequest(ctx, method, c.Path())
			err := next(c)
			metrics.RecordResponseTime(ctx, method, c.Path(), time.Since(start).Seconds())

			switch status := c.Response().Status; {
			case status >= 500 || (err != nil && status < 400):
				metrics.RecordError(ctx, "server_error")
			case status >= 400:
				metrics.RecordError(ctx, "client_error")
			}
			return err
		}
	}
}
