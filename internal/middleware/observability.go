package middleware

import (
	"strconv"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/pkg/logging"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Observability はリクエスト単位のロガーをcontextに入れ、
// 終了時に http_request を1行出してメトリクスを記録する。
// echoのRequestIDミドルウェアの後ろに置く
func Observability(base *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	if base == nil {
		base = zap.NewNop()
	}
	prop := otel.GetTextMapPropagator()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := prop.Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = req.Header.Get(echo.HeaderXRequestID)
			}

			// パスは /orders/:id のようなテンプレートで出す
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			fields := []zap.Field{
				zap.String("request_id", rid),
				zap.String("method", req.Method),
				zap.String("route", route),
			}
			if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
				fields = append(fields,
					zap.String("trace_id", sc.TraceID().String()),
					zap.String("span_id", sc.SpanID().String()),
				)
			}
			log := base.With(fields...)
			c.SetRequest(req.WithContext(logging.ContextWithLogger(ctx, log)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// ステータスを確定させる
				c.Error(err)
			}

			status := c.Response().Status
			elapsed := time.Since(start)
			m.ObserveHTTP(req.Method, route, strconv.Itoa(status), elapsed)

			lf := []zap.Field{zap.Int("status", status), zap.Duration("latency", elapsed)}
			if uid, ok := c.Get(CtxUserIDKey).(int64); ok {
				lf = append(lf, zap.Int64("user_id", uid))
			}
			if status >= 500 {
				log.Error("http_request", lf...)
			} else {
				log.Info("http_request", lf...)
			}
			return nil
		}
	}
}
