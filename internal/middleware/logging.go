package middleware

import (
	"net/http"
	"time"

	"github.com/clothingstore/catalog-service/internal/platform/logger"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestLogging logs one structured line per request with method, path,
// status, duration and, when tracing is active, the trace and span ids.
func RequestLogging(log *logger.Logger) func(http.Handler) http.Handler {
	reqLogger := log.Named("HTTP")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			}
			if span := trace.SpanContextFromContext(r.Context()); span.IsValid() {
				fields = append(fields,
					zap.String("trace_id", span.TraceID().String()),
					zap.String("span_id", span.SpanID().String()),
				)
			}

			if ww.Status() >= http.StatusInternalServerError {
				reqLogger.Error("Request completed", fields...)
			} else {
				reqLogger.Info("Request completed", fields...)
			}
		})
	}
}
