package observe

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware logs every request and records its duration. The route label is
// the matched ServeMux pattern, falling back to the raw path.
func Middleware(m *Metrics, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = r.URL.Path
			}

			if m != nil {
				m.HTTPRequestDuration.Record(r.Context(), duration.Seconds(),
					metric.WithAttributes(
						attribute.String("method", r.Method),
						attribute.String("route", route),
						attribute.String("status", strconv.Itoa(rec.statusCode)),
					),
				)
			}

			event := logger.Info()
			if rec.statusCode >= http.StatusInternalServerError {
				event = logger.Error()
			} else if rec.statusCode >= http.StatusBadRequest {
				event = logger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.statusCode).
				Dur("duration", duration).
				Msg("request completed")
		})
	}
}
