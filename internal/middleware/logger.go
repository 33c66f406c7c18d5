package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestCounter records request totals. *metrics.Registry satisfies it.
type RequestCounter interface {
	Inc(ctx context.Context, name string, labels map[string]string, n int64)
}

// AccessLog writes one line per request through the request-scoped logger and
// counts requests by method and status class. It must run after RequestID.
func AccessLog(counter RequestCounter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if counter != nil {
				counter.Inc(r.Context(), "http_requests_total", map[string]string{
					"method": r.Method,
					"status": statusClass(status),
				}, 1)
			}

			logger := zerolog.Ctx(r.Context())
			event := logger.Info()
			if status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Str("remote_ip", r.RemoteAddr).
				Dur("duration", time.Since(start)).
				Msg("http request served")
		})
	}
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "0"
	}
}
