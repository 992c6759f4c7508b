package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

// Logging writes one line per request once it completes. Health probes log
// at debug; 5xx responses log at warn. The route field is the chi pattern,
// so payer slugs and ids stay out of it.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method":    r.Method,
				"client_ip": clientIP(r),
			})
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r.WithContext(ctx))

			ctx = logg.WithFields(ctx, map[string]any{
				"route":       routeOf(r),
				"status":      rec.statusOrOK(),
				"bytes":       rec.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			logCompletion(ctx, logg, r.URL.Path, rec.statusOrOK())
		})
	}
}

func logCompletion(ctx context.Context, logg *logger.Logger, path string, status int) {
	switch {
	case status >= http.StatusInternalServerError:
		logg.Warn(ctx, "request.complete")
	case strings.HasPrefix(path, "/health"):
		logg.Debug(ctx, "request.complete")
	default:
		logg.Info(ctx, "request.complete")
	}
}

// routeOf is read after the handler ran, when chi has filled in the pattern.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
