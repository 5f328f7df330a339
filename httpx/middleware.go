package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/trace"
)

// TraceHeader is the request/response header carrying the correlation ID.
const TraceHeader = "X-Trace-Id"

// Trace is middleware that establishes the per-request trace ID: taken from
// the incoming header when present, generated otherwise, echoed on the
// response, and installed in the request context.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := trace.WithTrace(r.Context(), r.Header.Get(TraceHeader))
		w.Header().Set(TraceHeader, trace.FromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger is middleware that logs every request with method, path,
// status, duration, and trace ID.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("Request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(started)),
				zap.String("trace", trace.FromContext(r.Context())),
			)
		})
	}
}
