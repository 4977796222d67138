package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	pkglogger "github.com/jthurman/localhive/pkg/logger"
)

// SecureLogger logs each request with a redacted URL. Query strings on the
// auth endpoints can carry tokens and challenge identifiers, so any request
// whose query matches a sensitive parameter is logged without it.
func SecureLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				path := r.URL.Path
				if r.URL.RawQuery != "" {
					if pkglogger.SanitizeQueryString(r.URL.RawQuery) {
						path = path + "?[REDACTED]"
					} else {
						path = path + "?" + r.URL.RawQuery
					}
				}

				logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
					slog.String("method", r.Method),
					slog.String("path", path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("remote_addr", r.RemoteAddr),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
