package http

import (
	"net/http"
	"time"

	"github.com/tillpoint/accounts/internal/logger"
)

// withLogging emits one access-log line per request with the final status
// and body size taken from the wrapped writer.
func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)

		logger.FromRequest(r).Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote", r.RemoteAddr).
			Int("status", lw.status).
			Int("size", lw.size).
			Dur("duration", time.Since(start)).
			Send()
	})
}
