package server

import (
	"io"
	"net/http"

	"github.com/gorilla/handlers"
)

// SecurityHeaders sets response headers appropriate for an endpoint that
// never serves browsable, cacheable, or frameable content: every path
// this server exposes is either a JSON API or a redirect.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// AccessLog wraps next with a combined-format access log written to out.
// Router does not apply it; a caller wraps Router's handler with it.
func AccessLog(out io.Writer, next http.Handler) http.Handler {
	return handlers.CombinedLoggingHandler(out, next)
}
