package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/beachmessages/relay/internal/transport"
)

// RateLimit limits requests per client IP. A non-positive limit disables it.
func RateLimit(requests int, windowStr string) func(next http.Handler) http.Handler {
	if requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	window, err := time.ParseDuration(windowStr)
	if err != nil {
		window = time.Minute
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			transport.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		}),
	)
}
