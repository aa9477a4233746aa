package httpapi

import (
	"net/http"
	"time"

	"surfsup-server/internal/config"
)

// NewServer wraps handler with request logging, CORS and, when configured,
// rate limiting. Logging is outermost so rejected requests are logged too.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	if cfg.RateLimitRPS > 0 {
		handler = rateLimit(handler, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	handler = newCORS(cfg).Handler(handler)

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
