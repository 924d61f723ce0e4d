package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/beachmessages/relay/internal/middleware"
	"github.com/beachmessages/relay/internal/observability"
)

type RouterConfig struct {
	ServiceName       string
	RateLimitRequests int
	RateLimitWindow   string
	RequestTimeout    time.Duration
	DeliverJWTSecret  string
}

func NewRouter(msgH *MessageHandler, ready observability.Pinger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.Recovery())

	r.Get("/health/live", observability.HealthLiveHandler)
	r.Get("/health/ready", observability.HealthReadyHandler(ready))

	r.Route("/api/messages", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.With(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).Post("/", msgH.Create)
		api.Get("/", msgH.All)
		api.Get("/pending", msgH.Pending)
		api.Get("/delivered", msgH.Delivered)

		api.With(middleware.JWT([]byte(cfg.DeliverJWTSecret), middleware.ReceiverRole)).
			Patch("/{id}/deliver", msgH.Deliver)
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
