package console

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/beachmessages/relay/internal/middleware"
	"github.com/beachmessages/relay/internal/observability"
)

func NewRouter(h *Handler, serviceName string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(observability.MetricsMiddleware(serviceName))
	r.Use(middleware.Recovery())

	r.Get("/health/live", observability.HealthLiveHandler)

	r.Route("/peripheral", func(p chi.Router) {
		p.Get("/", h.Status)
		p.Post("/scan", h.Scan)
		p.Post("/stop", h.StopScan)
		p.Post("/connect", h.Connect)
		p.Post("/disconnect", h.Disconnect)
		p.Post("/send", h.Send)
		p.Get("/events", h.Events)
	})

	r.Get("/relay/pending", h.Pending)
	r.Post("/relay/deliver/{id}", h.DeliverOne)
	r.Post("/relay/deliver-all", h.DeliverAll)

	r.Get("/history", h.History)
	r.Delete("/history", h.ClearHistory)

	return otelhttp.NewHandler(r, serviceName)
}
