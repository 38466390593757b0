package routes

import (
	"time"

	"github.com/avvvet/npat-services/internal/socketsvc/handlers"
	"github.com/go-chi/chi"
	"github.com/go-chi/httprate"
)

// SetRoutes mounts the socket endpoints under /v1. Upgrades are limited per
// IP separately from the general request limit.
func SetRoutes(r chi.Router, h *handlers.Handler, upgradesPerMinute int) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.With(httprate.LimitByIP(upgradesPerMinute, time.Minute)).Get("/ws", h.HandleWebSocket)
	})
}
