package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)
		r.Get("/categories", h.CategoriesHandler)
		r.Get("/rooms/code/{code}/qr", h.RoomQRHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/rooms/{id}", h.RoomHandler)
			r.Get("/rooms/{id}/results", h.RoomResultsHandler)
			r.Get("/matches/{id}", h.MatchHandler)
			r.Get("/wallets/{name}", h.WalletHandler)
			r.Get("/history/{name}", h.HistoryHandler)
		})
	})
}

func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)

	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": "npat-game",
		"exp":        time.Now().Add(7 * 24 * time.Hour).Unix(),
	})
	if err != nil {
		log.Warnf("unable to issue debug token: %s", err)
		return
	}

	log.Debugf("DEBUG: JWT for testing: %s", tokenString)
}
