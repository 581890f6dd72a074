package wire

import (
	"trekko-booking/internal/adaptor"
	"trekko-booking/internal/data/repository"
	"trekko-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReservation(r chi.Router, handler *adaptor.Handler, repo *repository.Repository, log *zap.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.User, log))

		// POST /api/checkout - Reserve spots and get the payment link
		r.Post("/api/checkout", handler.Reservation.Checkout)

		// GET /api/reservations - The user's own reservations
		r.Get("/api/reservations", handler.Reservation.GetUserReservations)

		// GET /api/reservations/{id} - One reservation (owner or admin)
		r.Get("/api/reservations/{id}", handler.Reservation.GetReservation)

		// POST /api/reservations/{id}/cancel - Cancel, refunding per policy
		r.Post("/api/reservations/{id}/cancel", handler.Reservation.Cancel)

		// POST /api/contestations - Dispute a completed expedition
		r.Post("/api/contestations", handler.Contestation.Open)
	})
}
