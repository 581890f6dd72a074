package wire

import (
	"trekko-booking/internal/adaptor"
	"trekko-booking/internal/data/repository"
	"trekko-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireGuide(r chi.Router, handler *adaptor.Handler, repo *repository.Repository, log *zap.Logger) {
	r.Route("/api/guide", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.User, log))
		r.Use(middleware.Guide(log))

		// Expeditions
		r.Post("/expeditions", handler.Guide.CreateExpedition)
		r.Get("/expeditions", handler.Guide.GetExpeditions)
		r.Get("/expeditions/{id}/reservations", handler.Guide.GetExpeditionReservations)
		r.Post("/expeditions/{id}/complete", handler.Guide.CompleteExpedition)

		// Money
		r.Get("/payouts", handler.Guide.GetPayouts)
		r.Get("/financial-summary", handler.Guide.GetFinancialSummary)

		// Disputes
		r.Get("/contestations", handler.Contestation.GetGuideContestations)
		r.Post("/contestations/{id}/respond", handler.Contestation.Respond)

		// KYC
		r.Post("/verification", handler.Verification.Submit)
		r.Get("/verification", handler.Verification.GetOwn)
		r.Post("/verification/documents", handler.Verification.UploadDocument)
	})
}
