package wire

import (
	"trekko-booking/internal/adaptor"
	"trekko-booking/internal/data/repository"
	"trekko-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAdmin(r chi.Router, handler *adaptor.Handler, repo *repository.Repository, log *zap.Logger) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.User, log))
		r.Use(middleware.Admin(log))

		// Platform settings
		r.Get("/settings", handler.Admin.ListSettings)
		r.Put("/settings/{key}", handler.Admin.UpdateSetting)

		// Audit trail
		r.Get("/audit/{entityType}/{entityID}", handler.Admin.GetAuditTrail)

		// Disputes
		r.Get("/contestations", handler.Admin.ListOpenContestations)
		r.Post("/contestations/{id}/resolve", handler.Admin.ResolveContestation)

		// Guide verification
		r.Get("/verifications", handler.Admin.ListPendingVerifications)
		r.Put("/verifications/{userID}", handler.Admin.ReviewVerification)

		// Payout controls
		r.Post("/payouts/{id}/block", handler.Admin.BlockPayout)
		r.Post("/payouts/{id}/unblock", handler.Admin.UnblockPayout)
		r.Post("/payouts/{id}/retry", handler.Admin.RetryPayout)
	})
}
