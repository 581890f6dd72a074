package usecase

import (
	"trekko-booking/internal/data/repository"
	"trekko-booking/internal/queue"
	"trekko-booking/pkg/gateway"
	"trekko-booking/pkg/storage"
	"trekko-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Checkout     CheckoutService
	Webhook      WebhookService
	Reservation  ReservationService
	Expedition   ExpeditionService
	Contestation ContestationService
	Payout       PayoutService
	Verification VerificationService
	Admin        AdminService
}

func NewService(repo *repository.Repository, gw gateway.Gateway, publisher *queue.Publisher, store storage.Store, config *utils.Config, log *zap.Logger) *Service {
	return &Service{
		Checkout:     NewCheckoutService(repo, gw, config.Payments, log),
		Webhook:      NewWebhookService(repo, gw, publisher, config.Payments, log),
		Reservation:  NewReservationService(repo, gw, log),
		Expedition:   NewExpeditionService(repo, log),
		Contestation: NewContestationService(repo, gw, publisher, config.Payments, log),
		Payout:       NewPayoutService(repo, gw, publisher, config.Payments, log),
		Verification: NewVerificationService(repo, store, log),
		Admin:        NewAdminService(repo, log),
	}
}
