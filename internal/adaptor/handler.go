package adaptor

import (
	"errors"
	"net/http"
	"strings"

	"trekko-booking/internal/usecase"
	"trekko-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Reservation  *ReservationHandler
	Webhook      *WebhookHandler
	Guide        *GuideHandler
	Contestation *ContestationHandler
	Verification *VerificationHandler
	Admin        *AdminHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Reservation:  NewReservationHandler(service.Checkout, service.Reservation, log),
		Webhook:      NewWebhookHandler(service.Webhook, log),
		Guide:        NewGuideHandler(service.Expedition, service.Payout, log),
		Contestation: NewContestationHandler(service.Contestation, log),
		Verification: NewVerificationHandler(service.Verification, log),
		Admin:        NewAdminHandler(service.Admin, service.Contestation, service.Verification, log),
	}
}

// handleServiceError maps usecase errors to HTTP responses. Every handler
// funnels its service errors through here.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var capErr *usecase.CapacityError

	switch {
	case errors.As(err, &capErr):
		log.Warn(operation+" failed - capacity exceeded",
			zap.Error(err),
			zap.Int("available", capErr.Available))
		utils.ResponseConflict(w, capErr.Error())

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrInvalidState),
		errors.Is(err, usecase.ErrWindowExpired),
		errors.Is(err, usecase.ErrNotBookable):
		log.Warn(operation+" failed - invalid state", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrMalformedNotification):
		log.Warn(operation+" failed - malformed payload", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case strings.Contains(err.Error(), "validation failed"),
		strings.Contains(err.Error(), "invalid"):
		log.Warn(operation+" failed - bad input", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
