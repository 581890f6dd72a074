package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"trekko-booking/internal/dto/request"
	"trekko-booking/internal/usecase"
	"trekko-booking/pkg/utils"

	"go.uber.org/zap"
)

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// MercadoPago handles POST /api/webhooks/mercadopago (public).
//
// The response code decides whether the gateway retries: 200 acknowledges the
// notification even when it was ignored, 400 drops malformed payloads for
// good, and 500 asks for a retry.
func (h *WebhookHandler) MercadoPago(w http.ResponseWriter, r *http.Request) {
	var req request.WebhookNotification
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Webhook body is not JSON", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	err := h.service.HandleNotification(r.Context(), &req)
	switch {
	case err == nil:
		utils.ResponseSuccess(w, "success", nil)
	case errors.Is(err, usecase.ErrMalformedNotification):
		h.log.Warn("Malformed webhook notification", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)
	case errors.Is(err, usecase.ErrNotFound):
		h.log.Warn("Webhook for unknown resource", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())
	default:
		h.log.Error("Failed to process webhook", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
