package wire

import (
	"trekko-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireWebhook(r chi.Router, handler *adaptor.Handler) {
	// POST /api/webhooks/mercadopago - Payment notifications (public; the
	// processor re-fetches every payment from the API, so the payload is
	// never trusted)
	r.Post("/api/webhooks/mercadopago", handler.Webhook.MercadoPago)
}
