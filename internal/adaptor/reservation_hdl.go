package adaptor

import (
	"encoding/json"
	"net/http"

	"trekko-booking/internal/data/entity"
	"trekko-booking/internal/dto/request"
	"trekko-booking/internal/usecase"
	"trekko-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	checkout usecase.CheckoutService
	service  usecase.ReservationService
	log      *zap.Logger
}

func NewReservationHandler(checkout usecase.CheckoutService, service usecase.ReservationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		checkout: checkout,
		service:  service,
		log:      log.With(zap.String("handler", "reservation")),
	}
}

// Checkout handles POST /api/checkout (protected)
func (h *ReservationHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.checkout.Checkout(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "checkout")
		return
	}

	utils.ResponseCreated(w, "success", result)
}

// GetUserReservations handles GET /api/reservations (protected)
func (h *ReservationHandler) GetUserReservations(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	reservations, err := h.service.GetUserReservations(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "get user reservations")
		return
	}

	utils.ResponseSuccess(w, "success", reservations)
}

// GetReservation handles GET /api/reservations/{id} (protected)
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	reservationID := chi.URLParam(r, "id")
	if reservationID == "" {
		utils.ResponseBadRequest(w, "Reservation ID is required", nil)
		return
	}

	role, _ := utils.GetRoleFromContext(r.Context())

	reservation, err := h.service.GetReservation(r.Context(), userID, entity.UserRole(role), reservationID)
	if err != nil {
		handleServiceError(w, h.log, err, "get reservation")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// Cancel handles POST /api/reservations/{id}/cancel (protected)
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	reservationID := chi.URLParam(r, "id")
	if reservationID == "" {
		utils.ResponseBadRequest(w, "Reservation ID is required", nil)
		return
	}

	// Cancellation reason is optional, so an empty body is accepted.
	var req request.CancelReservationRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.service.Cancel(r.Context(), userID, reservationID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "cancel reservation")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
