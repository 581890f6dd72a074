package adaptor

import (
	"encoding/json"
	"net/http"

	"trekko-booking/internal/dto/request"
	"trekko-booking/internal/usecase"
	"trekko-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GuideHandler serves the guide-facing surface: expeditions, completion and
// the money side of things.
type GuideHandler struct {
	expeditions usecase.ExpeditionService
	payouts     usecase.PayoutService
	log         *zap.Logger
}

func NewGuideHandler(expeditions usecase.ExpeditionService, payouts usecase.PayoutService, log *zap.Logger) *GuideHandler {
	return &GuideHandler{
		expeditions: expeditions,
		payouts:     payouts,
		log:         log.With(zap.String("handler", "guide")),
	}
}

// CreateExpedition handles POST /api/guide/expeditions (guide only)
func (h *GuideHandler) CreateExpedition(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateExpeditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	expedition, err := h.expeditions.CreateExpedition(r.Context(), guideID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create expedition")
		return
	}

	utils.ResponseCreated(w, "success", expedition)
}

// GetExpeditions handles GET /api/guide/expeditions (guide only)
func (h *GuideHandler) GetExpeditions(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	expeditions, err := h.expeditions.GetGuideExpeditions(r.Context(), guideID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "get guide expeditions")
		return
	}

	utils.ResponseSuccess(w, "success", expeditions)
}

// GetExpeditionReservations handles GET /api/guide/expeditions/{id}/reservations (guide only)
func (h *GuideHandler) GetExpeditionReservations(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	expeditionID := chi.URLParam(r, "id")
	if expeditionID == "" {
		utils.ResponseBadRequest(w, "Expedition ID is required", nil)
		return
	}

	reservations, err := h.expeditions.GetExpeditionReservations(r.Context(), guideID, expeditionID)
	if err != nil {
		handleServiceError(w, h.log, err, "get expedition reservations")
		return
	}

	utils.ResponseSuccess(w, "success", reservations)
}

// CompleteExpedition handles POST /api/guide/expeditions/{id}/complete (guide only)
func (h *GuideHandler) CompleteExpedition(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	expeditionID := chi.URLParam(r, "id")
	if expeditionID == "" {
		utils.ResponseBadRequest(w, "Expedition ID is required", nil)
		return
	}

	result, err := h.expeditions.CompleteExpedition(r.Context(), guideID, expeditionID)
	if err != nil {
		handleServiceError(w, h.log, err, "complete expedition")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// GetPayouts handles GET /api/guide/payouts (guide only)
func (h *GuideHandler) GetPayouts(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	payouts, err := h.payouts.GetGuidePayouts(r.Context(), guideID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "get guide payouts")
		return
	}

	utils.ResponseSuccess(w, "success", payouts)
}

// GetFinancialSummary handles GET /api/guide/financial-summary (guide only)
func (h *GuideHandler) GetFinancialSummary(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	summary, err := h.expeditions.GetFinancialSummary(r.Context(), guideID)
	if err != nil {
		handleServiceError(w, h.log, err, "get financial summary")
		return
	}

	utils.ResponseSuccess(w, "success", summary)
}
