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

type ContestationHandler struct {
	service usecase.ContestationService
	log     *zap.Logger
}

func NewContestationHandler(service usecase.ContestationService, log *zap.Logger) *ContestationHandler {
	return &ContestationHandler{
		service: service,
		log:     log.With(zap.String("handler", "contestation")),
	}
}

// Open handles POST /api/contestations (protected)
func (h *ContestationHandler) Open(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.OpenContestationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	contestation, err := h.service.Open(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "open contestation")
		return
	}

	utils.ResponseCreated(w, "success", contestation)
}

// Respond handles POST /api/guide/contestations/{id}/respond (guide only)
func (h *ContestationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	contestationID := chi.URLParam(r, "id")
	if contestationID == "" {
		utils.ResponseBadRequest(w, "Contestation ID is required", nil)
		return
	}

	var req request.GuideResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	contestation, err := h.service.Respond(r.Context(), guideID, contestationID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "respond to contestation")
		return
	}

	utils.ResponseSuccess(w, "success", contestation)
}

// GetGuideContestations handles GET /api/guide/contestations (guide only)
func (h *ContestationHandler) GetGuideContestations(w http.ResponseWriter, r *http.Request) {
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

	contestations, err := h.service.GetGuideContestations(r.Context(), guideID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "get guide contestations")
		return
	}

	utils.ResponseSuccess(w, "success", contestations)
}
