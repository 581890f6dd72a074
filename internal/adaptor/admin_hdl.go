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

type AdminHandler struct {
	service       usecase.AdminService
	contestations usecase.ContestationService
	verifications usecase.VerificationService
	log           *zap.Logger
}

func NewAdminHandler(service usecase.AdminService, contestations usecase.ContestationService, verifications usecase.VerificationService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service:       service,
		contestations: contestations,
		verifications: verifications,
		log:           log.With(zap.String("handler", "admin")),
	}
}

// ListSettings handles GET /api/admin/settings (admin only)
func (h *AdminHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.ListSettings(r.Context())
	if err != nil {
		handleServiceError(w, h.log, err, "list settings")
		return
	}

	utils.ResponseSuccess(w, "success", settings)
}

// UpdateSetting handles PUT /api/admin/settings/{key} (admin only)
func (h *AdminHandler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	key := chi.URLParam(r, "key")
	if key == "" {
		utils.ResponseBadRequest(w, "Setting key is required", nil)
		return
	}

	var req request.UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.service.UpdateSetting(r.Context(), adminID, key, &req); err != nil {
		handleServiceError(w, h.log, err, "update setting")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// GetAuditTrail handles GET /api/admin/audit/{entityType}/{entityID} (admin only)
func (h *AdminHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")
	if entityType == "" || entityID == "" {
		utils.ResponseBadRequest(w, "Entity type and ID are required", nil)
		return
	}

	entries, err := h.service.GetAuditTrail(r.Context(), entityType, entityID)
	if err != nil {
		handleServiceError(w, h.log, err, "get audit trail")
		return
	}

	utils.ResponseSuccess(w, "success", entries)
}

// ListOpenContestations handles GET /api/admin/contestations (admin only)
func (h *AdminHandler) ListOpenContestations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	contestations, err := h.contestations.ListOpen(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list open contestations")
		return
	}

	utils.ResponseSuccess(w, "success", contestations)
}

// ResolveContestation handles POST /api/admin/contestations/{id}/resolve (admin only)
func (h *AdminHandler) ResolveContestation(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	contestationID := chi.URLParam(r, "id")
	if contestationID == "" {
		utils.ResponseBadRequest(w, "Contestation ID is required", nil)
		return
	}

	var req request.ResolveContestationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	contestation, err := h.contestations.Resolve(r.Context(), adminID, contestationID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "resolve contestation")
		return
	}

	utils.ResponseSuccess(w, "success", contestation)
}

// ListPendingVerifications handles GET /api/admin/verifications (admin only)
func (h *AdminHandler) ListPendingVerifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	verifications, err := h.verifications.ListPending(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list pending verifications")
		return
	}

	utils.ResponseSuccess(w, "success", verifications)
}

// ReviewVerification handles PUT /api/admin/verifications/{userID} (admin only)
func (h *AdminHandler) ReviewVerification(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		utils.ResponseBadRequest(w, "User ID is required", nil)
		return
	}

	var req request.ReviewVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.verifications.Review(r.Context(), adminID, userID, &req); err != nil {
		handleServiceError(w, h.log, err, "review verification")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// BlockPayout handles POST /api/admin/payouts/{id}/block (admin only)
func (h *AdminHandler) BlockPayout(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payoutID := chi.URLParam(r, "id")
	if payoutID == "" {
		utils.ResponseBadRequest(w, "Payout ID is required", nil)
		return
	}

	var req request.BlockPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.service.BlockPayout(r.Context(), adminID, payoutID, &req); err != nil {
		handleServiceError(w, h.log, err, "block payout")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// UnblockPayout handles POST /api/admin/payouts/{id}/unblock (admin only)
func (h *AdminHandler) UnblockPayout(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payoutID := chi.URLParam(r, "id")
	if payoutID == "" {
		utils.ResponseBadRequest(w, "Payout ID is required", nil)
		return
	}

	if err := h.service.UnblockPayout(r.Context(), adminID, payoutID); err != nil {
		handleServiceError(w, h.log, err, "unblock payout")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// RetryPayout handles POST /api/admin/payouts/{id}/retry (admin only)
func (h *AdminHandler) RetryPayout(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payoutID := chi.URLParam(r, "id")
	if payoutID == "" {
		utils.ResponseBadRequest(w, "Payout ID is required", nil)
		return
	}

	if err := h.service.RetryPayout(r.Context(), adminID, payoutID); err != nil {
		handleServiceError(w, h.log, err, "retry payout")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
