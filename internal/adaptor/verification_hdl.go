package adaptor

import (
	"encoding/json"
	"io"
	"net/http"

	"trekko-booking/internal/dto/request"
	"trekko-booking/internal/usecase"
	"trekko-booking/pkg/utils"

	"go.uber.org/zap"
)

// Upload size cap for verification documents.
const maxDocumentSize = 10 << 20 // 10 MB

type VerificationHandler struct {
	service usecase.VerificationService
	log     *zap.Logger
}

func NewVerificationHandler(service usecase.VerificationService, log *zap.Logger) *VerificationHandler {
	return &VerificationHandler{
		service: service,
		log:     log.With(zap.String("handler", "verification")),
	}
}

// Submit handles POST /api/guide/verification (guide only)
func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.SubmitVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	verification, err := h.service.Submit(r.Context(), guideID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "submit verification")
		return
	}

	utils.ResponseCreated(w, "success", verification)
}

// UploadDocument handles POST /api/guide/verification/documents (guide only).
// Multipart form with a "file" part and a "kind" field of document or
// bank_proof.
func (h *VerificationHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		utils.ResponseBadRequest(w, "Invalid multipart form", nil)
		return
	}

	kind := r.FormValue("kind")
	if kind == "" {
		kind = "document"
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		utils.ResponseBadRequest(w, "File is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxDocumentSize))
	if err != nil {
		h.log.Error("Failed to read uploaded file", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	url, err := h.service.UploadDocument(r.Context(), guideID, kind, data)
	if err != nil {
		handleServiceError(w, h.log, err, "upload verification document")
		return
	}

	utils.ResponseCreated(w, "success", map[string]string{"url": url})
}

// GetOwn handles GET /api/guide/verification (guide only)
func (h *VerificationHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	guideID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	verification, err := h.service.GetOwn(r.Context(), guideID)
	if err != nil {
		handleServiceError(w, h.log, err, "get verification")
		return
	}

	utils.ResponseSuccess(w, "success", verification)
}
