package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/internal/data/repository"
	"trekko-booking/internal/dto/request"
	"trekko-booking/internal/dto/response"
	"trekko-booking/pkg/storage"
	"trekko-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VerificationService interface {
	Submit(ctx context.Context, guideID uuid.UUID, req *request.SubmitVerificationRequest) (*response.VerificationResponse, error)
	UploadDocument(ctx context.Context, guideID uuid.UUID, kind string, data []byte) (string, error)
	GetOwn(ctx context.Context, guideID uuid.UUID) (*response.VerificationResponse, error)
	ListPending(ctx context.Context, req *request.PaginatedRequest) ([]response.VerificationResponse, error)
	Review(ctx context.Context, adminID uuid.UUID, userID string, req *request.ReviewVerificationRequest) error
}

type verificationService struct {
	repo  *repository.Repository
	store storage.Store
	log   *zap.Logger
}

func NewVerificationService(repo *repository.Repository, store storage.Store, log *zap.Logger) VerificationService {
	return &verificationService{
		repo:  repo,
		store: store,
		log:   log.With(zap.String("service", "verification")),
	}
}

// Submit files or resubmits the KYC record. All three term acceptances are
// required before a guide can ever receive a transfer.
func (s *verificationService) Submit(ctx context.Context, guideID uuid.UUID, req *request.SubmitVerificationRequest) (*response.VerificationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Verification validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	if !req.AcceptedIntermediationTerms || !req.AcceptedPayoutTerms || !req.AcceptedContestationPolicy {
		return nil, fmt.Errorf("all terms must be accepted")
	}

	existing, err := s.repo.GuideVerification.FindByUserID(ctx, guideID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == entity.VerificationStatusApproved {
		return nil, fmt.Errorf("verification already approved: %w", ErrInvalidState)
	}

	now := time.Now()
	verification := &entity.GuideVerification{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:           guideID,
		Status:           entity.VerificationStatusPending,
		DocumentType:     req.DocumentType,
		DocumentNumber:   req.DocumentNumber,
		PixKeyType:       entity.PixKeyType(req.PixKeyType),
		PixKey:           req.PixKey,
		PixKeyHolderName: req.PixKeyHolderName,
		PixKeyDocument:   req.PixKeyDocument,

		AcceptedIntermediationTerms: req.AcceptedIntermediationTerms,
		AcceptedPayoutTerms:         req.AcceptedPayoutTerms,
		AcceptedContestationPolicy:  req.AcceptedContestationPolicy,
		TermsAcceptedAt:             &now,
	}

	if err := s.repo.GuideVerification.Upsert(ctx, verification); err != nil {
		return nil, err
	}

	s.log.Info("Verification submitted",
		zap.String("guide_id", guideID.String()),
		zap.String("document_type", req.DocumentType),
	)

	resp := response.VerificationToResponse(verification)
	return &resp, nil
}

// UploadDocument stores an identity document or bank proof and attaches its
// URL to the verification record.
func (s *verificationService) UploadDocument(ctx context.Context, guideID uuid.UUID, kind string, data []byte) (string, error) {
	if kind != "document" && kind != "bank_proof" {
		return "", fmt.Errorf("document kind %s: %w", kind, ErrNotFound)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty document upload")
	}

	verification, err := s.repo.GuideVerification.FindByUserID(ctx, guideID)
	if err != nil {
		return "", err
	}
	if verification == nil {
		return "", fmt.Errorf("verification for guide %s: %w", guideID.String(), ErrNotFound)
	}

	key := fmt.Sprintf("%s_%s_%d", guideID.String(), kind, time.Now().UnixMilli())
	url, err := s.store.Put(ctx, key, data)
	if err != nil {
		return "", err
	}

	var documentURL, bankProofURL *string
	if kind == "document" {
		documentURL = &url
	} else {
		bankProofURL = &url
	}
	if err := s.repo.GuideVerification.SetDocumentURLs(ctx, guideID, documentURL, bankProofURL); err != nil {
		return "", err
	}

	return url, nil
}

func (s *verificationService) GetOwn(ctx context.Context, guideID uuid.UUID) (*response.VerificationResponse, error) {
	verification, err := s.repo.GuideVerification.FindByUserID(ctx, guideID)
	if err != nil {
		return nil, err
	}
	if verification == nil {
		return nil, fmt.Errorf("verification for guide %s: %w", guideID.String(), ErrNotFound)
	}

	resp := response.VerificationToResponse(verification)
	return &resp, nil
}

func (s *verificationService) ListPending(ctx context.Context, req *request.PaginatedRequest) ([]response.VerificationResponse, error) {
	verifications, err := s.repo.GuideVerification.ListByStatus(ctx, entity.VerificationStatusPending, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}
	return response.VerificationsToResponse(verifications), nil
}

func (s *verificationService) Review(ctx context.Context, adminID uuid.UUID, userID string, req *request.ReviewVerificationRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	guideID, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	status := entity.VerificationStatus(req.Status)
	if status == entity.VerificationStatusRejected && req.RejectionReason == nil {
		return fmt.Errorf("rejection requires a reason")
	}

	err = s.repo.GuideVerification.Review(ctx, guideID, status, adminID, req.RejectionReason, req.Notes)
	if errors.Is(err, repository.ErrStaleTransition) {
		return fmt.Errorf("verification for user %s is not pending: %w", userID, ErrInvalidState)
	}
	if err != nil {
		return err
	}

	return s.repo.AuditLog.Create(ctx, &entity.AuditLogEntry{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		EntityType: entity.AuditEntityGuideVerification,
		EntityID:   guideID,
		Action:     "verification_reviewed",
		NewValue:   &req.Status,
		ActorID:    &adminID,
		ActorType:  entity.ActorAdmin,
	})
}
