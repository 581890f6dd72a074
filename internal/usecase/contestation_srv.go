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
	"trekko-booking/internal/queue"
	"trekko-booking/pkg/gateway"
	"trekko-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContestationService interface {
	Open(ctx context.Context, userID uuid.UUID, req *request.OpenContestationRequest) (*response.ContestationResponse, error)
	Respond(ctx context.Context, guideID uuid.UUID, contestationID string, req *request.GuideResponseRequest) (*response.ContestationResponse, error)
	Resolve(ctx context.Context, adminID uuid.UUID, contestationID string, req *request.ResolveContestationRequest) (*response.ContestationResponse, error)
	GetGuideContestations(ctx context.Context, guideID uuid.UUID, req *request.PaginatedRequest) ([]response.ContestationResponse, error)
	ListOpen(ctx context.Context, req *request.PaginatedRequest) ([]response.ContestationResponse, error)
}

type contestationService struct {
	repo      *repository.Repository
	gateway   gateway.Gateway
	publisher *queue.Publisher
	settings  *settingsReader
	log       *zap.Logger
}

func NewContestationService(repo *repository.Repository, gw gateway.Gateway, publisher *queue.Publisher, cfg utils.PaymentsConfig, log *zap.Logger) ContestationService {
	return &contestationService{
		repo:      repo,
		gateway:   gw,
		publisher: publisher,
		settings:  newSettingsReader(repo, cfg, log),
		log:       log.With(zap.String("service", "contestation")),
	}
}

// Open files a dispute while the contestation window is still running. The
// reservation moves to in_dispute and any scheduled payout is blocked until
// an admin resolves the case.
func (s *contestationService) Open(ctx context.Context, userID uuid.UUID, req *request.OpenContestationRequest) (*response.ContestationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Open contestation validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("invalid reservation ID format %s: %w", req.ReservationID, err)
	}

	reservation, err := s.repo.Reservation.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, fmt.Errorf("reservation %s: %w", req.ReservationID, ErrNotFound)
	}
	if reservation.UserID != userID {
		return nil, fmt.Errorf("reservation %s: %w", req.ReservationID, ErrForbidden)
	}
	if reservation.Status != entity.ReservationStatusAwaitingContestation {
		return nil, fmt.Errorf("reservation %s is %s: %w", req.ReservationID, reservation.Status, ErrInvalidState)
	}

	now := time.Now()
	if reservation.ContestationEndsAt == nil || now.After(*reservation.ContestationEndsAt) {
		return nil, fmt.Errorf("reservation %s: %w", req.ReservationID, ErrWindowExpired)
	}

	if existing, err := s.repo.Contestation.FindOpenByReservationID(ctx, reservationID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("reservation %s already has an open contestation: %w", req.ReservationID, ErrInvalidState)
	}

	expedition, err := s.repo.Expedition.FindByID(ctx, reservation.ExpeditionID)
	if err != nil {
		return nil, err
	}
	if expedition == nil {
		return nil, fmt.Errorf("expedition %s: %w", reservation.ExpeditionID.String(), ErrNotFound)
	}

	contestation := &entity.Contestation{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ReservationID: reservationID,
		UserID:        userID,
		GuideID:       expedition.GuideID,
		Status:        entity.ContestationStatusOpen,
		Reason:        entity.ContestationReason(req.Reason),
		Description:   req.Description,
		EvidenceURLs:  req.EvidenceURLs,
	}

	if err := s.repo.Contestation.Create(ctx, contestation); err != nil {
		return nil, err
	}

	err = s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
		ReservationID: reservationID,
		From:          entity.ReservationStatusAwaitingContestation,
		To:            entity.ReservationStatusInDispute,
		Action:        "contestation_opened",
		ActorID:       &userID,
		ActorType:     entity.ActorUser,
	})
	if errors.Is(err, repository.ErrStaleTransition) {
		return nil, fmt.Errorf("reservation %s changed concurrently: %w", req.ReservationID, ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}

	s.blockPayout(ctx, reservationID, "contestation opened")

	resp := response.ContestationToResponse(contestation)
	return &resp, nil
}

func (s *contestationService) Respond(ctx context.Context, guideID uuid.UUID, contestationID string, req *request.GuideResponseRequest) (*response.ContestationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	contestation, err := s.findContestation(ctx, contestationID)
	if err != nil {
		return nil, err
	}
	if contestation.GuideID != guideID {
		return nil, fmt.Errorf("contestation %s: %w", contestationID, ErrForbidden)
	}
	if contestation.Status != entity.ContestationStatusOpen {
		return nil, fmt.Errorf("contestation %s is %s: %w", contestationID, contestation.Status, ErrInvalidState)
	}

	now := time.Now()
	err = s.repo.Contestation.SetGuideResponse(ctx, contestation.ID, req.Response, req.EvidenceURLs, now)
	if errors.Is(err, repository.ErrStaleTransition) {
		return nil, fmt.Errorf("contestation %s changed concurrently: %w", contestationID, ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}

	contestation.Status = entity.ContestationStatusUnderReview
	contestation.GuideResponse = &req.Response
	contestation.GuideResponseAt = &now
	contestation.GuideEvidenceURLs = req.EvidenceURLs

	resp := response.ContestationToResponse(contestation)
	return &resp, nil
}

// Resolve closes a dispute. A win for the user refunds the payment and leaves
// the payout blocked for good; a win for the guide releases the reservation
// and makes the payout immediately due.
func (s *contestationService) Resolve(ctx context.Context, adminID uuid.UUID, contestationID string, req *request.ResolveContestationRequest) (*response.ContestationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	contestation, err := s.findContestation(ctx, contestationID)
	if err != nil {
		return nil, err
	}
	if !contestation.Open() {
		return nil, fmt.Errorf("contestation %s is %s: %w", contestationID, contestation.Status, ErrInvalidState)
	}

	reservation, err := s.repo.Reservation.FindByID(ctx, contestation.ReservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, fmt.Errorf("reservation %s: %w", contestation.ReservationID.String(), ErrNotFound)
	}
	if reservation.Status != entity.ReservationStatusInDispute {
		return nil, fmt.Errorf("reservation %s is %s: %w", reservation.ID.String(), reservation.Status, ErrInvalidState)
	}

	outcome := entity.ContestationStatus(req.Outcome)
	var refundAmount *int64

	switch outcome {
	case entity.ContestationStatusResolvedUser:
		amount := reservation.TotalAmount
		if req.RefundAmount != nil && *req.RefundAmount <= reservation.TotalAmount {
			amount = *req.RefundAmount
		}
		refundAmount = &amount

		if err := s.resolveForUser(ctx, reservation, adminID, amount); err != nil {
			return nil, err
		}
	case entity.ContestationStatusResolvedGuide:
		if err := s.resolveForGuide(ctx, reservation, adminID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("outcome %s: %w", req.Outcome, ErrInvalidState)
	}

	err = s.repo.Contestation.Resolve(ctx, contestation.ID, outcome, req.Resolution, adminID, refundAmount)
	if errors.Is(err, repository.ErrStaleTransition) {
		return nil, fmt.Errorf("contestation %s changed concurrently: %w", contestationID, ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("Contestation resolved",
		zap.String("contestation_id", contestation.ID.String()),
		zap.String("outcome", string(outcome)),
		zap.String("admin_id", adminID.String()),
	)

	now := time.Now()
	contestation.Status = outcome
	contestation.Resolution = &req.Resolution
	contestation.ResolvedBy = &adminID
	contestation.ResolvedAt = &now
	contestation.RefundAmount = refundAmount

	resp := response.ContestationToResponse(contestation)
	return &resp, nil
}

func (s *contestationService) resolveForUser(ctx context.Context, reservation *entity.Reservation, adminID uuid.UUID, amount int64) error {
	if reservation.MPPaymentID == nil {
		return fmt.Errorf("reservation %s has no payment to refund", reservation.ID.String())
	}

	refundAll := amount >= reservation.TotalAmount
	requested := amount
	if refundAll {
		requested = 0 // full refund
	}
	mpRefund, err := s.gateway.CreateRefund(ctx, *reservation.MPPaymentID, requested)
	if err != nil {
		return fmt.Errorf("refund reservation %s: %w", reservation.ID.String(), err)
	}

	now := time.Now()
	err = s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
		ReservationID: reservation.ID,
		From:          entity.ReservationStatusInDispute,
		To:            entity.ReservationStatusRefunded,
		Set: entity.ReservationUpdate{
			MPRefundID:   &mpRefund.ID,
			RefundedAt:   &now,
			RefundAmount: &amount,
		},
		Action:    "contestation_resolved_user",
		ActorID:   &adminID,
		ActorType: entity.ActorAdmin,
	})
	if err != nil {
		return err
	}

	// The guide never gets paid for a refunded reservation.
	s.blockPayout(ctx, reservation.ID, "contestation resolved for user")
	return nil
}

func (s *contestationService) resolveForGuide(ctx context.Context, reservation *entity.Reservation, adminID uuid.UUID) error {
	err := s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
		ReservationID: reservation.ID,
		From:          entity.ReservationStatusInDispute,
		To:            entity.ReservationStatusReleased,
		Action:        "contestation_resolved_guide",
		ActorID:       &adminID,
		ActorType:     entity.ActorAdmin,
	})
	if err != nil {
		return err
	}

	payout, err := s.repo.Payout.FindCurrentByReservationID(ctx, reservation.ID)
	if err != nil {
		return err
	}
	if payout == nil {
		// No live payout to revive, e.g. the original one failed out. The
		// guide won, so a fresh one is scheduled from the approved payment.
		return schedulePayoutForReservation(ctx, s.repo, s.publisher, s.settings, s.log, reservation, time.Now())
	}
	if payout.Status == entity.PayoutStatusBlocked {
		if err := s.repo.Payout.Unblock(ctx, payout.ID, time.Now()); err != nil {
			s.log.Error("Failed to unblock payout after resolution",
				zap.Error(err),
				zap.String("payout_id", payout.ID.String()),
			)
		}
	}

	return nil
}

func (s *contestationService) GetGuideContestations(ctx context.Context, guideID uuid.UUID, req *request.PaginatedRequest) ([]response.ContestationResponse, error) {
	contestations, err := s.repo.Contestation.FindByGuideID(ctx, guideID, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}
	return response.ContestationsToResponse(contestations), nil
}

func (s *contestationService) ListOpen(ctx context.Context, req *request.PaginatedRequest) ([]response.ContestationResponse, error) {
	contestations, err := s.repo.Contestation.ListUnresolved(ctx, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}
	return response.ContestationsToResponse(contestations), nil
}

func (s *contestationService) findContestation(ctx context.Context, contestationID string) (*entity.Contestation, error) {
	id, err := uuid.Parse(contestationID)
	if err != nil {
		return nil, fmt.Errorf("invalid contestation ID format %s: %w", contestationID, err)
	}

	contestation, err := s.repo.Contestation.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contestation == nil {
		return nil, fmt.Errorf("contestation %s: %w", contestationID, ErrNotFound)
	}

	return contestation, nil
}

func (s *contestationService) blockPayout(ctx context.Context, reservationID uuid.UUID, reason string) {
	payout, err := s.repo.Payout.FindCurrentByReservationID(ctx, reservationID)
	if err != nil || payout == nil {
		return
	}
	if payout.Status != entity.PayoutStatusScheduled && payout.Status != entity.PayoutStatusProcessing {
		return
	}

	if err := s.repo.Payout.Block(ctx, payout.ID, reason); err != nil {
		s.log.Error("Failed to block payout",
			zap.Error(err),
			zap.String("payout_id", payout.ID.String()),
		)
	}
}
