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
	"trekko-booking/pkg/pricing"
	"trekko-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Contestation window length, counted in business days after completion.
const contestationWindowBusinessDays = 2

type ExpeditionService interface {
	CreateExpedition(ctx context.Context, guideID uuid.UUID, req *request.CreateExpeditionRequest) (*response.ExpeditionResponse, error)
	GetGuideExpeditions(ctx context.Context, guideID uuid.UUID, req *request.PaginatedRequest) ([]response.ExpeditionResponse, error)
	GetExpeditionReservations(ctx context.Context, guideID uuid.UUID, expeditionID string) ([]response.ReservationResponse, error)
	CompleteExpedition(ctx context.Context, guideID uuid.UUID, expeditionID string) (*response.CompletionResponse, error)
	GetFinancialSummary(ctx context.Context, guideID uuid.UUID) (*response.GuideFinancialSummary, error)
}

type expeditionService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewExpeditionService(repo *repository.Repository, log *zap.Logger) ExpeditionService {
	return &expeditionService{
		repo: repo,
		log:  log.With(zap.String("service", "expedition")),
	}
}

func (s *expeditionService) CreateExpedition(ctx context.Context, guideID uuid.UUID, req *request.CreateExpeditionRequest) (*response.ExpeditionResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create expedition validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	trailID, err := uuid.Parse(req.TrailID)
	if err != nil {
		return nil, fmt.Errorf("invalid trail ID format %s: %w", req.TrailID, err)
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %s: %w", req.StartDate, err)
	}
	if !startDate.After(time.Now()) {
		return nil, fmt.Errorf("start date must be in the future")
	}

	now := time.Now()
	expedition := &entity.Expedition{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		GuideID:   guideID,
		TrailID:   trailID,
		Title:     req.Title,
		StartDate: startDate,
		Capacity:  req.Capacity,
		Price:     req.Price,
		Status:    entity.ExpeditionStatusActive,
	}

	if err := s.repo.Expedition.Create(ctx, expedition); err != nil {
		return nil, err
	}

	s.log.Info("Expedition created",
		zap.String("expedition_id", expedition.ID.String()),
		zap.String("guide_id", guideID.String()),
		zap.Int("capacity", req.Capacity),
		zap.Int64("price", req.Price),
	)

	resp := response.ExpeditionToResponse(expedition)
	return &resp, nil
}

func (s *expeditionService) GetGuideExpeditions(ctx context.Context, guideID uuid.UUID, req *request.PaginatedRequest) ([]response.ExpeditionResponse, error) {
	expeditions, err := s.repo.Expedition.FindByGuideID(ctx, guideID, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}
	return response.ExpeditionsToResponse(expeditions), nil
}

func (s *expeditionService) GetExpeditionReservations(ctx context.Context, guideID uuid.UUID, expeditionID string) ([]response.ReservationResponse, error) {
	expedition, err := s.ownedExpedition(ctx, guideID, expeditionID)
	if err != nil {
		return nil, err
	}

	reservations, err := s.repo.Reservation.FindByExpeditionID(ctx, expedition.ID)
	if err != nil {
		return nil, err
	}
	return response.ReservationsToResponse(reservations), nil
}

// CompleteExpedition marks the trip done and opens the contestation window.
// Every paid reservation moves to awaiting_contestation in one guarded batch;
// the window closes after two business days, weekends excluded.
func (s *expeditionService) CompleteExpedition(ctx context.Context, guideID uuid.UUID, expeditionID string) (*response.CompletionResponse, error) {
	expedition, err := s.ownedExpedition(ctx, guideID, expeditionID)
	if err != nil {
		return nil, err
	}

	if expedition.Status != entity.ExpeditionStatusActive && expedition.Status != entity.ExpeditionStatusFull {
		return nil, fmt.Errorf("expedition %s is %s: %w", expeditionID, expedition.Status, ErrInvalidState)
	}

	now := time.Now()
	windowEnd := pricing.AddBusinessDays(now, contestationWindowBusinessDays)

	err = s.repo.Expedition.MarkCompleted(ctx, expedition.ID, now, windowEnd)
	if errors.Is(err, repository.ErrStaleTransition) {
		return nil, fmt.Errorf("expedition %s changed concurrently: %w", expeditionID, ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}

	moved, err := s.repo.Reservation.TransitionAllPaidByExpedition(ctx, expedition.ID,
		entity.ReservationStatusAwaitingContestation,
		entity.ReservationUpdate{
			ExpeditionCompletedAt: &now,
			ContestationEndsAt:    &windowEnd,
		},
		"expedition_completed",
		&guideID,
		entity.ActorGuide,
	)
	if err != nil {
		return nil, err
	}

	s.log.Info("Expedition completed",
		zap.String("expedition_id", expedition.ID.String()),
		zap.String("guide_id", guideID.String()),
		zap.Int("reservations_moved", moved),
		zap.Time("contestation_end", windowEnd),
	)

	expedition.Status = entity.ExpeditionStatusCompleted
	expedition.CompletedAt = &now
	expedition.ContestationEndDate = &windowEnd

	return &response.CompletionResponse{
		Expedition:          response.ExpeditionToResponse(expedition),
		ReservationsMoved:   moved,
		ContestationEndDate: windowEnd,
	}, nil
}

func (s *expeditionService) GetFinancialSummary(ctx context.Context, guideID uuid.UUID) (*response.GuideFinancialSummary, error) {
	payouts, err := s.repo.Payout.FindByGuideID(ctx, guideID, 1000, 0)
	if err != nil {
		return nil, err
	}

	summary := &response.GuideFinancialSummary{}
	for _, p := range payouts {
		switch p.Status {
		case entity.PayoutStatusScheduled:
			summary.ScheduledPayouts += p.NetAmount
		case entity.PayoutStatusProcessing, entity.PayoutStatusSent:
			summary.PendingRelease += p.NetAmount
		case entity.PayoutStatusCompleted:
			summary.CompletedPayouts += p.NetAmount
		case entity.PayoutStatusBlocked:
			summary.BlockedPayouts += p.NetAmount
		}
		if p.Status != entity.PayoutStatusFailed && p.Status != entity.PayoutStatusBlocked {
			summary.TotalEarned += p.NetAmount
		}
	}

	return summary, nil
}

func (s *expeditionService) ownedExpedition(ctx context.Context, guideID uuid.UUID, expeditionID string) (*entity.Expedition, error) {
	id, err := uuid.Parse(expeditionID)
	if err != nil {
		return nil, fmt.Errorf("invalid expedition ID format %s: %w", expeditionID, err)
	}

	expedition, err := s.repo.Expedition.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expedition == nil {
		return nil, fmt.Errorf("expedition %s: %w", expeditionID, ErrNotFound)
	}
	if expedition.GuideID != guideID {
		return nil, fmt.Errorf("expedition %s: %w", expeditionID, ErrForbidden)
	}

	return expedition, nil
}
