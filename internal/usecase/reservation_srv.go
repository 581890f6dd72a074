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
	"trekko-booking/pkg/gateway"
	"trekko-booking/pkg/pricing"
	"trekko-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationService interface {
	GetUserReservations(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error)
	GetReservation(ctx context.Context, userID uuid.UUID, role entity.UserRole, reservationID string) (*response.ReservationResponse, error)
	Cancel(ctx context.Context, userID uuid.UUID, reservationID string, req *request.CancelReservationRequest) (*response.CancellationResponse, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

type reservationService struct {
	repo    *repository.Repository
	gateway gateway.Gateway
	log     *zap.Logger
}

func NewReservationService(repo *repository.Repository, gw gateway.Gateway, log *zap.Logger) ReservationService {
	return &reservationService{
		repo:    repo,
		gateway: gw,
		log:     log.With(zap.String("service", "reservation")),
	}
}

func (s *reservationService) GetUserReservations(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error) {
	reservations, err := s.repo.Reservation.FindByUserID(ctx, userID, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Reservation.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return response.NewPaginatedResponse(response.ReservationsToResponse(reservations), req.Page, req.PerPage, total), nil
}

func (s *reservationService) GetReservation(ctx context.Context, userID uuid.UUID, role entity.UserRole, reservationID string) (*response.ReservationResponse, error) {
	id, err := uuid.Parse(reservationID)
	if err != nil {
		return nil, fmt.Errorf("invalid reservation ID format %s: %w", reservationID, err)
	}

	reservation, err := s.repo.Reservation.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
	}

	if reservation.UserID != userID && role != entity.RoleAdmin {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, ErrForbidden)
	}

	resp := response.ReservationToResponse(reservation)
	return &resp, nil
}

// Cancel ends a reservation on the user's request. A pending reservation just
// closes; a paid one is refunded per the default policy bracket for how far
// out the expedition is.
func (s *reservationService) Cancel(ctx context.Context, userID uuid.UUID, reservationID string, req *request.CancelReservationRequest) (*response.CancellationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(reservationID)
	if err != nil {
		return nil, fmt.Errorf("invalid reservation ID format %s: %w", reservationID, err)
	}

	reservation, err := s.repo.Reservation.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
	}
	if reservation.UserID != userID {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, ErrForbidden)
	}

	switch reservation.Status {
	case entity.ReservationStatusPendingPayment:
		return s.cancelPending(ctx, reservation, req.Reason)
	case entity.ReservationStatusPaid, entity.ReservationStatusAwaitingExpedition:
		return s.cancelPaid(ctx, reservation, req.Reason)
	default:
		return nil, fmt.Errorf("reservation %s is %s: %w", reservationID, reservation.Status, ErrInvalidState)
	}
}

func (s *reservationService) cancelPending(ctx context.Context, reservation *entity.Reservation, reason string) (*response.CancellationResponse, error) {
	now := time.Now()
	actor := entity.ActorUser
	update := entity.ReservationUpdate{
		CancelledAt: &now,
		CancelledBy: &actor,
	}
	if reason != "" {
		update.CancellationReason = &reason
	}

	err := s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
		ReservationID: reservation.ID,
		From:          entity.ReservationStatusPendingPayment,
		To:            entity.ReservationStatusCancelled,
		Set:           update,
		Action:        "reservation_cancelled",
		ActorID:       &reservation.UserID,
		ActorType:     entity.ActorUser,
	})
	if err != nil {
		return nil, err
	}

	reservation.Status = entity.ReservationStatusCancelled
	reservation.CancelledAt = &now

	return &response.CancellationResponse{
		Reservation: response.ReservationToResponse(reservation),
	}, nil
}

func (s *reservationService) cancelPaid(ctx context.Context, reservation *entity.Reservation, reason string) (*response.CancellationResponse, error) {
	expedition, err := s.repo.Expedition.FindByID(ctx, reservation.ExpeditionID)
	if err != nil {
		return nil, err
	}
	if expedition == nil {
		return nil, fmt.Errorf("expedition %s: %w", reservation.ExpeditionID.String(), ErrNotFound)
	}

	policy, err := s.repo.Policy.FindDefault(ctx)
	if err != nil {
		return nil, err
	}

	days := pricing.DaysUntil(time.Now(), expedition.StartDate)
	refund := pricing.ComputeRefund(reservation.TotalAmount, days, policyToPricing(policy))

	var refundID *string
	if refund.Amount > 0 {
		if reservation.MPPaymentID == nil {
			return nil, fmt.Errorf("reservation %s has no payment to refund", reservation.ID.String())
		}
		mpRefund, err := s.gateway.CreateRefund(ctx, *reservation.MPPaymentID, refund.Amount)
		if err != nil {
			return nil, fmt.Errorf("refund reservation %s: %w", reservation.ID.String(), err)
		}
		refundID = &mpRefund.ID
	}

	now := time.Now()
	actor := entity.ActorUser
	update := entity.ReservationUpdate{
		CancelledAt:  &now,
		CancelledBy:  &actor,
		MPRefundID:   refundID,
		RefundAmount: &refund.Amount,
	}
	if reason != "" {
		update.CancellationReason = &reason
	}

	// Money back means the reservation ends refunded; only a zero-refund
	// bracket leaves it as a plain cancellation.
	target := entity.ReservationStatusCancelled
	action := "reservation_cancelled"
	if refund.Amount > 0 {
		update.RefundedAt = &now
		target = entity.ReservationStatusRefunded
		action = "reservation_refunded"
	}

	err = s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
		ReservationID: reservation.ID,
		From:          reservation.Status,
		To:            target,
		Set:           update,
		Action:        action,
		ActorID:       &reservation.UserID,
		ActorType:     entity.ActorUser,
	})
	if errors.Is(err, repository.ErrStaleTransition) {
		return nil, fmt.Errorf("reservation %s changed concurrently: %w", reservation.ID.String(), ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Expedition.RecalcEnrollment(ctx, reservation.ExpeditionID); err != nil {
		s.log.Error("Failed to recalculate enrollment after cancellation",
			zap.Error(err),
			zap.String("expedition_id", reservation.ExpeditionID.String()),
		)
	}

	s.log.Info("Paid reservation cancelled",
		zap.String("reservation_id", reservation.ID.String()),
		zap.Int64("refund_amount", refund.Amount),
		zap.Int("refund_percent", refund.Percent),
		zap.Int("days_until_start", days),
	)

	reservation.Status = target
	reservation.CancelledAt = &now
	reservation.RefundAmount = &refund.Amount

	return &response.CancellationResponse{
		Reservation:   response.ReservationToResponse(reservation),
		RefundAmount:  refund.Amount,
		RefundPercent: refund.Percent,
	}, nil
}

// ExpireOverdue closes pending reservations whose checkout window passed.
// Races with a landing payment are resolved by the guarded transition: if the
// webhook wins, the expiry is skipped.
func (s *reservationService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.repo.Reservation.FindExpiredPending(ctx, now, 100)
	if err != nil {
		return 0, err
	}

	reason := "checkout expired"
	actor := entity.ActorSystem
	expired := 0
	for _, reservation := range overdue {
		err := s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
			ReservationID: reservation.ID,
			From:          entity.ReservationStatusPendingPayment,
			To:            entity.ReservationStatusCancelled,
			Set: entity.ReservationUpdate{
				CancelledAt:        &now,
				CancelledBy:        &actor,
				CancellationReason: &reason,
			},
			Action:    "reservation_expired",
			ActorType: entity.ActorSystem,
		})
		if errors.Is(err, repository.ErrStaleTransition) {
			continue
		}
		if err != nil {
			s.log.Error("Failed to expire reservation",
				zap.Error(err),
				zap.String("reservation_id", reservation.ID.String()),
			)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.log.Info("Expired overdue reservations", zap.Int("count", expired))
	}

	return expired, nil
}

func policyToPricing(p *entity.CancellationPolicy) *pricing.Policy {
	if p == nil {
		return nil
	}
	return &pricing.Policy{
		FullRefundDays:       p.FullRefundDays,
		PartialRefundDays:    p.PartialRefundDays,
		PartialRefundPercent: p.PartialRefundPercent,
		NoRefundDays:         p.NoRefundDays,
	}
}
