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
	"trekko-booking/pkg/pricing"
	"trekko-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// A failed transfer is retried automatically until the attempt cap,
	// after which only an admin retry can revive the payout.
	maxPayoutAttempts  = 3
	payoutRetryBackoff = 30 * time.Minute
)

type PayoutService interface {
	ReleaseExpiredWindows(ctx context.Context, now time.Time) (int, error)
	ProcessDue(ctx context.Context, now time.Time) (int, error)
	ProcessByID(ctx context.Context, payoutID uuid.UUID) error
	GetGuidePayouts(ctx context.Context, guideID uuid.UUID, req *request.PaginatedRequest) ([]response.PayoutResponse, error)
}

type payoutService struct {
	repo      *repository.Repository
	gateway   gateway.Gateway
	publisher *queue.Publisher
	settings  *settingsReader
	log       *zap.Logger
}

func NewPayoutService(repo *repository.Repository, gw gateway.Gateway, publisher *queue.Publisher, cfg utils.PaymentsConfig, log *zap.Logger) PayoutService {
	return &payoutService{
		repo:      repo,
		gateway:   gw,
		publisher: publisher,
		settings:  newSettingsReader(repo, cfg, log),
		log:       log.With(zap.String("service", "payout")),
	}
}

// ReleaseExpiredWindows moves reservations whose contestation window closed
// without a dispute to released and schedules their payouts. Replays are
// harmless: the guarded transition skips rows another worker already moved,
// and a reservation with an active payout is never scheduled twice.
func (s *payoutService) ReleaseExpiredWindows(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.Reservation.FindPastContestationWindow(ctx, now, 100)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, reservation := range due {
		err := s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
			ReservationID: reservation.ID,
			From:          entity.ReservationStatusAwaitingContestation,
			To:            entity.ReservationStatusReleased,
			Set: entity.ReservationUpdate{
				PayoutScheduledAt: &now,
			},
			Action:    "contestation_window_closed",
			ActorType: entity.ActorSystem,
		})
		if errors.Is(err, repository.ErrStaleTransition) {
			continue
		}
		if err != nil {
			s.log.Error("Failed to release reservation",
				zap.Error(err),
				zap.String("reservation_id", reservation.ID.String()),
			)
			continue
		}

		if err := s.scheduleForReservation(ctx, reservation, now); err != nil {
			s.log.Error("Failed to schedule payout",
				zap.Error(err),
				zap.String("reservation_id", reservation.ID.String()),
			)
			continue
		}
		released++
	}

	if released > 0 {
		s.log.Info("Released reservations past contestation window", zap.Int("count", released))
	}

	return released, nil
}

func (s *payoutService) scheduleForReservation(ctx context.Context, reservation *entity.Reservation, now time.Time) error {
	return schedulePayoutForReservation(ctx, s.repo, s.publisher, s.settings, s.log, reservation, now)
}

// schedulePayoutForReservation creates the reservation's payout from its
// approved payment. At most one payout is ever active per reservation, so
// every caller (payment approval, the release sweep, a dispute resolution)
// can invoke it as a replay-safe no-op.
func schedulePayoutForReservation(ctx context.Context, repo *repository.Repository, publisher *queue.Publisher, settings *settingsReader, log *zap.Logger, reservation *entity.Reservation, now time.Time) error {
	current, err := repo.Payout.FindCurrentByReservationID(ctx, reservation.ID)
	if err != nil {
		return err
	}
	if current != nil {
		log.Info("Payout already scheduled, skipping",
			zap.String("reservation_id", reservation.ID.String()),
			zap.String("payout_id", current.ID.String()),
		)
		return nil
	}

	expedition, err := repo.Expedition.FindByID(ctx, reservation.ExpeditionID)
	if err != nil {
		return err
	}
	if expedition == nil {
		return fmt.Errorf("expedition %s: %w", reservation.ExpeditionID.String(), ErrNotFound)
	}

	payments, err := repo.Payment.FindByReservationID(ctx, reservation.ID)
	if err != nil {
		return err
	}
	var settled *entity.Payment
	for _, p := range payments {
		if p.Status == entity.PaymentStatusApproved {
			settled = p
			break
		}
	}
	if settled == nil {
		return fmt.Errorf("reservation %s has no approved payment", reservation.ID.String())
	}

	scheduledDate := pricing.AddBusinessDays(now, settings.PayoutDelayDays(ctx))

	payout := &entity.Payout{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		GuideID:       expedition.GuideID,
		ReservationID: reservation.ID,
		Status:        entity.PayoutStatusScheduled,
		GrossAmount:   settled.GrossAmount,
		PlatformFee:   settled.PlatformFee,
		GatewayFee:    settled.MPFee,
		NetAmount:     settled.NetAmount,
		Currency:      settled.Currency,
		ScheduledDate: scheduledDate,
	}

	if verification, err := repo.GuideVerification.FindByUserID(ctx, expedition.GuideID); err == nil && verification != nil {
		keyType := string(verification.PixKeyType)
		payout.PixKey = &verification.PixKey
		payout.PixKeyType = &keyType
	}

	if err := repo.Payout.Create(ctx, payout); err != nil {
		return err
	}

	// Best effort: a lost nudge only delays execution until the next sweep.
	_ = publisher.PublishPayoutScheduled(ctx, queue.PayoutScheduledEvent{
		PayoutID:      payout.ID,
		ReservationID: reservation.ID,
		GuideID:       expedition.GuideID,
		NetAmount:     payout.NetAmount,
		ScheduledDate: scheduledDate,
		PublishedAt:   now,
	})

	return nil
}

// ProcessDue executes every payout whose scheduled date has arrived.
func (s *payoutService) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.Payout.FindDue(ctx, now, 50)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, payout := range due {
		if err := s.processOne(ctx, payout); err != nil {
			s.log.Error("Failed to process payout",
				zap.Error(err),
				zap.String("payout_id", payout.ID.String()),
			)
			continue
		}
		processed++
	}

	return processed, nil
}

// ProcessByID executes a single payout, used by the queue consumer. It only
// runs payouts that are scheduled and due; everything else is left for the
// sweep.
func (s *payoutService) ProcessByID(ctx context.Context, payoutID uuid.UUID) error {
	payout, err := s.repo.Payout.FindByID(ctx, payoutID)
	if err != nil {
		return err
	}
	if payout == nil {
		return fmt.Errorf("payout %s: %w", payoutID.String(), ErrNotFound)
	}
	if payout.Status != entity.PayoutStatusScheduled || payout.ScheduledDate.After(time.Now()) {
		return nil
	}

	return s.processOne(ctx, payout)
}

func (s *payoutService) processOne(ctx context.Context, payout *entity.Payout) error {
	// Payouts are scheduled as soon as the payment lands, but money only
	// moves once the contestation window resolved in the guide's favor.
	reservation, err := s.repo.Reservation.FindByID(ctx, payout.ReservationID)
	if err != nil {
		return err
	}
	if reservation == nil || reservation.Status != entity.ReservationStatusReleased {
		s.log.Debug("Payout due but reservation not released, waiting",
			zap.String("payout_id", payout.ID.String()),
			zap.String("reservation_id", payout.ReservationID.String()),
		)
		return nil
	}

	verification, err := s.repo.GuideVerification.FindByUserID(ctx, payout.GuideID)
	if err != nil {
		return err
	}
	if verification == nil || !verification.PayoutReady() {
		if err := s.repo.Payout.Block(ctx, payout.ID, "guide not approved for payouts"); err != nil && !errors.Is(err, repository.ErrStaleTransition) {
			return err
		}
		s.log.Warn("Payout blocked, guide not payout ready",
			zap.String("payout_id", payout.ID.String()),
			zap.String("guide_id", payout.GuideID.String()),
		)
		return nil
	}

	// The conditional claim makes execution exactly-once: a second worker
	// racing on the same payout loses here and walks away.
	err = s.repo.Payout.MarkProcessing(ctx, payout.ID)
	if errors.Is(err, repository.ErrStaleTransition) {
		return nil
	}
	if err != nil {
		return err
	}

	transfer, err := s.gateway.CreatePixTransfer(ctx, &gateway.PixTransferRequest{
		IdempotencyKey: "payout-" + payout.ID.String(),
		PixKey:         verification.PixKey,
		PixKeyType:     string(verification.PixKeyType),
		AmountCents:    payout.NetAmount,
		Description:    "Repasse de expedição",
	})
	if err != nil {
		if markErr := s.repo.Payout.MarkFailed(ctx, payout.ID, err.Error()); markErr != nil {
			s.log.Error("Failed to mark payout failed",
				zap.Error(markErr),
				zap.String("payout_id", payout.ID.String()),
			)
			return fmt.Errorf("transfer payout %s: %w", payout.ID.String(), err)
		}
		attempts := payout.RetryCount + 1
		if attempts < maxPayoutAttempts {
			retryAt := time.Now().Add(payoutRetryBackoff)
			if resErr := s.repo.Payout.Reschedule(ctx, payout.ID, retryAt); resErr != nil {
				s.log.Error("Failed to reschedule payout",
					zap.Error(resErr),
					zap.String("payout_id", payout.ID.String()),
				)
			} else {
				s.log.Warn("Payout transfer failed, rescheduled",
					zap.String("payout_id", payout.ID.String()),
					zap.Int("attempt", attempts),
					zap.Time("retry_at", retryAt),
				)
			}
		} else {
			s.log.Error("Payout exhausted transfer attempts",
				zap.String("payout_id", payout.ID.String()),
				zap.Int("attempts", attempts),
			)
		}
		return fmt.Errorf("transfer payout %s: %w", payout.ID.String(), err)
	}

	if err := s.repo.Payout.MarkSent(ctx, payout.ID, transfer.TransactionID, transfer.EndToEndID, transfer.ReceiptURL); err != nil {
		return err
	}
	if err := s.repo.Payout.MarkCompleted(ctx, payout.ID); err != nil {
		return err
	}

	now := time.Now()
	err = s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
		ReservationID: payout.ReservationID,
		From:          entity.ReservationStatusReleased,
		To:            entity.ReservationStatusPayoutSent,
		Set: entity.ReservationUpdate{
			PayoutCompletedAt: &now,
		},
		Action:    "payout_sent",
		ActorType: entity.ActorSystem,
	})
	if err != nil && !errors.Is(err, repository.ErrStaleTransition) {
		s.log.Error("Failed to mark reservation payout_sent",
			zap.Error(err),
			zap.String("reservation_id", payout.ReservationID.String()),
		)
	}

	s.log.Info("Payout completed",
		zap.String("payout_id", payout.ID.String()),
		zap.String("guide_id", payout.GuideID.String()),
		zap.Int64("net_amount", payout.NetAmount),
		zap.String("pix_transaction_id", transfer.TransactionID),
	)

	return nil
}

func (s *payoutService) GetGuidePayouts(ctx context.Context, guideID uuid.UUID, req *request.PaginatedRequest) ([]response.PayoutResponse, error) {
	payouts, err := s.repo.Payout.FindByGuideID(ctx, guideID, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}
	return response.PayoutsToResponse(payouts), nil
}
