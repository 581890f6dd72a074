package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/internal/data/repository"
	"trekko-booking/internal/dto/request"
	"trekko-booking/internal/queue"
	"trekko-booking/pkg/gateway"
	"trekko-booking/pkg/pricing"
	"trekko-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMalformedNotification marks payloads the processor cannot attribute to a
// reservation. Handlers answer 400 so the gateway does not retry them forever.
var ErrMalformedNotification = errors.New("malformed webhook notification")

type WebhookService interface {
	HandleNotification(ctx context.Context, req *request.WebhookNotification) error
}

type webhookService struct {
	repo      *repository.Repository
	gateway   gateway.Gateway
	publisher *queue.Publisher
	settings  *settingsReader
	log       *zap.Logger
}

func NewWebhookService(repo *repository.Repository, gw gateway.Gateway, publisher *queue.Publisher, cfg utils.PaymentsConfig, log *zap.Logger) WebhookService {
	return &webhookService{
		repo:      repo,
		gateway:   gw,
		publisher: publisher,
		settings:  newSettingsReader(repo, cfg, log),
		log:       log.With(zap.String("service", "webhook")),
	}
}

// HandleNotification reconciles one gateway notification. The payload is
// treated as a hint: the payment is always re-fetched from the API before any
// state changes, and every branch is safe to replay.
func (s *webhookService) HandleNotification(ctx context.Context, req *request.WebhookNotification) error {
	if req.Type != "payment" {
		s.log.Debug("Ignoring non-payment notification", zap.String("type", req.Type))
		return nil
	}
	if req.Data.ID == "" {
		return fmt.Errorf("notification has no payment id: %w", ErrMalformedNotification)
	}

	payment, err := s.gateway.GetPayment(ctx, req.Data.ID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", req.Data.ID, err)
	}

	reservationID, ok := utils.ParseExternalReference(payment.ExternalReference)
	if !ok {
		s.log.Warn("Payment has unrecognized external reference",
			zap.String("mp_payment_id", payment.ID),
			zap.String("external_reference", payment.ExternalReference),
		)
		return fmt.Errorf("external reference %q: %w", payment.ExternalReference, ErrMalformedNotification)
	}

	reservation, err := s.repo.Reservation.FindByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if reservation == nil {
		return fmt.Errorf("reservation %s for payment %s: %w", reservationID.String(), payment.ID, ErrNotFound)
	}

	s.log.Info("Processing payment notification",
		zap.String("mp_payment_id", payment.ID),
		zap.String("reservation_id", reservationID.String()),
		zap.String("payment_status", payment.Status),
		zap.String("reservation_status", string(reservation.Status)),
	)

	switch payment.Status {
	case "approved":
		return s.handleApproved(ctx, reservation, payment)
	case "rejected", "cancelled":
		return s.handleRejected(ctx, reservation, payment)
	case "refunded", "charged_back":
		return s.handleRefunded(ctx, reservation, payment)
	default:
		s.log.Debug("Ignoring payment status",
			zap.String("mp_payment_id", payment.ID),
			zap.String("payment_status", payment.Status),
		)
		return nil
	}
}

func (s *webhookService) handleApproved(ctx context.Context, reservation *entity.Reservation, payment *gateway.Payment) error {
	// A replay of an already-recorded payment is a no-op.
	existing, err := s.repo.Payment.FindByMPPaymentID(ctx, payment.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		s.log.Info("Payment already recorded, skipping",
			zap.String("mp_payment_id", payment.ID),
		)
		return nil
	}

	feePercent := s.settings.PlatformFeePercent(ctx)
	fees := pricing.ComputeFees(payment.TransactionAmount, feePercent, payment.FeeAmount)

	if err := s.recordPayment(ctx, reservation, payment, entity.PaymentStatusApproved, fees); err != nil {
		return err
	}

	if reservation.Status != entity.ReservationStatusPendingPayment {
		// Approval arrived after the reservation moved on. A terminal
		// reservation cannot be resurrected, so the money goes back.
		s.log.Warn("Approved payment for non-pending reservation",
			zap.String("mp_payment_id", payment.ID),
			zap.String("reservation_id", reservation.ID.String()),
			zap.String("reservation_status", string(reservation.Status)),
		)
		if entity.IsTerminal(reservation.Status) {
			if _, err := s.gateway.CreateRefund(ctx, payment.ID, 0); err != nil {
				return fmt.Errorf("refund late payment %s: %w", payment.ID, err)
			}
		}
		return nil
	}

	now := time.Now()
	method := paymentMethodFromGateway(payment)
	err = s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
		ReservationID: reservation.ID,
		From:          entity.ReservationStatusPendingPayment,
		To:            entity.ReservationStatusPaid,
		Set: entity.ReservationUpdate{
			MPPaymentID:   &payment.ID,
			PaymentMethod: method,
			PaidAt:        &now,
		},
		Action:    "payment_approved",
		ActorType: entity.ActorSystem,
	})
	if errors.Is(err, repository.ErrStaleTransition) {
		// A concurrent delivery already applied the transition.
		s.log.Info("Reservation already transitioned, skipping",
			zap.String("reservation_id", reservation.ID.String()),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.repo.Expedition.RecalcEnrollment(ctx, reservation.ExpeditionID); err != nil {
		s.log.Error("Failed to recalculate enrollment after payment",
			zap.Error(err),
			zap.String("expedition_id", reservation.ExpeditionID.String()),
		)
	}

	// The payout is created right away and waits in scheduled until the
	// contestation window releases the reservation. The release sweep covers
	// the rare case where this fails.
	if err := schedulePayoutForReservation(ctx, s.repo, s.publisher, s.settings, s.log, reservation, now); err != nil {
		s.log.Error("Failed to schedule payout on approval",
			zap.Error(err),
			zap.String("reservation_id", reservation.ID.String()),
		)
	}

	s.log.Info("Reservation paid",
		zap.String("reservation_id", reservation.ID.String()),
		zap.String("mp_payment_id", payment.ID),
		zap.Int64("gross_amount", payment.TransactionAmount),
	)

	return nil
}

func (s *webhookService) handleRejected(ctx context.Context, reservation *entity.Reservation, payment *gateway.Payment) error {
	reason := payment.StatusDetail
	if reason == "" {
		reason = "pagamento recusado"
	}

	now := time.Now()
	actor := entity.ActorSystem
	err := s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
		ReservationID: reservation.ID,
		From:          entity.ReservationStatusPendingPayment,
		To:            entity.ReservationStatusCancelled,
		Set: entity.ReservationUpdate{
			CancelledAt:        &now,
			CancelledBy:        &actor,
			CancellationReason: &reason,
		},
		Action:    "payment_rejected",
		ActorType: entity.ActorSystem,
	})
	if errors.Is(err, repository.ErrStaleTransition) {
		// An earlier attempt already paid or closed the reservation.
		s.log.Info("Rejected payment for non-pending reservation, skipping",
			zap.String("mp_payment_id", payment.ID),
			zap.String("reservation_id", reservation.ID.String()),
			zap.String("reservation_status", string(reservation.Status)),
		)
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info("Reservation cancelled after rejected payment",
		zap.String("reservation_id", reservation.ID.String()),
		zap.String("mp_payment_id", payment.ID),
		zap.String("status_detail", payment.StatusDetail),
	)

	return nil
}

func (s *webhookService) handleRefunded(ctx context.Context, reservation *entity.Reservation, payment *gateway.Payment) error {
	if err := s.repo.Payment.UpdateStatusByMPPaymentID(ctx, payment.ID, entity.PaymentStatusRefunded); err != nil {
		s.log.Warn("No payment row to mark refunded",
			zap.Error(err),
			zap.String("mp_payment_id", payment.ID),
		)
	}

	if reservation.Status == entity.ReservationStatusRefunded {
		return nil
	}
	if !entity.CanTransition(reservation.Status, entity.ReservationStatusRefunded) {
		s.log.Warn("Refund notification for reservation that cannot be refunded",
			zap.String("reservation_id", reservation.ID.String()),
			zap.String("reservation_status", string(reservation.Status)),
		)
		return nil
	}

	now := time.Now()
	err := s.repo.Reservation.TransitionStatus(ctx, &entity.StatusTransition{
		ReservationID: reservation.ID,
		From:          reservation.Status,
		To:            entity.ReservationStatusRefunded,
		Set: entity.ReservationUpdate{
			RefundedAt:   &now,
			RefundAmount: &payment.TransactionAmount,
		},
		Action:    "payment_refunded",
		ActorType: entity.ActorSystem,
	})
	if errors.Is(err, repository.ErrStaleTransition) {
		return nil
	}
	if err != nil {
		return err
	}

	// A refunded spot frees capacity.
	if _, err := s.repo.Expedition.RecalcEnrollment(ctx, reservation.ExpeditionID); err != nil {
		s.log.Error("Failed to recalculate enrollment after refund",
			zap.Error(err),
			zap.String("expedition_id", reservation.ExpeditionID.String()),
		)
	}

	return nil
}

func (s *webhookService) recordPayment(ctx context.Context, reservation *entity.Reservation, payment *gateway.Payment, status entity.PaymentStatus, fees pricing.Fees) error {
	now := time.Now()
	currency := payment.CurrencyID
	if currency == "" {
		currency = "BRL"
	}

	row := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ReservationID: reservation.ID,
		MPPaymentID:   payment.ID,
		Status:        status,
		GrossAmount:   payment.TransactionAmount,
		PlatformFee:   fees.PlatformFee,
		MPFee:         payment.FeeAmount,
		NetAmount:     payment.TransactionAmount - fees.PlatformFee - payment.FeeAmount,
		PaymentMethod: paymentMethodFromGateway(payment),
		Currency:      currency,
	}
	if payment.PaymentTypeID != "" {
		row.PaymentTypeID = &payment.PaymentTypeID
	}

	err := s.repo.Payment.Create(ctx, row)
	if errors.Is(err, repository.ErrDuplicatePayment) {
		return nil
	}
	return err
}

func paymentMethodFromGateway(payment *gateway.Payment) *entity.PaymentMethod {
	var method entity.PaymentMethod
	switch payment.PaymentMethodID {
	case "pix":
		method = entity.PaymentMethodPix
	case "bolbradesco", "boleto":
		method = entity.PaymentMethodBoleto
	case "account_money":
		method = entity.PaymentMethodAccountMoney
	default:
		switch payment.PaymentTypeID {
		case "credit_card", "debit_card", "prepaid_card":
			method = entity.PaymentMethodCard
		case "bank_transfer":
			method = entity.PaymentMethodPix
		case "ticket":
			method = entity.PaymentMethodBoleto
		case "account_money":
			method = entity.PaymentMethodAccountMoney
		default:
			return nil
		}
	}
	return &method
}
