package usecase

import (
	"context"
	"testing"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/internal/dto/request"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newWebhookService(env *testEnv) WebhookService {
	return NewWebhookService(env.repo, env.gateway, env.publisher, env.cfg, zap.NewNop())
}

func notification(paymentID string) *request.WebhookNotification {
	n := &request.WebhookNotification{Type: "payment"}
	n.Data.ID = paymentID
	return n
}

func TestWebhookApprovedTransitionsToPaid(t *testing.T) {
	env := newTestEnv()
	svc := newWebhookService(env)

	exp := env.addExpedition(uuid.New(), 10, 25000, time.Now().Add(7*24*time.Hour))
	r := env.addReservation(uuid.New(), exp, 2, entity.ReservationStatusPendingPayment)
	env.addApprovedGatewayPayment(r, "mp-100", 1500)

	if err := svc.HandleNotification(context.Background(), notification("mp-100")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	stored, _ := env.reservations.FindByID(context.Background(), r.ID)
	if stored.Status != entity.ReservationStatusPaid {
		t.Errorf("status = %s, want paid", stored.Status)
	}
	if stored.PaidAt == nil {
		t.Error("paid_at not set")
	}
	if stored.MPPaymentID == nil || *stored.MPPaymentID != "mp-100" {
		t.Error("mp_payment_id not set")
	}

	payment, _ := env.payments.FindByMPPaymentID(context.Background(), "mp-100")
	if payment == nil {
		t.Fatal("payment row not created")
	}
	// 50000 gross, 10% platform = 5000, gateway 1500, net 43500
	if payment.PlatformFee != 5000 {
		t.Errorf("platform fee = %d, want 5000", payment.PlatformFee)
	}
	if payment.NetAmount != 43500 {
		t.Errorf("net = %d, want 43500", payment.NetAmount)
	}

	// Paying fills capacity cache.
	expStored, _ := env.expeditions.FindByID(context.Background(), exp.ID)
	if expStored.EnrolledCount != 2 {
		t.Errorf("enrolled = %d, want 2", expStored.EnrolledCount)
	}

	// Approval immediately schedules the guide's payout; it waits there
	// until the contestation window releases the reservation.
	payout, _ := env.payouts.FindCurrentByReservationID(context.Background(), r.ID)
	if payout == nil {
		t.Fatal("payout not scheduled on approval")
	}
	if payout.Status != entity.PayoutStatusScheduled {
		t.Errorf("payout status = %s, want scheduled", payout.Status)
	}
	if payout.NetAmount != 43500 {
		t.Errorf("payout net = %d, want 43500", payout.NetAmount)
	}
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	env := newTestEnv()
	svc := newWebhookService(env)

	exp := env.addExpedition(uuid.New(), 10, 25000, time.Now().Add(7*24*time.Hour))
	r := env.addReservation(uuid.New(), exp, 1, entity.ReservationStatusPendingPayment)
	env.addApprovedGatewayPayment(r, "mp-200", 700)

	for i := 0; i < 3; i++ {
		if err := svc.HandleNotification(context.Background(), notification("mp-200")); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	payments, _ := env.payments.FindByReservationID(context.Background(), r.ID)
	if len(payments) != 1 {
		t.Errorf("payment rows = %d, want 1", len(payments))
	}

	stored, _ := env.reservations.FindByID(context.Background(), r.ID)
	if stored.Status != entity.ReservationStatusPaid {
		t.Errorf("status = %s, want paid", stored.Status)
	}

	payouts, _ := env.payouts.FindByGuideID(context.Background(), exp.GuideID, 100, 0)
	if len(payouts) != 1 {
		t.Errorf("payouts = %d, replays must schedule exactly one", len(payouts))
	}
}

func TestWebhookApprovedAfterRefundDoesNotResurrect(t *testing.T) {
	env := newTestEnv()
	svc := newWebhookService(env)

	exp := env.addExpedition(uuid.New(), 10, 25000, time.Now().Add(7*24*time.Hour))
	r := env.addReservation(uuid.New(), exp, 1, entity.ReservationStatusRefunded)
	env.addApprovedGatewayPayment(r, "mp-300", 700)

	if err := svc.HandleNotification(context.Background(), notification("mp-300")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	stored, _ := env.reservations.FindByID(context.Background(), r.ID)
	if stored.Status != entity.ReservationStatusRefunded {
		t.Errorf("status = %s, refunded reservation must not be resurrected", stored.Status)
	}

	// The late approval is refunded back to the payer.
	if env.gateway.refundCount() != 1 {
		t.Errorf("refunds = %d, want 1", env.gateway.refundCount())
	}
}

func TestWebhookRefundedNotification(t *testing.T) {
	env := newTestEnv()
	svc := newWebhookService(env)

	exp := env.addExpedition(uuid.New(), 10, 25000, time.Now().Add(7*24*time.Hour))
	r := env.addReservation(uuid.New(), exp, 1, entity.ReservationStatusPendingPayment)
	env.addApprovedGatewayPayment(r, "mp-400", 700)

	if err := svc.HandleNotification(context.Background(), notification("mp-400")); err != nil {
		t.Fatalf("approved: %v", err)
	}

	env.gateway.payments["mp-400"].Status = "refunded"
	if err := svc.HandleNotification(context.Background(), notification("mp-400")); err != nil {
		t.Fatalf("refunded: %v", err)
	}

	stored, _ := env.reservations.FindByID(context.Background(), r.ID)
	if stored.Status != entity.ReservationStatusRefunded {
		t.Errorf("status = %s, want refunded", stored.Status)
	}

	payment, _ := env.payments.FindByMPPaymentID(context.Background(), "mp-400")
	if payment.Status != entity.PaymentStatusRefunded {
		t.Errorf("payment status = %s, want refunded", payment.Status)
	}
}

func TestWebhookRejectedCancelsReservation(t *testing.T) {
	env := newTestEnv()
	svc := newWebhookService(env)

	exp := env.addExpedition(uuid.New(), 10, 25000, time.Now().Add(7*24*time.Hour))
	r := env.addReservation(uuid.New(), exp, 1, entity.ReservationStatusPendingPayment)
	p := env.addApprovedGatewayPayment(r, "mp-500", 0)
	p.Status = "rejected"
	p.StatusDetail = "cc_rejected_insufficient_amount"

	if err := svc.HandleNotification(context.Background(), notification("mp-500")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	stored, _ := env.reservations.FindByID(context.Background(), r.ID)
	if stored.Status != entity.ReservationStatusCancelled {
		t.Errorf("status = %s, want cancelled", stored.Status)
	}
	if stored.CancelledBy == nil || *stored.CancelledBy != entity.ActorSystem {
		t.Error("cancellation must be attributed to the system")
	}
	if stored.CancellationReason == nil || *stored.CancellationReason != "cc_rejected_insufficient_amount" {
		t.Errorf("cancellation reason = %v, want processor detail", stored.CancellationReason)
	}
}

func TestWebhookRejectedAfterPaidIsNoOp(t *testing.T) {
	env := newTestEnv()
	svc := newWebhookService(env)

	exp := env.addExpedition(uuid.New(), 10, 25000, time.Now().Add(7*24*time.Hour))
	r := env.addReservation(uuid.New(), exp, 1, entity.ReservationStatusPaid)
	p := env.addApprovedGatewayPayment(r, "mp-510", 0)
	p.Status = "rejected"

	if err := svc.HandleNotification(context.Background(), notification("mp-510")); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	stored, _ := env.reservations.FindByID(context.Background(), r.ID)
	if stored.Status != entity.ReservationStatusPaid {
		t.Errorf("status = %s, a settled reservation must not be cancelled", stored.Status)
	}
}

func TestWebhookIgnoresOtherTypes(t *testing.T) {
	env := newTestEnv()
	svc := newWebhookService(env)

	if err := svc.HandleNotification(context.Background(), &request.WebhookNotification{Type: "plan"}); err != nil {
		t.Errorf("non-payment type should be ignored, got %v", err)
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	env := newTestEnv()
	svc := newWebhookService(env)

	err := svc.HandleNotification(context.Background(), notification(""))
	if err == nil {
		t.Fatal("expected error for missing payment id")
	}
}
