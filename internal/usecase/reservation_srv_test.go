package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/internal/dto/request"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newReservationService(env *testEnv) ReservationService {
	return NewReservationService(env.repo, env.gateway, zap.NewNop())
}

func paidReservation(env *testEnv, userID uuid.UUID, startDate time.Time) *entity.Reservation {
	exp := env.addExpedition(uuid.New(), 10, 40000, startDate)
	r := env.addReservation(userID, exp, 1, entity.ReservationStatusPaid)
	paymentID := "mp-" + r.ID.String()[:8]
	r.MPPaymentID = &paymentID
	env.reservations.Create(context.Background(), r)
	return r
}

func TestCancelPendingReservation(t *testing.T) {
	env := newTestEnv()
	svc := newReservationService(env)

	userID := uuid.New()
	exp := env.addExpedition(uuid.New(), 10, 40000, time.Now().Add(30*24*time.Hour))
	r := env.addReservation(userID, exp, 1, entity.ReservationStatusPendingPayment)

	resp, err := svc.Cancel(context.Background(), userID, r.ID.String(), &request.CancelReservationRequest{Reason: "mudei de planos"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.RefundAmount != 0 {
		t.Errorf("refund = %d, want 0 for pending", resp.RefundAmount)
	}

	stored, _ := env.reservations.FindByID(context.Background(), r.ID)
	if stored.Status != entity.ReservationStatusCancelled {
		t.Errorf("status = %s, want cancelled", stored.Status)
	}
	if env.gateway.refundCount() != 0 {
		t.Errorf("refunds = %d, want 0", env.gateway.refundCount())
	}
}

func TestCancelPaidRefundBrackets(t *testing.T) {
	policy := &entity.CancellationPolicy{
		FullRefundDays:       7,
		PartialRefundDays:    3,
		PartialRefundPercent: 50,
		NoRefundDays:         0,
	}

	cases := []struct {
		name        string
		daysOut     int
		wantAmount  int64
		wantPercent int
		wantRefunds int
		wantStatus  entity.ReservationStatus
	}{
		{"full refund far out", 10, 40000, 100, 1, entity.ReservationStatusRefunded},
		{"partial refund close in", 5, 20000, 50, 1, entity.ReservationStatusRefunded},
		{"no refund at the door", 1, 0, 0, 0, entity.ReservationStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			env.repo.Policy = &memPolicyRepo{policy: policy}
			svc := newReservationService(env)

			userID := uuid.New()
			start := time.Now().Add(time.Duration(tc.daysOut)*24*time.Hour + time.Hour)
			r := paidReservation(env, userID, start)

			resp, err := svc.Cancel(context.Background(), userID, r.ID.String(), &request.CancelReservationRequest{})
			if err != nil {
				t.Fatalf("Cancel: %v", err)
			}
			if resp.RefundAmount != tc.wantAmount {
				t.Errorf("refund amount = %d, want %d", resp.RefundAmount, tc.wantAmount)
			}
			if resp.RefundPercent != tc.wantPercent {
				t.Errorf("refund percent = %d, want %d", resp.RefundPercent, tc.wantPercent)
			}
			if env.gateway.refundCount() != tc.wantRefunds {
				t.Errorf("gateway refunds = %d, want %d", env.gateway.refundCount(), tc.wantRefunds)
			}

			stored, _ := env.reservations.FindByID(context.Background(), r.ID)
			if stored.Status != tc.wantStatus {
				t.Errorf("status = %s, want %s", stored.Status, tc.wantStatus)
			}
			if tc.wantRefunds > 0 && stored.RefundedAt == nil {
				t.Error("RefundedAt not set on refunded reservation")
			}
		})
	}
}

func TestCancelPaidDefaultsToFullRefund(t *testing.T) {
	env := newTestEnv()
	svc := newReservationService(env)

	userID := uuid.New()
	r := paidReservation(env, userID, time.Now().Add(2*24*time.Hour))

	// No cancellation policy configured.
	resp, err := svc.Cancel(context.Background(), userID, r.ID.String(), &request.CancelReservationRequest{})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.RefundAmount != 40000 || resp.RefundPercent != 100 {
		t.Errorf("refund = %d (%d%%), want full", resp.RefundAmount, resp.RefundPercent)
	}

	stored, _ := env.reservations.FindByID(context.Background(), r.ID)
	if stored.Status != entity.ReservationStatusRefunded {
		t.Errorf("status = %s, want refunded", stored.Status)
	}
}

func TestCancelFreesCapacity(t *testing.T) {
	env := newTestEnv()
	svc := newReservationService(env)

	userID := uuid.New()
	exp := env.addExpedition(uuid.New(), 2, 40000, time.Now().Add(30*24*time.Hour))
	r := env.addReservation(userID, exp, 2, entity.ReservationStatusPaid)
	paymentID := "mp-1"
	r.MPPaymentID = &paymentID
	env.reservations.Create(context.Background(), r)
	env.expeditions.RecalcEnrollment(context.Background(), exp.ID)

	before, _ := env.expeditions.FindByID(context.Background(), exp.ID)
	if before.Status != entity.ExpeditionStatusFull || before.EnrolledCount != 2 {
		t.Fatalf("setup: expedition = %s enrolled %d", before.Status, before.EnrolledCount)
	}

	if _, err := svc.Cancel(context.Background(), userID, r.ID.String(), &request.CancelReservationRequest{}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	after, _ := env.expeditions.FindByID(context.Background(), exp.ID)
	if after.EnrolledCount != 0 {
		t.Errorf("enrolled = %d, want 0", after.EnrolledCount)
	}
	if after.Status != entity.ExpeditionStatusActive {
		t.Errorf("status = %s, want active again", after.Status)
	}
}

func TestCancelRejectsWrongStates(t *testing.T) {
	env := newTestEnv()
	svc := newReservationService(env)

	userID := uuid.New()
	exp := env.addExpedition(uuid.New(), 10, 40000, time.Now().Add(30*24*time.Hour))

	for _, status := range []entity.ReservationStatus{
		entity.ReservationStatusExpeditionInProgress,
		entity.ReservationStatusAwaitingContestation,
		entity.ReservationStatusReleased,
		entity.ReservationStatusPayoutSent,
		entity.ReservationStatusCancelled,
		entity.ReservationStatusRefunded,
	} {
		r := env.addReservation(userID, exp, 1, status)
		_, err := svc.Cancel(context.Background(), userID, r.ID.String(), &request.CancelReservationRequest{})
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("status %s: err = %v, want ErrInvalidState", status, err)
		}
	}
}

func TestCancelNotOwner(t *testing.T) {
	env := newTestEnv()
	svc := newReservationService(env)

	r := paidReservation(env, uuid.New(), time.Now().Add(30*24*time.Hour))
	_, err := svc.Cancel(context.Background(), uuid.New(), r.ID.String(), &request.CancelReservationRequest{})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestGetReservationAccess(t *testing.T) {
	env := newTestEnv()
	svc := newReservationService(env)

	ownerID := uuid.New()
	r := paidReservation(env, ownerID, time.Now().Add(30*24*time.Hour))

	if _, err := svc.GetReservation(context.Background(), ownerID, entity.RoleUser, r.ID.String()); err != nil {
		t.Errorf("owner: %v", err)
	}
	if _, err := svc.GetReservation(context.Background(), uuid.New(), entity.RoleAdmin, r.ID.String()); err != nil {
		t.Errorf("admin: %v", err)
	}
	if _, err := svc.GetReservation(context.Background(), uuid.New(), entity.RoleUser, r.ID.String()); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.GetReservation(context.Background(), ownerID, entity.RoleUser, uuid.New().String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
}

func TestExpireOverdueClosesStalePending(t *testing.T) {
	env := newTestEnv()
	svc := newReservationService(env)

	userID := uuid.New()
	exp := env.addExpedition(uuid.New(), 10, 40000, time.Now().Add(30*24*time.Hour))

	stale := env.addReservation(userID, exp, 1, entity.ReservationStatusPendingPayment)
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	env.reservations.Create(context.Background(), stale)

	fresh := env.addReservation(userID, exp, 1, entity.ReservationStatusPendingPayment)

	expired, err := svc.ExpireOverdue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if expired != 1 {
		t.Errorf("expired = %d, want 1", expired)
	}

	staleStored, _ := env.reservations.FindByID(context.Background(), stale.ID)
	if staleStored.Status != entity.ReservationStatusCancelled {
		t.Errorf("stale status = %s, want cancelled", staleStored.Status)
	}
	freshStored, _ := env.reservations.FindByID(context.Background(), fresh.ID)
	if freshStored.Status != entity.ReservationStatusPendingPayment {
		t.Errorf("fresh status = %s, must stay pending", freshStored.Status)
	}
}

func TestExpireOverdueLosesRaceToPayment(t *testing.T) {
	env := newTestEnv()
	svc := newReservationService(env)

	userID := uuid.New()
	exp := env.addExpedition(uuid.New(), 10, 40000, time.Now().Add(30*24*time.Hour))
	r := env.addReservation(userID, exp, 1, entity.ReservationStatusPendingPayment)
	r.ExpiresAt = time.Now().Add(-time.Minute)
	env.reservations.Create(context.Background(), r)

	// The payment lands between the sweep's read and its write.
	stored, _ := env.reservations.FindByID(context.Background(), r.ID)
	stored.Status = entity.ReservationStatusPaid
	env.reservations.Create(context.Background(), stored)

	// The row was read as pending but the guarded write now misses.
	expired, err := svc.ExpireOverdue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if expired != 0 {
		t.Errorf("expired = %d, want 0", expired)
	}

	final, _ := env.reservations.FindByID(context.Background(), r.ID)
	if final.Status != entity.ReservationStatusPaid {
		t.Errorf("status = %s, paid must win the race", final.Status)
	}
}
