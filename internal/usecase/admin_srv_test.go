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

func newAdminService(env *testEnv) AdminService {
	return NewAdminService(env.repo, zap.NewNop())
}

func TestUpdateSettingValidatesValues(t *testing.T) {
	env := newTestEnv()
	svc := newAdminService(env)
	adminID := uuid.New()

	cases := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{entity.SettingPlatformFeePercent, "12.5", false},
		{entity.SettingPlatformFeePercent, "101", true},
		{entity.SettingPlatformFeePercent, "-1", true},
		{entity.SettingPayoutDelayDays, "5", false},
		{entity.SettingPayoutDelayDays, "31", true},
		{entity.SettingReservationExpiryMins, "60", false},
		{entity.SettingReservationExpiryMins, "10", true},
		{"unknown_key", "1", true},
	}

	for _, tc := range cases {
		err := svc.UpdateSetting(context.Background(), adminID, tc.key, &request.UpdateSettingRequest{Value: tc.value})
		if (err != nil) != tc.wantErr {
			t.Errorf("UpdateSetting(%s, %s) err = %v, wantErr %v", tc.key, tc.value, err, tc.wantErr)
		}
	}

	stored, _ := env.settings.Get(context.Background(), entity.SettingPlatformFeePercent)
	if stored != "12.5" {
		t.Errorf("stored fee = %q, want 12.5", stored)
	}
}

func TestUpdateSettingAuditsAgainstSetting(t *testing.T) {
	env := newTestEnv()
	svc := newAdminService(env)
	adminID := uuid.New()

	if err := svc.UpdateSetting(context.Background(), adminID, entity.SettingPayoutDelayDays, &request.UpdateSettingRequest{Value: "3"}); err != nil {
		t.Fatalf("first UpdateSetting: %v", err)
	}
	if err := svc.UpdateSetting(context.Background(), adminID, entity.SettingPayoutDelayDays, &request.UpdateSettingRequest{Value: "5"}); err != nil {
		t.Fatalf("second UpdateSetting: %v", err)
	}

	var entries []*entity.AuditLogEntry
	for _, e := range env.audit.entries {
		if e.Action == "setting_updated" {
			entries = append(entries, e)
		}
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}

	first, second := entries[0], entries[1]
	if first.EntityType != entity.AuditEntityPlatformSetting {
		t.Errorf("entity type = %s, want platform_setting", first.EntityType)
	}
	if first.EntityID == adminID || first.EntityID == uuid.Nil {
		t.Errorf("entity ID = %s, must reference the setting row", first.EntityID)
	}
	if second.EntityID != first.EntityID {
		t.Errorf("entity IDs differ across updates of the same key: %s vs %s", first.EntityID, second.EntityID)
	}
	if first.PreviousValue != nil {
		t.Errorf("first update previous = %v, want unset", *first.PreviousValue)
	}
	if second.PreviousValue == nil || *second.PreviousValue != "3" {
		t.Errorf("second update previous = %v, want 3", second.PreviousValue)
	}
	if second.Metadata["key"] != entity.SettingPayoutDelayDays {
		t.Errorf("metadata key = %v, want %s", second.Metadata["key"], entity.SettingPayoutDelayDays)
	}
}

func TestBlockAndUnblockPayout(t *testing.T) {
	env := newTestEnv()
	svc := newAdminService(env)
	adminID := uuid.New()

	now := time.Now()
	payout := &entity.Payout{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		GuideID:       uuid.New(),
		ReservationID: uuid.New(),
		Status:        entity.PayoutStatusScheduled,
		NetAmount:     15000,
		ScheduledDate: now,
	}
	env.payouts.Create(context.Background(), payout)

	if err := svc.BlockPayout(context.Background(), adminID, payout.ID.String(), &request.BlockPayoutRequest{Reason: "fraud review"}); err != nil {
		t.Fatalf("BlockPayout: %v", err)
	}
	stored, _ := env.payouts.FindByID(context.Background(), payout.ID)
	if stored.Status != entity.PayoutStatusBlocked {
		t.Fatalf("status = %s, want blocked", stored.Status)
	}

	// Blocking twice is a state conflict.
	err := svc.BlockPayout(context.Background(), adminID, payout.ID.String(), &request.BlockPayoutRequest{Reason: "again"})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("double block err = %v, want ErrInvalidState", err)
	}

	if err := svc.UnblockPayout(context.Background(), adminID, payout.ID.String()); err != nil {
		t.Fatalf("UnblockPayout: %v", err)
	}
	stored, _ = env.payouts.FindByID(context.Background(), payout.ID)
	if stored.Status != entity.PayoutStatusScheduled {
		t.Errorf("status = %s, want scheduled", stored.Status)
	}
}

func TestRetryPayoutOnlyFromFailed(t *testing.T) {
	env := newTestEnv()
	svc := newAdminService(env)
	adminID := uuid.New()

	now := time.Now()
	payout := &entity.Payout{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		GuideID:       uuid.New(),
		ReservationID: uuid.New(),
		Status:        entity.PayoutStatusScheduled,
		NetAmount:     15000,
		ScheduledDate: now,
	}
	env.payouts.Create(context.Background(), payout)

	if err := svc.RetryPayout(context.Background(), adminID, payout.ID.String()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("retry scheduled err = %v, want ErrInvalidState", err)
	}

	env.payouts.MarkProcessing(context.Background(), payout.ID)
	env.payouts.MarkFailed(context.Background(), payout.ID, "gateway timeout")

	if err := svc.RetryPayout(context.Background(), adminID, payout.ID.String()); err != nil {
		t.Fatalf("RetryPayout: %v", err)
	}
	stored, _ := env.payouts.FindByID(context.Background(), payout.ID)
	if stored.Status != entity.PayoutStatusScheduled {
		t.Errorf("status = %s, want scheduled", stored.Status)
	}
	if stored.FailureReason != nil {
		t.Errorf("failure reason = %v, want cleared", *stored.FailureReason)
	}
}

func TestGetAuditTrailRejectsUnknownEntity(t *testing.T) {
	env := newTestEnv()
	svc := newAdminService(env)

	if _, err := svc.GetAuditTrail(context.Background(), "user", uuid.New().String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
