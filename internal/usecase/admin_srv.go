package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/internal/data/repository"
	"trekko-booking/internal/dto/request"
	"trekko-booking/internal/dto/response"
	"trekko-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminService interface {
	ListSettings(ctx context.Context) ([]response.SettingResponse, error)
	UpdateSetting(ctx context.Context, adminID uuid.UUID, key string, req *request.UpdateSettingRequest) error
	GetAuditTrail(ctx context.Context, entityType, entityID string) ([]response.AuditEntryResponse, error)
	BlockPayout(ctx context.Context, adminID uuid.UUID, payoutID string, req *request.BlockPayoutRequest) error
	UnblockPayout(ctx context.Context, adminID uuid.UUID, payoutID string) error
	RetryPayout(ctx context.Context, adminID uuid.UUID, payoutID string) error
}

type adminService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewAdminService(repo *repository.Repository, log *zap.Logger) AdminService {
	return &adminService{
		repo: repo,
		log:  log.With(zap.String("service", "admin")),
	}
}

func (s *adminService) ListSettings(ctx context.Context) ([]response.SettingResponse, error) {
	settings, err := s.repo.PlatformSetting.List(ctx)
	if err != nil {
		return nil, err
	}
	return response.SettingsToResponse(settings), nil
}

func (s *adminService) UpdateSetting(ctx context.Context, adminID uuid.UUID, key string, req *request.UpdateSettingRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	if err := validateSettingValue(key, req.Value); err != nil {
		return err
	}

	previous, err := s.repo.PlatformSetting.Get(ctx, key)
	if err != nil {
		return err
	}

	settingID, err := s.repo.PlatformSetting.Set(ctx, key, req.Value, adminID)
	if err != nil {
		return err
	}

	entry := &entity.AuditLogEntry{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		EntityType: entity.AuditEntityPlatformSetting,
		EntityID:   settingID,
		Action:     "setting_updated",
		NewValue:   &req.Value,
		ActorID:    &adminID,
		ActorType:  entity.ActorAdmin,
		Metadata:   map[string]any{"key": key},
	}
	if previous != "" {
		entry.PreviousValue = &previous
	}

	return s.repo.AuditLog.Create(ctx, entry)
}

func validateSettingValue(key, value string) error {
	switch key {
	case entity.SettingPlatformFeePercent:
		pct, err := strconv.ParseFloat(value, 64)
		if err != nil || pct < 0 || pct > 100 {
			return fmt.Errorf("platform fee percent must be between 0 and 100")
		}
	case entity.SettingPayoutDelayDays:
		days, err := strconv.Atoi(value)
		if err != nil || days < 0 || days > 30 {
			return fmt.Errorf("payout delay must be between 0 and 30 days")
		}
	case entity.SettingReservationExpiryMins:
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes < 30 {
			return fmt.Errorf("reservation expiry must be at least 30 minutes")
		}
	default:
		return fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	return nil
}

func (s *adminService) GetAuditTrail(ctx context.Context, entityType, entityID string) ([]response.AuditEntryResponse, error) {
	id, err := uuid.Parse(entityID)
	if err != nil {
		return nil, fmt.Errorf("invalid entity ID format %s: %w", entityID, err)
	}

	switch entity.AuditEntityType(entityType) {
	case entity.AuditEntityReservation, entity.AuditEntityPayment, entity.AuditEntityPayout,
		entity.AuditEntityGuideVerification, entity.AuditEntityPlatformSetting:
	default:
		return nil, fmt.Errorf("entity type %s: %w", entityType, ErrNotFound)
	}

	entries, err := s.repo.AuditLog.FindByEntity(ctx, entity.AuditEntityType(entityType), id)
	if err != nil {
		return nil, err
	}
	return response.AuditEntriesToResponse(entries), nil
}

func (s *adminService) BlockPayout(ctx context.Context, adminID uuid.UUID, payoutID string, req *request.BlockPayoutRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	payout, err := s.findPayout(ctx, payoutID)
	if err != nil {
		return err
	}

	err = s.repo.Payout.Block(ctx, payout.ID, req.Reason)
	if errors.Is(err, repository.ErrStaleTransition) {
		return fmt.Errorf("payout %s is %s: %w", payoutID, payout.Status, ErrInvalidState)
	}
	if err != nil {
		return err
	}

	s.log.Info("Payout blocked by admin",
		zap.String("payout_id", payoutID),
		zap.String("admin_id", adminID.String()),
		zap.String("reason", req.Reason),
	)

	return nil
}

func (s *adminService) UnblockPayout(ctx context.Context, adminID uuid.UUID, payoutID string) error {
	payout, err := s.findPayout(ctx, payoutID)
	if err != nil {
		return err
	}

	err = s.repo.Payout.Unblock(ctx, payout.ID, time.Now())
	if errors.Is(err, repository.ErrStaleTransition) {
		return fmt.Errorf("payout %s is %s: %w", payoutID, payout.Status, ErrInvalidState)
	}
	if err != nil {
		return err
	}

	s.log.Info("Payout unblocked by admin",
		zap.String("payout_id", payoutID),
		zap.String("admin_id", adminID.String()),
	)

	return nil
}

func (s *adminService) RetryPayout(ctx context.Context, adminID uuid.UUID, payoutID string) error {
	payout, err := s.findPayout(ctx, payoutID)
	if err != nil {
		return err
	}

	err = s.repo.Payout.Reschedule(ctx, payout.ID, time.Now())
	if errors.Is(err, repository.ErrStaleTransition) {
		return fmt.Errorf("payout %s is %s: %w", payoutID, payout.Status, ErrInvalidState)
	}
	if err != nil {
		return err
	}

	s.log.Info("Payout rescheduled by admin",
		zap.String("payout_id", payoutID),
		zap.String("admin_id", adminID.String()),
	)

	return nil
}

func (s *adminService) findPayout(ctx context.Context, payoutID string) (*entity.Payout, error) {
	id, err := uuid.Parse(payoutID)
	if err != nil {
		return nil, fmt.Errorf("invalid payout ID format %s: %w", payoutID, err)
	}

	payout, err := s.repo.Payout.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, fmt.Errorf("payout %s: %w", payoutID, ErrNotFound)
	}

	return payout, nil
}
