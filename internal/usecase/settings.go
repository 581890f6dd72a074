package usecase

import (
	"context"
	"strconv"

	"trekko-booking/internal/data/entity"
	"trekko-booking/internal/data/repository"
	"trekko-booking/pkg/utils"

	"go.uber.org/zap"
)

// settingsReader resolves runtime platform settings, falling back to the
// configured defaults when no row exists or the stored value does not parse.
type settingsReader struct {
	repo *repository.Repository
	cfg  utils.PaymentsConfig
	log  *zap.Logger
}

func newSettingsReader(repo *repository.Repository, cfg utils.PaymentsConfig, log *zap.Logger) *settingsReader {
	return &settingsReader{repo: repo, cfg: cfg, log: log}
}

func (s *settingsReader) PlatformFeePercent(ctx context.Context) float64 {
	raw, err := s.repo.PlatformSetting.Get(ctx, entity.SettingPlatformFeePercent)
	if err != nil || raw == "" {
		return s.cfg.PlatformFeePercent
	}

	pct, err := strconv.ParseFloat(raw, 64)
	if err != nil || pct < 0 || pct > 100 {
		s.log.Warn("Invalid platform fee setting, using default", zap.String("value", raw))
		return s.cfg.PlatformFeePercent
	}
	return pct
}

func (s *settingsReader) PayoutDelayDays(ctx context.Context) int {
	raw, err := s.repo.PlatformSetting.Get(ctx, entity.SettingPayoutDelayDays)
	if err != nil || raw == "" {
		return s.cfg.PayoutDelayDays
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		s.log.Warn("Invalid payout delay setting, using default", zap.String("value", raw))
		return s.cfg.PayoutDelayDays
	}
	return days
}

// ReservationExpiryMinutes never goes below 30 so a user always has time to
// finish checkout.
func (s *settingsReader) ReservationExpiryMinutes(ctx context.Context) int {
	minutes := s.cfg.ReservationExpiryMin

	raw, err := s.repo.PlatformSetting.Get(ctx, entity.SettingReservationExpiryMins)
	if err == nil && raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			minutes = parsed
		} else {
			s.log.Warn("Invalid reservation expiry setting, using default", zap.String("value", raw))
		}
	}

	if minutes < 30 {
		minutes = 30
	}
	return minutes
}
