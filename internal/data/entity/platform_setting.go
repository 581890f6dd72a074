package entity

import "github.com/google/uuid"

// Platform setting keys the admin surface may change.
const (
	SettingPlatformFeePercent    = "platform_fee_percent"
	SettingPayoutDelayDays       = "payout_delay_days"
	SettingReservationExpiryMins = "reservation_expiry_minutes"
)

type PlatformSetting struct {
	Base
	Key         string     `db:"key"`
	Value       string     `db:"value"`
	Description *string    `db:"description"`
	UpdatedBy   *uuid.UUID `db:"updated_by"`
}
