package entity

import (
	"time"

	"github.com/google/uuid"
)

type PayoutStatus string

const (
	PayoutStatusScheduled  PayoutStatus = "scheduled"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusSent       PayoutStatus = "sent"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusBlocked    PayoutStatus = "blocked"
)

// Payout is a scheduled PIX transfer of net earnings to a guide. At most one
// active (non-failed, non-blocked) payout exists per reservation, and a payout
// is never completed before its ScheduledDate.
type Payout struct {
	Base
	GuideID       uuid.UUID    `db:"guide_id"`
	ReservationID uuid.UUID    `db:"reservation_id"`
	Status        PayoutStatus `db:"status"`

	GrossAmount int64  `db:"gross_amount"`
	PlatformFee int64  `db:"platform_fee"`
	GatewayFee  int64  `db:"gateway_fee"`
	NetAmount   int64  `db:"net_amount"`
	Currency    string `db:"currency"`

	// PIX transfer details, filled on execution
	PixKey           *string `db:"pix_key"`
	PixKeyType       *string `db:"pix_key_type"`
	PixTransactionID *string `db:"pix_transaction_id"`
	PixEndToEndID    *string `db:"pix_end_to_end_id"`
	PixReceiptURL    *string `db:"pix_receipt_url"`

	ScheduledDate time.Time  `db:"scheduled_date"`
	ProcessedAt   *time.Time `db:"processed_at"`
	CompletedAt   *time.Time `db:"completed_at"`

	FailureReason *string `db:"failure_reason"`
	RetryCount    int     `db:"retry_count"`
}

// Active reports whether this payout still counts toward the one-active-payout
// invariant for its reservation.
func (p *Payout) Active() bool {
	return p.Status != PayoutStatusFailed && p.Status != PayoutStatusBlocked
}
