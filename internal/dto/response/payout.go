package response

import (
	"time"

	"trekko-booking/internal/data/entity"
)

type PayoutResponse struct {
	ID            string              `json:"id"`
	ReservationID string              `json:"reservation_id"`
	Status        entity.PayoutStatus `json:"status"`

	GrossAmount int64  `json:"gross_amount"`
	PlatformFee int64  `json:"platform_fee"`
	GatewayFee  int64  `json:"gateway_fee"`
	NetAmount   int64  `json:"net_amount"`
	Currency    string `json:"currency"`

	ScheduledDate time.Time  `json:"scheduled_date"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	ReceiptURL    *string    `json:"receipt_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// GuideFinancialSummary aggregates a guide's earnings across payout states.
type GuideFinancialSummary struct {
	TotalEarned      int64 `json:"total_earned"`
	PendingRelease   int64 `json:"pending_release"`
	ScheduledPayouts int64 `json:"scheduled_payouts"`
	CompletedPayouts int64 `json:"completed_payouts"`
	BlockedPayouts   int64 `json:"blocked_payouts"`
}

func PayoutToResponse(p *entity.Payout) PayoutResponse {
	return PayoutResponse{
		ID:            p.ID.String(),
		ReservationID: p.ReservationID.String(),
		Status:        p.Status,
		GrossAmount:   p.GrossAmount,
		PlatformFee:   p.PlatformFee,
		GatewayFee:    p.GatewayFee,
		NetAmount:     p.NetAmount,
		Currency:      p.Currency,
		ScheduledDate: p.ScheduledDate,
		ProcessedAt:   p.ProcessedAt,
		CompletedAt:   p.CompletedAt,
		FailureReason: p.FailureReason,
		ReceiptURL:    p.PixReceiptURL,
		CreatedAt:     p.CreatedAt,
	}
}

func PayoutsToResponse(payouts []*entity.Payout) []PayoutResponse {
	out := make([]PayoutResponse, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, PayoutToResponse(p))
	}
	return out
}
