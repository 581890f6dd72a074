package response

import (
	"time"

	"trekko-booking/internal/data/entity"
)

// Amounts are centavos throughout, matching what is stored.
type ReservationResponse struct {
	ID           string `json:"id"`
	ExpeditionID string `json:"expedition_id"`
	UserID       string `json:"user_id"`

	Status   entity.ReservationStatus `json:"status"`
	Quantity int                      `json:"quantity"`

	UnitPrice   int64 `json:"unit_price"`
	TotalAmount int64 `json:"total_amount"`

	PaymentMethod *entity.PaymentMethod `json:"payment_method,omitempty"`

	ExpiresAt          time.Time  `json:"expires_at"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	ContestationEndsAt *time.Time `json:"contestation_ends_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	RefundAmount       *int64     `json:"refund_amount,omitempty"`
	PayoutScheduledAt  *time.Time `json:"payout_scheduled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type CheckoutResponse struct {
	Reservation  ReservationResponse `json:"reservation"`
	PreferenceID string              `json:"preference_id"`
	InitPoint    string              `json:"init_point"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

type CancellationResponse struct {
	Reservation   ReservationResponse `json:"reservation"`
	RefundAmount  int64               `json:"refund_amount"`
	RefundPercent int                 `json:"refund_percent"`
}

func ReservationToResponse(r *entity.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:                 r.ID.String(),
		ExpeditionID:       r.ExpeditionID.String(),
		UserID:             r.UserID.String(),
		Status:             r.Status,
		Quantity:           r.Quantity,
		UnitPrice:          r.UnitPrice,
		TotalAmount:        r.TotalAmount,
		PaymentMethod:      r.PaymentMethod,
		ExpiresAt:          r.ExpiresAt,
		PaidAt:             r.PaidAt,
		ContestationEndsAt: r.ContestationEndsAt,
		CancelledAt:        r.CancelledAt,
		CancellationReason: r.CancellationReason,
		RefundAmount:       r.RefundAmount,
		PayoutScheduledAt:  r.PayoutScheduledAt,
		CreatedAt:          r.CreatedAt,
	}
}

func ReservationsToResponse(reservations []*entity.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, ReservationToResponse(r))
	}
	return out
}
