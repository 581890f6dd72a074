package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusCreated              ReservationStatus = "created"
	ReservationStatusPendingPayment       ReservationStatus = "pending_payment"
	ReservationStatusPaid                 ReservationStatus = "paid"
	ReservationStatusAwaitingExpedition   ReservationStatus = "awaiting_expedition"
	ReservationStatusExpeditionInProgress ReservationStatus = "expedition_in_progress"
	ReservationStatusAwaitingContestation ReservationStatus = "awaiting_contestation"
	ReservationStatusInDispute            ReservationStatus = "in_dispute"
	ReservationStatusReleased             ReservationStatus = "released"
	ReservationStatusPayoutSent           ReservationStatus = "payout_sent"
	ReservationStatusCancelled            ReservationStatus = "cancelled"
	ReservationStatusRefunded             ReservationStatus = "refunded"
	ReservationStatusNoShow               ReservationStatus = "no_show"
)

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodPix          PaymentMethod = "pix"
	PaymentMethodBoleto       PaymentMethod = "boleto"
	PaymentMethodAccountMoney PaymentMethod = "account_money"
)

type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorGuide  ActorType = "guide"
	ActorAdmin  ActorType = "admin"
	ActorSystem ActorType = "system"
)

// Reservation is one user's booking of N spots on one expedition. Amounts are
// centavos, fixed at creation: TotalAmount = Quantity * UnitPrice and is never
// recomputed from the live expedition price. Rows are never hard-deleted.
type Reservation struct {
	Base
	ExpeditionID uuid.UUID         `db:"expedition_id"`
	UserID       uuid.UUID         `db:"user_id"`
	Quantity     int               `db:"quantity"`
	UnitPrice    int64             `db:"unit_price"`
	TotalAmount  int64             `db:"total_amount"`
	Status       ReservationStatus `db:"status"`

	// Mercado Pago references
	MPPreferenceID      *string `db:"mp_preference_id"`
	MPPaymentID         *string `db:"mp_payment_id"`
	MPExternalReference *string `db:"mp_external_reference"`
	MPRefundID          *string `db:"mp_refund_id"`

	PaymentMethod *PaymentMethod `db:"payment_method"`

	ExpiresAt time.Time  `db:"expires_at"`
	PaidAt    *time.Time `db:"paid_at"`

	// Completion / contestation window
	ExpeditionCompletedAt *time.Time `db:"expedition_completed_at"`
	ContestationEndsAt    *time.Time `db:"contestation_ends_at"`

	// Payout tracking
	PayoutScheduledAt *time.Time `db:"payout_scheduled_at"`
	PayoutCompletedAt *time.Time `db:"payout_completed_at"`

	// Cancellation / refund
	CancelledAt        *time.Time `db:"cancelled_at"`
	CancellationReason *string    `db:"cancellation_reason"`
	CancelledBy        *ActorType `db:"cancelled_by"`
	RefundedAt         *time.Time `db:"refunded_at"`
	RefundAmount       *int64     `db:"refund_amount"`
}

// reservationTransitions is the full status graph. A transition missing here
// is invalid no matter which actor asks for it; conditional updates at the
// store layer serialize racing triggers on top of this.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusCreated:        {ReservationStatusPendingPayment},
	ReservationStatusPendingPayment: {ReservationStatusPaid, ReservationStatusCancelled},
	ReservationStatusPaid: {
		ReservationStatusAwaitingExpedition,
		ReservationStatusExpeditionInProgress,
		ReservationStatusAwaitingContestation,
		ReservationStatusRefunded,
		ReservationStatusCancelled,
		ReservationStatusNoShow,
	},
	ReservationStatusAwaitingExpedition: {
		ReservationStatusExpeditionInProgress,
		ReservationStatusRefunded,
		ReservationStatusCancelled,
		ReservationStatusNoShow,
	},
	ReservationStatusExpeditionInProgress: {ReservationStatusAwaitingContestation},
	ReservationStatusAwaitingContestation: {
		ReservationStatusInDispute,
		ReservationStatusReleased,
	},
	ReservationStatusInDispute: {
		ReservationStatusReleased,
		ReservationStatusRefunded,
	},
	ReservationStatusReleased: {ReservationStatusPayoutSent},
	// terminal states
	ReservationStatusPayoutSent: {},
	ReservationStatusCancelled:  {},
	ReservationStatusRefunded:   {},
	ReservationStatusNoShow:     {},
}

// CanTransition reports whether the status graph allows from -> to.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range reservationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s ReservationStatus) bool {
	targets, ok := reservationTransitions[s]
	return ok && len(targets) == 0
}

// ReservationUpdate carries the optional columns a status transition may set.
// Nil fields are left untouched by the store.
type ReservationUpdate struct {
	MPPaymentID           *string
	MPPreferenceID        *string
	MPExternalReference   *string
	MPRefundID            *string
	PaymentMethod         *PaymentMethod
	PaidAt                *time.Time
	ExpeditionCompletedAt *time.Time
	ContestationEndsAt    *time.Time
	PayoutScheduledAt     *time.Time
	PayoutCompletedAt     *time.Time
	CancelledAt           *time.Time
	CancellationReason    *string
	CancelledBy           *ActorType
	RefundedAt            *time.Time
	RefundAmount          *int64
}

// StatusTransition is the unit of change for a reservation: the guarded status
// move, the fields it sets, and the audit trail entry it must produce. The
// store applies all of it in one transaction so the audit write cannot be
// forgotten by a caller.
type StatusTransition struct {
	ReservationID uuid.UUID
	From          ReservationStatus
	To            ReservationStatus
	Set           ReservationUpdate
	Action        string
	ActorID       *uuid.UUID
	ActorType     ActorType
}
