package queue

import (
	"time"

	"github.com/google/uuid"
)

const PayoutScheduledQueue = "payout.scheduled"

// PayoutScheduledEvent is published when a contestation window closes and a
// payout becomes eligible for execution. The worker consumes it as a nudge;
// the database remains the source of truth for what is actually due.
type PayoutScheduledEvent struct {
	PayoutID      uuid.UUID `json:"payout_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	GuideID       uuid.UUID `json:"guide_id"`
	NetAmount     int64     `json:"net_amount"`
	ScheduledDate time.Time `json:"scheduled_date"`
	PublishedAt   time.Time `json:"published_at"`
}
