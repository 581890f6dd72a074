package entity

import (
	"time"

	"github.com/google/uuid"
)

type ExpeditionStatus string

const (
	ExpeditionStatusDraft     ExpeditionStatus = "draft"
	ExpeditionStatusPublished ExpeditionStatus = "published"
	ExpeditionStatusActive    ExpeditionStatus = "active"
	ExpeditionStatusFull      ExpeditionStatus = "full"
	ExpeditionStatusClosed    ExpeditionStatus = "closed"
	ExpeditionStatusCancelled ExpeditionStatus = "cancelled"
	ExpeditionStatusCompleted ExpeditionStatus = "completed"
)

// Expedition is a guided trip on a trail. Price is centavos per spot.
// EnrolledCount is a cached aggregate and is always recomputed from paid
// reservations, never incremented blindly.
type Expedition struct {
	Base
	GuideID             uuid.UUID        `db:"guide_id"`
	TrailID             uuid.UUID        `db:"trail_id"`
	Title               string           `db:"title"`
	StartDate           time.Time        `db:"start_date"`
	Capacity            int              `db:"capacity"`
	EnrolledCount       int              `db:"enrolled_count"`
	Price               int64            `db:"price"`
	Status              ExpeditionStatus `db:"status"`
	CompletedAt         *time.Time       `db:"completed_at"`
	ContestationEndDate *time.Time       `db:"contestation_end_date"`
}

// Bookable reports whether new reservations are accepted.
func (e *Expedition) Bookable() bool {
	return e.Status == ExpeditionStatusActive || e.Status == ExpeditionStatusPublished
}
