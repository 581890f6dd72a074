package entity

import (
	"time"

	"github.com/google/uuid"
)

type ContestationStatus string

const (
	ContestationStatusOpen          ContestationStatus = "open"
	ContestationStatusUnderReview   ContestationStatus = "under_review"
	ContestationStatusResolvedUser  ContestationStatus = "resolved_user"
	ContestationStatusResolvedGuide ContestationStatus = "resolved_guide"
	ContestationStatusClosed        ContestationStatus = "closed"
)

type ContestationReason string

const (
	ReasonExpeditionNotCompleted    ContestationReason = "expedition_not_completed"
	ReasonDifferentFromDescription  ContestationReason = "different_from_description"
	ReasonSafetyIssues              ContestationReason = "safety_issues"
	ReasonGuideNoShow               ContestationReason = "guide_no_show"
	ReasonPoorService               ContestationReason = "poor_service"
	ReasonOther                     ContestationReason = "other"
)

// Contestation is a dispute opened by the trekker against a completed
// reservation, only while the contestation window is open. Resolution by an
// admin drives the reservation to refunded or released and unblocks or cancels
// the payout.
type Contestation struct {
	Base
	ReservationID uuid.UUID          `db:"reservation_id"`
	UserID        uuid.UUID          `db:"user_id"`
	GuideID       uuid.UUID          `db:"guide_id"`
	Status        ContestationStatus `db:"status"`
	Reason        ContestationReason `db:"reason"`
	Description   string             `db:"description"`
	EvidenceURLs  []string           `db:"evidence_urls"`

	GuideResponse     *string    `db:"guide_response"`
	GuideResponseAt   *time.Time `db:"guide_response_at"`
	GuideEvidenceURLs []string   `db:"guide_evidence_urls"`

	Resolution   *string    `db:"resolution"`
	ResolvedBy   *uuid.UUID `db:"resolved_by"`
	ResolvedAt   *time.Time `db:"resolved_at"`
	RefundAmount *int64     `db:"refund_amount"`
}

// Open reports whether the dispute still needs attention.
func (c *Contestation) Open() bool {
	return c.Status == ContestationStatusOpen || c.Status == ContestationStatusUnderReview
}
