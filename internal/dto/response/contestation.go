package response

import (
	"time"

	"trekko-booking/internal/data/entity"
)

type ContestationResponse struct {
	ID            string                    `json:"id"`
	ReservationID string                    `json:"reservation_id"`
	UserID        string                    `json:"user_id"`
	GuideID       string                    `json:"guide_id"`
	Status        entity.ContestationStatus `json:"status"`
	Reason        entity.ContestationReason `json:"reason"`
	Description   string                    `json:"description"`
	EvidenceURLs  []string                  `json:"evidence_urls,omitempty"`

	GuideResponse     *string    `json:"guide_response,omitempty"`
	GuideResponseAt   *time.Time `json:"guide_response_at,omitempty"`
	GuideEvidenceURLs []string   `json:"guide_evidence_urls,omitempty"`

	Resolution   *string    `json:"resolution,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	RefundAmount *int64     `json:"refund_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func ContestationToResponse(c *entity.Contestation) ContestationResponse {
	return ContestationResponse{
		ID:                c.ID.String(),
		ReservationID:     c.ReservationID.String(),
		UserID:            c.UserID.String(),
		GuideID:           c.GuideID.String(),
		Status:            c.Status,
		Reason:            c.Reason,
		Description:       c.Description,
		EvidenceURLs:      c.EvidenceURLs,
		GuideResponse:     c.GuideResponse,
		GuideResponseAt:   c.GuideResponseAt,
		GuideEvidenceURLs: c.GuideEvidenceURLs,
		Resolution:        c.Resolution,
		ResolvedAt:        c.ResolvedAt,
		RefundAmount:      c.RefundAmount,
		CreatedAt:         c.CreatedAt,
	}
}

func ContestationsToResponse(contestations []*entity.Contestation) []ContestationResponse {
	out := make([]ContestationResponse, 0, len(contestations))
	for _, c := range contestations {
		out = append(out, ContestationToResponse(c))
	}
	return out
}
