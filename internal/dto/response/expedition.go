package response

import (
	"time"

	"trekko-booking/internal/data/entity"
)

type ExpeditionResponse struct {
	ID            string                  `json:"id"`
	GuideID       string                  `json:"guide_id"`
	TrailID       string                  `json:"trail_id"`
	Title         string                  `json:"title"`
	StartDate     time.Time               `json:"start_date"`
	Capacity      int                     `json:"capacity"`
	EnrolledCount int                     `json:"enrolled_count"`
	Price         int64                   `json:"price"`
	Status        entity.ExpeditionStatus `json:"status"`

	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	ContestationEndDate *time.Time `json:"contestation_end_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type CompletionResponse struct {
	Expedition          ExpeditionResponse `json:"expedition"`
	ReservationsMoved   int                `json:"reservations_moved"`
	ContestationEndDate time.Time          `json:"contestation_end_date"`
}

func ExpeditionToResponse(e *entity.Expedition) ExpeditionResponse {
	return ExpeditionResponse{
		ID:                  e.ID.String(),
		GuideID:             e.GuideID.String(),
		TrailID:             e.TrailID.String(),
		Title:               e.Title,
		StartDate:           e.StartDate,
		Capacity:            e.Capacity,
		EnrolledCount:       e.EnrolledCount,
		Price:               e.Price,
		Status:              e.Status,
		CompletedAt:         e.CompletedAt,
		ContestationEndDate: e.ContestationEndDate,
		CreatedAt:           e.CreatedAt,
	}
}

func ExpeditionsToResponse(expeditions []*entity.Expedition) []ExpeditionResponse {
	out := make([]ExpeditionResponse, 0, len(expeditions))
	for _, e := range expeditions {
		out = append(out, ExpeditionToResponse(e))
	}
	return out
}
