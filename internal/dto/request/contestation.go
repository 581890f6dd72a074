package request

type OpenContestationRequest struct {
	ReservationID string   `json:"reservation_id" validate:"required,uuid4"`
	Reason        string   `json:"reason" validate:"required,oneof=expedition_not_completed different_from_description safety_issues guide_no_show poor_service other"`
	Description   string   `json:"description" validate:"required,min=20,max=2000"`
	EvidenceURLs  []string `json:"evidence_urls" validate:"max=10,dive,url"`
}

type GuideResponseRequest struct {
	Response     string   `json:"response" validate:"required,min=20,max=2000"`
	EvidenceURLs []string `json:"evidence_urls" validate:"max=10,dive,url"`
}

type ResolveContestationRequest struct {
	Outcome      string `json:"outcome" validate:"required,oneof=resolved_user resolved_guide"`
	Resolution   string `json:"resolution" validate:"required,min=10,max=2000"`
	RefundAmount *int64 `json:"refund_amount" validate:"omitempty,min=0"`
}
