package request

type CheckoutRequest struct {
	ExpeditionID string `json:"expedition_id" validate:"required,uuid4"`
	Quantity     int    `json:"quantity" validate:"required,min=1,max=10"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
