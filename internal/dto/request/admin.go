package request

type UpdateSettingRequest struct {
	Value string `json:"value" validate:"required,max=200"`
}

type BlockPayoutRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
