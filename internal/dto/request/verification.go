package request

type SubmitVerificationRequest struct {
	DocumentType     string `json:"document_type" validate:"required,oneof=cpf cnpj"`
	DocumentNumber   string `json:"document_number" validate:"required,min=11,max=18"`
	PixKeyType       string `json:"pix_key_type" validate:"required,oneof=cpf cnpj email phone random"`
	PixKey           string `json:"pix_key" validate:"required,max=140"`
	PixKeyHolderName string `json:"pix_key_holder_name" validate:"required,max=200"`
	PixKeyDocument   string `json:"pix_key_document" validate:"required,min=11,max=18"`

	AcceptedIntermediationTerms bool `json:"accepted_intermediation_terms" validate:"required"`
	AcceptedPayoutTerms         bool `json:"accepted_payout_terms" validate:"required"`
	AcceptedContestationPolicy  bool `json:"accepted_contestation_policy" validate:"required"`
}

type ReviewVerificationRequest struct {
	Status          string  `json:"status" validate:"required,oneof=approved rejected suspended"`
	RejectionReason *string `json:"rejection_reason" validate:"omitempty,max=1000"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}
