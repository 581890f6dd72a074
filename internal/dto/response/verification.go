package response

import (
	"time"

	"trekko-booking/internal/data/entity"
)

type VerificationResponse struct {
	ID     string                    `json:"id"`
	UserID string                    `json:"user_id"`
	Status entity.VerificationStatus `json:"status"`

	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`

	PixKeyType       entity.PixKeyType `json:"pix_key_type"`
	PixKey           string            `json:"pix_key"`
	PixKeyHolderName string            `json:"pix_key_holder_name"`

	DocumentURL  *string `json:"document_url,omitempty"`
	BankProofURL *string `json:"bank_proof_url,omitempty"`

	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func VerificationToResponse(v *entity.GuideVerification) VerificationResponse {
	return VerificationResponse{
		ID:               v.ID.String(),
		UserID:           v.UserID.String(),
		Status:           v.Status,
		DocumentType:     v.DocumentType,
		DocumentNumber:   maskDocument(v.DocumentNumber),
		PixKeyType:       v.PixKeyType,
		PixKey:           v.PixKey,
		PixKeyHolderName: v.PixKeyHolderName,
		DocumentURL:      v.DocumentURL,
		BankProofURL:     v.BankProofURL,
		ReviewedAt:       v.ReviewedAt,
		RejectionReason:  v.RejectionReason,
		CreatedAt:        v.CreatedAt,
	}
}

func VerificationsToResponse(verifications []*entity.GuideVerification) []VerificationResponse {
	out := make([]VerificationResponse, 0, len(verifications))
	for _, v := range verifications {
		out = append(out, VerificationToResponse(v))
	}
	return out
}

// maskDocument keeps only the last four digits of a CPF or CNPJ.
func maskDocument(doc string) string {
	if len(doc) <= 4 {
		return doc
	}
	masked := make([]byte, len(doc)-4)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + doc[len(doc)-4:]
}
