package entity

import (
	"time"

	"github.com/google/uuid"
)

type VerificationStatus string

const (
	VerificationStatusPending   VerificationStatus = "pending"
	VerificationStatusApproved  VerificationStatus = "approved"
	VerificationStatusRejected  VerificationStatus = "rejected"
	VerificationStatusSuspended VerificationStatus = "suspended"
)

type PixKeyType string

const (
	PixKeyCPF    PixKeyType = "cpf"
	PixKeyCNPJ   PixKeyType = "cnpj"
	PixKeyEmail  PixKeyType = "email"
	PixKeyPhone  PixKeyType = "phone"
	PixKeyRandom PixKeyType = "random"
)

// GuideVerification is the KYC record for a guide. Payout execution requires
// an approved verification with a registered PIX key.
type GuideVerification struct {
	Base
	UserID uuid.UUID          `db:"user_id"`
	Status VerificationStatus `db:"status"`

	DocumentType   string `db:"document_type"` // cpf or cnpj
	DocumentNumber string `db:"document_number"`

	PixKeyType       PixKeyType `db:"pix_key_type"`
	PixKey           string     `db:"pix_key"`
	PixKeyHolderName string     `db:"pix_key_holder_name"`
	PixKeyDocument   string     `db:"pix_key_document"`

	DocumentURL  *string `db:"document_url"`
	BankProofURL *string `db:"bank_proof_url"`

	AcceptedIntermediationTerms bool       `db:"accepted_intermediation_terms"`
	AcceptedPayoutTerms         bool       `db:"accepted_payout_terms"`
	AcceptedContestationPolicy  bool       `db:"accepted_contestation_policy"`
	TermsAcceptedAt             *time.Time `db:"terms_accepted_at"`

	ReviewedBy      *uuid.UUID `db:"reviewed_by"`
	ReviewedAt      *time.Time `db:"reviewed_at"`
	RejectionReason *string    `db:"rejection_reason"`
	Notes           *string    `db:"notes"`
}

// PayoutReady reports whether transfers may be sent to this guide.
func (v *GuideVerification) PayoutReady() bool {
	return v.Status == VerificationStatusApproved && v.PixKey != ""
}
