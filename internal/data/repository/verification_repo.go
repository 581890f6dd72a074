package repository

import (
	"context"
	"fmt"

	"trekko-booking/internal/data/entity"
	"trekko-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type GuideVerificationRepository interface {
	Upsert(ctx context.Context, verification *entity.GuideVerification) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.GuideVerification, error)
	ListByStatus(ctx context.Context, status entity.VerificationStatus, limit, offset int) ([]*entity.GuideVerification, error)
	Review(ctx context.Context, userID uuid.UUID, status entity.VerificationStatus, reviewedBy uuid.UUID, rejectionReason, notes *string) error
	SetDocumentURLs(ctx context.Context, userID uuid.UUID, documentURL, bankProofURL *string) error
}

type guideVerificationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewGuideVerificationRepository(db database.PgxIface, log *zap.Logger) GuideVerificationRepository {
	return &guideVerificationRepository{
		db:  db,
		log: log.With(zap.String("repository", "guide_verification")),
	}
}

const verificationColumns = `
	id, user_id, status, document_type, document_number, pix_key_type, pix_key,
	pix_key_holder_name, pix_key_document, document_url, bank_proof_url,
	accepted_intermediation_terms, accepted_payout_terms, accepted_contestation_policy,
	terms_accepted_at, reviewed_by, reviewed_at, rejection_reason, notes,
	created_at, updated_at
`

func scanVerification(row pgx.Row) (*entity.GuideVerification, error) {
	var v entity.GuideVerification
	err := row.Scan(
		&v.ID, &v.UserID, &v.Status, &v.DocumentType, &v.DocumentNumber, &v.PixKeyType, &v.PixKey,
		&v.PixKeyHolderName, &v.PixKeyDocument, &v.DocumentURL, &v.BankProofURL,
		&v.AcceptedIntermediationTerms, &v.AcceptedPayoutTerms, &v.AcceptedContestationPolicy,
		&v.TermsAcceptedAt, &v.ReviewedBy, &v.ReviewedAt, &v.RejectionReason, &v.Notes,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Upsert creates or resubmits a verification. A resubmission resets the
// record to pending and clears any previous review.
func (r *guideVerificationRepository) Upsert(ctx context.Context, verification *entity.GuideVerification) error {
	query := `
		INSERT INTO guide_verifications (id, user_id, status, document_type, document_number, pix_key_type, pix_key, pix_key_holder_name, pix_key_document, accepted_intermediation_terms, accepted_payout_terms, accepted_contestation_policy, terms_accepted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id) DO UPDATE SET
			status = 'pending',
			document_type = $4,
			document_number = $5,
			pix_key_type = $6,
			pix_key = $7,
			pix_key_holder_name = $8,
			pix_key_document = $9,
			accepted_intermediation_terms = $10,
			accepted_payout_terms = $11,
			accepted_contestation_policy = $12,
			terms_accepted_at = $13,
			reviewed_by = NULL,
			reviewed_at = NULL,
			rejection_reason = NULL,
			updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		verification.ID,
		verification.UserID,
		verification.Status,
		verification.DocumentType,
		verification.DocumentNumber,
		verification.PixKeyType,
		verification.PixKey,
		verification.PixKeyHolderName,
		verification.PixKeyDocument,
		verification.AcceptedIntermediationTerms,
		verification.AcceptedPayoutTerms,
		verification.AcceptedContestationPolicy,
		verification.TermsAcceptedAt,
		verification.CreatedAt,
		verification.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to upsert guide verification",
			zap.Error(err),
			zap.String("user_id", verification.UserID.String()),
		)
		return fmt.Errorf("upsert guide verification for user %s: %w", verification.UserID.String(), err)
	}

	return nil
}

func (r *guideVerificationRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.GuideVerification, error) {
	query := `SELECT` + verificationColumns + `FROM guide_verifications WHERE user_id = $1`

	verification, err := scanVerification(r.db.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find guide verification",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find guide verification for user %s: %w", userID.String(), err)
	}

	return verification, nil
}

func (r *guideVerificationRepository) ListByStatus(ctx context.Context, status entity.VerificationStatus, limit, offset int) ([]*entity.GuideVerification, error) {
	query := `SELECT` + verificationColumns + `
		FROM guide_verifications
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.log.Error("Failed to list guide verifications", zap.Error(err))
		return nil, fmt.Errorf("list guide verifications by status %s: %w", string(status), err)
	}
	defer rows.Close()

	var verifications []*entity.GuideVerification
	for rows.Next() {
		verification, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guide verification row: %w", err)
		}
		verifications = append(verifications, verification)
	}

	return verifications, rows.Err()
}

func (r *guideVerificationRepository) Review(ctx context.Context, userID uuid.UUID, status entity.VerificationStatus, reviewedBy uuid.UUID, rejectionReason, notes *string) error {
	query := `
		UPDATE guide_verifications
		SET status = $2, reviewed_by = $3, reviewed_at = NOW(), rejection_reason = $4, notes = COALESCE($5, notes), updated_at = NOW()
		WHERE user_id = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, userID, status, reviewedBy, rejectionReason, notes)
	if err != nil {
		r.log.Error("Failed to review guide verification",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return fmt.Errorf("review guide verification for user %s: %w", userID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("review guide verification for user %s: %w", userID.String(), ErrStaleTransition)
	}

	r.log.Info("Guide verification reviewed",
		zap.String("user_id", userID.String()),
		zap.String("status", string(status)),
	)

	return nil
}

func (r *guideVerificationRepository) SetDocumentURLs(ctx context.Context, userID uuid.UUID, documentURL, bankProofURL *string) error {
	query := `
		UPDATE guide_verifications
		SET document_url = COALESCE($2, document_url), bank_proof_url = COALESCE($3, bank_proof_url), updated_at = NOW()
		WHERE user_id = $1
	`

	result, err := r.db.Exec(ctx, query, userID, documentURL, bankProofURL)
	if err != nil {
		r.log.Error("Failed to set verification document URLs",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return fmt.Errorf("set document URLs for user %s: %w", userID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("verification for user %s not found", userID.String())
	}

	return nil
}
