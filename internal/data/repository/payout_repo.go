package repository

import (
	"context"
	"fmt"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PayoutRepository interface {
	Create(ctx context.Context, payout *entity.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payout, error)
	FindCurrentByReservationID(ctx context.Context, reservationID uuid.UUID) (*entity.Payout, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.Payout, error)
	FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.Payout, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSent(ctx context.Context, id uuid.UUID, pixTransactionID, pixEndToEndID string, receiptURL *string) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time) error
	Block(ctx context.Context, id uuid.UUID, reason string) error
	Unblock(ctx context.Context, id uuid.UUID, newDate time.Time) error
}

type payoutRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPayoutRepository(db database.PgxIface, log *zap.Logger) PayoutRepository {
	return &payoutRepository{
		db:  db,
		log: log.With(zap.String("repository", "payout")),
	}
}

const payoutColumns = `
	id, guide_id, reservation_id, status, gross_amount, platform_fee,
	gateway_fee, net_amount, currency, pix_key, pix_key_type,
	pix_transaction_id, pix_end_to_end_id, pix_receipt_url,
	scheduled_date, processed_at, completed_at, failure_reason, retry_count,
	created_at, updated_at
`

func scanPayout(row pgx.Row) (*entity.Payout, error) {
	var p entity.Payout
	err := row.Scan(
		&p.ID, &p.GuideID, &p.ReservationID, &p.Status, &p.GrossAmount, &p.PlatformFee,
		&p.GatewayFee, &p.NetAmount, &p.Currency, &p.PixKey, &p.PixKeyType,
		&p.PixTransactionID, &p.PixEndToEndID, &p.PixReceiptURL,
		&p.ScheduledDate, &p.ProcessedAt, &p.CompletedAt, &p.FailureReason, &p.RetryCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *payoutRepository) Create(ctx context.Context, payout *entity.Payout) error {
	query := `
		INSERT INTO payouts (id, guide_id, reservation_id, status, gross_amount, platform_fee, gateway_fee, net_amount, currency, pix_key, pix_key_type, scheduled_date, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		payout.ID,
		payout.GuideID,
		payout.ReservationID,
		payout.Status,
		payout.GrossAmount,
		payout.PlatformFee,
		payout.GatewayFee,
		payout.NetAmount,
		payout.Currency,
		payout.PixKey,
		payout.PixKeyType,
		payout.ScheduledDate,
		payout.RetryCount,
		payout.CreatedAt,
		payout.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payout",
			zap.Error(err),
			zap.String("reservation_id", payout.ReservationID.String()),
			zap.String("guide_id", payout.GuideID.String()),
		)
		return fmt.Errorf("create payout for reservation %s: %w", payout.ReservationID.String(), err)
	}

	r.log.Info("Payout scheduled",
		zap.String("payout_id", payout.ID.String()),
		zap.String("reservation_id", payout.ReservationID.String()),
		zap.Int64("net_amount", payout.NetAmount),
		zap.Time("scheduled_date", payout.ScheduledDate),
	)

	return nil
}

func (r *payoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payout, error) {
	query := `SELECT` + payoutColumns + `FROM payouts WHERE id = $1`

	payout, err := scanPayout(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payout by ID",
			zap.Error(err),
			zap.String("payout_id", id.String()),
		)
		return nil, fmt.Errorf("find payout by ID %s: %w", id.String(), err)
	}

	return payout, nil
}

// FindCurrentByReservationID returns the latest payout that still counts
// toward the one-active-payout invariant. Failed payouts do not count, so a
// retry after failure is allowed; blocked payouts do.
func (r *payoutRepository) FindCurrentByReservationID(ctx context.Context, reservationID uuid.UUID) (*entity.Payout, error) {
	query := `SELECT` + payoutColumns + `
		FROM payouts
		WHERE reservation_id = $1 AND status != 'failed'
		ORDER BY created_at DESC
		LIMIT 1
	`

	payout, err := scanPayout(r.db.QueryRow(ctx, query, reservationID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find current payout",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return nil, fmt.Errorf("find current payout for reservation %s: %w", reservationID.String(), err)
	}

	return payout, nil
}

func (r *payoutRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.Payout, error) {
	query := `SELECT` + payoutColumns + `
		FROM payouts
		WHERE status = 'scheduled' AND scheduled_date <= $1
		ORDER BY scheduled_date
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to find due payouts", zap.Error(err))
		return nil, fmt.Errorf("find due payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*entity.Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout row: %w", err)
		}
		payouts = append(payouts, payout)
	}

	return payouts, rows.Err()
}

func (r *payoutRepository) FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.Payout, error) {
	query := `SELECT` + payoutColumns + `
		FROM payouts
		WHERE guide_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, guideID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find payouts by guide ID",
			zap.Error(err),
			zap.String("guide_id", guideID.String()),
		)
		return nil, fmt.Errorf("find payouts by guide ID %s: %w", guideID.String(), err)
	}
	defer rows.Close()

	var payouts []*entity.Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout row: %w", err)
		}
		payouts = append(payouts, payout)
	}

	return payouts, rows.Err()
}

// guardedUpdate runs a status-conditioned UPDATE and maps a zero row count to
// ErrStaleTransition, so concurrent workers cannot double-apply a step.
func (r *payoutRepository) guardedUpdate(ctx context.Context, action, query string, args ...any) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to update payout", zap.Error(err), zap.String("action", action))
		return fmt.Errorf("%s payout: %w", action, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s payout: %w", action, ErrStaleTransition)
	}
	return nil
}

func (r *payoutRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE payouts
		SET status = 'processing', processed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`
	return r.guardedUpdate(ctx, "mark processing", query, id)
}

func (r *payoutRepository) MarkSent(ctx context.Context, id uuid.UUID, pixTransactionID, pixEndToEndID string, receiptURL *string) error {
	query := `
		UPDATE payouts
		SET status = 'sent', pix_transaction_id = $2, pix_end_to_end_id = $3, pix_receipt_url = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`
	return r.guardedUpdate(ctx, "mark sent", query, id, pixTransactionID, pixEndToEndID, receiptURL)
}

func (r *payoutRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE payouts
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'sent'
	`
	return r.guardedUpdate(ctx, "mark completed", query, id)
}

func (r *payoutRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE payouts
		SET status = 'failed', failure_reason = $2, retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1 AND status IN ('scheduled', 'processing')
	`
	return r.guardedUpdate(ctx, "mark failed", query, id, reason)
}

func (r *payoutRepository) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time) error {
	query := `
		UPDATE payouts
		SET status = 'scheduled', scheduled_date = $2, failure_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'failed'
	`
	return r.guardedUpdate(ctx, "reschedule", query, id, newDate)
}

func (r *payoutRepository) Block(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE payouts
		SET status = 'blocked', failure_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('scheduled', 'processing')
	`
	return r.guardedUpdate(ctx, "block", query, id, reason)
}

func (r *payoutRepository) Unblock(ctx context.Context, id uuid.UUID, newDate time.Time) error {
	query := `
		UPDATE payouts
		SET status = 'scheduled', scheduled_date = $2, failure_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'blocked'
	`
	return r.guardedUpdate(ctx, "unblock", query, id, newDate)
}
