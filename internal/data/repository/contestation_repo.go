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

type ContestationRepository interface {
	Create(ctx context.Context, contestation *entity.Contestation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Contestation, error)
	FindOpenByReservationID(ctx context.Context, reservationID uuid.UUID) (*entity.Contestation, error)
	FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.Contestation, error)
	ListUnresolved(ctx context.Context, limit, offset int) ([]*entity.Contestation, error)
	SetGuideResponse(ctx context.Context, id uuid.UUID, response string, evidenceURLs []string, respondedAt time.Time) error
	Resolve(ctx context.Context, id uuid.UUID, status entity.ContestationStatus, resolution string, resolvedBy uuid.UUID, refundAmount *int64) error
}

type contestationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewContestationRepository(db database.PgxIface, log *zap.Logger) ContestationRepository {
	return &contestationRepository{
		db:  db,
		log: log.With(zap.String("repository", "contestation")),
	}
}

const contestationColumns = `
	id, reservation_id, user_id, guide_id, status, reason, description,
	evidence_urls, guide_response, guide_response_at, guide_evidence_urls,
	resolution, resolved_by, resolved_at, refund_amount, created_at, updated_at
`

func scanContestation(row pgx.Row) (*entity.Contestation, error) {
	var c entity.Contestation
	err := row.Scan(
		&c.ID, &c.ReservationID, &c.UserID, &c.GuideID, &c.Status, &c.Reason, &c.Description,
		&c.EvidenceURLs, &c.GuideResponse, &c.GuideResponseAt, &c.GuideEvidenceURLs,
		&c.Resolution, &c.ResolvedBy, &c.ResolvedAt, &c.RefundAmount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contestationRepository) Create(ctx context.Context, contestation *entity.Contestation) error {
	query := `
		INSERT INTO contestations (id, reservation_id, user_id, guide_id, status, reason, description, evidence_urls, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		contestation.ID,
		contestation.ReservationID,
		contestation.UserID,
		contestation.GuideID,
		contestation.Status,
		contestation.Reason,
		contestation.Description,
		contestation.EvidenceURLs,
		contestation.CreatedAt,
		contestation.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create contestation",
			zap.Error(err),
			zap.String("reservation_id", contestation.ReservationID.String()),
		)
		return fmt.Errorf("create contestation for reservation %s: %w", contestation.ReservationID.String(), err)
	}

	r.log.Info("Contestation opened",
		zap.String("contestation_id", contestation.ID.String()),
		zap.String("reservation_id", contestation.ReservationID.String()),
		zap.String("reason", string(contestation.Reason)),
	)

	return nil
}

func (r *contestationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Contestation, error) {
	query := `SELECT` + contestationColumns + `FROM contestations WHERE id = $1`

	contestation, err := scanContestation(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find contestation by ID",
			zap.Error(err),
			zap.String("contestation_id", id.String()),
		)
		return nil, fmt.Errorf("find contestation by ID %s: %w", id.String(), err)
	}

	return contestation, nil
}

func (r *contestationRepository) FindOpenByReservationID(ctx context.Context, reservationID uuid.UUID) (*entity.Contestation, error) {
	query := `SELECT` + contestationColumns + `
		FROM contestations
		WHERE reservation_id = $1 AND status IN ('open', 'under_review')
		ORDER BY created_at DESC
		LIMIT 1
	`

	contestation, err := scanContestation(r.db.QueryRow(ctx, query, reservationID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find open contestation",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return nil, fmt.Errorf("find open contestation for reservation %s: %w", reservationID.String(), err)
	}

	return contestation, nil
}

func (r *contestationRepository) FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.Contestation, error) {
	query := `SELECT` + contestationColumns + `
		FROM contestations
		WHERE guide_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryMany(ctx, query, guideID, limit, offset)
}

// ListUnresolved returns every contestation still awaiting an admin decision,
// oldest first so pagination walks the backlog in order.
func (r *contestationRepository) ListUnresolved(ctx context.Context, limit, offset int) ([]*entity.Contestation, error) {
	query := `SELECT` + contestationColumns + `
		FROM contestations
		WHERE status IN ('open', 'under_review')
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`

	return r.queryMany(ctx, query, limit, offset)
}

func (r *contestationRepository) queryMany(ctx context.Context, query string, args ...any) ([]*entity.Contestation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list contestations", zap.Error(err))
		return nil, fmt.Errorf("list contestations: %w", err)
	}
	defer rows.Close()

	var contestations []*entity.Contestation
	for rows.Next() {
		contestation, err := scanContestation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contestation row: %w", err)
		}
		contestations = append(contestations, contestation)
	}

	return contestations, rows.Err()
}

func (r *contestationRepository) SetGuideResponse(ctx context.Context, id uuid.UUID, response string, evidenceURLs []string, respondedAt time.Time) error {
	query := `
		UPDATE contestations
		SET guide_response = $2, guide_evidence_urls = $3, guide_response_at = $4, status = 'under_review', updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`

	result, err := r.db.Exec(ctx, query, id, response, evidenceURLs, respondedAt)
	if err != nil {
		r.log.Error("Failed to set guide response",
			zap.Error(err),
			zap.String("contestation_id", id.String()),
		)
		return fmt.Errorf("set guide response on contestation %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("set guide response on contestation %s: %w", id.String(), ErrStaleTransition)
	}

	return nil
}

func (r *contestationRepository) Resolve(ctx context.Context, id uuid.UUID, status entity.ContestationStatus, resolution string, resolvedBy uuid.UUID, refundAmount *int64) error {
	query := `
		UPDATE contestations
		SET status = $2, resolution = $3, resolved_by = $4, refund_amount = $5, resolved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('open', 'under_review')
	`

	result, err := r.db.Exec(ctx, query, id, status, resolution, resolvedBy, refundAmount)
	if err != nil {
		r.log.Error("Failed to resolve contestation",
			zap.Error(err),
			zap.String("contestation_id", id.String()),
		)
		return fmt.Errorf("resolve contestation %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("resolve contestation %s: %w", id.String(), ErrStaleTransition)
	}

	r.log.Info("Contestation resolved",
		zap.String("contestation_id", id.String()),
		zap.String("status", string(status)),
	)

	return nil
}
