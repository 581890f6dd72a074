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

type ExpeditionRepository interface {
	Create(ctx context.Context, expedition *entity.Expedition) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Expedition, error)
	FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.Expedition, error)
	RecalcEnrollment(ctx context.Context, id uuid.UUID) (int, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, completedAt, contestationEndDate time.Time) error
}

type expeditionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewExpeditionRepository(db database.PgxIface, log *zap.Logger) ExpeditionRepository {
	return &expeditionRepository{
		db:  db,
		log: log.With(zap.String("repository", "expedition")),
	}
}

const expeditionColumns = `
	id, guide_id, trail_id, title, start_date, capacity, enrolled_count,
	price, status, completed_at, contestation_end_date, created_at, updated_at
`

func scanExpedition(row pgx.Row) (*entity.Expedition, error) {
	var e entity.Expedition
	err := row.Scan(
		&e.ID, &e.GuideID, &e.TrailID, &e.Title, &e.StartDate, &e.Capacity, &e.EnrolledCount,
		&e.Price, &e.Status, &e.CompletedAt, &e.ContestationEndDate, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *expeditionRepository) Create(ctx context.Context, expedition *entity.Expedition) error {
	query := `
		INSERT INTO expeditions (id, guide_id, trail_id, title, start_date, capacity, enrolled_count, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		expedition.ID,
		expedition.GuideID,
		expedition.TrailID,
		expedition.Title,
		expedition.StartDate,
		expedition.Capacity,
		expedition.EnrolledCount,
		expedition.Price,
		expedition.Status,
		expedition.CreatedAt,
		expedition.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create expedition",
			zap.Error(err),
			zap.String("guide_id", expedition.GuideID.String()),
		)
		return fmt.Errorf("create expedition: %w", err)
	}

	return nil
}

func (r *expeditionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Expedition, error) {
	query := `SELECT` + expeditionColumns + `FROM expeditions WHERE id = $1`

	expedition, err := scanExpedition(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find expedition by ID",
			zap.Error(err),
			zap.String("expedition_id", id.String()),
		)
		return nil, fmt.Errorf("find expedition by ID %s: %w", id.String(), err)
	}

	return expedition, nil
}

func (r *expeditionRepository) FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.Expedition, error) {
	query := `SELECT` + expeditionColumns + `
		FROM expeditions
		WHERE guide_id = $1
		ORDER BY start_date DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, guideID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find expeditions by guide ID",
			zap.Error(err),
			zap.String("guide_id", guideID.String()),
		)
		return nil, fmt.Errorf("find expeditions by guide ID %s: %w", guideID.String(), err)
	}
	defer rows.Close()

	var expeditions []*entity.Expedition
	for rows.Next() {
		expedition, err := scanExpedition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expedition row: %w", err)
		}
		expeditions = append(expeditions, expedition)
	}

	return expeditions, rows.Err()
}

// RecalcEnrollment recomputes the enrolled count from paid reservations and
// flips the expedition between active and full accordingly. The cached count
// is never incremented in place. Returns the fresh count.
func (r *expeditionRepository) RecalcEnrollment(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE expeditions
		SET enrolled_count = sub.total,
		    status = CASE
		        WHEN status IN ('active', 'full') AND sub.total >= capacity THEN 'full'
		        WHEN status IN ('active', 'full') AND sub.total < capacity THEN 'active'
		        ELSE status
		    END,
		    updated_at = NOW()
		FROM (
		    SELECT COALESCE(SUM(quantity), 0) AS total
		    FROM reservations
		    WHERE expedition_id = $1 AND status = 'paid'
		) sub
		WHERE id = $1
		RETURNING enrolled_count
	`

	var count int
	err := r.db.QueryRow(ctx, query, id).Scan(&count)
	if err != nil {
		r.log.Error("Failed to recalculate enrollment",
			zap.Error(err),
			zap.String("expedition_id", id.String()),
		)
		return 0, fmt.Errorf("recalculate enrollment for expedition %s: %w", id.String(), err)
	}

	r.log.Info("Enrollment recalculated",
		zap.String("expedition_id", id.String()),
		zap.Int("enrolled_count", count),
	)

	return count, nil
}

func (r *expeditionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt, contestationEndDate time.Time) error {
	query := `
		UPDATE expeditions
		SET status = 'completed', completed_at = $2, contestation_end_date = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('active', 'full')
	`

	result, err := r.db.Exec(ctx, query, id, completedAt, contestationEndDate)
	if err != nil {
		r.log.Error("Failed to mark expedition completed",
			zap.Error(err),
			zap.String("expedition_id", id.String()),
		)
		return fmt.Errorf("mark expedition %s completed: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark expedition %s completed: %w", id.String(), ErrStaleTransition)
	}

	return nil
}
