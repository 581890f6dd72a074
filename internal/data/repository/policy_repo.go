package repository

import (
	"context"
	"fmt"

	"trekko-booking/internal/data/entity"
	"trekko-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type CancellationPolicyRepository interface {
	FindDefault(ctx context.Context) (*entity.CancellationPolicy, error)
}

type cancellationPolicyRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCancellationPolicyRepository(db database.PgxIface, log *zap.Logger) CancellationPolicyRepository {
	return &cancellationPolicyRepository{
		db:  db,
		log: log.With(zap.String("repository", "cancellation_policy")),
	}
}

// FindDefault returns the default policy, or nil when none is configured.
// Callers treat nil as full refund.
func (r *cancellationPolicyRepository) FindDefault(ctx context.Context) (*entity.CancellationPolicy, error) {
	query := `
		SELECT id, name, description, full_refund_days, partial_refund_days, partial_refund_percent, no_refund_days, is_default, created_at, updated_at
		FROM cancellation_policies
		WHERE is_default = TRUE
		LIMIT 1
	`

	var p entity.CancellationPolicy
	err := r.db.QueryRow(ctx, query).Scan(
		&p.ID, &p.Name, &p.Description, &p.FullRefundDays, &p.PartialRefundDays,
		&p.PartialRefundPercent, &p.NoRefundDays, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find default cancellation policy", zap.Error(err))
		return nil, fmt.Errorf("find default cancellation policy: %w", err)
	}

	return &p, nil
}
