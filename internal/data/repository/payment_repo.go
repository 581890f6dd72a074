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

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByMPPaymentID(ctx context.Context, mpPaymentID string) (*entity.Payment, error)
	FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*entity.Payment, error)
	UpdateStatusByMPPaymentID(ctx context.Context, mpPaymentID string, status entity.PaymentStatus) error
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `
	id, reservation_id, mp_payment_id, status, gross_amount, platform_fee,
	mp_fee, net_amount, payment_method, payment_type_id, currency,
	created_at, updated_at
`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	var paymentMethod *string

	err := row.Scan(
		&p.ID, &p.ReservationID, &p.MPPaymentID, &p.Status, &p.GrossAmount,
		&p.PlatformFee, &p.MPFee, &p.NetAmount, &paymentMethod, &p.PaymentTypeID,
		&p.Currency, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paymentMethod != nil {
		pm := entity.PaymentMethod(*paymentMethod)
		p.PaymentMethod = &pm
	}

	return &p, nil
}

// Create inserts a payment row, idempotent on the external payment id. A
// replayed webhook hits the unique index and gets ErrDuplicatePayment instead
// of a second row.
func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	if err := payment.Reconcile(); err != nil {
		return err
	}

	query := `
		INSERT INTO payments (id, reservation_id, mp_payment_id, status, gross_amount, platform_fee, mp_fee, net_amount, payment_method, payment_type_id, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (mp_payment_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.ReservationID,
		payment.MPPaymentID,
		payment.Status,
		payment.GrossAmount,
		payment.PlatformFee,
		payment.MPFee,
		payment.NetAmount,
		payment.PaymentMethod,
		payment.PaymentTypeID,
		payment.Currency,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("mp_payment_id", payment.MPPaymentID),
			zap.String("reservation_id", payment.ReservationID.String()),
		)
		return fmt.Errorf("create payment %s: %w", payment.MPPaymentID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s: %w", payment.MPPaymentID, ErrDuplicatePayment)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT` + paymentColumns + `FROM payments WHERE id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByMPPaymentID(ctx context.Context, mpPaymentID string) (*entity.Payment, error) {
	query := `SELECT` + paymentColumns + `FROM payments WHERE mp_payment_id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, mpPaymentID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by MP payment ID",
			zap.Error(err),
			zap.String("mp_payment_id", mpPaymentID),
		)
		return nil, fmt.Errorf("find payment by MP payment ID %s: %w", mpPaymentID, err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*entity.Payment, error) {
	query := `SELECT` + paymentColumns + `FROM payments WHERE reservation_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, reservationID)
	if err != nil {
		r.log.Error("Failed to find payments by reservation ID",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return nil, fmt.Errorf("find payments by reservation ID %s: %w", reservationID.String(), err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) UpdateStatusByMPPaymentID(ctx context.Context, mpPaymentID string, status entity.PaymentStatus) error {
	query := `UPDATE payments SET status = $2, updated_at = NOW() WHERE mp_payment_id = $1`

	result, err := r.db.Exec(ctx, query, mpPaymentID, status)
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("mp_payment_id", mpPaymentID),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update payment %s status to %s: %w", mpPaymentID, string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", mpPaymentID)
	}

	return nil
}
