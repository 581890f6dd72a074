package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation *entity.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Reservation, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	FindByExpeditionID(ctx context.Context, expeditionID uuid.UUID) ([]*entity.Reservation, error)
	FindByMPPaymentID(ctx context.Context, mpPaymentID string) (*entity.Reservation, error)
	SetCheckoutArtifacts(ctx context.Context, id uuid.UUID, preferenceID, externalReference string) error

	// Business queries
	SumPaidQuantity(ctx context.Context, expeditionID uuid.UUID) (int, error)
	FindPaidByExpeditionID(ctx context.Context, expeditionID uuid.UUID) ([]*entity.Reservation, error)
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error)
	FindPastContestationWindow(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error)

	// Guarded writes
	TransitionStatus(ctx context.Context, t *entity.StatusTransition) error
	TransitionAllPaidByExpedition(ctx context.Context, expeditionID uuid.UUID, to entity.ReservationStatus, set entity.ReservationUpdate, action string, actorID *uuid.UUID, actorType entity.ActorType) (int, error)
}

type reservationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservationRepository(db database.PgxIface, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation")),
	}
}

const reservationColumns = `
	id, expedition_id, user_id, quantity, unit_price, total_amount, status,
	mp_preference_id, mp_payment_id, mp_external_reference, mp_refund_id,
	payment_method, expires_at, paid_at, expedition_completed_at,
	contestation_ends_at, payout_scheduled_at, payout_completed_at,
	cancelled_at, cancellation_reason, cancelled_by, refunded_at, refund_amount,
	created_at, updated_at
`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var r entity.Reservation
	var paymentMethod, cancelledBy *string

	err := row.Scan(
		&r.ID, &r.ExpeditionID, &r.UserID, &r.Quantity, &r.UnitPrice,
		&r.TotalAmount, &r.Status,
		&r.MPPreferenceID, &r.MPPaymentID, &r.MPExternalReference, &r.MPRefundID,
		&paymentMethod, &r.ExpiresAt, &r.PaidAt, &r.ExpeditionCompletedAt,
		&r.ContestationEndsAt, &r.PayoutScheduledAt, &r.PayoutCompletedAt,
		&r.CancelledAt, &r.CancellationReason, &cancelledBy, &r.RefundedAt,
		&r.RefundAmount,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paymentMethod != nil {
		pm := entity.PaymentMethod(*paymentMethod)
		r.PaymentMethod = &pm
	}
	if cancelledBy != nil {
		cb := entity.ActorType(*cancelledBy)
		r.CancelledBy = &cb
	}

	return &r, nil
}

func (r *reservationRepository) Create(ctx context.Context, reservation *entity.Reservation) error {
	query := `
		INSERT INTO reservations (id, expedition_id, user_id, quantity, unit_price, total_amount, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		reservation.ID,
		reservation.ExpeditionID,
		reservation.UserID,
		reservation.Quantity,
		reservation.UnitPrice,
		reservation.TotalAmount,
		reservation.Status,
		reservation.ExpiresAt,
		reservation.CreatedAt,
		reservation.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("reservation_id", reservation.ID.String()),
			zap.String("expedition_id", reservation.ExpeditionID.String()),
		)
		return fmt.Errorf("create reservation %s: %w", reservation.ID.String(), err)
	}

	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + `FROM reservations WHERE id = $1`

	reservation, err := scanReservation(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reservation by ID",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return nil, fmt.Errorf("find reservation by ID %s: %w", id.String(), err)
	}

	return reservation, nil
}

func (r *reservationRepository) FindByMPPaymentID(ctx context.Context, mpPaymentID string) (*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + `FROM reservations WHERE mp_payment_id = $1`

	reservation, err := scanReservation(r.db.QueryRow(ctx, query, mpPaymentID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reservation by payment ID",
			zap.Error(err),
			zap.String("mp_payment_id", mpPaymentID),
		)
		return nil, fmt.Errorf("find reservation by payment ID %s: %w", mpPaymentID, err)
	}

	return reservation, nil
}

func (r *reservationRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find reservations by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find reservations by user ID %s: %w", userID.String(), err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (r *reservationRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE user_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count reservations by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count reservations by user ID %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *reservationRepository) FindByExpeditionID(ctx context.Context, expeditionID uuid.UUID) ([]*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE expedition_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, expeditionID)
	if err != nil {
		r.log.Error("Failed to find reservations by expedition ID",
			zap.Error(err),
			zap.String("expedition_id", expeditionID.String()),
		)
		return nil, fmt.Errorf("find reservations by expedition ID %s: %w", expeditionID.String(), err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (r *reservationRepository) FindPaidByExpeditionID(ctx context.Context, expeditionID uuid.UUID) ([]*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE expedition_id = $1 AND status = 'paid'
	`

	rows, err := r.db.Query(ctx, query, expeditionID)
	if err != nil {
		r.log.Error("Failed to find paid reservations",
			zap.Error(err),
			zap.String("expedition_id", expeditionID.String()),
		)
		return nil, fmt.Errorf("find paid reservations for expedition %s: %w", expeditionID.String(), err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// SumPaidQuantity re-sums spots from the authoritative set of paid
// reservations. Capacity checks never trust a cached counter.
func (r *reservationRepository) SumPaidQuantity(ctx context.Context, expeditionID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM reservations WHERE expedition_id = $1 AND status = 'paid'`

	var total int
	if err := r.db.QueryRow(ctx, query, expeditionID).Scan(&total); err != nil {
		r.log.Error("Failed to sum paid quantity",
			zap.Error(err),
			zap.String("expedition_id", expeditionID.String()),
		)
		return 0, fmt.Errorf("sum paid quantity for expedition %s: %w", expeditionID.String(), err)
	}

	return total, nil
}

func (r *reservationRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE status = 'pending_payment' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to find expired pending reservations", zap.Error(err))
		return nil, fmt.Errorf("find expired pending reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (r *reservationRepository) FindPastContestationWindow(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE status = 'awaiting_contestation' AND contestation_ends_at <= $1
		ORDER BY contestation_ends_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to find reservations past contestation window", zap.Error(err))
		return nil, fmt.Errorf("find reservations past contestation window: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// SetCheckoutArtifacts stores the processor's preference id and external
// reference after the hosted checkout is created. Not a status transition.
func (r *reservationRepository) SetCheckoutArtifacts(ctx context.Context, id uuid.UUID, preferenceID, externalReference string) error {
	query := `
		UPDATE reservations
		SET mp_preference_id = $2, mp_external_reference = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, preferenceID, externalReference)
	if err != nil {
		r.log.Error("Failed to set checkout artifacts",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return fmt.Errorf("set checkout artifacts for reservation %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s not found", id.String())
	}

	return nil
}

// TransitionStatus applies a guarded status move and writes the audit entry in
// the same transaction. The UPDATE only matches when the stored status equals
// t.From; a concurrent writer that got there first leaves nothing to match and
// the caller gets ErrStaleTransition.
func (r *reservationRepository) TransitionStatus(ctx context.Context, t *entity.StatusTransition) error {
	if !entity.CanTransition(t.From, t.To) {
		return fmt.Errorf("reservation %s: %s -> %s: %w",
			t.ReservationID.String(), t.From, t.To, ErrInvalidTransition)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE reservations SET
			status = $3,
			mp_payment_id = COALESCE($4, mp_payment_id),
			mp_preference_id = COALESCE($5, mp_preference_id),
			mp_external_reference = COALESCE($6, mp_external_reference),
			mp_refund_id = COALESCE($7, mp_refund_id),
			payment_method = COALESCE($8, payment_method),
			paid_at = COALESCE($9, paid_at),
			expedition_completed_at = COALESCE($10, expedition_completed_at),
			contestation_ends_at = COALESCE($11, contestation_ends_at),
			payout_scheduled_at = COALESCE($12, payout_scheduled_at),
			payout_completed_at = COALESCE($13, payout_completed_at),
			cancelled_at = COALESCE($14, cancelled_at),
			cancellation_reason = COALESCE($15, cancellation_reason),
			cancelled_by = COALESCE($16, cancelled_by),
			refunded_at = COALESCE($17, refunded_at),
			refund_amount = COALESCE($18, refund_amount),
			updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := tx.Exec(ctx, query,
		t.ReservationID, t.From, t.To,
		t.Set.MPPaymentID, t.Set.MPPreferenceID, t.Set.MPExternalReference, t.Set.MPRefundID,
		t.Set.PaymentMethod, t.Set.PaidAt, t.Set.ExpeditionCompletedAt, t.Set.ContestationEndsAt,
		t.Set.PayoutScheduledAt, t.Set.PayoutCompletedAt,
		t.Set.CancelledAt, t.Set.CancellationReason, t.Set.CancelledBy,
		t.Set.RefundedAt, t.Set.RefundAmount,
	)
	if err != nil {
		r.log.Error("Failed to transition reservation status",
			zap.Error(err),
			zap.String("reservation_id", t.ReservationID.String()),
			zap.String("from", string(t.From)),
			zap.String("to", string(t.To)),
		)
		return fmt.Errorf("transition reservation %s to %s: %w", t.ReservationID.String(), t.To, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s expected %s: %w", t.ReservationID.String(), t.From, ErrStaleTransition)
	}

	if err := insertAuditTx(ctx, tx, auditRow{
		entityType: entity.AuditEntityReservation,
		entityID:   t.ReservationID,
		action:     t.Action,
		previous:   string(t.From),
		next:       string(t.To),
		actorID:    t.ActorID,
		actorType:  t.ActorType,
	}); err != nil {
		return fmt.Errorf("audit transition of reservation %s: %w", t.ReservationID.String(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transition tx: %w", err)
	}

	r.log.Info("Reservation status transitioned",
		zap.String("reservation_id", t.ReservationID.String()),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.String("action", t.Action),
	)

	return nil
}

// TransitionAllPaidByExpedition moves every paid reservation of an expedition
// to the target status in one transaction, one audit row each. Used by guide
// completion.
func (r *reservationRepository) TransitionAllPaidByExpedition(ctx context.Context, expeditionID uuid.UUID, to entity.ReservationStatus, set entity.ReservationUpdate, action string, actorID *uuid.UUID, actorType entity.ActorType) (int, error) {
	if !entity.CanTransition(entity.ReservationStatusPaid, to) {
		return 0, fmt.Errorf("paid -> %s: %w", to, ErrInvalidTransition)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin bulk transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE reservations SET
			status = $2,
			expedition_completed_at = COALESCE($3, expedition_completed_at),
			contestation_ends_at = COALESCE($4, contestation_ends_at),
			updated_at = NOW()
		WHERE expedition_id = $1 AND status = 'paid'
		RETURNING id
	`

	rows, err := tx.Query(ctx, query, expeditionID, to, set.ExpeditionCompletedAt, set.ContestationEndsAt)
	if err != nil {
		r.log.Error("Failed to bulk transition reservations",
			zap.Error(err),
			zap.String("expedition_id", expeditionID.String()),
			zap.String("to", string(to)),
		)
		return 0, fmt.Errorf("bulk transition reservations of expedition %s: %w", expeditionID.String(), err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, fmt.Errorf("collect bulk transition ids: %w", err)
	}

	for _, id := range ids {
		if err := insertAuditTx(ctx, tx, auditRow{
			entityType: entity.AuditEntityReservation,
			entityID:   id,
			action:     action,
			previous:   string(entity.ReservationStatusPaid),
			next:       string(to),
			actorID:    actorID,
			actorType:  actorType,
		}); err != nil {
			return 0, fmt.Errorf("audit bulk transition of reservation %s: %w", id.String(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit bulk transition tx: %w", err)
	}

	return len(ids), nil
}

func collectReservations(rows pgx.Rows) ([]*entity.Reservation, error) {
	var reservations []*entity.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}

// auditRow is the minimal shape TransitionStatus writes; the full audit
// repository handles reads and standalone entries.
type auditRow struct {
	entityType entity.AuditEntityType
	entityID   uuid.UUID
	action     string
	previous   string
	next       string
	actorID    *uuid.UUID
	actorType  entity.ActorType
	metadata   map[string]any
}

func insertAuditTx(ctx context.Context, tx pgx.Tx, row auditRow) error {
	var metadata []byte
	if row.metadata != nil {
		var err error
		metadata, err = json.Marshal(row.metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	actorType := row.actorType
	if actorType == "" {
		actorType = entity.ActorSystem
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO payment_audit_log (id, entity_type, entity_id, action, previous_value, new_value, actor_id, actor_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`, uuid.New(), row.entityType, row.entityID, row.action, row.previous, row.next, row.actorID, actorType, metadata)

	return err
}
