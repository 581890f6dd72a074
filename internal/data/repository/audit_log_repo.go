package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"trekko-booking/internal/data/entity"
	"trekko-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuditLogRepository interface {
	Create(ctx context.Context, entry *entity.AuditLogEntry) error
	FindByEntity(ctx context.Context, entityType entity.AuditEntityType, entityID uuid.UUID) ([]*entity.AuditLogEntry, error)
}

type auditLogRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAuditLogRepository(db database.PgxIface, log *zap.Logger) AuditLogRepository {
	return &auditLogRepository{
		db:  db,
		log: log.With(zap.String("repository", "audit_log")),
	}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *entity.AuditLogEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	actorType := entry.ActorType
	if actorType == "" {
		actorType = entity.ActorSystem
	}

	query := `
		INSERT INTO payment_audit_log (id, entity_type, entity_id, action, previous_value, new_value, actor_id, actor_type, ip_address, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.PreviousValue,
		entry.NewValue,
		entry.ActorID,
		actorType,
		entry.IPAddress,
		metadata,
		entry.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create audit log entry",
			zap.Error(err),
			zap.String("entity_type", string(entry.EntityType)),
			zap.String("entity_id", entry.EntityID.String()),
			zap.String("action", entry.Action),
		)
		return fmt.Errorf("create audit log entry for %s %s: %w", string(entry.EntityType), entry.EntityID.String(), err)
	}

	return nil
}

func (r *auditLogRepository) FindByEntity(ctx context.Context, entityType entity.AuditEntityType, entityID uuid.UUID) ([]*entity.AuditLogEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, action, previous_value, new_value, actor_id, actor_type, ip_address, metadata, created_at
		FROM payment_audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		r.log.Error("Failed to find audit log entries",
			zap.Error(err),
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID.String()),
		)
		return nil, fmt.Errorf("find audit log entries for %s %s: %w", string(entityType), entityID.String(), err)
	}
	defer rows.Close()

	var entries []*entity.AuditLogEntry
	for rows.Next() {
		var e entity.AuditLogEntry
		var metadata []byte

		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.PreviousValue,
			&e.NewValue, &e.ActorID, &e.ActorType, &e.IPAddress, &metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit log row: %w", err)
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
