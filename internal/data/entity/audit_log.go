package entity

import (
	"github.com/google/uuid"
)

type AuditEntityType string

const (
	AuditEntityReservation       AuditEntityType = "reservation"
	AuditEntityPayment           AuditEntityType = "payment"
	AuditEntityPayout            AuditEntityType = "payout"
	AuditEntityGuideVerification AuditEntityType = "guide_verification"
	AuditEntityPlatformSetting   AuditEntityType = "platform_setting"
)

// AuditLogEntry is an append-only record of every state-changing action on the
// money path. Entries are never mutated or deleted; they are the source of
// truth for reconstructing history and dispute evidence.
type AuditLogEntry struct {
	BaseSimple
	EntityType    AuditEntityType `db:"entity_type"`
	EntityID      uuid.UUID       `db:"entity_id"`
	Action        string          `db:"action"`
	PreviousValue *string         `db:"previous_value"`
	NewValue      *string         `db:"new_value"`
	ActorID       *uuid.UUID      `db:"actor_id"`
	ActorType     ActorType       `db:"actor_type"`
	IPAddress     *string         `db:"ip_address"`
	Metadata      map[string]any  `db:"metadata"`
}
