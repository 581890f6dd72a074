package response

import (
	"time"

	"trekko-booking/internal/data/entity"
)

type SettingResponse struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description *string   `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func SettingToResponse(s *entity.PlatformSetting) SettingResponse {
	return SettingResponse{
		Key:         s.Key,
		Value:       s.Value,
		Description: s.Description,
		UpdatedAt:   s.UpdatedAt,
	}
}

func SettingsToResponse(settings []*entity.PlatformSetting) []SettingResponse {
	out := make([]SettingResponse, 0, len(settings))
	for _, s := range settings {
		out = append(out, SettingToResponse(s))
	}
	return out
}

type AuditEntryResponse struct {
	ID            string         `json:"id"`
	EntityType    string         `json:"entity_type"`
	EntityID      string         `json:"entity_id"`
	Action        string         `json:"action"`
	PreviousValue *string        `json:"previous_value,omitempty"`
	NewValue      *string        `json:"new_value,omitempty"`
	ActorType     string         `json:"actor_type"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func AuditEntriesToResponse(entries []*entity.AuditLogEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:            e.ID.String(),
			EntityType:    string(e.EntityType),
			EntityID:      e.EntityID.String(),
			Action:        e.Action,
			PreviousValue: e.PreviousValue,
			NewValue:      e.NewValue,
			ActorType:     string(e.ActorType),
			Metadata:      e.Metadata,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}
