package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session maps a bearer token to a user. Sessions are minted by the external
// identity service; this service only validates them.
type Session struct {
	BaseSimple
	UserID    uuid.UUID `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
}
