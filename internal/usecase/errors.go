package usecase

import (
	"errors"
	"fmt"
)

// Sentinel errors handlers translate to HTTP statuses with errors.Is.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrForbidden      = errors.New("not allowed")
	ErrNotBookable    = errors.New("expedition is not accepting reservations")
	ErrInvalidState   = errors.New("operation not allowed in current status")
	ErrWindowExpired  = errors.New("contestation window has ended")
	ErrNotPayoutReady = errors.New("guide is not approved for payouts")
)

// CapacityError carries how many spots remain so the user-facing message can
// say exactly that.
type CapacityError struct {
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Apenas %d vagas disponíveis", e.Available)
}
