// Error values shared across repositories. Higher layers match them with
// errors.Is to tell a lost race from a real failure.
package repository

import "errors"

// ErrStaleTransition is returned when a conditional status update matched no
// row: the entity moved on before this writer got there. The loser of a race
// receives this, never a corrupted state. Webhook paths treat it as a benign
// no-op; user-facing paths surface an error.
var ErrStaleTransition = errors.New("stale transition")

// ErrInvalidTransition is returned when the requested edge does not exist in
// the status graph at all, regardless of what is stored.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrDuplicatePayment is returned when a payment row for the same external
// payment id already exists. Webhook replays land here.
var ErrDuplicatePayment = errors.New("duplicate payment")
