package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ==================== UUID ====================

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

// ==================== EXTERNAL REFERENCE ====================

// externalRefPattern matches references produced by GenerateExternalReference.
// The webhook reconciler relies on this exact shape to recover the reservation.
var externalRefPattern = regexp.MustCompile(`^reservation_([0-9a-fA-F-]{36})_(\d+)$`)

// GenerateExternalReference builds the reference string sent to Mercado Pago:
// reservation_{id}_{unixMillis}.
func GenerateExternalReference(reservationID uuid.UUID) string {
	return fmt.Sprintf("reservation_%s_%d", reservationID.String(), time.Now().UnixMilli())
}

// ParseExternalReference extracts the reservation ID from an external
// reference. Returns false when the reference does not match the expected
// format.
func ParseExternalReference(ref string) (uuid.UUID, bool) {
	m := externalRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(m[1])
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

// ==================== QUERY HELPERS ====================

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}
