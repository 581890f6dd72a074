// Package pricing holds the pure money math: platform fee split, cancellation
// refunds and business-day arithmetic. All amounts are int64 centavos.
package pricing

import (
	"fmt"
	"math"
)

// Fees is the breakdown of a gross payment amount.
type Fees struct {
	PlatformFee int64
	NetAmount   int64
	// Clamped is true when platform + processor fees exceeded the gross amount
	// and the net payout was clamped to zero. Callers log this, never fail.
	Clamped bool
}

// ComputeFees splits a gross amount into the platform fee and the guide's net
// amount. The platform fee is rounded half-up to the centavo.
func ComputeFees(grossCents int64, platformFeePercent float64, processorFeeCents int64) Fees {
	platformFee := RoundHalfUp(float64(grossCents) * platformFeePercent / 100)

	net := grossCents - platformFee - processorFeeCents
	if net < 0 {
		return Fees{PlatformFee: platformFee, NetAmount: 0, Clamped: true}
	}

	return Fees{PlatformFee: platformFee, NetAmount: net}
}

// RoundHalfUp rounds to the nearest integer, ties away from zero is not
// wanted here: ties go up (standard commercial rounding).
func RoundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// FormatBRL renders centavos as "R$ 1234.56" for user-facing messages.
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %d.%02d", sign, cents/100, cents%100)
}
