package pricing

import (
	"math"
	"time"
)

// Policy mirrors a cancellation_policies row. Day thresholds count days until
// the expedition start.
type Policy struct {
	FullRefundDays       int
	PartialRefundDays    int
	PartialRefundPercent int
	NoRefundDays         int
}

// DefaultPolicy is applied when no policy row is configured as default.
// Matches the platform defaults (7/3/50/0).
func DefaultPolicy() *Policy {
	return &Policy{
		FullRefundDays:       7,
		PartialRefundDays:    3,
		PartialRefundPercent: 50,
		NoRefundDays:         0,
	}
}

// Refund is the outcome of applying a cancellation policy.
type Refund struct {
	Amount  int64
	Percent int
}

// ComputeRefund applies the policy brackets. Ties go to the more generous
// bracket (>=). A nil policy fails open toward the customer: full refund.
func ComputeRefund(totalCents int64, daysUntilEvent int, p *Policy) Refund {
	if p == nil {
		return Refund{Amount: totalCents, Percent: 100}
	}

	switch {
	case daysUntilEvent >= p.FullRefundDays:
		return Refund{Amount: totalCents, Percent: 100}
	case daysUntilEvent >= p.PartialRefundDays:
		pct := p.PartialRefundPercent
		if pct <= 0 {
			pct = 50
		}
		amount := RoundHalfUp(float64(totalCents) * float64(pct) / 100)
		return Refund{Amount: amount, Percent: pct}
	default:
		return Refund{Amount: 0, Percent: 0}
	}
}

// DaysUntil returns the whole days between now and the event, floored. An
// event 5 days and 20 hours away counts as 5 days.
func DaysUntil(now, event time.Time) int {
	return int(math.Floor(event.Sub(now).Hours() / 24))
}
