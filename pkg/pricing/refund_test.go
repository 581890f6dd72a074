package pricing

import (
	"testing"
	"time"
)

func TestComputeRefundBrackets(t *testing.T) {
	policy := DefaultPolicy() // 7 / 3 / 50% / 0

	tests := []struct {
		name        string
		days        int
		wantAmount  int64
		wantPercent int
	}{
		{"10 days out full refund", 10, 100000, 100},
		{"exactly full refund boundary", 7, 100000, 100},
		{"one under full, inside partial", 6, 50000, 50},
		{"5 days partial", 5, 50000, 50},
		{"exactly partial boundary", 3, 50000, 50},
		{"under partial no refund", 2, 0, 0},
		{"1 day no refund", 1, 0, 0},
		{"day of event", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeRefund(100000, tt.days, policy)
			if r.Amount != tt.wantAmount {
				t.Errorf("amount = %d, want %d", r.Amount, tt.wantAmount)
			}
			if r.Percent != tt.wantPercent {
				t.Errorf("percent = %d, want %d", r.Percent, tt.wantPercent)
			}
		})
	}
}

func TestComputeRefundNilPolicyFailsOpen(t *testing.T) {
	r := ComputeRefund(25000, 0, nil)
	if r.Amount != 25000 || r.Percent != 100 {
		t.Errorf("nil policy: got %d (%d%%), want full refund", r.Amount, r.Percent)
	}
}

func TestComputeRefundPartialRoundsHalfUp(t *testing.T) {
	p := &Policy{FullRefundDays: 7, PartialRefundDays: 3, PartialRefundPercent: 50}
	r := ComputeRefund(101, 5, p)
	if r.Amount != 51 {
		t.Errorf("amount = %d, want 51", r.Amount)
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if d := DaysUntil(now, now.AddDate(0, 0, 10)); d != 10 {
		t.Errorf("10 days out = %d", d)
	}
	// 5 days and 20 hours floors to 5
	if d := DaysUntil(now, now.Add(5*24*time.Hour+20*time.Hour)); d != 5 {
		t.Errorf("5d20h out = %d, want 5", d)
	}
	if d := DaysUntil(now, now.Add(-2*time.Hour)); d >= 0 {
		t.Errorf("past event = %d, want negative", d)
	}
}
