package entity

import (
	"fmt"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusApproved          PaymentStatus = "approved"
	PaymentStatusRejected          PaymentStatus = "rejected"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
)

// Payment is a settled monetary event tied to a reservation. Amounts are
// centavos cached from Mercado Pago. Rows are created only on a confirmed
// approved webhook and never deleted.
type Payment struct {
	Base
	ReservationID uuid.UUID      `db:"reservation_id"`
	MPPaymentID   string         `db:"mp_payment_id"`
	Status        PaymentStatus  `db:"status"`
	GrossAmount   int64          `db:"gross_amount"`
	PlatformFee   int64          `db:"platform_fee"`
	MPFee         int64          `db:"mp_fee"`
	NetAmount     int64          `db:"net_amount"`
	PaymentMethod *PaymentMethod `db:"payment_method"`
	PaymentTypeID *string        `db:"payment_type_id"`
	Currency      string         `db:"currency"`
}

// Reconcile checks money conservation: gross = platform + processor + net.
func (p *Payment) Reconcile() error {
	if p.GrossAmount-p.PlatformFee-p.MPFee-p.NetAmount != 0 {
		return fmt.Errorf("payment %s does not reconcile: gross=%d platform=%d mp=%d net=%d",
			p.MPPaymentID, p.GrossAmount, p.PlatformFee, p.MPFee, p.NetAmount)
	}
	return nil
}
