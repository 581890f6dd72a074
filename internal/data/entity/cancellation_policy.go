package entity

// CancellationPolicy drives refund computation when a user cancels a paid
// reservation. Day thresholds count whole days before the expedition start.
type CancellationPolicy struct {
	Base
	Name                 string  `db:"name"`
	Description          *string `db:"description"`
	FullRefundDays       int     `db:"full_refund_days"`
	PartialRefundDays    int     `db:"partial_refund_days"`
	PartialRefundPercent int     `db:"partial_refund_percent"`
	NoRefundDays         int     `db:"no_refund_days"`
	IsDefault            bool    `db:"is_default"`
}
