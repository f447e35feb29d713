package domain

import "time"

// AdminTxn is an operator-entered ground-truth record of a real bank
// transaction. The reference is globally unique; once ConsumedBy is set the
// record can never be matched again.
type AdminTxn struct {
	ID         int64
	Method     string
	Reference  string
	Amount     int64 // expected amount in minor units, zero when unknown
	Notes      string
	ConsumedBy int64 // telegram id of the consuming user, zero while unused
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Consumed reports whether the record has already been matched to a claim.
func (t *AdminTxn) Consumed() bool {
	return t != nil && t.ConsumedBy != 0
}
