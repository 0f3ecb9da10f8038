package entity

import "time"

// Registration holds the customer and course metadata captured when a
// checkout is initiated. Rows are upserted by RegID (last write wins) and
// never deleted, so late webhook deliveries can still resolve customer
// identity and a fallback amount.
type Registration struct {
	ID uint64

	RegID         string
	FAResponseID  string
	CustomerName  string
	CustomerEmail string
	Phone         string
	Course        string
	AmountMinor   int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
