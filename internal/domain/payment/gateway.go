package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type ChargeRequest struct {
	// Reference identifies the attempt towards the provider and doubles as its idempotency key.
	Reference string
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	Card      Card
}

// Result is the normalized outcome of a charge. Status is either StatusPaid or StatusFailed.
type Result struct {
	TransactionID string          `json:"transaction_id"`
	Status        Status          `json:"status"`
	Message       string          `json:"message"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Provider      Provider        `json:"provider"`
	LastFour      string          `json:"last_four"`
	// Retryable is set when the outcome is ambiguous (timeouts, provider faults).
	Retryable bool `json:"retryable"`
}

func (r *Result) Paid() bool { return r != nil && r.Status == StatusPaid }

// Gateway charges cards. Declines, provider faults and timeouts come back as a
// Failed Result; an error means the request itself was malformed.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
}
