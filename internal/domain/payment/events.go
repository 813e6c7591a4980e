package payment

import "time"

// PaymentSettledEvent is emitted once a charge attempt has a final status.
type PaymentSettledEvent struct {
	PaymentID     string    `json:"payment_id"`
	OrderID       string    `json:"order_id"`
	Status        Status    `json:"status"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e PaymentSettledEvent) EventName() string {
	if e.Status == StatusPaid {
		return "payment.succeeded"
	}
	return "payment.failed"
}

func (e PaymentSettledEvent) EventKey() string { return e.OrderID }

func NewPaymentSettledEvent(p *Payment) PaymentSettledEvent {
	return PaymentSettledEvent{
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		Status:        p.Status,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		TransactionID: p.TransactionID,
		Message:       p.Message,
		OccurredAt:    time.Now().UTC(),
	}
}
