package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("payment: not found")
	// ErrClaimed means the order is not payable right now: it left PendingPayment
	// or another attempt holds it.
	ErrClaimed       = errors.New("payment: order is not available for payment")
	ErrInvalidAmount = errors.New("payment: amount must be greater than zero")
	ErrInvalidCard   = errors.New("payment: invalid card")
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
)

type Method string

const (
	MethodCreditCard Method = "credit_card"
	MethodDebitCard  Method = "debit_card"
)

func (m Method) Valid() bool {
	return m == MethodCreditCard || m == MethodDebitCard
}

type Provider string

const (
	ProviderVisa       Provider = "visa"
	ProviderMastercard Provider = "mastercard"
	ProviderAmex       Provider = "amex"
	ProviderDiscover   Provider = "discover"
	ProviderUnknown    Provider = "unknown"
)

// Payment is one charge attempt against an order. An order may have many
// failed attempts but at most one in StatusPaid.
type Payment struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Method        Method          `json:"method"`
	Provider      Provider        `json:"provider"`
	Status        Status          `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	LastFour      string          `json:"last_four"`
	Message       string          `json:"message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewProcessing(id, orderID, userID string, amount decimal.Decimal, currency string, card Card) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:        id,
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		Method:    card.Method,
		Provider:  DetectProvider(card.Number),
		Status:    StatusProcessing,
		LastFour:  LastFour(card.Number),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Settle copies the gateway outcome onto the payment.
func (p *Payment) Settle(r *Result) {
	p.Status = r.Status
	p.TransactionID = r.TransactionID
	p.Message = r.Message
	if r.Provider != "" && r.Provider != ProviderUnknown {
		p.Provider = r.Provider
	}
	if r.LastFour != "" {
		p.LastFour = r.LastFour
	}
	p.UpdatedAt = time.Now().UTC()
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
