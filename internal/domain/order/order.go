package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-commerce/internal/domain/money"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: conflict")
	ErrNoLines                = errors.New("order: at least one line is required")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidPrice           = errors.New("order: unit price must be zero or greater")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrAlreadyPaid            = errors.New("order: already paid")
	ErrCancelled              = errors.New("order: cancelled")
	ErrManualPayment          = errors.New("order: paid status is only set by a successful payment")
	// ErrStatusChanged is returned by repositories when a conditional status update lost a race.
	ErrStatusChanged = errors.New("order: status changed concurrently")
)

type Status string

const (
	StatusDraft          Status = "draft"
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusDraft, StatusPendingPayment, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return st, true
	}
	return "", false
}

// Detail is one order line. UnitPrice is the product price captured when the order was placed.
type Detail struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (d Detail) Subtotal() decimal.Decimal {
	return money.LineTotal(d.UnitPrice, d.Quantity)
}

type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	ShippingAddressID string          `json:"shipping_address_id"`
	IdempotencyKey    string          `json:"-"`
	Currency          string          `json:"currency"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Status            Status          `json:"status"`
	Details           []Detail        `json:"details"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
}

// New builds a Draft order and fixes its total from the detail lines.
func New(id, userID, shippingAddressID, currency string, details []Detail) (*Order, error) {
	if len(details) == 0 {
		return nil, ErrNoLines
	}
	if !money.ValidCurrency(currency) {
		return nil, money.ErrInvalidCurrency
	}
	for _, d := range details {
		if d.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if d.UnitPrice.IsNegative() {
			return nil, ErrInvalidPrice
		}
	}

	now := time.Now().UTC()
	o := &Order{
		ID:                id,
		UserID:            userID,
		ShippingAddressID: shippingAddressID,
		Currency:          currency,
		Status:            StatusDraft,
		Details:           make([]Detail, len(details)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	copy(o.Details, details)
	for i := range o.Details {
		o.Details[i].OrderID = id
	}
	if _, err := o.StockLines(); err != nil {
		return nil, err
	}
	o.TotalAmount = o.LinesTotal()
	return o, nil
}

// LinesTotal sums unit price times quantity over all lines.
func (o *Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range o.Details {
		total = total.Add(d.Subtotal())
	}
	return money.Round(total)
}

// StockLines sums detail quantities per product, keeping first-seen order.
func (o *Order) StockLines() ([]inventory.Line, error) {
	index := make(map[string]int, len(o.Details))
	lines := make([]inventory.Line, 0, len(o.Details))
	for _, d := range o.Details {
		if i, ok := index[d.ProductID]; ok {
			sum, ok := inventory.SumQuantity(lines[i].Quantity, d.Quantity)
			if !ok {
				return nil, fmt.Errorf("%w: product %s total is too large", ErrInvalidQuantity, d.ProductID)
			}
			lines[i].Quantity = sum
			continue
		}
		index[d.ProductID] = len(lines)
		lines = append(lines, inventory.Line{ProductID: d.ProductID, Quantity: d.Quantity})
	}
	return lines, nil
}

func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// Submit moves a Draft order to PendingPayment.
func (o *Order) Submit() error {
	return o.apply(func(s OrderState) (OrderState, error) { return s.Submit(o) })
}

// MarkPaid records a successful payment.
func (o *Order) MarkPaid(at time.Time) error {
	if err := o.apply(func(s OrderState) (OrderState, error) { return s.Pay(o) }); err != nil {
		return err
	}
	at = at.UTC()
	o.PaidAt = &at
	return nil
}

func (o *Order) Ship() error {
	return o.apply(func(s OrderState) (OrderState, error) { return s.Ship(o) })
}

func (o *Order) Deliver() error {
	return o.apply(func(s OrderState) (OrderState, error) { return s.Deliver(o) })
}

func (o *Order) Cancel(at time.Time) error {
	if err := o.apply(func(s OrderState) (OrderState, error) { return s.Cancel(o) }); err != nil {
		return err
	}
	at = at.UTC()
	o.CancelledAt = &at
	return nil
}

// TransitionTo applies a manually requested status change.
func (o *Order) TransitionTo(target Status, at time.Time) error {
	switch target {
	case StatusPendingPayment:
		return o.Submit()
	case StatusPaid:
		return ErrManualPayment
	case StatusShipped:
		return o.Ship()
	case StatusDelivered:
		return o.Deliver()
	case StatusCancelled:
		return o.Cancel(at)
	default:
		return ErrInvalidStateTransition
	}
}

// CanPay reports why a payment may not be started for the order.
func (o *Order) CanPay() error {
	switch o.Status {
	case StatusPendingPayment:
		return nil
	case StatusPaid, StatusShipped, StatusDelivered:
		return ErrAlreadyPaid
	case StatusCancelled:
		return ErrCancelled
	default:
		return ErrInvalidStateTransition
	}
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Details = append([]Detail(nil), o.Details...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		clone.PaidAt = &t
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		clone.CancelledAt = &t
	}
	return &clone
}

func (o *Order) apply(step func(OrderState) (OrderState, error)) error {
	next, err := step(stateOf(o.Status))
	if err != nil {
		return err
	}
	o.Status = next.Status()
	o.touch()
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
