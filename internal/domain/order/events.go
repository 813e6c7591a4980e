package order

import "time"

// OrderCreatedEvent is a domain event emitted when a new order is persisted.
type OrderCreatedEvent struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	TotalAmount string    `json:"total_amount"`
	Currency    string    `json:"currency"`
	Lines       int       `json:"lines"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (OrderCreatedEvent) EventName() string  { return "order.created" }
func (e OrderCreatedEvent) EventKey() string { return e.OrderID }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Currency:    o.Currency,
		Lines:       len(o.Details),
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderStatusChangedEvent is emitted after any persisted status transition.
type OrderStatusChangedEvent struct {
	OrderID    string    `json:"order_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	ChangedBy  string    `json:"changed_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (OrderStatusChangedEvent) EventName() string  { return "order.status_changed" }
func (e OrderStatusChangedEvent) EventKey() string { return e.OrderID }

func NewOrderStatusChangedEvent(o *Order, from Status, changedBy string) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:    o.ID,
		From:       from,
		To:         o.Status,
		ChangedBy:  changedBy,
		OccurredAt: time.Now().UTC(),
	}
}
