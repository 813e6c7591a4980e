package inventory

import "time"

// StockReservedEvent is emitted after an order's lines were taken out of stock.
type StockReservedEvent struct {
	OrderID    string    `json:"order_id"`
	Lines      []Line    `json:"lines"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (StockReservedEvent) EventName() string  { return "inventory.stock_reserved" }
func (e StockReservedEvent) EventKey() string { return e.OrderID }

func NewStockReservedEvent(orderID string, lines []Line) StockReservedEvent {
	return StockReservedEvent{
		OrderID:    orderID,
		Lines:      append([]Line(nil), lines...),
		OccurredAt: time.Now().UTC(),
	}
}

// StockRestoredEvent is emitted when a cancelled order gives its stock back.
type StockRestoredEvent struct {
	OrderID    string    `json:"order_id"`
	Lines      []Line    `json:"lines"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (StockRestoredEvent) EventName() string  { return "inventory.stock_restored" }
func (e StockRestoredEvent) EventKey() string { return e.OrderID }

func NewStockRestoredEvent(orderID string, lines []Line) StockRestoredEvent {
	return StockRestoredEvent{
		OrderID:    orderID,
		Lines:      append([]Line(nil), lines...),
		OccurredAt: time.Now().UTC(),
	}
}
