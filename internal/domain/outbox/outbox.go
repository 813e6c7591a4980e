package outbox

import "context"

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Keyed events carry a partition key so that events of one aggregate stay ordered downstream.
type Keyed interface {
	EventKey() string
}

// Handler processes a published event.
type Handler func(ctx context.Context, e Event) error

// Publisher publishes events to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// Names lists every event the service emits, for sinks that forward all of them.
var Names = []string{
	"order.created",
	"order.status_changed",
	"inventory.stock_reserved",
	"inventory.stock_restored",
	"payment.succeeded",
	"payment.failed",
}
