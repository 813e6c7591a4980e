package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"github.com/google/uuid"
)

// Message is the broker-neutral form of a relayed event.
type Message struct {
	ID   string
	Name string
	Key  string
	Body []byte
}

// Sink delivers messages to an external broker.
type Sink interface {
	Send(ctx context.Context, m Message) error
	Close() error
}

type envelope struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Key       string          `json:"key,omitempty"`
	EmittedAt time.Time       `json:"emitted_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Relay forwards bus events to a Sink.
type Relay struct {
	sink    Sink
	log     observability.Logger
	relayed observability.Counter // events_relayed_total{event,outcome}
	now     func() time.Time
}

func NewRelay(sink Sink, tel observability.Observability) *Relay {
	tel = observability.OrNop(tel)
	return &Relay{
		sink:    sink,
		log:     tel.Logger().With(observability.F("component", "event_relay")),
		relayed: tel.Metrics().Counter(observability.MEventsRelayed),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Encode wraps an event in the wire envelope.
func (r *Relay) Encode(e domoutbox.Event) (Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Message{}, fmt.Errorf("relay: encode %s: %w", e.EventName(), err)
	}
	m := Message{ID: uuid.NewString(), Name: e.EventName()}
	if k, ok := e.(domoutbox.Keyed); ok {
		m.Key = k.EventKey()
	}
	m.Body, err = json.Marshal(envelope{
		ID:        m.ID,
		Name:      m.Name,
		Key:       m.Key,
		EmittedAt: r.now(),
		Payload:   payload,
	})
	if err != nil {
		return Message{}, fmt.Errorf("relay: envelope %s: %w", e.EventName(), err)
	}
	return m, nil
}

// Handle is a domoutbox.Handler.
func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) error {
	logger := logctx.FromOr(ctx, r.log)
	m, err := r.Encode(e)
	if err != nil {
		r.relayed.Add(1, observability.L("event", e.EventName()), observability.L("outcome", "encode_error"))
		return err
	}
	if err := r.sink.Send(ctx, m); err != nil {
		r.relayed.Add(1, observability.L("event", m.Name), observability.L("outcome", "error"))
		logger.Warn("event_relay_failed",
			observability.F("message_id", m.ID),
			observability.Err(err),
		)
		return err
	}
	r.relayed.Add(1, observability.L("event", m.Name), observability.L("outcome", "success"))
	logger.Debug("event_relayed", observability.F("message_id", m.ID), observability.F("key", m.Key))
	return nil
}

// Register subscribes h to every event name the service emits.
func Register(sub domoutbox.Subscriber, h domoutbox.Handler) {
	for _, name := range domoutbox.Names {
		sub.Subscribe(name, h)
	}
}
