package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderPlaced struct {
	OrderID string `json:"order_id"`
	Total   string `json:"total"`
}

func (orderPlaced) EventName() string  { return "order.created" }
func (e orderPlaced) EventKey() string { return e.OrderID }

type anonymous struct{}

func (anonymous) EventName() string { return "order.status_changed" }

type memorySink struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *memorySink) Send(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *memorySink) Close() error { return nil }

func (s *memorySink) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(nil, BusOptions{})
	var a, b atomic.Int32
	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error { a.Add(1); return nil })
	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error { b.Add(1); return errors.New("ignored") })
	bus.Start(context.Background())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, orderPlaced{OrderID: "o-1"}))
	}
	require.NoError(t, bus.Publish(ctx, anonymous{}))

	require.NoError(t, bus.Stop(ctx))
	assert.EqualValues(t, 3, a.Load())
	assert.EqualValues(t, 3, b.Load())
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus(nil, BusOptions{Concurrency: 1})
	var calls atomic.Int32
	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error { panic("boom") })
	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error { calls.Add(1); return nil })
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), orderPlaced{OrderID: "o-1"}))
	require.NoError(t, bus.Publish(context.Background(), orderPlaced{OrderID: "o-2"}))
	require.NoError(t, bus.Stop(context.Background()))
	assert.EqualValues(t, 2, calls.Load())
}

func TestBusRejectsAfterStop(t *testing.T) {
	bus := NewBus(nil, BusOptions{})
	require.NoError(t, bus.Stop(context.Background()))
	assert.ErrorIs(t, bus.Publish(context.Background(), orderPlaced{}), ErrBusClosed)
	require.NoError(t, bus.Stop(context.Background()))
}

func TestBusStopHonoursDeadline(t *testing.T) {
	bus := NewBus(nil, BusOptions{})
	release := make(chan struct{})
	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error {
		<-release
		return nil
	})
	bus.Start(context.Background())
	require.NoError(t, bus.Publish(context.Background(), orderPlaced{OrderID: "o-1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Stop(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, bus.Stop(context.Background()))
}

func TestRelayEncodesEnvelope(t *testing.T) {
	r := NewRelay(&memorySink{}, nil)
	r.now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }

	m, err := r.Encode(orderPlaced{OrderID: "o-9", Total: "10.00"})
	require.NoError(t, err)
	assert.Equal(t, "order.created", m.Name)
	assert.Equal(t, "o-9", m.Key)
	assert.NotEmpty(t, m.ID)

	var env map[string]any
	require.NoError(t, json.Unmarshal(m.Body, &env))
	assert.Equal(t, m.ID, env["id"])
	assert.Equal(t, "order.created", env["name"])
	assert.Equal(t, "o-9", env["key"])
	assert.Equal(t, "2026-02-03T04:05:06Z", env["emitted_at"])
	assert.Equal(t, map[string]any{"order_id": "o-9", "total": "10.00"}, env["payload"])

	m, err = r.Encode(anonymous{})
	require.NoError(t, err)
	assert.Empty(t, m.Key)
}

func TestRelayThroughBus(t *testing.T) {
	sink := &memorySink{}
	bus := NewBus(nil, BusOptions{})
	Register(bus, NewRelay(sink, nil).Handle)
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), orderPlaced{OrderID: "o-1"}))
	require.NoError(t, bus.Publish(context.Background(), anonymous{}))
	require.NoError(t, bus.Stop(context.Background()))

	sent := sink.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "order.created", sent[0].Name)
	assert.Equal(t, "order.status_changed", sent[1].Name)
}

func TestRelayReportsSinkErrors(t *testing.T) {
	boom := errors.New("broker down")
	r := NewRelay(&memorySink{err: boom}, nil)
	assert.ErrorIs(t, r.Handle(context.Background(), orderPlaced{OrderID: "o-1"}), boom)
}
