package workerpresentation

import (
	"context"
	"errors"
	"testing"

	domoutbox "github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	infraobs "github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest/observer"
)

type paymentSettled struct{ orderID string }

func (paymentSettled) EventName() string  { return "payment.succeeded" }
func (e paymentSettled) EventKey() string { return e.orderID }

func TestInstrumentScopesLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tel := infraobs.Build("test", zap.New(core), prometheus.NewRegistry())

	h := Instrument(tel, "event_relay", func(ctx context.Context, _ domoutbox.Event) error {
		logctx.From(ctx).Info("handled")
		return nil
	})
	require.NoError(t, h(context.Background(), paymentSettled{orderID: "o-7"}))

	entries := logs.FilterMessage("handled").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "event_relay", fields["component"])
	assert.Equal(t, "payment.succeeded", fields["event"])
	assert.Equal(t, "o-7", fields["event_key"])
	assert.NotEmpty(t, fields["event_id"])
}

func TestInstrumentPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	h := Instrument(nil, "event_relay", func(context.Context, domoutbox.Event) error { return boom })
	assert.ErrorIs(t, h(context.Background(), paymentSettled{}), boom)
}

func TestWithEventContextKeepsProvidedID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tel := infraobs.Build("test", zap.New(core), prometheus.NewRegistry())

	ctx := WithEventContext(context.Background(), tel.Logger(), trace.SpanContext{}, map[string]string{"event_id": "evt-1", "empty": ""})
	logctx.From(ctx).Info("x")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.NotContains(t, fields, "empty")
	assert.NotContains(t, fields, "trace_id")
}
