package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const spanPrefix = "Worker."

// Instrument runs every delivery of h under its own span and an event-scoped logger.
func Instrument(tel observability.Observability, component string, h domoutbox.Handler) domoutbox.Handler {
	tel = observability.OrNop(tel)
	return func(ctx context.Context, e domoutbox.Event) error {
		ctx, span := tel.Tracer().Start(ctx, spanPrefix+component,
			attribute.String("component", component),
			attribute.String("event", e.EventName()),
		)
		defer span.End()

		attrs := map[string]string{
			"component": component,
			"event":     e.EventName(),
		}
		if k, ok := e.(domoutbox.Keyed); ok {
			attrs["event_key"] = k.EventKey()
		}
		ctx = WithEventContext(ctx, logctx.FromOr(ctx, tel.Logger()), span.SpanContext(), attrs)

		if err := h(ctx, e); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "HANDLER_FAILED")
			return err
		}
		span.SetStatus(codes.Ok, "OK")
		return nil
	}
}
