package workerpresentation

import (
	"context"
	"maps"
	"slices"

	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const attrEventID = "event_id"

// WithEventContext scopes base to one event delivery. An event_id in attrs is kept,
// otherwise one is generated. Empty attributes are dropped and the rest are added in
// key order so relay log lines line up.
func WithEventContext(ctx context.Context, base observability.Logger, sc trace.SpanContext, attrs map[string]string) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	evtID := attrs[attrEventID]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields := make([]observability.Field, 0, len(attrs)+3)
	fields = append(fields, observability.F(attrEventID, evtID))
	if sc.HasTraceID() {
		fields = append(fields, observability.F("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		fields = append(fields, observability.F("span_id", sc.SpanID().String()))
	}
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		if k == attrEventID || attrs[k] == "" {
			continue
		}
		fields = append(fields, observability.F(k, attrs[k]))
	}
	return logctx.With(ctx, base.With(fields...))
}
