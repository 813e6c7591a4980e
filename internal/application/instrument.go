package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	SpanPrefix     = "UC."
	PublishPeer    = "outbox"
	PublishTimeout = 300 * time.Millisecond
)

// Instruments bundles the logger, tracer and RED metrics a use case needs.
// They are resolved once at construction (do not instantiate inside methods).
type Instruments struct {
	Log    observability.Logger
	Tracer observability.Tracer

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewInstruments(tel observability.Observability, service string) Instruments {
	tel = observability.OrNop(tel)
	m := tel.Metrics()
	return Instruments{
		Log:          tel.Logger().With(observability.F("service", service)),
		Tracer:       tel.Tracer(),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Done ends the span, records RED metrics and writes the single use_case_done entry.
func (in Instruments) Done(
	ctx context.Context,
	span trace.Span,
	logger observability.Logger,
	useCase string,
	start time.Time,
	outcome, statusText string,
	err error,
	extra ...observability.Field,
) {
	lat := time.Since(start).Seconds()

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()
	}

	in.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
	in.durHistogram.Observe(lat,
		observability.L("use_case", useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", statusText),
		observability.F("latency_seconds", lat),
	}
	fields = append(fields, extra...)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if err != nil {
		fields = append(fields, observability.Err(err))
	}

	logger.Info("use_case_done", fields...)
}

// External records one outbound call.
func (in Instruments) External(peer, endpoint, outcome string, start time.Time) {
	in.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	in.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

// Publish hands an event to the publisher under PublishTimeout. A nil publisher is a no-op.
func (in Instruments) Publish(ctx context.Context, publisher outbox.Publisher, e outbox.Event) error {
	if publisher == nil || e == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()
	start := time.Now()
	err := publisher.Publish(pubCtx, e)
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		err = pubCtx.Err()
	}
	in.External(PublishPeer, e.EventName(), outcome, start)
	return err
}
