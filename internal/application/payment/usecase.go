package payment

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-commerce/internal/pkg/cache"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService        = "payment-service"
	useCasePaymentProcess = "payment.process"
	paymentSpanName       = "ProcessPayment"
	gatewayPeer           = "payment_gateway"
	gatewayEndpoint       = "charge"

	DefaultGatewayTimeout = 10 * time.Second
	DefaultClaimTTL       = 2 * time.Minute
	finishTimeout         = 5 * time.Second
)

type Options struct {
	// GatewayTimeout bounds a single charge. Running out of time is a Failed payment.
	GatewayTimeout time.Duration
	// ClaimTTL is how long an attempt holds the order before another attempt may take over.
	ClaimTTL time.Duration
}

type ProcessPaymentInput struct {
	Caller  application.Caller
	OrderID string
	Card    dompay.Card
}

type ProcessPaymentResult struct {
	Payment     *dompay.Payment
	OrderStatus domorder.Status
}

// ProcessPaymentUseCase charges an order's total and records the outcome.
// Double charging is prevented by the repository's order claim, not by in-process locks.
type ProcessPaymentUseCase struct {
	orders    domorder.Repository
	payments  dompay.Repository
	gateway   dompay.Gateway
	ids       application.IDGenerator
	cache     cache.Store
	publisher domoutbox.Publisher
	opts      Options
	now       func() time.Time

	ins             application.Instruments
	outcomes        observability.Counter // payment_outcomes_total{status}
	inconsistencies observability.Counter // payment_inconsistencies_total{reason}
}

func NewProcessPaymentUseCase(
	orders domorder.Repository,
	payments dompay.Repository,
	gateway dompay.Gateway,
	ids application.IDGenerator,
	store cache.Store,
	publisher domoutbox.Publisher,
	opts Options,
	tel observability.Observability,
) *ProcessPaymentUseCase {
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = DefaultGatewayTimeout
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = DefaultClaimTTL
	}
	if store == nil {
		store = cache.Nop()
	}
	m := observability.OrNop(tel).Metrics()
	return &ProcessPaymentUseCase{
		orders:          orders,
		payments:        payments,
		gateway:         gateway,
		ids:             ids,
		cache:           store,
		publisher:       publisher,
		opts:            opts,
		now:             time.Now,
		ins:             application.NewInstruments(tel, paymentService),
		outcomes:        m.Counter(observability.MPaymentOutcomes),
		inconsistencies: m.Counter(observability.MPaymentInconsistencies),
	}
}

// Execute checks order ownership and status, charges the card and records the result.
// A Failed charge returns the settled payment together with a retryable GatewayFailure.
func (uc *ProcessPaymentUseCase) Execute(ctx context.Context, cmd ProcessPaymentInput) (_ *ProcessPaymentResult, err error) {
	logger := logctx.FromOr(ctx, uc.ins.Log).With(
		observability.F("use_case", useCasePaymentProcess),
		observability.F("order_id", cmd.OrderID),
	)

	ctx, span := uc.ins.Tracer.Start(ctx, application.SpanPrefix+paymentSpanName,
		attribute.String("use_case", useCasePaymentProcess),
		attribute.String("order.id", cmd.OrderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var p *dompay.Payment
	var publishErr error

	defer func() {
		fields := []observability.Field{observability.F("user_id", cmd.Caller.UserID)}
		if p != nil {
			span.SetAttributes(attribute.String("payment.status", string(p.Status)))
			fields = append(fields,
				observability.F("payment_id", p.ID),
				observability.F("payment_status", string(p.Status)),
				observability.F("amount", p.Amount.StringFixed(2)),
				observability.F("provider", string(p.Provider)),
			)
			if p.Status == dompay.StatusFailed && p.Message != "" {
				fields = append(fields, observability.F("failure_reason", p.Message))
			}
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		uc.ins.Done(ctx, span, logger, useCasePaymentProcess, start, outcome, statusText, err, fields...)
	}()

	if err := application.RequireCaller(cmd.Caller); err != nil {
		outcome, statusText = "error", "CALLER_REQUIRED"
		return nil, err
	}
	if cmd.OrderID == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, application.InvalidInput("order id is required", nil)
	}

	// Status checks always read the primary store, never the cache.
	order, repoErr := uc.orders.Get(ctx, cmd.OrderID)
	if repoErr != nil {
		outcome, statusText = "error", "ORDER_LOOKUP_FAILED"
		if errors.Is(repoErr, domorder.ErrNotFound) {
			return nil, application.NotFound("order not found", repoErr)
		}
		return nil, application.Internal("order lookup failed", repoErr)
	}
	if !cmd.Caller.CanAccess(order.UserID) {
		outcome, statusText = "error", "FORBIDDEN"
		return nil, application.Forbidden("order belongs to another user")
	}
	if payErr := order.CanPay(); payErr != nil {
		outcome, statusText = "error", "ORDER_NOT_PAYABLE"
		if errors.Is(payErr, domorder.ErrAlreadyPaid) {
			statusText = "ORDER_ALREADY_PAID"
		}
		return nil, application.Conflict("order is "+string(order.Status), payErr)
	}

	card := cmd.Card.Normalize()
	if cardErr := card.Validate(uc.now()); cardErr != nil {
		outcome, statusText = "error", "CARD_INVALID"
		return nil, application.InvalidInput(cardErr.Error(), cardErr)
	}

	p = dompay.NewProcessing(uc.ids.NewID(), order.ID, cmd.Caller.UserID, order.TotalAmount, order.Currency, card)
	if beginErr := uc.payments.Begin(ctx, p, uc.opts.ClaimTTL); beginErr != nil {
		outcome, statusText = "error", "CLAIM_FAILED"
		pending := p
		p = nil
		switch {
		case errors.Is(beginErr, dompay.ErrClaimed):
			return nil, application.Conflict("order is already paid or a payment is in progress", beginErr)
		case errors.Is(beginErr, domorder.ErrNotFound):
			return nil, application.NotFound("order not found", beginErr)
		default:
			logger.Error("payment_begin_failed",
				observability.F("payment_id", pending.ID),
				observability.Err(beginErr),
			)
			return nil, application.Internal("could not start payment", beginErr)
		}
	}
	span.AddEvent("payment.claimed", trace.WithAttributes(attribute.String("payment.id", p.ID)))
	_ = cache.Invalidate(ctx, uc.cache, cache.OrderPaymentsKey(order.ID))

	res, chargeErr := uc.charge(ctx, p, card)
	p.Settle(res)

	// The outcome must be recorded even if the caller went away.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	finishErr := uc.payments.Finish(finishCtx, p)
	cancel()

	if finishErr != nil {
		outcome = "error"
		if p.Status == dompay.StatusPaid {
			statusText = "RECONCILIATION_REQUIRED"
			uc.inconsistencies.Add(1, observability.L("reason", "record_failed"))
			logger.Error("payment_reconciliation_required",
				observability.F("payment_id", p.ID),
				observability.F("transaction_id", p.TransactionID),
				observability.F("amount", p.Amount.StringFixed(2)),
				observability.F("currency", p.Currency),
				observability.Err(finishErr),
			)
			ae := application.Internal("payment was charged but could not be recorded", finishErr)
			ae.TransactionID = p.TransactionID
			return &ProcessPaymentResult{Payment: p, OrderStatus: order.Status}, ae
		}
		statusText = "PAYMENT_RECORD_FAILED"
		return &ProcessPaymentResult{Payment: p, OrderStatus: order.Status}, application.Internal("could not record failed payment", finishErr)
	}

	uc.outcomes.Add(1, observability.L("status", string(p.Status)), observability.L("provider", string(p.Provider)))
	_ = cache.Invalidate(ctx, uc.cache, cache.OrderKey(order.ID), cache.OrderPaymentsKey(order.ID))

	events := []domoutbox.Event{dompay.NewPaymentSettledEvent(p)}
	if p.Status == dompay.StatusPaid {
		from := order.Status
		_ = order.MarkPaid(p.UpdatedAt)
		events = append(events, domorder.NewOrderStatusChangedEvent(order, from, cmd.Caller.UserID))
	}
	for _, e := range events {
		publishErr = errors.Join(publishErr, uc.ins.Publish(ctx, uc.publisher, e))
	}

	result := &ProcessPaymentResult{Payment: p, OrderStatus: order.Status}
	if chargeErr != nil {
		outcome, statusText = "error", "GATEWAY_REQUEST_REJECTED"
		return result, application.InvalidInput(chargeErr.Error(), chargeErr)
	}
	if p.Status != dompay.StatusPaid {
		outcome, statusText = "error", "DECLINED"
		if res.Retryable {
			statusText = "GATEWAY_UNAVAILABLE"
		}
		ae := application.GatewayFailure(p.Message, true)
		ae.TransactionID = p.TransactionID
		return result, ae
	}
	return result, nil
}

// charge calls the gateway under the configured timeout and never reports success
// for an outcome it could not confirm.
func (uc *ProcessPaymentUseCase) charge(ctx context.Context, p *dompay.Payment, card dompay.Card) (*dompay.Result, error) {
	gwCtx, cancel := context.WithTimeout(ctx, uc.opts.GatewayTimeout)
	defer cancel()

	start := time.Now()
	res, err := uc.gateway.Charge(gwCtx, dompay.ChargeRequest{
		Reference: p.ID,
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Card:      card,
	})

	extOutcome := "success"
	switch {
	case err != nil:
		extOutcome = "error"
		res = failed(p, "payment request rejected: "+err.Error(), false)
	case gwCtx.Err() != nil && !errors.Is(ctx.Err(), context.Canceled) && (res == nil || !res.Paid()):
		extOutcome = "timeout"
		res = failed(p, "payment gateway timed out", true)
	case res == nil:
		extOutcome = "error"
		res = failed(p, "payment gateway returned no result", true)
	case res.Status != dompay.StatusPaid && res.Status != dompay.StatusFailed:
		extOutcome = "error"
		res = failed(p, "payment gateway returned an unknown status", true)
	case !res.Paid():
		extOutcome = "declined"
	}
	uc.ins.External(gatewayPeer, gatewayEndpoint, extOutcome, start)
	return res, err
}

func failed(p *dompay.Payment, msg string, retryable bool) *dompay.Result {
	return &dompay.Result{
		Status:    dompay.StatusFailed,
		Message:   msg,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Provider:  p.Provider,
		LastFour:  p.LastFour,
		Retryable: retryable,
	}
}
