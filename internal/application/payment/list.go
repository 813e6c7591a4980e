package payment

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-commerce/internal/pkg/cache"

	"go.opentelemetry.io/otel/attribute"
)

const useCasePaymentList = "payment.list"

type ListPaymentsInput struct {
	Caller  application.Caller
	OrderID string
}

// ListPaymentsUseCase returns every attempt recorded for an order, oldest first.
type ListPaymentsUseCase struct {
	orders   domorder.Repository
	payments dompay.Repository
	cache    cache.Store
	ttl      time.Duration
	ins      application.Instruments
}

func NewListPaymentsUseCase(orders domorder.Repository, payments dompay.Repository, store cache.Store, ttl time.Duration, tel observability.Observability) *ListPaymentsUseCase {
	if store == nil {
		store = cache.Nop()
	}
	return &ListPaymentsUseCase{
		orders:   orders,
		payments: payments,
		cache:    store,
		ttl:      ttl,
		ins:      application.NewInstruments(tel, paymentService),
	}
}

func (uc *ListPaymentsUseCase) Execute(ctx context.Context, cmd ListPaymentsInput) (_ []*dompay.Payment, err error) {
	logger := logctx.FromOr(ctx, uc.ins.Log).With(
		observability.F("use_case", useCasePaymentList),
		observability.F("order_id", cmd.OrderID),
	)
	ctx, span := uc.ins.Tracer.Start(ctx, application.SpanPrefix+"ListPayments",
		attribute.String("use_case", useCasePaymentList),
		attribute.String("order.id", cmd.OrderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	defer func() {
		uc.ins.Done(ctx, span, logger, useCasePaymentList, start, outcome, statusText, err)
	}()

	if err := application.RequireCaller(cmd.Caller); err != nil {
		outcome, statusText = "error", "CALLER_REQUIRED"
		return nil, err
	}
	if cmd.OrderID == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, application.InvalidInput("order id is required", nil)
	}

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

	items, listErr := cache.GetOrSet(ctx, uc.cache, cache.OrderPaymentsKey(order.ID), uc.ttl, func(ctx context.Context) ([]*dompay.Payment, error) {
		return uc.payments.ListByOrder(ctx, order.ID)
	})
	if listErr != nil {
		outcome, statusText = "error", "PAYMENT_LIST_FAILED"
		return nil, application.Internal("payment lookup failed", listErr)
	}
	if items == nil {
		items = []*dompay.Payment{}
	}
	span.SetAttributes(attribute.Int("payment.count", len(items)))
	return items, nil
}
