package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-commerce/internal/domain/cart"
	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const useCaseOrderCreate = "order.create"

// CreateOrderUseCase encapsulates the order creation workflow with observability hooks.
type CreateOrderUseCase struct {
	assembler *Assembler
	repo      domain.Repository
	carts     domcart.Repository
	publisher domoutbox.Publisher
	ins       application.Instruments
}

// NewCreateOrderUseCase wires the dependencies required to execute the use case.
// carts may be nil when cart-sourced orders are not offered.
func NewCreateOrderUseCase(
	assembler *Assembler,
	repo domain.Repository,
	carts domcart.Repository,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		assembler: assembler,
		repo:      repo,
		carts:     carts,
		publisher: publisher,
		ins:       application.NewInstruments(tel, orderService),
	}
}

type CreateOrderInput struct {
	Caller            application.Caller
	ShippingAddressID string
	// Lines are used as given; FromCart takes them from the caller's cart instead.
	Lines          []dominv.Line
	FromCart       bool
	IdempotencyKey string
}

type CreateOrderResult struct {
	Order *domain.Order
	// Replayed is set when an earlier order with the same idempotency key was returned.
	Replayed bool
}

// Execute performs the order creation flow.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *CreateOrderResult, err error) {
	logger := logctx.FromOr(ctx, uc.ins.Log).With(observability.F("use_case", useCaseOrderCreate))

	var orderID string
	var publishErr, cartErr error

	ctx, span := uc.ins.Tracer.Start(ctx, application.SpanPrefix+"CreateOrder",
		attribute.String("use_case", useCaseOrderCreate),
		attribute.String("order.user_id", cmd.Caller.UserID),
		attribute.Bool("order.from_cart", cmd.FromCart),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		fields := []observability.Field{observability.F("user_id", cmd.Caller.UserID)}
		if orderID != "" {
			fields = append(fields, observability.F("order_id", orderID))
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if cartErr != nil {
			fields = append(fields, observability.F("cart_clear_error", cartErr.Error()))
		}
		uc.ins.Done(ctx, span, logger, useCaseOrderCreate, start, outcome, statusText, err, fields...)
	}()

	if err := application.RequireCaller(cmd.Caller); err != nil {
		outcome, statusText = "error", "CALLER_REQUIRED"
		return nil, err
	}
	if strings.TrimSpace(cmd.ShippingAddressID) == "" {
		outcome, statusText = "error", "SHIPPING_ADDRESS_REQUIRED"
		return nil, newValidation("shipping address id is required", nil)
	}
	if cmd.FromCart && len(cmd.Lines) > 0 {
		outcome, statusText = "error", "LINES_AND_CART"
		return nil, newValidation("lines and from_cart are mutually exclusive", nil)
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	if cmd.IdempotencyKey != "" {
		existing, repoErr := uc.repo.FindByIdempotency(ctx, cmd.Caller.UserID, cmd.IdempotencyKey)
		switch {
		case repoErr == nil:
			orderID = existing.ID
			statusText = "IDEMPOTENT_REPLAY"
			span.AddEvent("order.idempotent_replay",
				trace.WithAttributes(attribute.String("order.id", orderID)),
			)
			return &CreateOrderResult{Order: existing, Replayed: true}, nil
		case errors.Is(repoErr, domain.ErrNotFound):
			// continue
		default:
			outcome, statusText = "error", "IDEMPOTENCY_LOOKUP_FAILED"
			return nil, wrapRepositoryError(repoErr)
		}
	}

	lines := cmd.Lines
	if cmd.FromCart {
		lines, err = uc.cartLines(ctx, cmd.Caller.UserID)
		if err != nil {
			outcome, statusText = "error", "CART_UNAVAILABLE"
			return nil, err
		}
	}

	entity, err := uc.assembler.Assemble(ctx, AssembleInput{
		UserID:            cmd.Caller.UserID,
		ShippingAddressID: cmd.ShippingAddressID,
		Lines:             lines,
	})
	if err != nil {
		outcome, statusText = "error", statusForAssembly(err)
		return nil, err
	}
	entity.IdempotencyKey = cmd.IdempotencyKey
	orderID = entity.ID

	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}
	if err := uc.repo.Create(ctx, entity); err != nil {
		if errors.Is(err, domain.ErrConflict) && cmd.IdempotencyKey != "" {
			if existing, lookupErr := uc.repo.FindByIdempotency(ctx, cmd.Caller.UserID, cmd.IdempotencyKey); lookupErr == nil {
				orderID = existing.ID
				statusText = "IDEMPOTENT_REPLAY"
				return &CreateOrderResult{Order: existing, Replayed: true}, nil
			}
		}
		outcome, statusText = "error", "REPO_CREATE_FAILED"
		if errors.Is(err, dominv.ErrInsufficientStock) {
			statusText = "STOCK_SHORTAGE"
		}
		return nil, wrapRepositoryError(err)
	}

	reserved := make([]dominv.Line, 0, len(entity.Details))
	for _, d := range entity.Details {
		reserved = append(reserved, dominv.Line{ProductID: d.ProductID, Quantity: d.Quantity})
	}

	if cmd.FromCart && uc.carts != nil {
		if cartErr = uc.carts.Clear(ctx, cmd.Caller.UserID); cartErr != nil {
			logger.Warn("cart_clear_failed",
				observability.F("order_id", orderID),
				observability.Err(cartErr),
			)
		}
	}

	publishErr = errors.Join(
		uc.ins.Publish(ctx, uc.publisher, domain.NewOrderCreatedEvent(entity)),
		uc.ins.Publish(ctx, uc.publisher, dominv.NewStockReservedEvent(entity.ID, reserved)),
	)
	if publishErr != nil {
		statusText = "EVENT_PUBLISH_FAILED"
	}

	span.SetAttributes(
		attribute.String("order.status", string(entity.Status)),
		attribute.String("order.total", entity.TotalAmount.StringFixed(2)),
	)
	span.AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", orderID)),
	)

	return &CreateOrderResult{Order: entity}, nil
}

func (uc *CreateOrderUseCase) cartLines(ctx context.Context, userID string) ([]dominv.Line, error) {
	if uc.carts == nil {
		return nil, newValidation("cart checkout is not available", nil)
	}
	c, err := uc.carts.Get(ctx, userID)
	if errors.Is(err, domcart.ErrNotFound) || (err == nil && c.Empty()) {
		return nil, newValidation("cart is empty", domain.ErrNoLines)
	}
	if err != nil {
		return nil, application.Internal("cart lookup failed", err)
	}
	lines := make([]dominv.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, dominv.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines, nil
}

func statusForAssembly(err error) string {
	switch application.KindOf(err) {
	case application.KindInvalidInput:
		return "LINES_INVALID"
	case application.KindConflict:
		return "STOCK_SHORTAGE"
	default:
		return "ASSEMBLY_FAILED"
	}
}
