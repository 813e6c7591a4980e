package order

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-commerce/internal/pkg/cache"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderStatus = "order.update_status"

type UpdateStatusInput struct {
	Caller  application.Caller
	OrderID string
	Status  string
}

// UpdateStatusUseCase applies manual lifecycle changes. Only a payment can move an order to Paid.
type UpdateStatusUseCase struct {
	repo      domain.Repository
	cache     cache.Store
	publisher domoutbox.Publisher
	now       func() time.Time
	ins       application.Instruments
}

func NewUpdateStatusUseCase(repo domain.Repository, store cache.Store, publisher domoutbox.Publisher, tel observability.Observability) *UpdateStatusUseCase {
	if store == nil {
		store = cache.Nop()
	}
	return &UpdateStatusUseCase{
		repo:      repo,
		cache:     store,
		publisher: publisher,
		now:       time.Now,
		ins:       application.NewInstruments(tel, orderService),
	}
}

func (uc *UpdateStatusUseCase) Execute(ctx context.Context, cmd UpdateStatusInput) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, uc.ins.Log).With(
		observability.F("use_case", useCaseOrderStatus),
		observability.F("order_id", cmd.OrderID),
	)
	ctx, span := uc.ins.Tracer.Start(ctx, application.SpanPrefix+"UpdateOrderStatus",
		attribute.String("use_case", useCaseOrderStatus),
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", cmd.Status),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var from domain.Status
	var publishErr error
	defer func() {
		fields := []observability.Field{
			observability.F("from", string(from)),
			observability.F("to", cmd.Status),
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		uc.ins.Done(ctx, span, logger, useCaseOrderStatus, start, outcome, statusText, err, fields...)
	}()

	if err := application.RequireCaller(cmd.Caller); err != nil {
		outcome, statusText = "error", "CALLER_REQUIRED"
		return nil, err
	}
	if cmd.OrderID == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, newValidation("order id is required", nil)
	}
	target, ok := domain.ParseStatus(cmd.Status)
	if !ok {
		outcome, statusText = "error", "STATUS_INVALID"
		return nil, newValidation("unknown order status "+cmd.Status, nil)
	}

	o, repoErr := uc.repo.Get(ctx, cmd.OrderID)
	if repoErr != nil {
		outcome, statusText = "error", "ORDER_LOOKUP_FAILED"
		return nil, wrapRepositoryError(repoErr)
	}
	if !cmd.Caller.CanAccess(o.UserID) {
		outcome, statusText = "error", "FORBIDDEN"
		return nil, application.Forbidden("order belongs to another user")
	}
	if !cmd.Caller.Elevated() && target != domain.StatusCancelled {
		outcome, statusText = "error", "FORBIDDEN"
		return nil, application.Forbidden("only administrators may set status " + string(target))
	}

	from = o.Status
	if tErr := o.TransitionTo(target, uc.now()); tErr != nil {
		outcome, statusText = "error", "TRANSITION_REJECTED"
		return nil, application.Conflict("cannot move order from "+string(from)+" to "+string(target), tErr)
	}

	if uErr := uc.repo.UpdateStatus(ctx, o, from); uErr != nil {
		outcome, statusText = "error", "REPO_UPDATE_FAILED"
		if errors.Is(uErr, domain.ErrStatusChanged) {
			statusText = "STATUS_CHANGED"
		}
		return nil, wrapRepositoryError(uErr)
	}

	var restored []dominv.Line
	if o.Status == domain.StatusCancelled {
		for _, d := range o.Details {
			restored = append(restored, dominv.Line{ProductID: d.ProductID, Quantity: d.Quantity})
		}
	}
	_ = cache.Invalidate(ctx, uc.cache, cache.OrderKey(o.ID))

	publishErr = uc.ins.Publish(ctx, uc.publisher, domain.NewOrderStatusChangedEvent(o, from, cmd.Caller.UserID))
	if len(restored) > 0 {
		publishErr = errors.Join(publishErr, uc.ins.Publish(ctx, uc.publisher, dominv.NewStockRestoredEvent(o.ID, restored)))
	}
	if publishErr != nil {
		statusText = "EVENT_PUBLISH_FAILED"
	}

	span.SetAttributes(attribute.String("order.status", string(o.Status)))
	return o, nil
}
