package order

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-commerce/internal/pkg/cache"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseOrderGet  = "order.get"
	useCaseOrderList = "order.list"
)

type GetOrderInput struct {
	Caller  application.Caller
	OrderID string
}

// GetOrderUseCase reads one order through the cache.
type GetOrderUseCase struct {
	repo  domain.Repository
	cache cache.Store
	ttl   time.Duration
	ins   application.Instruments
}

func NewGetOrderUseCase(repo domain.Repository, store cache.Store, ttl time.Duration, tel observability.Observability) *GetOrderUseCase {
	if store == nil {
		store = cache.Nop()
	}
	return &GetOrderUseCase{
		repo:  repo,
		cache: store,
		ttl:   ttl,
		ins:   application.NewInstruments(tel, orderService),
	}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, uc.ins.Log).With(
		observability.F("use_case", useCaseOrderGet),
		observability.F("order_id", cmd.OrderID),
	)
	ctx, span := uc.ins.Tracer.Start(ctx, application.SpanPrefix+"GetOrder",
		attribute.String("use_case", useCaseOrderGet),
		attribute.String("order.id", cmd.OrderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	defer func() {
		uc.ins.Done(ctx, span, logger, useCaseOrderGet, start, outcome, statusText, err)
	}()

	if err := application.RequireCaller(cmd.Caller); err != nil {
		outcome, statusText = "error", "CALLER_REQUIRED"
		return nil, err
	}
	if cmd.OrderID == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, newValidation("order id is required", nil)
	}

	o, err := cache.GetOrSet(ctx, uc.cache, cache.OrderKey(cmd.OrderID), uc.ttl, func(ctx context.Context) (*domain.Order, error) {
		return uc.repo.Get(ctx, cmd.OrderID)
	})
	if err != nil {
		outcome, statusText = "error", "ORDER_LOOKUP_FAILED"
		return nil, wrapRepositoryError(err)
	}
	if !cmd.Caller.CanAccess(o.UserID) {
		outcome, statusText = "error", "FORBIDDEN"
		return nil, application.Forbidden("order belongs to another user")
	}
	return o, nil
}

type ListOrdersInput struct {
	Caller application.Caller
	// UserID restricts the listing to one owner. Non-admin callers always list their own orders.
	UserID      string
	Status      string
	CreatedFrom time.Time
	CreatedTo   time.Time
	Page        application.PageQuery
}

// ListOrdersUseCase pages through orders straight from the primary store.
type ListOrdersUseCase struct {
	repo domain.Repository
	ins  application.Instruments
}

func NewListOrdersUseCase(repo domain.Repository, tel observability.Observability) *ListOrdersUseCase {
	return &ListOrdersUseCase{
		repo: repo,
		ins:  application.NewInstruments(tel, orderService),
	}
}

func (uc *ListOrdersUseCase) Execute(ctx context.Context, cmd ListOrdersInput) (_ *application.PagedResult[*domain.Order], err error) {
	logger := logctx.FromOr(ctx, uc.ins.Log).With(observability.F("use_case", useCaseOrderList))
	ctx, span := uc.ins.Tracer.Start(ctx, application.SpanPrefix+"ListOrders",
		attribute.String("use_case", useCaseOrderList),
		attribute.Int("page", cmd.Page.Page),
		attribute.Int("page_size", cmd.Page.PageSize),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var total int64
	defer func() {
		uc.ins.Done(ctx, span, logger, useCaseOrderList, start, outcome, statusText, err,
			observability.F("total", total),
		)
	}()

	if err := application.RequireCaller(cmd.Caller); err != nil {
		outcome, statusText = "error", "CALLER_REQUIRED"
		return nil, err
	}
	if err := cmd.Page.Validate(); err != nil {
		outcome, statusText = "error", "PAGE_INVALID"
		return nil, err
	}

	filter := domain.Filter{
		UserID:      cmd.UserID,
		CreatedFrom: cmd.CreatedFrom,
		CreatedTo:   cmd.CreatedTo,
		Offset:      cmd.Page.Offset(),
		Limit:       cmd.Page.PageSize,
	}
	if cmd.Status != "" {
		st, ok := domain.ParseStatus(cmd.Status)
		if !ok {
			outcome, statusText = "error", "STATUS_INVALID"
			return nil, newValidation("unknown order status "+cmd.Status, nil)
		}
		filter.Status = st
	}
	if !cmd.CreatedFrom.IsZero() && !cmd.CreatedTo.IsZero() && cmd.CreatedFrom.After(cmd.CreatedTo) {
		outcome, statusText = "error", "DATE_RANGE_INVALID"
		return nil, newValidation("created_from must not be after created_to", nil)
	}
	if !cmd.Caller.Elevated() {
		if cmd.UserID != "" && cmd.UserID != cmd.Caller.UserID {
			outcome, statusText = "error", "FORBIDDEN"
			return nil, application.Forbidden("cannot list another user's orders")
		}
		filter.UserID = cmd.Caller.UserID
	}

	items, n, repoErr := uc.repo.List(ctx, filter)
	if repoErr != nil {
		outcome, statusText = "error", "REPO_LIST_FAILED"
		return nil, wrapRepositoryError(repoErr)
	}
	total = n
	if items == nil {
		items = []*domain.Order{}
	}
	return &application.PagedResult[*domain.Order]{
		Items:    items,
		Total:    n,
		Page:     cmd.Page.Page,
		PageSize: cmd.Page.PageSize,
	}, nil
}
