package checkout

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	appinv "github.com/Zhima-Mochi/minishop-commerce/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-commerce/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-commerce/internal/application/payment"
	domcart "github.com/Zhima-Mochi/minishop-commerce/internal/domain/cart"
	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-commerce/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/pkg/cache"
)

// Deps lists the collaborators the orchestrator is built from.
type Deps struct {
	Products  domproduct.Repository
	Orders    domorder.Repository
	Payments  dompay.Repository
	Carts     domcart.Repository
	Gateway   dompay.Gateway
	IDs       application.IDGenerator
	Cache     cache.Store
	CacheTTL  time.Duration
	Publisher domoutbox.Publisher
	Payment   apppay.Options
	Tel       observability.Observability
}

// Orchestrator is the single entry point of the order and payment workflow.
// The caller's identity is an explicit argument of every operation.
type Orchestrator struct {
	createOrder  application.UseCase[apporder.CreateOrderInput, *apporder.CreateOrderResult]
	getOrder     application.UseCase[apporder.GetOrderInput, *domorder.Order]
	listOrders   application.UseCase[apporder.ListOrdersInput, *application.PagedResult[*domorder.Order]]
	updateStatus application.UseCase[apporder.UpdateStatusInput, *domorder.Order]
	pay          application.UseCase[apppay.ProcessPaymentInput, *apppay.ProcessPaymentResult]
	listPayments application.UseCase[apppay.ListPaymentsInput, []*dompay.Payment]
}

func New(d Deps) *Orchestrator {
	store := d.Cache
	if store == nil {
		store = cache.Nop()
	}
	assembler := apporder.NewAssembler(appinv.NewCheckStockUseCase(d.Products, d.Tel), d.IDs)
	return &Orchestrator{
		createOrder:  apporder.NewCreateOrderUseCase(assembler, d.Orders, d.Carts, d.Publisher, d.Tel),
		getOrder:     apporder.NewGetOrderUseCase(d.Orders, store, d.CacheTTL, d.Tel),
		listOrders:   apporder.NewListOrdersUseCase(d.Orders, d.Tel),
		updateStatus: apporder.NewUpdateStatusUseCase(d.Orders, store, d.Publisher, d.Tel),
		pay:          apppay.NewProcessPaymentUseCase(d.Orders, d.Payments, d.Gateway, d.IDs, store, d.Publisher, d.Payment, d.Tel),
		listPayments: apppay.NewListPaymentsUseCase(d.Orders, d.Payments, store, d.CacheTTL, d.Tel),
	}
}

type CreateOrderRequest struct {
	ShippingAddressID string
	Lines             []dominv.Line
	FromCart          bool
	IdempotencyKey    string
}

func (o *Orchestrator) CreateOrder(ctx context.Context, caller application.Caller, req CreateOrderRequest) (*apporder.CreateOrderResult, error) {
	return o.createOrder.Execute(ctx, apporder.CreateOrderInput{
		Caller:            caller,
		ShippingAddressID: req.ShippingAddressID,
		Lines:             req.Lines,
		FromCart:          req.FromCart,
		IdempotencyKey:    req.IdempotencyKey,
	})
}

func (o *Orchestrator) GetOrder(ctx context.Context, caller application.Caller, orderID string) (*domorder.Order, error) {
	return o.getOrder.Execute(ctx, apporder.GetOrderInput{Caller: caller, OrderID: orderID})
}

type ListOrdersQuery struct {
	UserID      string
	Status      string
	CreatedFrom time.Time
	CreatedTo   time.Time
	Page        int
	PageSize    int
}

func (o *Orchestrator) ListOrders(ctx context.Context, caller application.Caller, q ListOrdersQuery) (*application.PagedResult[*domorder.Order], error) {
	return o.listOrders.Execute(ctx, apporder.ListOrdersInput{
		Caller:      caller,
		UserID:      q.UserID,
		Status:      q.Status,
		CreatedFrom: q.CreatedFrom,
		CreatedTo:   q.CreatedTo,
		Page:        application.PageQuery{Page: q.Page, PageSize: q.PageSize},
	})
}

func (o *Orchestrator) UpdateOrderStatus(ctx context.Context, caller application.Caller, orderID, status string) (*domorder.Order, error) {
	return o.updateStatus.Execute(ctx, apporder.UpdateStatusInput{Caller: caller, OrderID: orderID, Status: status})
}

func (o *Orchestrator) ProcessPayment(ctx context.Context, caller application.Caller, orderID string, card dompay.Card) (*apppay.ProcessPaymentResult, error) {
	return o.pay.Execute(ctx, apppay.ProcessPaymentInput{Caller: caller, OrderID: orderID, Card: card})
}

func (o *Orchestrator) ListPayments(ctx context.Context, caller application.Caller, orderID string) ([]*dompay.Payment, error) {
	return o.listPayments.Execute(ctx, apppay.ListPaymentsInput{Caller: caller, OrderID: orderID})
}
