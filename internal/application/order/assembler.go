package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	appinv "github.com/Zhima-Mochi/minishop-commerce/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-commerce/internal/domain/money"
	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
)

type AssembleInput struct {
	UserID            string
	ShippingAddressID string
	Lines             []dominv.Line
}

// Assembler turns requested lines into a PendingPayment order aggregate.
// It reads but never writes; persistence is the caller's job.
type Assembler struct {
	stock StockChecker
	ids   application.IDGenerator
}

func NewAssembler(stock StockChecker, ids application.IDGenerator) *Assembler {
	return &Assembler{stock: stock, ids: ids}
}

// Assemble fails with every StockError when any line cannot be fulfilled.
// Unit prices are copied from the products as read by the stock check.
func (a *Assembler) Assemble(ctx context.Context, in AssembleInput) (*domain.Order, error) {
	if len(in.Lines) == 0 {
		return nil, newValidation("order must contain at least one line", domain.ErrNoLines)
	}

	res, err := a.stock.Execute(ctx, appinv.CheckStockInput{Lines: in.Lines})
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, application.OutOfStock(res.Errors)
	}

	orderID := a.ids.NewID()
	currency := ""
	details := make([]domain.Detail, 0, len(res.Lines))
	for _, line := range res.Lines {
		p := res.Products[line.ProductID]
		if currency == "" {
			currency = p.Currency
		} else if p.Currency != currency {
			return nil, newValidation("all products of an order must share one currency", money.ErrInvalidCurrency)
		}
		details = append(details, domain.Detail{
			ID:          a.ids.NewID(),
			OrderID:     orderID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    line.Quantity,
			UnitPrice:   p.Price,
		})
	}

	o, err := domain.New(orderID, in.UserID, in.ShippingAddressID, currency, details)
	if err != nil {
		return nil, newValidation("order is invalid", err)
	}
	if err := o.Submit(); err != nil {
		return nil, application.Internal("order submit", err)
	}
	return o, nil
}
