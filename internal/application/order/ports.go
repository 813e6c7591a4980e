package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	appinv "github.com/Zhima-Mochi/minishop-commerce/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
)

const orderService = "order-service"

// StockChecker is the stock ledger check the assembler runs before anything is written.
type StockChecker interface {
	Execute(ctx context.Context, cmd appinv.CheckStockInput) (*appinv.CheckResult, error)
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var shortage *dominv.ShortageError
	var ae *application.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.As(err, &shortage):
		return application.OutOfStock(shortage.Items)
	case errors.Is(err, domain.ErrNotFound):
		return application.NotFound("order not found", err)
	case errors.Is(err, domain.ErrStatusChanged):
		return application.Conflict("order was modified concurrently", err)
	case errors.Is(err, domain.ErrConflict):
		return application.Conflict("order already exists", err)
	default:
		return application.Internal("order repository failure", err)
	}
}

func newValidation(msg string, err error) error {
	return application.InvalidInput(msg, err)
}
