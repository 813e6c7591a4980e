package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	domproduct "github.com/Zhima-Mochi/minishop-commerce/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService  = "inventory-service"
	useCaseStockCheck = "inventory.check"
)

type CheckStockInput struct {
	Lines []dominv.Line
}

// CheckResult is the outcome of a stock ledger check. OK is true only when Errors is empty.
type CheckResult struct {
	OK     bool
	Lines  []dominv.Line
	Errors []dominv.StockError
	// Products holds the products read for the lines that passed, keyed by id.
	Products map[string]*domproduct.Product
}

// CheckStockUseCase compares requested quantities against the primary store. It never writes.
type CheckStockUseCase struct {
	products domproduct.Repository
	ins      application.Instruments
}

func NewCheckStockUseCase(products domproduct.Repository, tel observability.Observability) *CheckStockUseCase {
	return &CheckStockUseCase{
		products: products,
		ins:      application.NewInstruments(tel, inventoryService),
	}
}

// Execute evaluates every line, so the result reports all offending products rather than the first.
func (uc *CheckStockUseCase) Execute(ctx context.Context, cmd CheckStockInput) (_ *CheckResult, err error) {
	logger := logctx.FromOr(ctx, uc.ins.Log).With(observability.F("use_case", useCaseStockCheck))

	ctx, span := uc.ins.Tracer.Start(ctx, application.SpanPrefix+"CheckStock",
		attribute.String("use_case", useCaseStockCheck),
		attribute.Int("inventory.lines", len(cmd.Lines)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var shortages int

	defer func() {
		uc.ins.Done(ctx, span, logger, useCaseStockCheck, start, outcome, statusText, err,
			observability.F("lines", len(cmd.Lines)),
			observability.F("stock_errors", shortages),
		)
	}()

	lines, mErr := dominv.Merge(cmd.Lines)
	if mErr != nil {
		outcome, statusText = "error", "LINES_INVALID"
		return nil, application.InvalidInput(mErr.Error(), mErr)
	}

	result := &CheckResult{
		Lines:    lines,
		Products: make(map[string]*domproduct.Product, len(lines)),
	}
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			outcome, statusText = "error", "CONTEXT_CANCELED"
			return nil, err
		}
		p, getErr := uc.products.Get(ctx, line.ProductID)
		switch {
		case getErr == nil:
		case errors.Is(getErr, domproduct.ErrNotFound):
			p = nil
		default:
			outcome, statusText = "error", "PRODUCT_LOOKUP_FAILED"
			return nil, application.Internal("product lookup failed", getErr)
		}
		if se := dominv.Check(line, p); se != nil {
			result.Errors = append(result.Errors, *se)
			continue
		}
		result.Products[p.ID] = p
	}

	shortages = len(result.Errors)
	result.OK = shortages == 0
	if !result.OK {
		statusText = "STOCK_SHORTAGE"
	}
	span.SetAttributes(attribute.Int("inventory.stock_errors", shortages))
	return result, nil
}
