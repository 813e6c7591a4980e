package inventory

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Zhima-Mochi/minishop-commerce/internal/domain/product"
)

var (
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrNoLines           = errors.New("inventory: at least one line is required")
)

type Reason string

const (
	ReasonInsufficientStock Reason = "insufficient_stock"
	ReasonNotFound          Reason = "not_found"
	ReasonInactive          Reason = "inactive"
)

// Line is a requested quantity of one product.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// StockError describes one line that cannot be fulfilled.
type StockError struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
	Reason      Reason `json:"reason"`
}

func (e StockError) Error() string {
	return fmt.Sprintf("product %s: %s (available %d, requested %d)", e.ProductID, e.Reason, e.Available, e.Requested)
}

// ShortageError carries every offending line of a rejected request.
type ShortageError struct {
	Items []StockError
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, it.Error())
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ShortageError) Is(target error) bool { return target == ErrInsufficientStock }

// SumQuantity adds two non-negative quantities and reports false instead of wrapping.
func SumQuantity(a, b int) (int, bool) {
	if b > math.MaxInt-a {
		return 0, false
	}
	return a + b, true
}

// Merge sums duplicate product lines and keeps first-seen order.
func Merge(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	index := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, fmt.Errorf("inventory: product id is required")
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, l.ProductID)
		}
		if i, ok := index[l.ProductID]; ok {
			sum, ok := SumQuantity(out[i].Quantity, l.Quantity)
			if !ok {
				return nil, fmt.Errorf("%w: product %s total is too large", ErrInvalidQuantity, l.ProductID)
			}
			out[i].Quantity = sum
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// Check classifies one line against the current product. A nil product means it does not exist.
// It returns nil when the line can be fulfilled.
func Check(line Line, p *product.Product) *StockError {
	if p == nil {
		return &StockError{ProductID: line.ProductID, Requested: line.Quantity, Reason: ReasonNotFound}
	}
	se := &StockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Available:   p.Available(),
		Requested:   line.Quantity,
	}
	switch {
	case !p.Active:
		se.Reason = ReasonInactive
	case line.Quantity > p.Stock:
		se.Reason = ReasonInsufficientStock
	default:
		return nil
	}
	return se
}
