package product

import (
	"errors"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/domain/money"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("product: not found")
	ErrInvalidName  = errors.New("product: name is required")
	ErrInvalidPrice = errors.New("product: price must be zero or greater")
	ErrInvalidStock = errors.New("product: stock must be zero or greater")
)

type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Currency  string
	Stock     int
	Active    bool
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, name string, price decimal.Decimal, currency string, stock int, ownerID string) (*Product, error) {
	now := time.Now().UTC()
	p := &Product{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Price:     price,
		Currency:  currency,
		Stock:     stock,
		Active:    true,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return ErrInvalidName
	case p.Price.IsNegative():
		return ErrInvalidPrice
	case p.Stock < 0:
		return ErrInvalidStock
	case !money.ValidCurrency(p.Currency):
		return money.ErrInvalidCurrency
	}
	return nil
}

// Available is the quantity that can still be ordered. Inactive products have none.
func (p *Product) Available() int {
	if !p.Active {
		return 0
	}
	return p.Stock
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
