package cart

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("cart: not found")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
)

type Item struct {
	ProductID string
	Quantity  int
}

// Cart holds the products a user intends to order. Items keep insertion order.
type Cart struct {
	UserID    string
	Items     []Item
	UpdatedAt time.Time
}

func New(userID string) *Cart {
	return &Cart{UserID: userID, UpdatedAt: time.Now().UTC()}
}

// Add puts quantity of productID in the cart, merging with an existing item.
func (c *Cart) Add(productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	defer c.touch()
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			return nil
		}
	}
	c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity})
	return nil
}

func (c *Cart) Empty() bool { return len(c.Items) == 0 }

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Items = append([]Item(nil), c.Items...)
	return &clone
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}

type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Clear(ctx context.Context, userID string) error
}
