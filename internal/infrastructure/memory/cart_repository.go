package memory

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/cart"
)

type CartRepository struct {
	s *Store
}

func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	_ = ctx

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil || c.UserID == "" {
		return fmt.Errorf("cart repository: user id is required")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.carts[c.UserID] = c.Clone()
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_ = ctx

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.carts, userID)
	return nil
}
