package memory

import (
	"context"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/product"
)

type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	clone := p.Clone()
	clone.UpdatedAt = time.Now().UTC()
	r.s.products[p.ID] = clone
	return nil
}
