package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
)

type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	if key := order.IdempotencyKey; key != "" {
		if _, exists := r.s.idempotency[idempotencyIndex(order.UserID, key)]; exists {
			return domain.ErrConflict
		}
	}

	lines, err := order.StockLines()
	if err != nil {
		return err
	}
	var shortages []dominv.StockError
	for _, line := range lines {
		if se := dominv.Check(line, r.s.products[line.ProductID]); se != nil {
			shortages = append(shortages, *se)
		}
	}
	if len(shortages) > 0 {
		return &dominv.ShortageError{Items: shortages}
	}

	now := time.Now().UTC()
	for _, line := range lines {
		p := r.s.products[line.ProductID]
		p.Stock -= line.Quantity
		p.UpdatedAt = now
	}

	r.s.orders[order.ID] = order.Clone()
	r.s.orderSeq = append(r.s.orderSeq, order.ID)
	if key := order.IdempotencyKey; key != "" {
		r.s.idempotency[idempotencyIndex(order.UserID, key)] = order.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, userID, key string) (*domain.Order, error) {
	_ = ctx
	if key == "" {
		return nil, domain.ErrNotFound
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	orderID, ok := r.s.idempotency[idempotencyIndex(userID, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, found := r.s.orders[orderID]
	if !found {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

// List returns matching orders newest first.
func (r *OrderRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Order, int64, error) {
	_ = ctx

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]*domain.Order, 0)
	for _, id := range r.s.orderSeq {
		o := r.s.orders[id]
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !f.CreatedFrom.IsZero() && o.CreatedAt.Before(f.CreatedFrom) {
			continue
		}
		if !f.CreatedTo.IsZero() && o.CreatedAt.After(f.CreatedTo) {
			continue
		}
		matched = append(matched, o)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []*domain.Order{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	out := make([]*domain.Order, 0, end-f.Offset)
	for _, o := range matched[f.Offset:end] {
		out = append(out, o.Clone())
	}
	return out, total, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.Status) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, exists := r.s.orders[order.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if cur.Status != from || r.s.claimLive(order.ID) {
		return domain.ErrStatusChanged
	}

	if order.Status == domain.StatusCancelled && from != domain.StatusCancelled {
		lines, err := cur.StockLines()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, line := range lines {
			if p, ok := r.s.products[line.ProductID]; ok {
				p.Stock += line.Quantity
				p.UpdatedAt = now
			}
		}
	}

	updated := cur.Clone()
	updated.Status = order.Status
	updated.UpdatedAt = order.UpdatedAt
	updated.PaidAt = order.PaidAt
	updated.CancelledAt = order.CancelledAt
	r.s.orders[order.ID] = updated
	return nil
}
