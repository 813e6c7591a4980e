package memory

import (
	"context"
	"fmt"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
)

type PaymentRepository struct {
	s *Store
}

func (r *PaymentRepository) Begin(ctx context.Context, p *domain.Payment, claimTTL time.Duration) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[p.OrderID]
	if !ok {
		return domorder.ErrNotFound
	}
	if order.Status != domorder.StatusPendingPayment || r.s.claimLive(p.OrderID) {
		return domain.ErrClaimed
	}

	r.s.claims[p.OrderID] = claim{paymentID: p.ID, expiresAt: r.s.now().Add(claimTTL)}
	r.s.payments[p.ID] = p.Clone()
	r.s.byOrder[p.OrderID] = append(r.s.byOrder[p.OrderID], p.ID)
	return nil
}

func (r *PaymentRepository) Finish(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.payments[p.ID]; !ok {
		return domain.ErrNotFound
	}

	if p.Status == domain.StatusPaid {
		order, ok := r.s.orders[p.OrderID]
		if !ok {
			return domorder.ErrNotFound
		}
		if c, held := r.s.claims[p.OrderID]; order.Status != domorder.StatusPendingPayment || !held || c.paymentID != p.ID {
			return domorder.ErrStatusChanged
		}
		updated := order.Clone()
		if err := updated.MarkPaid(p.UpdatedAt); err != nil {
			return err
		}
		r.s.orders[p.OrderID] = updated
	}

	r.s.payments[p.ID] = p.Clone()
	if c, held := r.s.claims[p.OrderID]; held && c.paymentID == p.ID {
		delete(r.s.claims, p.OrderID)
	}
	return nil
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	_ = ctx

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := r.s.byOrder[orderID]
	out := make([]*domain.Payment, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.s.payments[id].Clone())
	}
	return out, nil
}
