package sqlstore

import (
	"context"
	"fmt"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	s *Store
}

// Begin claims the order for p and stores p as Processing. The claim only
// succeeds on a PendingPayment order with no live claim.
func (r *PaymentRepository) Begin(ctx context.Context, p *domain.Payment, claimTTL time.Duration) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}
	now := r.s.now()
	orders := r.s.Orders()

	return r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orderModel{}).
			Where("id = ? AND status = ?", p.OrderID, string(domorder.StatusPendingPayment)).
			Where(claimFree, now).
			Updates(map[string]any{
				"claim_payment_id": p.ID,
				"claim_expires_at": now.Add(claimTTL),
			})
		if res.Error != nil {
			return fmt.Errorf("payment repository: claim %s: %w", p.OrderID, res.Error)
		}
		if res.RowsAffected == 0 {
			return orders.missingOr(tx, p.OrderID, domain.ErrClaimed)
		}

		m := paymentFromDomain(p)
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("payment repository: insert %s: %w", p.ID, err)
		}
		return nil
	})
}

// Finish records the outcome and releases the claim. A paid outcome also moves
// the order to Paid, provided p still holds the claim.
func (r *PaymentRepository) Finish(ctx context.Context, p *domain.Payment) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}
	now := r.s.now()

	return r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&paymentModel{}).
			Where("id = ?", p.ID).
			Updates(map[string]any{
				"status":         string(p.Status),
				"provider":       string(p.Provider),
				"transaction_id": p.TransactionID,
				"last_four":      p.LastFour,
				"message":        p.Message,
				"updated_at":     p.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("payment repository: update %s: %w", p.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		release := map[string]any{
			"claim_payment_id": "",
			"claim_expires_at": nil,
		}
		if p.Status != domain.StatusPaid {
			err := tx.Model(&orderModel{}).
				Where("id = ? AND claim_payment_id = ?", p.OrderID, p.ID).
				Updates(release).Error
			if err != nil {
				return fmt.Errorf("payment repository: release %s: %w", p.OrderID, err)
			}
			return nil
		}

		release["status"] = string(domorder.StatusPaid)
		release["paid_at"] = p.UpdatedAt
		release["updated_at"] = now
		res = tx.Model(&orderModel{}).
			Where("id = ? AND status = ? AND claim_payment_id = ?", p.OrderID, string(domorder.StatusPendingPayment), p.ID).
			Updates(release)
		if res.Error != nil {
			return fmt.Errorf("payment repository: mark paid %s: %w", p.OrderID, res.Error)
		}
		if res.RowsAffected == 0 {
			return r.s.Orders().missingOr(tx, p.OrderID, domorder.ErrStatusChanged)
		}
		return nil
	})
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	var ms []paymentModel
	err := r.s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("payment repository: list %s: %w", orderID, err)
	}
	out := make([]*domain.Payment, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}
