package sqlstore

import (
	"context"
	"errors"
	"fmt"

	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	"gorm.io/gorm"
)

type OrderRepository struct {
	s *Store
}

// Create decrements stock line by line with guarded UPDATEs and inserts the
// order in the same transaction. Every short line is reported, not just the first.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	lines, err := order.StockLines()
	if err != nil {
		return err
	}
	now := r.s.now()

	return r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var shortages []dominv.StockError
		for _, line := range lines {
			res := tx.Model(&productModel{}).
				Where("id = ? AND active = ? AND stock >= ?", line.ProductID, true, line.Quantity).
				Updates(map[string]any{
					"stock":      gorm.Expr("stock - ?", line.Quantity),
					"updated_at": now,
				})
			if res.Error != nil {
				return fmt.Errorf("order repository: reserve %s: %w", line.ProductID, res.Error)
			}
			if res.RowsAffected == 1 {
				continue
			}
			se, err := r.shortage(tx, line)
			if err != nil {
				return err
			}
			shortages = append(shortages, se)
		}
		if len(shortages) > 0 {
			return &dominv.ShortageError{Items: shortages}
		}

		m := orderFromDomain(order)
		if err := tx.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrConflict
			}
			return fmt.Errorf("order repository: insert %s: %w", order.ID, err)
		}
		return nil
	})
}

func (r *OrderRepository) shortage(tx *gorm.DB, line dominv.Line) (dominv.StockError, error) {
	var m productModel
	err := tx.First(&m, "id = ?", line.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return *dominv.Check(line, nil), nil
	}
	if err != nil {
		return dominv.StockError{}, fmt.Errorf("order repository: load %s: %w", line.ProductID, err)
	}
	if se := dominv.Check(line, m.toDomain()); se != nil {
		return *se, nil
	}
	// The guarded update lost to a concurrent writer but the row now looks sufficient.
	return dominv.StockError{
		ProductID:   m.ID,
		ProductName: m.Name,
		Available:   m.Stock,
		Requested:   line.Quantity,
		Reason:      dominv.ReasonInsufficientStock,
	}, nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, userID, key string) (*domain.Order, error) {
	col := idempotencyColumn(userID, key)
	if col == nil {
		return nil, domain.ErrNotFound
	}
	return r.first(ctx, "idempotency_key = ?", *col)
}

func (r *OrderRepository) first(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	var m orderModel
	err := r.s.db.WithContext(ctx).
		Preload("Details", orderedDetails).
		Where(query, args...).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order repository: get: %w", err)
	}
	return m.toDomain(), nil
}

// List returns matching orders newest first along with the unpaged total.
func (r *OrderRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Order, int64, error) {
	q := r.s.db.WithContext(ctx).Model(&orderModel{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.CreatedFrom.IsZero() {
		q = q.Where("created_at >= ?", f.CreatedFrom.UTC())
	}
	if !f.CreatedTo.IsZero() {
		q = q.Where("created_at <= ?", f.CreatedTo.UTC())
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("order repository: count: %w", err)
	}
	if total == 0 || int64(f.Offset) >= total {
		return []*domain.Order{}, total, nil
	}

	page := q.Preload("Details", orderedDetails).Order("created_at DESC, id DESC").Offset(f.Offset)
	if f.Limit > 0 {
		page = page.Limit(f.Limit)
	}
	var ms []orderModel
	if err := page.Find(&ms).Error; err != nil {
		return nil, 0, fmt.Errorf("order repository: list: %w", err)
	}
	out := make([]*domain.Order, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, total, nil
}

// UpdateStatus is a compare-and-set on status that also refuses while a
// payment claim is live. Cancellation returns stock within the same transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.Status) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	now := r.s.now()

	return r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orderModel{}).
			Where("id = ? AND status = ?", order.ID, string(from)).
			Where(claimFree, now).
			Updates(map[string]any{
				"status":       string(order.Status),
				"updated_at":   order.UpdatedAt,
				"paid_at":      order.PaidAt,
				"cancelled_at": order.CancelledAt,
			})
		if res.Error != nil {
			return fmt.Errorf("order repository: update %s: %w", order.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return r.missingOr(tx, order.ID, domain.ErrStatusChanged)
		}

		if order.Status != domain.StatusCancelled || from == domain.StatusCancelled {
			return nil
		}
		var details []orderDetailModel
		if err := tx.Where("order_id = ?", order.ID).Find(&details).Error; err != nil {
			return fmt.Errorf("order repository: details %s: %w", order.ID, err)
		}
		for _, d := range details {
			err := tx.Model(&productModel{}).
				Where("id = ?", d.ProductID).
				Updates(map[string]any{
					"stock":      gorm.Expr("stock + ?", d.Quantity),
					"updated_at": now,
				}).Error
			if err != nil {
				return fmt.Errorf("order repository: restore %s: %w", d.ProductID, err)
			}
		}
		return nil
	})
}

// missingOr distinguishes a vanished row from a failed guard.
func (r *OrderRepository) missingOr(tx *gorm.DB, id string, guardErr error) error {
	var n int64
	if err := tx.Model(&orderModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("order repository: exists %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return guardErr
}

func orderedDetails(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
