package sqlstore

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/cart"
	"gorm.io/gorm"
)

type CartRepository struct {
	s *Store
}

func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	var items []cartItemModel
	err := r.s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("cart repository: get %s: %w", userID, err)
	}
	if len(items) == 0 {
		return nil, domain.ErrNotFound
	}
	return cartFromModels(userID, items), nil
}

// Save replaces the user's items with c.Items.
func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	if c == nil || c.UserID == "" {
		return fmt.Errorf("cart repository: user id is required")
	}
	now := r.s.now()
	return r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", c.UserID).Delete(&cartItemModel{}).Error; err != nil {
			return fmt.Errorf("cart repository: clear %s: %w", c.UserID, err)
		}
		if len(c.Items) == 0 {
			return nil
		}
		rows := make([]cartItemModel, len(c.Items))
		for i, it := range c.Items {
			rows[i] = cartItemModel{UserID: c.UserID, ProductID: it.ProductID, Position: i, Quantity: it.Quantity, UpdatedAt: now}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("cart repository: save %s: %w", c.UserID, err)
		}
		return nil
	})
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	err := r.s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&cartItemModel{}).Error
	if err != nil {
		return fmt.Errorf("cart repository: clear %s: %w", userID, err)
	}
	return nil
}
