package sqlstore

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-commerce/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	var m productModel
	err := r.s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("product repository: get %s: %w", id, err)
	}
	return m.toDomain(), nil
}

// Save inserts or fully replaces the product row.
func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	m := productFromDomain(p)
	m.UpdatedAt = r.s.now()
	err := r.s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "currency", "stock", "active", "owner_id", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("product repository: save %s: %w", p.ID, err)
	}
	return nil
}
