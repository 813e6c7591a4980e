package sqlstore

import (
	"time"

	"gorm.io/gorm"
)

// Store hands out repositories sharing one connection pool.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }
func (s *Store) Orders() *OrderRepository     { return &OrderRepository{s: s} }
func (s *Store) Payments() *PaymentRepository { return &PaymentRepository{s: s} }
func (s *Store) Carts() *CartRepository       { return &CartRepository{s: s} }

// claimFree matches orders with no payment attempt in flight.
const claimFree = "(claim_payment_id = '' OR claim_expires_at IS NULL OR claim_expires_at < ?)"
