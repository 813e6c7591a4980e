package memory

import (
	"sync"
	"time"

	domcart "github.com/Zhima-Mochi/minishop-commerce/internal/domain/cart"
	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-commerce/internal/domain/product"
)

type claim struct {
	paymentID string
	expiresAt time.Time
}

// Store keeps every aggregate behind one lock so that multi-entity writes
// (order plus stock, payment plus order status) are atomic.
type Store struct {
	mu          sync.RWMutex
	products    map[string]*domproduct.Product
	orders      map[string]*domorder.Order
	orderSeq    []string
	idempotency map[string]string
	claims      map[string]claim
	payments    map[string]*dompay.Payment
	byOrder     map[string][]string
	carts       map[string]*domcart.Cart
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		products:    make(map[string]*domproduct.Product),
		orders:      make(map[string]*domorder.Order),
		idempotency: make(map[string]string),
		claims:      make(map[string]claim),
		payments:    make(map[string]*dompay.Payment),
		byOrder:     make(map[string][]string),
		carts:       make(map[string]*domcart.Cart),
		now:         time.Now,
	}
}

func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }
func (s *Store) Orders() *OrderRepository     { return &OrderRepository{s: s} }
func (s *Store) Payments() *PaymentRepository { return &PaymentRepository{s: s} }
func (s *Store) Carts() *CartRepository       { return &CartRepository{s: s} }

// claimLive must be called with s.mu held.
func (s *Store) claimLive(orderID string) bool {
	c, ok := s.claims[orderID]
	return ok && s.now().Before(c.expiresAt)
}

func idempotencyIndex(userID, key string) string {
	return userID + "\x00" + key
}
