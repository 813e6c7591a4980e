package sqlstore

import (
	"strconv"
	"time"

	domcart "github.com/Zhima-Mochi/minishop-commerce/internal/domain/cart"
	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-commerce/internal/domain/product"
	"github.com/shopspring/decimal"
)

type productModel struct {
	ID        string          `gorm:"primaryKey;size:64"`
	Name      string          `gorm:"size:255;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency  string          `gorm:"size:3;not null"`
	Stock     int             `gorm:"not null"`
	Active    bool            `gorm:"not null"`
	OwnerID   string          `gorm:"size:64;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (productModel) TableName() string { return "products" }

func productFromDomain(p *domproduct.Product) productModel {
	return productModel{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Currency:  p.Currency,
		Stock:     p.Stock,
		Active:    p.Active,
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (m productModel) toDomain() *domproduct.Product {
	return &domproduct.Product{
		ID:        m.ID,
		Name:      m.Name,
		Price:     m.Price,
		Currency:  m.Currency,
		Stock:     m.Stock,
		Active:    m.Active,
		OwnerID:   m.OwnerID,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// orderModel carries the payment claim next to the status so that claiming,
// settling and manual transitions are all single conditional UPDATEs.
type orderModel struct {
	ID                string          `gorm:"primaryKey;size:64"`
	UserID            string          `gorm:"size:64;not null;index"`
	ShippingAddressID string          `gorm:"size:64;not null"`
	IdempotencyKey    *string         `gorm:"size:255;uniqueIndex"`
	Currency          string          `gorm:"size:3;not null"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status            string          `gorm:"size:32;not null;index"`
	ClaimPaymentID    string          `gorm:"size:64;not null"`
	ClaimExpiresAt    *time.Time
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time
	PaidAt            *time.Time
	CancelledAt       *time.Time
	Details           []orderDetailModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderModel) TableName() string { return "orders" }

type orderDetailModel struct {
	ID          string          `gorm:"primaryKey;size:64"`
	OrderID     string          `gorm:"size:64;not null;index"`
	Position    int             `gorm:"not null"`
	ProductID   string          `gorm:"size:64;not null"`
	ProductName string          `gorm:"size:255;not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (orderDetailModel) TableName() string { return "order_details" }

// idempotencyColumn scopes a client key to its user; the column is unique.
func idempotencyColumn(userID, key string) *string {
	if key == "" {
		return nil
	}
	v := userID + ":" + key
	return &v
}

func orderFromDomain(o *domorder.Order) orderModel {
	m := orderModel{
		ID:                o.ID,
		UserID:            o.UserID,
		ShippingAddressID: o.ShippingAddressID,
		IdempotencyKey:    idempotencyColumn(o.UserID, o.IdempotencyKey),
		Currency:          o.Currency,
		TotalAmount:       o.TotalAmount,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		PaidAt:            o.PaidAt,
		CancelledAt:       o.CancelledAt,
		Details:           make([]orderDetailModel, len(o.Details)),
	}
	for i, d := range o.Details {
		id := d.ID
		if id == "" {
			id = o.ID + "-" + strconv.Itoa(i+1)
		}
		m.Details[i] = orderDetailModel{
			ID:          id,
			OrderID:     o.ID,
			Position:    i,
			ProductID:   d.ProductID,
			ProductName: d.ProductName,
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
		}
	}
	return m
}

func (m orderModel) toDomain() *domorder.Order {
	o := &domorder.Order{
		ID:                m.ID,
		UserID:            m.UserID,
		ShippingAddressID: m.ShippingAddressID,
		Currency:          m.Currency,
		TotalAmount:       m.TotalAmount,
		Status:            domorder.Status(m.Status),
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
		PaidAt:            utcPtr(m.PaidAt),
		CancelledAt:       utcPtr(m.CancelledAt),
		Details:           make([]domorder.Detail, len(m.Details)),
	}
	if m.IdempotencyKey != nil {
		o.IdempotencyKey = (*m.IdempotencyKey)[len(m.UserID)+1:]
	}
	for i, d := range m.Details {
		o.Details[i] = domorder.Detail{
			ID:          d.ID,
			OrderID:     d.OrderID,
			ProductID:   d.ProductID,
			ProductName: d.ProductName,
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
		}
	}
	return o
}

type paymentModel struct {
	ID            string          `gorm:"primaryKey;size:64"`
	OrderID       string          `gorm:"size:64;not null;index"`
	UserID        string          `gorm:"size:64;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency      string          `gorm:"size:3;not null"`
	Method        string          `gorm:"size:32;not null"`
	Provider      string          `gorm:"size:32;not null"`
	Status        string          `gorm:"size:32;not null"`
	TransactionID string          `gorm:"size:128"`
	LastFour      string          `gorm:"size:4"`
	Message       string          `gorm:"size:255"`
	CreatedAt     time.Time       `gorm:"index"`
	UpdatedAt     time.Time
}

func (paymentModel) TableName() string { return "payments" }

func paymentFromDomain(p *dompay.Payment) paymentModel {
	return paymentModel{
		ID:            p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Method:        string(p.Method),
		Provider:      string(p.Provider),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		LastFour:      p.LastFour,
		Message:       p.Message,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (m paymentModel) toDomain() *dompay.Payment {
	return &dompay.Payment{
		ID:            m.ID,
		OrderID:       m.OrderID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		Currency:      m.Currency,
		Method:        dompay.Method(m.Method),
		Provider:      dompay.Provider(m.Provider),
		Status:        dompay.Status(m.Status),
		TransactionID: m.TransactionID,
		LastFour:      m.LastFour,
		Message:       m.Message,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type cartItemModel struct {
	UserID    string `gorm:"primaryKey;size:64"`
	ProductID string `gorm:"primaryKey;size:64"`
	Position  int    `gorm:"not null"`
	Quantity  int    `gorm:"not null"`
	UpdatedAt time.Time
}

func (cartItemModel) TableName() string { return "cart_items" }

func cartFromModels(userID string, items []cartItemModel) *domcart.Cart {
	c := &domcart.Cart{UserID: userID, Items: make([]domcart.Item, 0, len(items))}
	for _, it := range items {
		c.Items = append(c.Items, domcart.Item{ProductID: it.ProductID, Quantity: it.Quantity})
		if it.UpdatedAt.After(c.UpdatedAt) {
			c.UpdatedAt = it.UpdatedAt.UTC()
		}
	}
	return c
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
