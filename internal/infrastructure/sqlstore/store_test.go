package sqlstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domcart "github.com/Zhima-Mochi/minishop-commerce/internal/domain/cart"
	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-commerce/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(Config{
		Driver:       DriverSQLite,
		DSN:          "file:" + name + "?mode=memory&cache=shared&_foreign_keys=on",
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Migrate(context.Background(), db))
	return NewStore(db)
}

func seedProduct(t *testing.T, s *Store, id string, stock int) {
	t.Helper()
	p, err := domproduct.New(id, "Product "+id, decimal.RequireFromString("12.50"), "USD", stock, "")
	require.NoError(t, err)
	require.NoError(t, s.Products().Save(context.Background(), p))
}

func stockOf(t *testing.T, s *Store, id string) int {
	t.Helper()
	p, err := s.Products().Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func pendingOrder(t *testing.T, id, userID string, lines ...dominv.Line) *domorder.Order {
	t.Helper()
	details := make([]domorder.Detail, 0, len(lines))
	for i, l := range lines {
		details = append(details, domorder.Detail{
			ID:          id + "-d" + string(rune('0'+i)),
			ProductID:   l.ProductID,
			ProductName: "Product " + l.ProductID,
			Quantity:    l.Quantity,
			UnitPrice:   decimal.RequireFromString("12.50"),
		})
	}
	o, err := domorder.New(id, userID, "addr-1", "USD", details)
	require.NoError(t, err)
	require.NoError(t, o.Submit())
	return o
}

func newPayment(id, orderID string) *dompay.Payment {
	card := dompay.Card{Number: "4242424242424242", Method: dompay.MethodCreditCard}
	return dompay.NewProcessing(id, orderID, "u-1", decimal.RequireFromString("25.00"), "USD", card)
}

func TestProductRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProduct(t, s, "p-1", 3)

	p, err := s.Products().Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "12.50", p.Price.StringFixed(2))
	assert.True(t, p.Active)

	p.Stock = 7
	require.NoError(t, s.Products().Save(ctx, p))
	assert.Equal(t, 7, stockOf(t, s, "p-1"))

	_, err = s.Products().Get(ctx, "missing")
	assert.ErrorIs(t, err, domproduct.ErrNotFound)
}

func TestOrderCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProduct(t, s, "p-1", 5)
	seedProduct(t, s, "p-2", 5)

	o := pendingOrder(t, "o-1", "u-1",
		dominv.Line{ProductID: "p-2", Quantity: 1},
		dominv.Line{ProductID: "p-1", Quantity: 2},
	)
	o.IdempotencyKey = "k-1"
	require.NoError(t, s.Orders().Create(ctx, o))

	assert.Equal(t, 3, stockOf(t, s, "p-1"))
	assert.Equal(t, 4, stockOf(t, s, "p-2"))

	got, err := s.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPendingPayment, got.Status)
	assert.Equal(t, "37.50", got.TotalAmount.StringFixed(2))
	assert.Equal(t, "k-1", got.IdempotencyKey)
	require.Len(t, got.Details, 2)
	assert.Equal(t, "p-2", got.Details[0].ProductID)
	assert.Equal(t, "p-1", got.Details[1].ProductID)

	byKey, err := s.Orders().FindByIdempotency(ctx, "u-1", "k-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", byKey.ID)

	_, err = s.Orders().FindByIdempotency(ctx, "u-2", "k-1")
	assert.ErrorIs(t, err, domorder.ErrNotFound)

	dup := pendingOrder(t, "o-2", "u-1", dominv.Line{ProductID: "p-1", Quantity: 1})
	dup.IdempotencyKey = "k-1"
	assert.ErrorIs(t, s.Orders().Create(ctx, dup), domorder.ErrConflict)
	assert.Equal(t, 3, stockOf(t, s, "p-1"))
}

func TestOrderCreateShortageRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProduct(t, s, "p-1", 5)
	seedProduct(t, s, "p-2", 1)

	o := pendingOrder(t, "o-1", "u-1",
		dominv.Line{ProductID: "p-1", Quantity: 2},
		dominv.Line{ProductID: "p-2", Quantity: 3},
		dominv.Line{ProductID: "ghost", Quantity: 1},
	)
	err := s.Orders().Create(ctx, o)

	var shortage *dominv.ShortageError
	require.True(t, errors.As(err, &shortage), "got %v", err)
	require.Len(t, shortage.Items, 2)
	assert.Equal(t, dominv.StockError{ProductID: "p-2", ProductName: "Product p-2", Available: 1, Requested: 3, Reason: dominv.ReasonInsufficientStock}, shortage.Items[0])
	assert.Equal(t, dominv.ReasonNotFound, shortage.Items[1].Reason)

	assert.Equal(t, 5, stockOf(t, s, "p-1"))
	_, err = s.Orders().Get(ctx, "o-1")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestOrderListFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProduct(t, s, "p-1", 100)

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, user := range []string{"u-1", "u-1", "u-2"} {
		o := pendingOrder(t, "o-"+string(rune('a'+i)), user, dominv.Line{ProductID: "p-1", Quantity: 1})
		o.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.Orders().Create(ctx, o))
	}

	items, total, err := s.Orders().List(ctx, domorder.Filter{UserID: "u-1", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "o-b", items[0].ID)
	assert.Len(t, items[0].Details, 1)

	items, total, err = s.Orders().List(ctx, domorder.Filter{CreatedFrom: base.Add(30 * time.Minute), Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	_, total, err = s.Orders().List(ctx, domorder.Filter{Status: domorder.StatusCancelled, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCancelRestoresStock(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProduct(t, s, "p-1", 4)
	require.NoError(t, s.Orders().Create(ctx, pendingOrder(t, "o-1", "u-1", dominv.Line{ProductID: "p-1", Quantity: 3})))

	o, err := s.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	stale := o.Clone()

	require.NoError(t, o.Cancel(time.Now()))
	require.NoError(t, s.Orders().UpdateStatus(ctx, o, domorder.StatusPendingPayment))
	assert.Equal(t, 4, stockOf(t, s, "p-1"))

	got, err := s.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCancelled, got.Status)
	assert.NotNil(t, got.CancelledAt)

	require.NoError(t, stale.Cancel(time.Now()))
	assert.ErrorIs(t, s.Orders().UpdateStatus(ctx, stale, domorder.StatusPendingPayment), domorder.ErrStatusChanged)
	assert.Equal(t, 4, stockOf(t, s, "p-1"))
}

func TestPaymentClaimAndSettle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProduct(t, s, "p-1", 4)
	require.NoError(t, s.Orders().Create(ctx, pendingOrder(t, "o-1", "u-1", dominv.Line{ProductID: "p-1", Quantity: 2})))

	declined := newPayment("pay-1", "o-1")
	require.NoError(t, s.Payments().Begin(ctx, declined, time.Minute))
	assert.ErrorIs(t, s.Payments().Begin(ctx, newPayment("pay-2", "o-1"), time.Minute), dompay.ErrClaimed)

	o, err := s.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	require.NoError(t, o.Cancel(time.Now()))
	assert.ErrorIs(t, s.Orders().UpdateStatus(ctx, o, domorder.StatusPendingPayment), domorder.ErrStatusChanged)

	declined.Settle(&dompay.Result{Status: dompay.StatusFailed, Message: "card declined"})
	require.NoError(t, s.Payments().Finish(ctx, declined))

	paid := newPayment("pay-3", "o-1")
	require.NoError(t, s.Payments().Begin(ctx, paid, time.Minute))
	paid.Settle(&dompay.Result{Status: dompay.StatusPaid, TransactionID: "txn_1", Message: "approved"})
	require.NoError(t, s.Payments().Finish(ctx, paid))

	got, err := s.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPaid, got.Status)
	assert.NotNil(t, got.PaidAt)

	assert.ErrorIs(t, s.Payments().Begin(ctx, newPayment("pay-4", "o-1"), time.Minute), dompay.ErrClaimed)
	assert.ErrorIs(t, s.Payments().Begin(ctx, newPayment("pay-5", "missing"), time.Minute), domorder.ErrNotFound)

	history, err := s.Payments().ListByOrder(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, dompay.StatusFailed, history[0].Status)
	assert.Equal(t, "card declined", history[0].Message)
	assert.Equal(t, dompay.StatusPaid, history[1].Status)
	assert.Equal(t, "txn_1", history[1].TransactionID)
	assert.Equal(t, "25.00", history[1].Amount.StringFixed(2))
}

func TestStaleClaimCannotMarkPaid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	seedProduct(t, s, "p-1", 4)
	require.NoError(t, s.Orders().Create(ctx, pendingOrder(t, "o-1", "u-1", dominv.Line{ProductID: "p-1", Quantity: 1})))

	stale := newPayment("pay-1", "o-1")
	require.NoError(t, s.Payments().Begin(ctx, stale, time.Minute))

	now = now.Add(5 * time.Minute)
	fresh := newPayment("pay-2", "o-1")
	require.NoError(t, s.Payments().Begin(ctx, fresh, time.Minute))

	stale.Settle(&dompay.Result{Status: dompay.StatusPaid, TransactionID: "txn_stale"})
	assert.ErrorIs(t, s.Payments().Finish(ctx, stale), domorder.ErrStatusChanged)

	fresh.Settle(&dompay.Result{Status: dompay.StatusPaid, TransactionID: "txn_fresh"})
	require.NoError(t, s.Payments().Finish(ctx, fresh))
}

func TestCartRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Carts().Get(ctx, "u-1")
	assert.ErrorIs(t, err, domcart.ErrNotFound)

	c := domcart.New("u-1")
	require.NoError(t, c.Add("p-2", 1))
	require.NoError(t, c.Add("p-1", 4))
	require.NoError(t, s.Carts().Save(ctx, c))

	got, err := s.Carts().Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, []domcart.Item{{ProductID: "p-2", Quantity: 1}, {ProductID: "p-1", Quantity: 4}}, got.Items)

	require.NoError(t, s.Carts().Clear(ctx, "u-1"))
	_, err = s.Carts().Get(ctx, "u-1")
	assert.ErrorIs(t, err, domcart.ErrNotFound)
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN("db.internal", 3306, "shop", "s3cret", "minishop")
	assert.Contains(t, dsn, "shop:s3cret@tcp(db.internal:3306)/minishop")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"}, nil)
	assert.Error(t, err)
}
