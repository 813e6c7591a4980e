package memory

import (
	"context"
	"errors"
	"sync"
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

func seedProduct(t *testing.T, s *Store, id string, stock int) {
	t.Helper()
	p, err := domproduct.New(id, "Product "+id, decimal.RequireFromString("10.00"), "USD", stock, "")
	require.NoError(t, err)
	require.NoError(t, s.Products().Save(context.Background(), p))
}

func pendingOrder(t *testing.T, id, userID string, lines ...dominv.Line) *domorder.Order {
	t.Helper()
	details := make([]domorder.Detail, 0, len(lines))
	for _, l := range lines {
		details = append(details, domorder.Detail{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: decimal.RequireFromString("10.00")})
	}
	o, err := domorder.New(id, userID, "addr-1", "USD", details)
	require.NoError(t, err)
	require.NoError(t, o.Submit())
	return o
}

func stockOf(t *testing.T, s *Store, id string) int {
	t.Helper()
	p, err := s.Products().Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestCreateDecrementsStock(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p-1", 5)
	seedProduct(t, s, "p-2", 1)

	o := pendingOrder(t, "o-1", "u-1",
		dominv.Line{ProductID: "p-1", Quantity: 2},
		dominv.Line{ProductID: "p-2", Quantity: 1},
		dominv.Line{ProductID: "p-1", Quantity: 1},
	)
	require.NoError(t, s.Orders().Create(ctx, o))

	assert.Equal(t, 2, stockOf(t, s, "p-1"))
	assert.Equal(t, 0, stockOf(t, s, "p-2"))

	got, err := s.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPendingPayment, got.Status)
	assert.Len(t, got.Details, 3)

	assert.ErrorIs(t, s.Orders().Create(ctx, o), domorder.ErrConflict)
}

func TestCreateReportsEveryShortageAndWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p-1", 1)
	seedProduct(t, s, "p-2", 10)
	seedProduct(t, s, "p-3", 0)

	o := pendingOrder(t, "o-1", "u-1",
		dominv.Line{ProductID: "p-1", Quantity: 2},
		dominv.Line{ProductID: "p-2", Quantity: 1},
		dominv.Line{ProductID: "p-3", Quantity: 1},
		dominv.Line{ProductID: "ghost", Quantity: 1},
	)
	err := s.Orders().Create(ctx, o)

	var shortage *dominv.ShortageError
	require.True(t, errors.As(err, &shortage))
	require.Len(t, shortage.Items, 3)
	assert.Equal(t, "p-1", shortage.Items[0].ProductID)
	assert.Equal(t, "p-3", shortage.Items[1].ProductID)
	assert.Equal(t, dominv.ReasonNotFound, shortage.Items[2].Reason)

	assert.Equal(t, 10, stockOf(t, s, "p-2"))
	_, err = s.Orders().Get(ctx, "o-1")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestIdempotencyIsScopedPerUser(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p-1", 10)

	a := pendingOrder(t, "o-1", "u-1", dominv.Line{ProductID: "p-1", Quantity: 1})
	a.IdempotencyKey = "key-1"
	require.NoError(t, s.Orders().Create(ctx, a))

	dup := pendingOrder(t, "o-2", "u-1", dominv.Line{ProductID: "p-1", Quantity: 1})
	dup.IdempotencyKey = "key-1"
	assert.ErrorIs(t, s.Orders().Create(ctx, dup), domorder.ErrConflict)

	other := pendingOrder(t, "o-3", "u-2", dominv.Line{ProductID: "p-1", Quantity: 1})
	other.IdempotencyKey = "key-1"
	require.NoError(t, s.Orders().Create(ctx, other))

	got, err := s.Orders().FindByIdempotency(ctx, "u-1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", got.ID)

	_, err = s.Orders().FindByIdempotency(ctx, "u-1", "")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p-1", 100)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, user := range []string{"u-1", "u-2", "u-1", "u-1"} {
		o := pendingOrder(t, "o-"+string(rune('a'+i)), user, dominv.Line{ProductID: "p-1", Quantity: 1})
		o.CreatedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, s.Orders().Create(ctx, o))
	}

	items, total, err := s.Orders().List(ctx, domorder.Filter{UserID: "u-1", Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "o-d", items[0].ID)
	assert.Equal(t, "o-c", items[1].ID)

	items, _, err = s.Orders().List(ctx, domorder.Filter{UserID: "u-1", Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "o-a", items[0].ID)

	items, total, err = s.Orders().List(ctx, domorder.Filter{CreatedFrom: base.Add(24 * time.Hour), CreatedTo: base.Add(48 * time.Hour)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = s.Orders().List(ctx, domorder.Filter{Status: domorder.StatusPaid})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	items, _, err = s.Orders().List(ctx, domorder.Filter{Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p-1", 5)
	require.NoError(t, s.Orders().Create(ctx, pendingOrder(t, "o-1", "u-1", dominv.Line{ProductID: "p-1", Quantity: 2})))

	first, err := s.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	second := first.Clone()

	require.NoError(t, first.Cancel(time.Now()))
	require.NoError(t, s.Orders().UpdateStatus(ctx, first, domorder.StatusPendingPayment))
	assert.Equal(t, 5, stockOf(t, s, "p-1"))

	require.NoError(t, second.Cancel(time.Now()))
	assert.ErrorIs(t, s.Orders().UpdateStatus(ctx, second, domorder.StatusPendingPayment), domorder.ErrStatusChanged)
	assert.Equal(t, 5, stockOf(t, s, "p-1"))

	ghost := pendingOrder(t, "ghost", "u-1", dominv.Line{ProductID: "p-1", Quantity: 1})
	assert.ErrorIs(t, s.Orders().UpdateStatus(ctx, ghost, domorder.StatusDraft), domorder.ErrNotFound)
}

func newPayment(id, orderID string) *dompay.Payment {
	card := dompay.Card{Number: "4242424242424242", Method: dompay.MethodCreditCard}
	return dompay.NewProcessing(id, orderID, "u-1", decimal.RequireFromString("20.00"), "USD", card)
}

func TestPaymentClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p-1", 5)
	require.NoError(t, s.Orders().Create(ctx, pendingOrder(t, "o-1", "u-1", dominv.Line{ProductID: "p-1", Quantity: 2})))

	first := newPayment("pay-1", "o-1")
	require.NoError(t, s.Payments().Begin(ctx, first, time.Minute))
	assert.ErrorIs(t, s.Payments().Begin(ctx, newPayment("pay-2", "o-1"), time.Minute), dompay.ErrClaimed)

	// A live claim also blocks manual status changes.
	o, err := s.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	require.NoError(t, o.Cancel(time.Now()))
	assert.ErrorIs(t, s.Orders().UpdateStatus(ctx, o, domorder.StatusPendingPayment), domorder.ErrStatusChanged)

	first.Settle(&dompay.Result{Status: dompay.StatusFailed, Message: "declined"})
	require.NoError(t, s.Payments().Finish(ctx, first))

	second := newPayment("pay-3", "o-1")
	require.NoError(t, s.Payments().Begin(ctx, second, time.Minute))
	second.Settle(&dompay.Result{Status: dompay.StatusPaid, TransactionID: "txn_1"})
	require.NoError(t, s.Payments().Finish(ctx, second))

	o, err = s.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPaid, o.Status)
	require.NotNil(t, o.PaidAt)

	assert.ErrorIs(t, s.Payments().Begin(ctx, newPayment("pay-4", "o-1"), time.Minute), dompay.ErrClaimed)

	history, err := s.Payments().ListByOrder(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, dompay.StatusFailed, history[0].Status)
	assert.Equal(t, dompay.StatusPaid, history[1].Status)
}

func TestExpiredClaimCanBeTakenOver(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	seedProduct(t, s, "p-1", 5)
	require.NoError(t, s.Orders().Create(ctx, pendingOrder(t, "o-1", "u-1", dominv.Line{ProductID: "p-1", Quantity: 1})))

	stale := newPayment("pay-1", "o-1")
	require.NoError(t, s.Payments().Begin(ctx, stale, time.Minute))

	now = now.Add(2 * time.Minute)
	fresh := newPayment("pay-2", "o-1")
	require.NoError(t, s.Payments().Begin(ctx, fresh, time.Minute))

	// The stale attempt lost its claim, so it may not mark the order Paid.
	stale.Settle(&dompay.Result{Status: dompay.StatusPaid, TransactionID: "txn_stale"})
	assert.ErrorIs(t, s.Payments().Finish(ctx, stale), domorder.ErrStatusChanged)

	fresh.Settle(&dompay.Result{Status: dompay.StatusPaid, TransactionID: "txn_fresh"})
	require.NoError(t, s.Payments().Finish(ctx, fresh))
}

func TestBeginRequiresPendingOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	assert.ErrorIs(t, s.Payments().Begin(ctx, newPayment("pay-1", "missing"), time.Minute), domorder.ErrNotFound)
	assert.ErrorIs(t, s.Payments().Finish(ctx, newPayment("pay-1", "missing")), dompay.ErrNotFound)
}

func TestConcurrentBeginClaimsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p-1", 5)
	require.NoError(t, s.Orders().Create(ctx, pendingOrder(t, "o-1", "u-1", dominv.Line{ProductID: "p-1", Quantity: 1})))

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Payments().Begin(ctx, newPayment("pay-"+string(rune('a'+i)), "o-1"), time.Minute); err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, won)
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Carts().Get(ctx, "u-1")
	assert.ErrorIs(t, err, domcart.ErrNotFound)

	c := domcart.New("u-1")
	require.NoError(t, c.Add("p-1", 1))
	require.NoError(t, c.Add("p-1", 2))
	require.NoError(t, s.Carts().Save(ctx, c))

	got, err := s.Carts().Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, []domcart.Item{{ProductID: "p-1", Quantity: 3}}, got.Items)

	require.NoError(t, s.Carts().Clear(ctx, "u-1"))
	_, err = s.Carts().Get(ctx, "u-1")
	assert.ErrorIs(t, err, domcart.ErrNotFound)
}
