package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	wrapped := fmt.Errorf("handler: %w", NotFound("order not found", nil))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestOutOfStockCarriesEveryLine(t *testing.T) {
	items := []inventory.StockError{{ProductID: "a"}, {ProductID: "b"}}
	err := OutOfStock(items)
	items[0].ProductID = "mutated"

	assert.Equal(t, KindConflict, err.Kind)
	assert.Equal(t, "a", err.StockErrors[0].ProductID)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "forbidden: nope", Forbidden("nope").Error())
	assert.Equal(t, "internal: db: boom", Internal("db", errors.New("boom")).Error())
	assert.True(t, GatewayFailure("declined", true).Retryable)
}

func TestCaller(t *testing.T) {
	customer := Caller{UserID: "u-1", Role: RoleCustomer}
	admin := Caller{UserID: "ops", Role: RoleAdmin}

	assert.True(t, customer.CanAccess("u-1"))
	assert.False(t, customer.CanAccess("u-2"))
	assert.False(t, Caller{}.CanAccess(""))
	assert.True(t, admin.CanAccess("u-2"))
	assert.True(t, admin.Elevated())

	assert.True(t, IsKind(RequireCaller(Caller{}), KindUnauthorized))
	assert.NoError(t, RequireCaller(customer))
}

func TestPageQuery(t *testing.T) {
	assert.NoError(t, PageQuery{Page: 1, PageSize: DefaultPageSize}.Validate())
	assert.True(t, IsKind(PageQuery{Page: 0, PageSize: 10}.Validate(), KindInvalidInput))
	assert.True(t, IsKind(PageQuery{Page: 1, PageSize: 0}.Validate(), KindInvalidInput))
	assert.True(t, IsKind(PageQuery{Page: 1, PageSize: MaxPageSize + 1}.Validate(), KindInvalidInput))
	assert.Equal(t, 40, PageQuery{Page: 3, PageSize: 20}.Offset())

	assert.Equal(t, 3, PagedResult[int]{Total: 41, PageSize: 20}.TotalPages())
	assert.Equal(t, 0, PagedResult[int]{Total: 0, PageSize: 20}.TotalPages())
	assert.Equal(t, 0, PagedResult[int]{Total: 5}.TotalPages())
}
