package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cardNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func validCard() Card {
	return Card{
		Number:      "4242 4242 4242 4242",
		HolderName:  " Ada Lovelace ",
		ExpiryMonth: 12,
		ExpiryYear:  30,
		CVV:         "123",
	}
}

func TestNormalize(t *testing.T) {
	c := validCard().Normalize()

	assert.Equal(t, "4242424242424242", c.Number)
	assert.Equal(t, "Ada Lovelace", c.HolderName)
	assert.Equal(t, 2030, c.ExpiryYear)
	assert.Equal(t, MethodCreditCard, c.Method)
}

func TestValidateAcceptsGoodCard(t *testing.T) {
	require.NoError(t, validCard().Normalize().Validate(cardNow))
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(c *Card)
		field string
	}{
		{"short number", func(c *Card) { c.Number = "4242" }, "number"},
		{"letters", func(c *Card) { c.Number = "4242abcd42424242" }, "number"},
		{"luhn", func(c *Card) { c.Number = "4242424242424241" }, "number"},
		{"month", func(c *Card) { c.ExpiryMonth = 13 }, "expiry_month"},
		{"expired year", func(c *Card) { c.ExpiryYear = 2025 }, "expiry"},
		{"expired month", func(c *Card) { c.ExpiryYear, c.ExpiryMonth = 2026, 5 }, "expiry"},
		{"cvv", func(c *Card) { c.CVV = "12" }, "cvv"},
		{"holder", func(c *Card) { c.HolderName = "" }, "holder_name"},
		{"method", func(c *Card) { c.Method = "wire" }, "method"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validCard().Normalize()
			tc.edit(&c)

			err := c.Validate(cardNow)
			var ce *CardError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tc.field, ce.Field)
			assert.ErrorIs(t, err, ErrInvalidCard)
		})
	}
}

func TestExpiryValidThroughCurrentMonth(t *testing.T) {
	c := validCard().Normalize()
	c.ExpiryYear, c.ExpiryMonth = 2026, 6
	assert.NoError(t, c.Validate(cardNow))
}

func TestLuhn(t *testing.T) {
	assert.True(t, Luhn("4242424242424242"))
	assert.True(t, Luhn("5555555555554444"))
	assert.True(t, Luhn("378282246310005"))
	assert.False(t, Luhn("1234567812345678"))
	assert.False(t, Luhn(""))
	assert.False(t, Luhn("42a2"))
}

func TestDetectProvider(t *testing.T) {
	cases := map[string]Provider{
		"4242424242424242": ProviderVisa,
		"5555555555554444": ProviderMastercard,
		"2223003122003222": ProviderMastercard,
		"378282246310005":  ProviderAmex,
		"6011111111111117": ProviderDiscover,
		"6445644564456445": ProviderDiscover,
		"3530111333300000": ProviderUnknown,
	}
	for number, want := range cases {
		assert.Equal(t, want, DetectProvider(number), number)
	}
}

func TestMaskAndLastFour(t *testing.T) {
	assert.Equal(t, "4242", LastFour("4242424242424242"))
	assert.Equal(t, "************4242", Mask("4242424242424242"))
	assert.Equal(t, "42", Mask("42"))
}

func TestSettleCopiesResult(t *testing.T) {
	c := validCard().Normalize()
	p := NewProcessing("pay-1", "o-1", "u-1", decimal.RequireFromString("10.00"), "USD", c)
	require.Equal(t, StatusProcessing, p.Status)
	require.Equal(t, ProviderVisa, p.Provider)
	require.Equal(t, "4242", p.LastFour)

	p.Settle(&Result{Status: StatusPaid, TransactionID: "txn_1", Message: "approved", Provider: ProviderUnknown})

	assert.Equal(t, StatusPaid, p.Status)
	assert.Equal(t, "txn_1", p.TransactionID)
	assert.Equal(t, ProviderVisa, p.Provider)
	assert.Equal(t, "payment.succeeded", NewPaymentSettledEvent(p).EventName())
	assert.Equal(t, "o-1", NewPaymentSettledEvent(p).EventKey())
}
