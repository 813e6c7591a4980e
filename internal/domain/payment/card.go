package payment

import (
	"fmt"
	"strings"
	"time"
)

// Card holds the card details supplied for one charge. It is never persisted.
type Card struct {
	Number      string `json:"number"`
	HolderName  string `json:"holder_name"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
	Method      Method `json:"method"`
}

// CardError names the field that failed validation.
type CardError struct {
	Field  string
	Reason string
}

func (e *CardError) Error() string {
	return fmt.Sprintf("payment: invalid card %s: %s", e.Field, e.Reason)
}

func (e *CardError) Unwrap() error { return ErrInvalidCard }

// Normalize strips spaces and dashes from the number and expands two-digit years.
func (c Card) Normalize() Card {
	c.Number = strings.NewReplacer(" ", "", "-", "").Replace(c.Number)
	c.HolderName = strings.TrimSpace(c.HolderName)
	c.CVV = strings.TrimSpace(c.CVV)
	if c.ExpiryYear >= 0 && c.ExpiryYear < 100 {
		c.ExpiryYear += 2000
	}
	if c.Method == "" {
		c.Method = MethodCreditCard
	}
	return c
}

// Validate checks the card syntactically. Expiry is valid through the last day of its month.
func (c Card) Validate(now time.Time) error {
	if len(c.Number) < 12 || len(c.Number) > 19 || !digits(c.Number) {
		return &CardError{Field: "number", Reason: "must be 12 to 19 digits"}
	}
	if !Luhn(c.Number) {
		return &CardError{Field: "number", Reason: "checksum mismatch"}
	}
	if c.ExpiryMonth < 1 || c.ExpiryMonth > 12 {
		return &CardError{Field: "expiry_month", Reason: "must be between 1 and 12"}
	}
	now = now.UTC()
	if c.ExpiryYear < now.Year() || (c.ExpiryYear == now.Year() && c.ExpiryMonth < int(now.Month())) {
		return &CardError{Field: "expiry", Reason: "card has expired"}
	}
	if len(c.CVV) < 3 || len(c.CVV) > 4 || !digits(c.CVV) {
		return &CardError{Field: "cvv", Reason: "must be 3 or 4 digits"}
	}
	if c.HolderName == "" {
		return &CardError{Field: "holder_name", Reason: "is required"}
	}
	if !c.Method.Valid() {
		return &CardError{Field: "method", Reason: "unsupported payment method"}
	}
	return nil
}

// Luhn reports whether number passes the mod-10 checksum.
func Luhn(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return len(number) > 0 && sum%10 == 0
}

// DetectProvider infers the card brand from its IIN prefix.
func DetectProvider(number string) Provider {
	switch {
	case strings.HasPrefix(number, "4"):
		return ProviderVisa
	case hasPrefixRange(number, 2, 51, 55), hasPrefixRange(number, 4, 2221, 2720):
		return ProviderMastercard
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return ProviderAmex
	case strings.HasPrefix(number, "6011"), strings.HasPrefix(number, "65"), hasPrefixRange(number, 3, 644, 649):
		return ProviderDiscover
	}
	return ProviderUnknown
}

// LastFour returns the last four digits, the only part of the number that is stored.
func LastFour(number string) string {
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}

func Mask(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + LastFour(number)
}

func hasPrefixRange(number string, width, lo, hi int) bool {
	if len(number) < width {
		return false
	}
	n := 0
	for i := 0; i < width; i++ {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		n = n*10 + d
	}
	return n >= lo && n <= hi
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
