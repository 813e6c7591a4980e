package gateway

import (
	"errors"

	"github.com/Zhima-Mochi/minishop-commerce/internal/domain/money"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
)

var ErrMalformedRequest = errors.New("gateway: malformed charge request")

// validate rejects requests that no provider would accept. These are caller
// bugs, not declines, so they surface as errors.
func validate(req dompay.ChargeRequest) error {
	switch {
	case req.Reference == "":
		return errors.Join(ErrMalformedRequest, errors.New("reference is required"))
	case !req.Amount.IsPositive():
		return errors.Join(ErrMalformedRequest, dompay.ErrInvalidAmount)
	case !money.ValidCurrency(req.Currency):
		return errors.Join(ErrMalformedRequest, money.ErrInvalidCurrency)
	case req.Card.Number == "":
		return errors.Join(ErrMalformedRequest, dompay.ErrInvalidCard)
	}
	return nil
}

func failed(req dompay.ChargeRequest, message string, retryable bool) *dompay.Result {
	return &dompay.Result{
		Status:    dompay.StatusFailed,
		Message:   message,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Provider:  dompay.DetectProvider(req.Card.Number),
		LastFour:  dompay.LastFour(req.Card.Number),
		Retryable: retryable,
	}
}
