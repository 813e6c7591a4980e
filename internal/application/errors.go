package application

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
)

// Kind is the stable, client-visible category of a failure.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindConflict       Kind = "conflict"
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindGatewayFailure Kind = "gateway_failure"
	KindInternal       Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	// StockErrors lists every offending line when an order is rejected for stock.
	StockErrors []inventory.StockError
	// Retryable tells the caller the same request may succeed later.
	Retryable bool
	// TransactionID is set when a gateway charge is known but could not be recorded.
	TransactionID string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindInternal for errors that were not classified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

func NotFound(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

func InvalidInput(msg string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, Err: err}
}

func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func GatewayFailure(msg string, retryable bool) *Error {
	return &Error{Kind: KindGatewayFailure, Message: msg, Retryable: retryable}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// OutOfStock builds the Conflict returned when order lines cannot be fulfilled.
func OutOfStock(items []inventory.StockError) *Error {
	return &Error{
		Kind:        KindConflict,
		Message:     "insufficient stock",
		StockErrors: append([]inventory.StockError(nil), items...),
		Err:         inventory.ErrInsufficientStock,
	}
}
