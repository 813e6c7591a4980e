package httppresentation

import (
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
)

type errorResponse struct {
	Kind          application.Kind    `json:"kind"`
	Error         string              `json:"error"`
	StockErrors   []dominv.StockError `json:"stock_errors,omitempty"`
	Retryable     bool                `json:"retryable,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`
	Payment       *dompay.Payment     `json:"payment,omitempty"`
}

func statusForKind(k application.Kind) int {
	switch k {
	case application.KindNotFound:
		return http.StatusNotFound
	case application.KindInvalidInput:
		return http.StatusBadRequest
	case application.KindConflict:
		return http.StatusConflict
	case application.KindUnauthorized:
		return http.StatusUnauthorized
	case application.KindForbidden:
		return http.StatusForbidden
	case application.KindGatewayFailure:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	writeAppErrorWithPayment(w, r, err, nil)
}

// writeAppErrorWithPayment renders err. Internal causes are logged, never echoed.
func writeAppErrorWithPayment(w http.ResponseWriter, r *http.Request, err error, p *dompay.Payment) {
	body := errorResponse{Kind: application.KindInternal, Error: "internal error", Payment: p}

	var ae *application.Error
	if errors.As(err, &ae) {
		body.Kind = ae.Kind
		body.StockErrors = ae.StockErrors
		body.Retryable = ae.Retryable
		body.TransactionID = ae.TransactionID
		if ae.Kind != application.KindInternal {
			body.Error = ae.Message
		}
	}

	status := statusForKind(body.Kind)
	if status >= http.StatusInternalServerError {
		logctx.FromOr(r.Context(), observability.NopLogger()).Error("http_internal_error",
			observability.F("route", routeFromContext(r.Context())),
			observability.Err(err),
		)
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeAppError(w, r, application.InvalidInput(msg, nil))
}
