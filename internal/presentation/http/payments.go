package httppresentation

import (
	"net/http"

	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
)

type processPaymentRequest struct {
	CardNumber  string `json:"card_number"`
	HolderName  string `json:"holder_name"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
	Method      string `json:"method"`
}

type processPaymentResponse struct {
	Payment     *dompay.Payment `json:"payment"`
	OrderStatus domorder.Status `json:"order_status"`
}

func (h *Handler) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	var req processPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	result, err := h.workflow.ProcessPayment(r.Context(), caller, r.PathValue("id"), dompay.Card{
		Number:      req.CardNumber,
		HolderName:  req.HolderName,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CVV:         req.CVV,
		Method:      dompay.Method(req.Method),
	})
	if err != nil {
		var p *dompay.Payment
		if result != nil {
			p = result.Payment
		}
		writeAppErrorWithPayment(w, r, err, p)
		return
	}
	writeJSON(w, http.StatusCreated, processPaymentResponse{
		Payment:     result.Payment,
		OrderStatus: result.OrderStatus,
	})
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())
	payments, err := h.workflow.ListPayments(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": payments})
}
