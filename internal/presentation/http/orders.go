package httppresentation

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	"github.com/Zhima-Mochi/minishop-commerce/internal/application/checkout"
	dominv "github.com/Zhima-Mochi/minishop-commerce/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	ShippingAddressID string             `json:"shipping_address_id"`
	Items             []orderItemRequest `json:"items"`
	FromCart          bool               `json:"from_cart"`
	IdempotencyKey    string             `json:"idempotency_key"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	key := r.Header.Get(headerIdempotencyKey)
	if key == "" {
		key = req.IdempotencyKey
	}

	lines := make([]dominv.Line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, dominv.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	result, err := h.workflow.CreateOrder(r.Context(), caller, checkout.CreateOrderRequest{
		ShippingAddressID: req.ShippingAddressID,
		Lines:             lines,
		FromCart:          req.FromCart,
		IdempotencyKey:    key,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, result.Order)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())
	o, err := h.workflow.GetOrder(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type listOrdersResponse struct {
	Items      []*domorder.Order `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())
	q := r.URL.Query()

	query := checkout.ListOrdersQuery{
		UserID:   q.Get("user_id"),
		Status:   q.Get("status"),
		Page:     1,
		PageSize: application.DefaultPageSize,
	}
	var err error
	if query.Page, err = intParam(q.Get("page"), query.Page); err != nil {
		badRequest(w, r, "page must be an integer")
		return
	}
	if query.PageSize, err = intParam(q.Get("page_size"), query.PageSize); err != nil {
		badRequest(w, r, "page_size must be an integer")
		return
	}
	if query.CreatedFrom, err = timeParam(q.Get("created_from"), false); err != nil {
		badRequest(w, r, "created_from must be RFC3339 or YYYY-MM-DD")
		return
	}
	if query.CreatedTo, err = timeParam(q.Get("created_to"), true); err != nil {
		badRequest(w, r, "created_to must be RFC3339 or YYYY-MM-DD")
		return
	}

	page, err := h.workflow.ListOrders(r.Context(), caller, query)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{
		Items:      page.Items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages(),
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	o, err := h.workflow.UpdateOrderStatus(r.Context(), caller, r.PathValue("id"), req.Status)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// timeParam accepts RFC3339 or a bare date. A bare date used as an upper bound
// covers the whole day.
func timeParam(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return d.UTC(), nil
}
