package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	"github.com/Zhima-Mochi/minishop-commerce/internal/application/checkout"
	apporder "github.com/Zhima-Mochi/minishop-commerce/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-commerce/internal/application/payment"
	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

// Workflow is the order and payment surface the API exposes.
type Workflow interface {
	CreateOrder(ctx context.Context, caller application.Caller, req checkout.CreateOrderRequest) (*apporder.CreateOrderResult, error)
	GetOrder(ctx context.Context, caller application.Caller, orderID string) (*domorder.Order, error)
	ListOrders(ctx context.Context, caller application.Caller, q checkout.ListOrdersQuery) (*application.PagedResult[*domorder.Order], error)
	UpdateOrderStatus(ctx context.Context, caller application.Caller, orderID, status string) (*domorder.Order, error)
	ProcessPayment(ctx context.Context, caller application.Caller, orderID string, card dompay.Card) (*apppay.ProcessPaymentResult, error)
	ListPayments(ctx context.Context, caller application.Caller, orderID string) ([]*dompay.Payment, error)
}

// Authenticator turns a bearer token into the calling identity.
type Authenticator interface {
	Verify(token string) (application.Caller, error)
}

type Handler struct {
	workflow Workflow
	auth     Authenticator
	log      observability.Logger
	tel      observability.Observability

	httpRequests observability.Counter
	httpDuration observability.Histogram
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
	headerIdempotencyKey = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
)

func NewHandler(workflow Workflow, auth Authenticator, tel observability.Observability) *Handler {
	tel = observability.OrNop(tel)
	return &Handler{
		workflow:     workflow,
		auth:         auth,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
		httpRequests: tel.Metrics().Counter(observability.MHTTPRequests),
		httpDuration: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → request logger → metrics → access log → auth → handler
	h.muxHandle(mux, http.MethodPost, "/orders", true, h.handleCreateOrder)
	h.muxHandle(mux, http.MethodGet, "/orders", true, h.handleListOrders)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}", true, h.handleGetOrder)
	h.muxHandle(mux, http.MethodPatch, "/orders/{id}/status", true, h.handleUpdateStatus)
	h.muxHandle(mux, http.MethodPost, "/orders/{id}/payments", true, h.handleProcessPayment)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}/payments", true, h.handleListPayments)
	h.muxHandle(mux, http.MethodGet, "/health", false, h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, path string, authenticated bool, handler http.HandlerFunc) {
	route := method + " " + path
	var next http.Handler = handler
	if authenticated {
		next = h.withAuth(next)
	}
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			func(r *http.Request) string { return r.Header.Get(headerTenantID) },
			h.tel,
		)(
			h.withHTTPMetrics(
				h.withAccessLog(next),
			),
		),
	)
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		// Stable route template for low-cardinality labels
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}
		if template == "unknown" || template == "" {
			route = r.Method + " " + r.URL.Path
			template = r.URL.Path
		}

		ctxWithSpan, span := h.tel.Tracer().Start(parentCtx,
			"HTTP "+route,
			attribute.String("http.method", r.Method),
			attribute.String("http.route", template),
			attribute.String("http.target", r.URL.Path),
			attribute.String("http.user_agent", r.UserAgent()),
		)
		defer span.End()

		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r.WithContext(ctxWithSpan))

		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using instruments resolved at construction.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", fmt.Sprint(lrw.status)),
		}
		h.httpRequests.Add(1, labels...)
		h.httpDuration.Observe(time.Since(start).Seconds(), labels...)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
