package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/propagation"
)

const chargePath = "/v1/charges"

type HTTPConfig struct {
	BaseURL string
	APIKey  string
	// Timeout caps the HTTP client. The caller's ctx deadline usually fires first.
	Timeout time.Duration
}

// HTTP talks to a card processor over a JSON API. Transport faults, timeouts
// and non-2xx answers are mapped to Failed results.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
	log    observability.Logger
	prop   propagation.TextMapPropagator
}

func NewHTTP(cfg HTTPConfig, client *http.Client, log observability.Logger) (*HTTP, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway: base url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = observability.NopLogger()
	}
	return &HTTP{
		cfg:    cfg,
		client: client,
		log:    log.With(observability.F("component", "payment_gateway")),
		prop:   propagation.TraceContext{},
	}, nil
}

type chargeBody struct {
	Reference   string `json:"reference"`
	OrderID     string `json:"order_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	CardNumber  string `json:"card_number"`
	HolderName  string `json:"holder_name"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
	Method      string `json:"method"`
}

type chargeReply struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Provider      string          `json:"provider"`
}

func (g *HTTP) Charge(ctx context.Context, req dompay.ChargeRequest) (*dompay.Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	logger := logctx.FromOr(ctx, g.log).With(
		observability.F("order_id", req.OrderID),
		observability.F("reference", req.Reference),
	)

	payload, err := json.Marshal(chargeBody{
		Reference:   req.Reference,
		OrderID:     req.OrderID,
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		CardNumber:  req.Card.Number,
		HolderName:  req.Card.HolderName,
		ExpiryMonth: req.Card.ExpiryMonth,
		ExpiryYear:  req.Card.ExpiryYear,
		CVV:         req.Card.CVV,
		Method:      string(req.Card.Method),
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: encode: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.cfg.BaseURL, "/")+chargePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.Reference)
	if g.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}
	g.prop.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			logger.Warn("gateway_timeout", observability.Err(err))
			return failed(req, "payment gateway timed out", true), nil
		}
		logger.Warn("gateway_unreachable", observability.Err(err))
		return failed(req, "payment gateway unavailable", true), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		logger.Warn("gateway_read_failed", observability.Err(err))
		return failed(req, "payment gateway unavailable", true), nil
	}

	if resp.StatusCode >= 500 {
		logger.Warn("gateway_server_error", observability.F("http_status", resp.StatusCode))
		return failed(req, fmt.Sprintf("payment gateway error (%d)", resp.StatusCode), true), nil
	}

	var reply chargeReply
	if err := json.Unmarshal(body, &reply); err != nil {
		if resp.StatusCode >= 300 {
			return failed(req, fmt.Sprintf("payment rejected (%d)", resp.StatusCode), false), nil
		}
		logger.Warn("gateway_bad_reply", observability.Err(err))
		return failed(req, "payment gateway returned an unreadable reply", true), nil
	}

	res := failed(req, reply.Message, false)
	approved := strings.EqualFold(reply.Status, "succeeded") || strings.EqualFold(reply.Status, string(dompay.StatusPaid))
	if resp.StatusCode < 300 && approved {
		res.Status = dompay.StatusPaid
	}
	res.TransactionID = reply.TransactionID
	if reply.Provider != "" {
		res.Provider = dompay.Provider(strings.ToLower(reply.Provider))
	}
	if !reply.Amount.IsZero() {
		res.Amount = reply.Amount
	}
	if reply.Currency != "" {
		res.Currency = strings.ToUpper(reply.Currency)
	}
	if res.Message == "" {
		if res.Paid() {
			res.Message = "approved"
		} else {
			res.Message = "payment declined"
		}
	}
	logger.Debug("gateway_charge_done",
		observability.F("http_status", resp.StatusCode),
		observability.F("payment_status", string(res.Status)),
	)
	return res, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &t) && t.Timeout())
}
