package gateway

import (
	"context"
	"sync"
	"time"

	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	"github.com/google/uuid"
)

// Test card numbers with a fixed outcome. Any other valid card is approved.
const (
	CardDeclined          = "4000000000000002"
	CardInsufficientFunds = "4000000000009995"
	CardProcessingError   = "4000000000000119"
	// CardTimeout never answers; the charge ends when ctx does.
	CardTimeout = "4000000000000259"
)

// Mock is an in-process gateway with deterministic outcomes keyed on the
// card number. Charges are idempotent per Reference.
type Mock struct {
	// Latency is added to every charge that does not hang.
	Latency time.Duration

	mu      sync.Mutex
	charges map[string]*dompay.Result
	calls   int
}

func NewMock() *Mock {
	return &Mock{charges: make(map[string]*dompay.Result)}
}

func (m *Mock) Charge(ctx context.Context, req dompay.ChargeRequest) (*dompay.Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls++
	if prev, ok := m.charges[req.Reference]; ok {
		m.mu.Unlock()
		clone := *prev
		return &clone, nil
	}
	m.mu.Unlock()

	if req.Card.Number == CardTimeout {
		<-ctx.Done()
		return failed(req, "payment gateway timed out", true), nil
	}
	if m.Latency > 0 {
		t := time.NewTimer(m.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return failed(req, "payment gateway timed out", true), nil
		case <-t.C:
		}
	}

	var res *dompay.Result
	switch req.Card.Number {
	case CardDeclined:
		res = failed(req, "card declined", false)
	case CardInsufficientFunds:
		res = failed(req, "insufficient funds", false)
	case CardProcessingError:
		res = failed(req, "processing error", true)
	default:
		res = &dompay.Result{
			TransactionID: "txn_" + uuid.NewString(),
			Status:        dompay.StatusPaid,
			Message:       "approved",
			Amount:        req.Amount,
			Currency:      req.Currency,
			Provider:      dompay.DetectProvider(req.Card.Number),
			LastFour:      dompay.LastFour(req.Card.Number),
		}
	}

	m.mu.Lock()
	m.charges[req.Reference] = res
	m.mu.Unlock()
	clone := *res
	return &clone, nil
}

// Calls reports how many charges were attempted, replays included.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
