package payment

import (
	"context"
	"time"
)

type Repository interface {
	// Begin claims the order for this attempt and stores p in StatusProcessing.
	// The claim only succeeds while the order is PendingPayment and no other
	// unexpired claim exists; otherwise it returns ErrClaimed and stores nothing.
	Begin(ctx context.Context, p *Payment, claimTTL time.Duration) error
	// Finish stores the settled payment, marks the order Paid when p is Paid
	// and releases the claim, all in one write.
	Finish(ctx context.Context, p *Payment) error
	ListByOrder(ctx context.Context, orderID string) ([]*Payment, error)
}
