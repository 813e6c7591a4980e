package order

import (
	"context"
	"time"
)

// Filter narrows a listing. Zero values mean "no constraint".
type Filter struct {
	UserID      string
	Status      Status
	CreatedFrom time.Time
	CreatedTo   time.Time
	Offset      int
	Limit       int
}

type Repository interface {
	// Create persists the header, its details and the matching stock decrements as one unit.
	// A shortfall on any line fails the whole write with an *inventory.ShortageError.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByIdempotency(ctx context.Context, userID, key string) (*Order, error)
	List(ctx context.Context, f Filter) ([]*Order, int64, error)
	// UpdateStatus stores o.Status only if the stored status is still from and no payment is in flight.
	// Moving to Cancelled gives every line's quantity back to stock in the same write.
	UpdateStatus(ctx context.Context, o *Order, from Status) error
}
