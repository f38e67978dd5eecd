package subscription

import (
	"context"

	"github.com/xraph/escrow/id"
)

// Store is the persistence surface for the subscription registry.
//
// Identifier allocation is deliberately split from record creation: Put
// writes a record at its pre-assigned ID and AdvanceID commits the counter.
// A subscription written but never committed is overwritten by the next
// successful creation. See the payment processor for why this ordering
// is observable.
type Store interface {
	// NextID returns the identifier the next subscription will receive,
	// without advancing the counter.
	NextID(ctx context.Context) (id.SubscriptionID, error)
	// Put writes the record at s.ID, overwriting any prior record there.
	Put(ctx context.Context, s *Subscription) error
	// Get returns the subscription for an identifier, or a not-found error.
	Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	// Update overwrites an existing record (active flag, last payment,
	// content IP linkage).
	Update(ctx context.Context, s *Subscription) error
	// AdvanceID commits the identifier returned by NextID.
	AdvanceID(ctx context.Context) error
}
