package plan

import (
	"context"

	"github.com/xraph/escrow/id"
)

// Store is the persistence surface for the plan catalog.
type Store interface {
	// Create stores a new plan, assigning the next identifier to p.ID.
	// The counter starts at 1 and advances only on confirmed creation.
	Create(ctx context.Context, p *Plan) error
	// Get returns the plan for an identifier, or a not-found error.
	Get(ctx context.Context, planID id.PlanID) (*Plan, error)
	// Update overwrites the stored plan (IP asset linkage and metadata).
	Update(ctx context.Context, p *Plan) error
	// NextID returns the identifier the next created plan will receive,
	// without advancing the counter. Used as the scan bound for listings.
	NextID(ctx context.Context) (id.PlanID, error)
}
