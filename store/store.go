// Package store defines the unified storage interface for Escrow.
package store

import (
	"context"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Store is the unified storage interface for all Escrow entities.
// Instead of embedding the per-entity sub-interfaces, all methods are
// declared explicitly to avoid naming conflicts.
//
// Stores are plain key-value persistence: they hold state and counters but
// enforce no billing invariants. Ordering, rollback, and fee accounting are
// the ledger's job, so every mutation here must be individually atomic and
// nothing more.
type Store interface {
	// Config methods. The protocol config is written exactly once.
	SaveConfig(ctx context.Context, cfg *types.Config) error
	GetConfig(ctx context.Context) (*types.Config, error)

	// Provider methods
	CreateProvider(ctx context.Context, p *provider.Provider) error
	GetProvider(ctx context.Context, addr types.Address) (*provider.Provider, error)

	// Plan methods. CreatePlan assigns the next identifier (from 1) to
	// p.ID and advances the plan counter. NextPlanID peeks the counter.
	CreatePlan(ctx context.Context, p *plan.Plan) error
	GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error)
	UpdatePlan(ctx context.Context, p *plan.Plan) error
	NextPlanID(ctx context.Context) (id.PlanID, error)

	// Subscription methods. Allocation is split from the counter commit:
	// NextSubscriptionID peeks, PutSubscription writes at s.ID (upsert),
	// AdvanceSubscriptionID commits. A record written at an uncommitted
	// identifier is overwritten by the next creation.
	NextSubscriptionID(ctx context.Context) (id.SubscriptionID, error)
	PutSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	AdvanceSubscriptionID(ctx context.Context) error

	// Escrow balance methods. Balances default to zero; SetBalance is a
	// raw overwrite so the ledger can restore a pre-operation value when
	// compensating a failed transfer.
	GetBalance(ctx context.Context, user types.Address) (types.Amount, error)
	SetBalance(ctx context.Context, user types.Address, balance types.Amount) error

	// Royalty methods
	CreditRoyalty(ctx context.Context, asset types.Address, amount types.Amount) (types.Amount, error)
	GetRoyaltyBalance(ctx context.Context, asset types.Address) (types.Amount, error)
	SetLicenseHolder(ctx context.Context, holder types.Address) error
	HasLicense(ctx context.Context, holder types.Address) (bool, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
