// Package plugin provides an extensible hook system for Escrow.
// Plugins observe ledger notifications — the append-only, ordered event
// surface meant for indexers and dashboards — and lifecycle transitions.
// The core never consumes its own notifications.
package plugin

import (
	"context"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Event payloads
// ──────────────────────────────────────────────────

// PaymentEvent reports a processed charge: the net amount moved from the
// subscriber's escrow to the provider. The protocol fee is the difference
// between the plan price debit and Amount.
type PaymentEvent struct {
	From           types.Address     `json:"from"`
	To             types.Address     `json:"to"`
	Amount         types.Amount      `json:"amount"`
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
}

// EarningsEvent reports a provider's net earnings from one charge.
type EarningsEvent struct {
	Provider types.Address `json:"provider"`
	PlanID   id.PlanID     `json:"plan_id"`
	Amount   types.Amount  `json:"amount"`
}

// BalanceEvent reports an escrow deposit or withdrawal with the
// post-operation balance.
type BalanceEvent struct {
	User       types.Address `json:"user"`
	Amount     types.Amount  `json:"amount"`
	NewBalance types.Amount  `json:"new_balance"`
}

// IPAssetEvent reports an IP asset linked to a plan.
type IPAssetEvent struct {
	PlanID      id.PlanID     `json:"plan_id"`
	IPAsset     types.Address `json:"ip_asset"`
	MetadataURI string        `json:"metadata_uri"`
}

// LicenseAttachedEvent reports license terms attached to an IP asset.
type LicenseAttachedEvent struct {
	IPAsset        types.Address `json:"ip_asset"`
	LicenseTermsID uint64        `json:"license_terms_id"`
}

// LicenseMintedEvent reports a license token minted to a licensee.
type LicenseMintedEvent struct {
	IPAsset  types.Address `json:"ip_asset"`
	Licensee types.Address `json:"licensee"`
	TokenID  uint64        `json:"token_id"`
}

// RoyaltyEvent reports a royalty credit accumulated for an IP asset.
type RoyaltyEvent struct {
	IPAsset   types.Address `json:"ip_asset"`
	Recipient types.Address `json:"recipient"`
	Amount    types.Amount  `json:"amount"`
}

// ContentIPEvent reports content IP registered under a subscription.
type ContentIPEvent struct {
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
	Creator        types.Address     `json:"creator"`
	IPAsset        types.Address     `json:"ip_asset"`
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Registry and catalog hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered is called when a provider registers.
type OnProviderRegistered interface {
	Plugin
	OnProviderRegistered(ctx context.Context, p *provider.Provider) error
}

// OnPlanCreated is called when a new plan is created.
type OnPlanCreated interface {
	Plugin
	OnPlanCreated(ctx context.Context, p *plan.Plan) error
}

// ──────────────────────────────────────────────────
// Subscription and payment hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called when a subscription is created by a
// successful first charge.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, s *subscription.Subscription) error
}

// OnPaymentProcessed is called after a charge fully commits. The balance
// mutation always precedes this hook in the same operation.
type OnPaymentProcessed interface {
	Plugin
	OnPaymentProcessed(ctx context.Context, e PaymentEvent) error
}

// OnProviderEarnings is called alongside OnPaymentProcessed with the
// provider-facing view of the same charge.
type OnProviderEarnings interface {
	Plugin
	OnProviderEarnings(ctx context.Context, e EarningsEvent) error
}

// ──────────────────────────────────────────────────
// Escrow balance hooks
// ──────────────────────────────────────────────────

// OnEscrowDeposit is called after funds are credited to a user's escrow.
type OnEscrowDeposit interface {
	Plugin
	OnEscrowDeposit(ctx context.Context, e BalanceEvent) error
}

// OnEscrowWithdrawal is called after funds leave a user's escrow and the
// outbound transfer has succeeded.
type OnEscrowWithdrawal interface {
	Plugin
	OnEscrowWithdrawal(ctx context.Context, e BalanceEvent) error
}

// ──────────────────────────────────────────────────
// IP bookkeeping hooks
// ──────────────────────────────────────────────────

// OnIPAssetRegistered is called when an IP asset is linked to a plan.
type OnIPAssetRegistered interface {
	Plugin
	OnIPAssetRegistered(ctx context.Context, e IPAssetEvent) error
}

// OnIPLicenseAttached is called when license terms are recorded.
type OnIPLicenseAttached interface {
	Plugin
	OnIPLicenseAttached(ctx context.Context, e LicenseAttachedEvent) error
}

// OnIPLicenseMinted is called when a license mint is recorded.
type OnIPLicenseMinted interface {
	Plugin
	OnIPLicenseMinted(ctx context.Context, e LicenseMintedEvent) error
}

// OnRoyaltyPaid is called when a royalty credit accumulates.
type OnRoyaltyPaid interface {
	Plugin
	OnRoyaltyPaid(ctx context.Context, e RoyaltyEvent) error
}

// OnContentIPRegistered is called when a subscriber registers content IP.
type OnContentIPRegistered interface {
	Plugin
	OnContentIPRegistered(ctx context.Context, e ContentIPEvent) error
}
