package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/subscription"
)

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration time and cached
// per interface, so emission is a slice walk with no type assertions.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onProviderRegistered  []OnProviderRegistered
	onPlanCreated         []OnPlanCreated
	onSubscriptionCreated []OnSubscriptionCreated
	onPaymentProcessed    []OnPaymentProcessed
	onProviderEarnings    []OnProviderEarnings
	onEscrowDeposit       []OnEscrowDeposit
	onEscrowWithdrawal    []OnEscrowWithdrawal
	onIPAssetRegistered   []OnIPAssetRegistered
	onIPLicenseAttached   []OnIPLicenseAttached
	onIPLicenseMinted     []OnIPLicenseMinted
	onRoyaltyPaid         []OnRoyaltyPaid
	onContentIPRegistered []OnContentIPRegistered
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnProviderRegistered); ok {
		r.onProviderRegistered = append(r.onProviderRegistered, v)
	}
	if v, ok := p.(OnPlanCreated); ok {
		r.onPlanCreated = append(r.onPlanCreated, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnPaymentProcessed); ok {
		r.onPaymentProcessed = append(r.onPaymentProcessed, v)
	}
	if v, ok := p.(OnProviderEarnings); ok {
		r.onProviderEarnings = append(r.onProviderEarnings, v)
	}
	if v, ok := p.(OnEscrowDeposit); ok {
		r.onEscrowDeposit = append(r.onEscrowDeposit, v)
	}
	if v, ok := p.(OnEscrowWithdrawal); ok {
		r.onEscrowWithdrawal = append(r.onEscrowWithdrawal, v)
	}
	if v, ok := p.(OnIPAssetRegistered); ok {
		r.onIPAssetRegistered = append(r.onIPAssetRegistered, v)
	}
	if v, ok := p.(OnIPLicenseAttached); ok {
		r.onIPLicenseAttached = append(r.onIPLicenseAttached, v)
	}
	if v, ok := p.(OnIPLicenseMinted); ok {
		r.onIPLicenseMinted = append(r.onIPLicenseMinted, v)
	}
	if v, ok := p.(OnRoyaltyPaid); ok {
		r.onRoyaltyPaid = append(r.onRoyaltyPaid, v)
	}
	if v, ok := p.(OnContentIPRegistered); ok {
		r.onContentIPRegistered = append(r.onContentIPRegistered, v)
	}

	r.logger.Info("plugin registered", "name", p.Name())

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitProviderRegistered emits a provider registered event.
func (r *Registry) EmitProviderRegistered(ctx context.Context, prov *provider.Provider) {
	r.mu.RLock()
	plugins := r.onProviderRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProviderRegistered(ctx, prov)
		}); err != nil {
			r.logger.Warn("plugin OnProviderRegistered failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitPlanCreated emits a plan created event.
func (r *Registry) EmitPlanCreated(ctx context.Context, pl *plan.Plan) {
	r.mu.RLock()
	plugins := r.onPlanCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlanCreated(ctx, pl)
		}); err != nil {
			r.logger.Warn("plugin OnPlanCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitSubscriptionCreated emits a subscription created event.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub *subscription.Subscription) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCreated(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitPaymentProcessed emits a payment processed event.
func (r *Registry) EmitPaymentProcessed(ctx context.Context, e PaymentEvent) {
	r.mu.RLock()
	plugins := r.onPaymentProcessed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentProcessed(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentProcessed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitProviderEarnings emits a provider earnings event.
func (r *Registry) EmitProviderEarnings(ctx context.Context, e EarningsEvent) {
	r.mu.RLock()
	plugins := r.onProviderEarnings
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProviderEarnings(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnProviderEarnings failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitEscrowDeposit emits an escrow deposit event.
func (r *Registry) EmitEscrowDeposit(ctx context.Context, e BalanceEvent) {
	r.mu.RLock()
	plugins := r.onEscrowDeposit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEscrowDeposit(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnEscrowDeposit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitEscrowWithdrawal emits an escrow withdrawal event.
func (r *Registry) EmitEscrowWithdrawal(ctx context.Context, e BalanceEvent) {
	r.mu.RLock()
	plugins := r.onEscrowWithdrawal
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEscrowWithdrawal(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnEscrowWithdrawal failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitIPAssetRegistered emits an IP asset registered event.
func (r *Registry) EmitIPAssetRegistered(ctx context.Context, e IPAssetEvent) {
	r.mu.RLock()
	plugins := r.onIPAssetRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnIPAssetRegistered(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnIPAssetRegistered failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitIPLicenseAttached emits an IP license attached event.
func (r *Registry) EmitIPLicenseAttached(ctx context.Context, e LicenseAttachedEvent) {
	r.mu.RLock()
	plugins := r.onIPLicenseAttached
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnIPLicenseAttached(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnIPLicenseAttached failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitIPLicenseMinted emits an IP license minted event.
func (r *Registry) EmitIPLicenseMinted(ctx context.Context, e LicenseMintedEvent) {
	r.mu.RLock()
	plugins := r.onIPLicenseMinted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnIPLicenseMinted(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnIPLicenseMinted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitRoyaltyPaid emits a royalty paid event.
func (r *Registry) EmitRoyaltyPaid(ctx context.Context, e RoyaltyEvent) {
	r.mu.RLock()
	plugins := r.onRoyaltyPaid
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRoyaltyPaid(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnRoyaltyPaid failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitContentIPRegistered emits a content IP registered event.
func (r *Registry) EmitContentIPRegistered(ctx context.Context, e ContentIPEvent) {
	r.mu.RLock()
	plugins := r.onContentIPRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnContentIPRegistered(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnContentIPRegistered failed", "plugin", p.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the payment pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
