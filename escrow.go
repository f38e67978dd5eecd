package escrow

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/types"
)

// TransferFunc is the host's native value transfer primitive. The ledger
// calls it to move funds out of escrow custody (provider payouts and user
// withdrawals). A non-nil error means no value moved; the ledger then
// compensates its own state before surfacing the failure.
type TransferFunc func(ctx context.Context, to types.Address, amount types.Amount) error

// Ledger is the subscription-billing escrow engine.
//
// It owns the provider registry, plan catalog, subscription registry,
// per-user escrow balances, and royalty bookkeeping, all persisted through
// a pluggable Store. Caller identity, the clock, and the value transfer
// primitive are supplied by the host, not assumed.
type Ledger struct {
	store    store.Store
	transfer TransferFunc
	plugins  *plugin.Registry
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	feeBps   uint64

	// mu serializes every mutating operation for its full duration,
	// including the external transfer call. Ledger state is always
	// mutated before the transfer is attempted and compensated if it
	// fails, so no nested or concurrent call can observe a balance
	// that the transfer outcome later contradicts.
	mu sync.Mutex
}

// New creates a Ledger over the given store and transfer primitive.
func New(s store.Store, transfer TransferFunc, opts ...Option) *Ledger {
	l := &Ledger{
		store:    s,
		transfer: transfer,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		validate: validator.New(),
		now:      time.Now,
		feeBps:   types.DefaultProtocolFeeBps,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock sets the time source. Payment due-dates and record timestamps
// follow this clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithProtocolFee sets the protocol fee in basis points (out of 10000)
// applied at initialization. The fee is immutable once Initialize has run.
func WithProtocolFee(bps uint64) Option {
	return func(l *Ledger) {
		l.feeBps = bps
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("escrow ledger started", "fee_bps", l.feeBps)

	return nil
}

// Stop shuts down the Ledger and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Initialization
// ──────────────────────────────────────────────────

// Initialize writes the protocol configuration exactly once: the caller
// becomes the admin and the configured fee becomes immutable. A second
// call always fails.
func (l *Ledger) Initialize(ctx context.Context, caller types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.feeBps > types.BasisPointDivisor {
		return ErrInvalidFee
	}

	cfg := &types.Config{
		Admin:         caller,
		FeeBps:        l.feeBps,
		InitializedAt: l.now().UTC(),
	}
	if err := l.store.SaveConfig(ctx, cfg); err != nil {
		return err
	}

	l.logger.Info("protocol initialized",
		"admin", caller,
		"fee_bps", cfg.FeeBps,
	)
	return nil
}

// ──────────────────────────────────────────────────
// Provider Registry
// ──────────────────────────────────────────────────

// Name is validated as a byte slice: the length limit counts bytes, not
// runes, so multi-byte names hit the boundary the way the wire does.
type registerProviderParams struct {
	Name []byte `validate:"max=100"`
}

// RegisterProvider marks the caller as authorized to create plans.
// Registration is permanent and rejects a second attempt for the same
// identity rather than treating it as a no-op.
func (l *Ledger) RegisterProvider(ctx context.Context, caller types.Address, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.validate.Struct(registerProviderParams{Name: []byte(name)}); err != nil {
		return fmt.Errorf("%w: name is %d bytes (max %d)", ErrNameTooLong, len(name), provider.MaxNameLen)
	}

	p := &provider.Provider{
		Entity:  types.NewEntity(l.now()),
		Address: caller,
		Name:    name,
	}
	if err := l.store.CreateProvider(ctx, p); err != nil {
		return err
	}

	l.plugins.EmitProviderRegistered(ctx, p)
	l.logger.Info("provider registered", "provider", caller, "name", name)
	return nil
}

// IsProviderRegistered reports whether an identity may create plans.
func (l *Ledger) IsProviderRegistered(ctx context.Context, addr types.Address) (bool, error) {
	_, err := l.store.GetProvider(ctx, addr)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ──────────────────────────────────────────────────
// Plan Catalog
// ──────────────────────────────────────────────────

// CreatePlanParams are the terms of a new recurring-billing plan.
type CreatePlanParams struct {
	Price    types.Amount  `validate:"gt=0"`
	Interval time.Duration `validate:"gt=0"`
	Metadata string
}

// CreatePlan publishes a plan under the calling provider. The identifier
// is allocated from 1, strictly increasing, never reused.
func (l *Ledger) CreatePlan(ctx context.Context, caller types.Address, params CreatePlanParams) (id.PlanID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.store.GetProvider(ctx, caller); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotRegisteredProvider
		}
		return 0, err
	}

	if err := l.validate.Struct(params); err != nil {
		return 0, planParamsError(err)
	}

	p := &plan.Plan{
		Entity:   types.NewEntity(l.now()),
		Provider: caller,
		Price:    params.Price,
		Interval: params.Interval,
		Metadata: params.Metadata,
	}
	if err := l.store.CreatePlan(ctx, p); err != nil {
		return 0, err
	}

	l.plugins.EmitPlanCreated(ctx, p)
	l.logger.Info("plan created",
		"plan_id", p.ID,
		"provider", caller,
		"price", p.Price,
		"interval", p.Interval,
	)
	return p.ID, nil
}

// planParamsError maps a validation failure to the specific sentinel.
func planParamsError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Field() {
			case "Price":
				return ErrZeroPrice
			case "Interval":
				return ErrZeroInterval
			}
		}
	}
	return fmt.Errorf("escrow: invalid plan params: %w", ErrInvalidInput)
}

// Plans returns a lazy, restartable sequence of plan identifiers with a
// live provider, scanning upward from 1. The sequence yields at most
// plan.MaxListing identifiers; callers needing more paginate externally.
// This bound is a deliberate ceiling, not an error condition.
func (l *Ledger) Plans(ctx context.Context) iter.Seq[id.PlanID] {
	return func(yield func(id.PlanID) bool) {
		next, err := l.store.NextPlanID(ctx)
		if err != nil {
			l.logger.Error("plan listing failed", "error", err)
			return
		}

		count := 0
		for pid := id.PlanID(1); pid < next && count < plan.MaxListing; pid++ {
			p, err := l.store.GetPlan(ctx, pid)
			if err != nil || p.Provider == types.ZeroAddress {
				continue
			}
			if !yield(pid) {
				return
			}
			count++
		}
	}
}

// GetPlan returns the full plan record.
func (l *Ledger) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	return l.store.GetPlan(ctx, planID)
}

// ──────────────────────────────────────────────────
// Read-only views
// ──────────────────────────────────────────────────

// Balance returns a user's spendable escrow balance; zero for unknown users.
func (l *Ledger) Balance(ctx context.Context, user types.Address) (types.Amount, error) {
	return l.store.GetBalance(ctx, user)
}

// PlanIPAsset returns the IP asset linked to a plan; the zero address if
// the plan does not exist or has no linkage.
func (l *Ledger) PlanIPAsset(ctx context.Context, planID id.PlanID) (types.Address, error) {
	p, err := l.store.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.ZeroAddress, nil
		}
		return types.ZeroAddress, err
	}
	return p.IPAsset, nil
}

// PlanMetadataURI returns the metadata URI recorded with a plan's IP
// asset; empty if the plan does not exist or has no linkage.
func (l *Ledger) PlanMetadataURI(ctx context.Context, planID id.PlanID) (string, error) {
	p, err := l.store.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return p.MetadataURI, nil
}

// RoyaltyBalance returns the accumulated royalties for an IP asset.
func (l *Ledger) RoyaltyBalance(ctx context.Context, asset types.Address) (types.Amount, error) {
	return l.store.GetRoyaltyBalance(ctx, asset)
}

// HasIPLicense reports whether an address holds a minted IP license.
func (l *Ledger) HasIPLicense(ctx context.Context, holder types.Address) (bool, error) {
	return l.store.HasLicense(ctx, holder)
}
