// Package journal records ledger notifications in an append-only,
// ordered log for external observers (indexers, dashboards, tests).
//
// It implements every plugin hook and is registered like any other
// plugin. Entries are never consumed by the core; the journal only
// accumulates. Payloads are serialized with jsoniter at record time so an
// entry is a stable snapshot, not a live reference.
package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/subscription"
)

// Notification names, one per ledger event.
const (
	ProviderRegistered  = "ProviderRegistered"
	PlanCreated         = "PlanCreated"
	SubscriptionCreated = "SubscriptionCreated"
	PaymentProcessed    = "PaymentProcessed"
	ProviderEarnings    = "ProviderEarnings"
	EscrowDeposit       = "EscrowDeposit"
	EscrowWithdrawal    = "EscrowWithdrawal"
	IPAssetRegistered   = "IPAssetRegistered"
	IPLicenseAttached   = "IPLicenseAttached"
	IPLicenseMinted     = "IPLicenseMinted"
	IPRoyaltyPaid       = "IPRoyaltyPaid"
	ContentIPRegistered = "ContentIPRegistered"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Journal)(nil)
	_ plugin.OnProviderRegistered  = (*Journal)(nil)
	_ plugin.OnPlanCreated         = (*Journal)(nil)
	_ plugin.OnSubscriptionCreated = (*Journal)(nil)
	_ plugin.OnPaymentProcessed    = (*Journal)(nil)
	_ plugin.OnProviderEarnings    = (*Journal)(nil)
	_ plugin.OnEscrowDeposit       = (*Journal)(nil)
	_ plugin.OnEscrowWithdrawal    = (*Journal)(nil)
	_ plugin.OnIPAssetRegistered   = (*Journal)(nil)
	_ plugin.OnIPLicenseAttached   = (*Journal)(nil)
	_ plugin.OnIPLicenseMinted     = (*Journal)(nil)
	_ plugin.OnRoyaltyPaid         = (*Journal)(nil)
	_ plugin.OnContentIPRegistered = (*Journal)(nil)
)

// Entry is one recorded notification.
type Entry struct {
	ID      id.JournalID    `json:"id"`
	Seq     uint64          `json:"seq"`
	Name    string          `json:"name"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Journal is an in-memory append-only notification log.
type Journal struct {
	mu      sync.RWMutex
	entries []Entry
	seq     uint64
	now     func() time.Time
}

// New creates an empty Journal.
func New(opts ...Option) *Journal {
	j := &Journal{now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Option configures a Journal instance.
type Option func(*Journal)

// WithClock sets the time source used to stamp entries, so journal
// timestamps follow the same clock as the ledger that feeds it.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// Name implements plugin.Plugin.
func (j *Journal) Name() string { return "journal" }

// Entries returns a copy of all recorded entries in emission order.
func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// ByName returns all entries with the given notification name, in order.
func (j *Journal) ByName(name string) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []Entry
	for _, e := range j.entries {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

func (j *Journal) record(name string, payload interface{}) error {
	raw, err := codec.Marshal(payload)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	j.entries = append(j.entries, Entry{
		ID:      id.NewJournalID(),
		Seq:     j.seq,
		Name:    name,
		At:      j.now().UTC(),
		Payload: raw,
	})
	return nil
}

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (j *Journal) OnProviderRegistered(_ context.Context, p *provider.Provider) error {
	return j.record(ProviderRegistered, p)
}

// OnPlanCreated implements plugin.OnPlanCreated.
func (j *Journal) OnPlanCreated(_ context.Context, p *plan.Plan) error {
	return j.record(PlanCreated, p)
}

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (j *Journal) OnSubscriptionCreated(_ context.Context, s *subscription.Subscription) error {
	return j.record(SubscriptionCreated, s)
}

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (j *Journal) OnPaymentProcessed(_ context.Context, e plugin.PaymentEvent) error {
	return j.record(PaymentProcessed, e)
}

// OnProviderEarnings implements plugin.OnProviderEarnings.
func (j *Journal) OnProviderEarnings(_ context.Context, e plugin.EarningsEvent) error {
	return j.record(ProviderEarnings, e)
}

// OnEscrowDeposit implements plugin.OnEscrowDeposit.
func (j *Journal) OnEscrowDeposit(_ context.Context, e plugin.BalanceEvent) error {
	return j.record(EscrowDeposit, e)
}

// OnEscrowWithdrawal implements plugin.OnEscrowWithdrawal.
func (j *Journal) OnEscrowWithdrawal(_ context.Context, e plugin.BalanceEvent) error {
	return j.record(EscrowWithdrawal, e)
}

// OnIPAssetRegistered implements plugin.OnIPAssetRegistered.
func (j *Journal) OnIPAssetRegistered(_ context.Context, e plugin.IPAssetEvent) error {
	return j.record(IPAssetRegistered, e)
}

// OnIPLicenseAttached implements plugin.OnIPLicenseAttached.
func (j *Journal) OnIPLicenseAttached(_ context.Context, e plugin.LicenseAttachedEvent) error {
	return j.record(IPLicenseAttached, e)
}

// OnIPLicenseMinted implements plugin.OnIPLicenseMinted.
func (j *Journal) OnIPLicenseMinted(_ context.Context, e plugin.LicenseMintedEvent) error {
	return j.record(IPLicenseMinted, e)
}

// OnRoyaltyPaid implements plugin.OnRoyaltyPaid.
func (j *Journal) OnRoyaltyPaid(_ context.Context, e plugin.RoyaltyEvent) error {
	return j.record(IPRoyaltyPaid, e)
}

// OnContentIPRegistered implements plugin.OnContentIPRegistered.
func (j *Journal) OnContentIPRegistered(_ context.Context, e plugin.ContentIPEvent) error {
	return j.record(ContentIPRegistered, e)
}
