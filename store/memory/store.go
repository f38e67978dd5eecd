// Package memory provides an in-memory Store for tests and demos.
package memory

import (
	"context"
	"sync"

	escrow "github.com/xraph/escrow"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/provider"
	escrowstore "github.com/xraph/escrow/store"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store with plain maps. Counters start at 1;
// nothing is ever deleted, matching the ledger's no-physical-delete model.
type Store struct {
	mu sync.RWMutex

	config *types.Config

	providers map[types.Address]*provider.Provider

	plans      map[id.PlanID]*plan.Plan
	nextPlanID id.PlanID

	subscriptions map[id.SubscriptionID]*subscription.Subscription
	nextSubID     id.SubscriptionID

	balances  map[types.Address]types.Amount
	royalties map[types.Address]types.Amount
	licensees map[types.Address]bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		providers:     make(map[types.Address]*provider.Provider),
		plans:         make(map[id.PlanID]*plan.Plan),
		nextPlanID:    1,
		subscriptions: make(map[id.SubscriptionID]*subscription.Subscription),
		nextSubID:     1,
		balances:      make(map[types.Address]types.Amount),
		royalties:     make(map[types.Address]types.Amount),
		licensees:     make(map[types.Address]bool),
	}
}

// ==================== Config ====================

func (s *Store) SaveConfig(_ context.Context, cfg *types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config != nil {
		return escrow.ErrAlreadyInitialized
	}
	c := *cfg
	s.config = &c
	return nil
}

func (s *Store) GetConfig(_ context.Context) (*types.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, escrow.ErrConfigNotFound
	}
	c := *s.config
	return &c, nil
}

// ==================== Providers ====================

func (s *Store) CreateProvider(_ context.Context, p *provider.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.providers[p.Address]; exists {
		return escrow.ErrProviderExists
	}
	cp := *p
	s.providers[p.Address] = &cp
	return nil
}

func (s *Store) GetProvider(_ context.Context, addr types.Address) (*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[addr]
	if !ok {
		return nil, escrow.ErrProviderNotFound
	}
	cp := *p
	return &cp, nil
}

// ==================== Plans ====================

func (s *Store) CreatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextPlanID
	s.nextPlanID++

	cp := *p
	s.plans[p.ID] = &cp
	return nil
}

func (s *Store) GetPlan(_ context.Context, planID id.PlanID) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[planID]
	if !ok {
		return nil, escrow.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpdatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.ID]; !exists {
		return escrow.ErrPlanNotFound
	}
	cp := *p
	s.plans[p.ID] = &cp
	return nil
}

func (s *Store) NextPlanID(_ context.Context) (id.PlanID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextPlanID, nil
}

// ==================== Subscriptions ====================

func (s *Store) NextSubscriptionID(_ context.Context) (id.SubscriptionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSubID, nil
}

func (s *Store) PutSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sub
	s.subscriptions[sub.ID] = &cp
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[subID]
	if !ok {
		return nil, escrow.ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID]; !exists {
		return escrow.ErrSubscriptionNotFound
	}
	cp := *sub
	s.subscriptions[sub.ID] = &cp
	return nil
}

func (s *Store) AdvanceSubscriptionID(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	return nil
}

// ==================== Balances ====================

func (s *Store) GetBalance(_ context.Context, user types.Address) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[user], nil
}

func (s *Store) SetBalance(_ context.Context, user types.Address, balance types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[user] = balance
	return nil
}

// ==================== Royalties ====================

func (s *Store) CreditRoyalty(_ context.Context, asset types.Address, amount types.Amount) (types.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.royalties[asset] = s.royalties[asset].Add(amount)
	return s.royalties[asset], nil
}

func (s *Store) GetRoyaltyBalance(_ context.Context, asset types.Address) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.royalties[asset], nil
}

func (s *Store) SetLicenseHolder(_ context.Context, holder types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.licensees[holder] = true
	return nil
}

func (s *Store) HasLicense(_ context.Context, holder types.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.licensees[holder], nil
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
