package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// ──────────────────────────────────────────────────
// Escrow Ledger
// ──────────────────────────────────────────────────

// Deposit credits attached funds to the caller's escrow balance.
func (l *Ledger) Deposit(ctx context.Context, caller types.Address, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsZero() {
		return ErrZeroAmount
	}

	balance, err := l.store.GetBalance(ctx, caller)
	if err != nil {
		return err
	}
	newBalance := balance.Add(amount)
	if err := l.store.SetBalance(ctx, caller, newBalance); err != nil {
		return err
	}

	l.plugins.EmitEscrowDeposit(ctx, plugin.BalanceEvent{
		User:       caller,
		Amount:     amount,
		NewBalance: newBalance,
	})
	l.logger.Info("escrow deposit", "user", caller, "amount", amount, "balance", newBalance)
	return nil
}

// Withdraw debits the caller's escrow balance and transfers the amount
// out. The debit happens first; if the transfer fails it is reverted
// before the error surfaces, so no partial debit is ever observable.
func (l *Ledger) Withdraw(ctx context.Context, caller types.Address, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, err := l.store.GetBalance(ctx, caller)
	if err != nil {
		return err
	}
	if amount.IsZero() || !balance.Covers(amount) {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, balance, amount)
	}

	newBalance := balance.Sub(amount)
	if err := l.store.SetBalance(ctx, caller, newBalance); err != nil {
		return err
	}

	if err := l.transfer(ctx, caller, amount); err != nil {
		if rbErr := l.store.SetBalance(ctx, caller, balance); rbErr != nil {
			l.logger.Error("withdraw rollback failed", "user", caller, "error", rbErr)
		}
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	l.plugins.EmitEscrowWithdrawal(ctx, plugin.BalanceEvent{
		User:       caller,
		Amount:     amount,
		NewBalance: newBalance,
	})
	l.logger.Info("escrow withdrawal", "user", caller, "amount", amount, "balance", newBalance)
	return nil
}

// ──────────────────────────────────────────────────
// Subscription Registry + Payment Processor
// ──────────────────────────────────────────────────

// Subscribe creates a subscription to a plan, charging the first payment
// immediately. Attached funds are credited to the caller's escrow first,
// so a single call can fund and subscribe atomically.
//
// The subscription record is written before the provider transfer is
// attempted. If the transfer fails, the balance debit is reverted but the
// provisional record is not; because the identifier counter only advances
// on success, the next successful subscription overwrites it.
func (l *Ledger) Subscribe(ctx context.Context, caller types.Address, planID id.PlanID, attached types.Amount) (id.SubscriptionID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.store.GetPlan(ctx, planID)
	if err != nil {
		return 0, err
	}

	preAttach, err := l.store.GetBalance(ctx, caller)
	if err != nil {
		return 0, err
	}
	balance := preAttach
	if !attached.IsZero() {
		balance = preAttach.Add(attached)
		if err := l.store.SetBalance(ctx, caller, balance); err != nil {
			return 0, err
		}
	}

	if !balance.Covers(p.Price) {
		// Undo the attached credit: a rejected call keeps no funds, the
		// host returns the attached value to the caller.
		l.revertAttach(ctx, caller, preAttach, attached)
		return 0, fmt.Errorf("%w: balance %s, plan price %s", ErrInsufficientFunds, balance, p.Price)
	}

	fee, providerAmount := p.Price.SplitFee(l.protocolFeeBps(ctx))

	subID, err := l.store.NextSubscriptionID(ctx)
	if err != nil {
		l.revertAttach(ctx, caller, preAttach, attached)
		return 0, err
	}
	now := l.now()
	sub := &subscription.Subscription{
		Entity:      types.NewEntity(now),
		ID:          subID,
		PlanID:      planID,
		Subscriber:  caller,
		LastPayment: now,
		Active:      true,
	}
	if err := l.store.PutSubscription(ctx, sub); err != nil {
		l.revertAttach(ctx, caller, preAttach, attached)
		return 0, err
	}

	if err := l.store.SetBalance(ctx, caller, balance.Sub(p.Price)); err != nil {
		l.revertAttach(ctx, caller, preAttach, attached)
		return 0, err
	}

	if err := l.transfer(ctx, p.Provider, providerAmount); err != nil {
		// Revert to the pre-debit balance; the attached credit stays in
		// escrow. The provisional subscription record survives and the
		// identifier is not committed.
		if rbErr := l.store.SetBalance(ctx, caller, balance); rbErr != nil {
			l.logger.Error("subscribe rollback failed", "user", caller, "error", rbErr)
		}
		return 0, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	if err := l.store.AdvanceSubscriptionID(ctx); err != nil {
		return 0, err
	}

	l.plugins.EmitSubscriptionCreated(ctx, sub)
	l.plugins.EmitPaymentProcessed(ctx, plugin.PaymentEvent{
		From:           caller,
		To:             p.Provider,
		Amount:         providerAmount,
		SubscriptionID: subID,
	})
	l.plugins.EmitProviderEarnings(ctx, plugin.EarningsEvent{
		Provider: p.Provider,
		PlanID:   planID,
		Amount:   providerAmount,
	})

	l.logger.Info("subscription created",
		"subscription_id", subID,
		"plan_id", planID,
		"subscriber", caller,
		"provider_amount", providerAmount,
		"protocol_fee", fee,
	)
	return subID, nil
}

// ProcessSubscriptionPayment collects a renewal charge.
//
// A charge before last-payment + interval is a hard rejection. A charge
// against an insufficient balance deactivates the subscription forever.
// A failed provider transfer rolls back both the balance debit and the
// last-payment timestamp, leaving the subscription active and retryable.
func (l *Ledger) ProcessSubscriptionPayment(ctx context.Context, subID id.SubscriptionID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, err := l.store.GetSubscription(ctx, subID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// A subscription that was never committed is simply not active.
			return ErrSubscriptionInactive
		}
		return err
	}
	if !sub.Active {
		return ErrSubscriptionInactive
	}

	p, err := l.store.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	now := l.now()
	if !sub.Due(now, p.Interval) {
		return fmt.Errorf("%w: due at %s", ErrPaymentNotDue, sub.LastPayment.Add(p.Interval).UTC())
	}

	balance, err := l.store.GetBalance(ctx, sub.Subscriber)
	if err != nil {
		return err
	}
	if !balance.Covers(p.Price) {
		// Terminal: the subscription is never charged or reactivated again.
		sub.Active = false
		sub.Touch(now)
		if err := l.store.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		l.logger.Warn("subscription deactivated",
			"subscription_id", subID,
			"balance", balance,
			"price", p.Price,
		)
		return fmt.Errorf("%w: balance %s, plan price %s", ErrInsufficientFunds, balance, p.Price)
	}

	fee, providerAmount := p.Price.SplitFee(l.protocolFeeBps(ctx))

	lastPayment := sub.LastPayment
	if err := l.store.SetBalance(ctx, sub.Subscriber, balance.Sub(p.Price)); err != nil {
		return err
	}
	sub.LastPayment = now
	sub.Touch(now)
	if err := l.store.UpdateSubscription(ctx, sub); err != nil {
		// The debit must not stand without a recorded renewal.
		if rbErr := l.store.SetBalance(ctx, sub.Subscriber, balance); rbErr != nil {
			l.logger.Error("renewal rollback failed", "subscription_id", subID, "error", rbErr)
		}
		return err
	}

	if err := l.transfer(ctx, p.Provider, providerAmount); err != nil {
		// Full rollback: balance and timestamp are restored, so the
		// charge stays due and a later call may retry.
		if rbErr := l.store.SetBalance(ctx, sub.Subscriber, balance); rbErr != nil {
			l.logger.Error("renewal rollback failed", "subscription_id", subID, "error", rbErr)
		}
		sub.LastPayment = lastPayment
		if rbErr := l.store.UpdateSubscription(ctx, sub); rbErr != nil {
			l.logger.Error("renewal rollback failed", "subscription_id", subID, "error", rbErr)
		}
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	l.plugins.EmitPaymentProcessed(ctx, plugin.PaymentEvent{
		From:           sub.Subscriber,
		To:             p.Provider,
		Amount:         providerAmount,
		SubscriptionID: subID,
	})
	l.plugins.EmitProviderEarnings(ctx, plugin.EarningsEvent{
		Provider: p.Provider,
		PlanID:   sub.PlanID,
		Amount:   providerAmount,
	})

	l.logger.Info("subscription renewed",
		"subscription_id", subID,
		"provider_amount", providerAmount,
		"protocol_fee", fee,
	)
	return nil
}

// GetSubscription returns the full subscription record.
func (l *Ledger) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return l.store.GetSubscription(ctx, subID)
}

// revertAttach restores the pre-call balance after a failure that follows
// the attached-funds credit. Best effort: a rollback failure is logged,
// never surfaced over the original error.
func (l *Ledger) revertAttach(ctx context.Context, caller types.Address, preAttach, attached types.Amount) {
	if attached.IsZero() {
		return
	}
	if err := l.store.SetBalance(ctx, caller, preAttach); err != nil {
		l.logger.Error("subscribe rollback failed", "user", caller, "error", err)
	}
}

// protocolFeeBps returns the configured fee, or zero before initialization
// (an uninitialized ledger charges no protocol fee).
func (l *Ledger) protocolFeeBps(ctx context.Context) uint64 {
	cfg, err := l.store.GetConfig(ctx)
	if err != nil {
		return 0
	}
	return cfg.FeeBps
}
