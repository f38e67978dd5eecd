// Package escrow provides an embeddable subscription-billing escrow ledger
// for Go applications.
//
// Escrow is designed as a library, not a service. Providers register and
// publish recurring payment plans; users fund an escrow balance from which
// periodic charges are deducted and split between the provider and the
// platform. A secondary layer records intellectual-property linkage and
// royalty accruals against plans and subscriptions. It provides:
//
//   - Provider registry gating plan creation
//   - Plan catalog with monotonic identifiers and bounded listing
//   - Per-user escrow balances with deposit and withdrawal
//   - A payment processor that validates timing and funds, computes the
//     fee split in integer basis points, mutates the ledger, and
//     compensates its own state when the outbound transfer fails
//   - Write-only royalty accrual per IP asset
//   - Pluggable persistence (memory, Postgres, MongoDB)
//   - An ordered notification journal for indexers and dashboards
//
// # Quick Start
//
// Create a ledger over a store and the host's transfer primitive:
//
//	import (
//	    "github.com/xraph/escrow"
//	    "github.com/xraph/escrow/store/memory"
//	)
//
//	transfer := func(ctx context.Context, to escrow.Address, amount escrow.Amount) error {
//	    return payouts.Send(ctx, to, amount) // host-native value transfer
//	}
//
//	l := escrow.New(memory.New(), transfer, escrow.WithProtocolFee(250))
//
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	if err := l.Initialize(ctx, adminAddr); err != nil {
//	    log.Fatal(err)
//	}
//
// # Core Concepts
//
// Providers publish plans; users subscribe with funds attached:
//
//	_ = l.RegisterProvider(ctx, providerAddr, "Acme Streaming")
//	planID, _ := l.CreatePlan(ctx, providerAddr, escrow.CreatePlanParams{
//	    Price:    1000,
//	    Interval: 30 * 24 * time.Hour,
//	    Metadata: "premium tier",
//	})
//	subID, _ := l.Subscribe(ctx, userAddr, planID, 5000)
//
// Renewals are collected explicitly, typically by a scheduler:
//
//	err := l.ProcessSubscriptionPayment(ctx, subID)
//
// A renewal against an insufficient balance deactivates the subscription
// permanently; a failed outbound transfer rolls the charge back and leaves
// it retryable.
//
// # Money
//
// All monetary calculations use integer arithmetic. The Amount type is an
// unsigned count of the smallest currency unit, and the protocol fee is an
// integer number of basis points out of 10,000, so for every charge
// fee + provider amount equals the plan price exactly.
//
// # Host Boundary
//
// Caller identity, the clock, and value transfer are supplied by the
// embedding application, never assumed: every mutating operation takes the
// caller address explicitly, WithClock overrides the time source, and
// TransferFunc is the only way funds leave escrow custody.
package escrow
