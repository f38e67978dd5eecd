package escrow_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	escrow "github.com/xraph/escrow"
	"github.com/xraph/escrow/id"
	escrowstore "github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/subscription"
)

var (
	admin      = escrow.Address{0xad}
	providerA  = escrow.Address{0x0a}
	providerB  = escrow.Address{0x0b}
	subscriber = escrow.Address{0x51}
	ipAsset    = escrow.Address{0x1b}
)

type transferCall struct {
	to     escrow.Address
	amount escrow.Amount
}

// transferRecorder is a TransferFunc double. Set err to simulate a host
// transfer failure.
type transferRecorder struct {
	calls []transferCall
	err   error
}

func (r *transferRecorder) fn(_ context.Context, to escrow.Address, amount escrow.Amount) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, transferCall{to: to, amount: amount})
	return nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errStoreWrite = errors.New("store write refused")

// flakyStore wraps a Store and fails selected writes once, simulating a
// driver connection blip between two writes of one operation.
type flakyStore struct {
	escrowstore.Store
	failPutSubscription    bool
	failUpdateSubscription bool
}

func (s *flakyStore) PutSubscription(ctx context.Context, sub *subscription.Subscription) error {
	if s.failPutSubscription {
		s.failPutSubscription = false
		return errStoreWrite
	}
	return s.Store.PutSubscription(ctx, sub)
}

func (s *flakyStore) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	if s.failUpdateSubscription {
		s.failUpdateSubscription = false
		return errStoreWrite
	}
	return s.Store.UpdateSubscription(ctx, sub)
}

func newLedger(t *testing.T, opts ...escrow.Option) (*escrow.Ledger, *transferRecorder, *fakeClock) {
	t.Helper()
	return newLedgerWithStore(t, memory.New(), opts...)
}

func newLedgerWithStore(t *testing.T, s escrowstore.Store, opts ...escrow.Option) (*escrow.Ledger, *transferRecorder, *fakeClock) {
	t.Helper()

	transfers := &transferRecorder{}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	opts = append([]escrow.Option{
		escrow.WithClock(clock.now),
		escrow.WithProtocolFee(250),
	}, opts...)

	l := escrow.New(s, transfers.fn, opts...)

	ctx := context.Background()
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })

	if err := l.Initialize(ctx, admin); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return l, transfers, clock
}

func mustRegisterProvider(t *testing.T, l *escrow.Ledger, addr escrow.Address, name string) {
	t.Helper()
	if err := l.RegisterProvider(context.Background(), addr, name); err != nil {
		t.Fatalf("RegisterProvider: %v", err)
	}
}

func mustCreatePlan(t *testing.T, l *escrow.Ledger, prov escrow.Address, price escrow.Amount, interval time.Duration) id.PlanID {
	t.Helper()
	planID, err := l.CreatePlan(context.Background(), prov, escrow.CreatePlanParams{
		Price:    price,
		Interval: interval,
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	return planID
}

func mustBalance(t *testing.T, l *escrow.Ledger, user escrow.Address) escrow.Amount {
	t.Helper()
	bal, err := l.Balance(context.Background(), user)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return bal
}

func TestInitialize(t *testing.T) {
	t.Run("SecondCallFails", func(t *testing.T) {
		l, _, _ := newLedger(t)
		err := l.Initialize(context.Background(), admin)
		if !errors.Is(err, escrow.ErrAlreadyInitialized) {
			t.Fatalf("got %v, want ErrAlreadyInitialized", err)
		}
	})

	t.Run("FeeAboveDivisorRejected", func(t *testing.T) {
		l := escrow.New(memory.New(), (&transferRecorder{}).fn, escrow.WithProtocolFee(10001))
		err := l.Initialize(context.Background(), admin)
		if !errors.Is(err, escrow.ErrInvalidFee) {
			t.Fatalf("got %v, want ErrInvalidFee", err)
		}
		if !escrow.IsInvalidInput(err) {
			t.Fatalf("ErrInvalidFee should classify as invalid input")
		}
	})
}

func TestRegisterProvider(t *testing.T) {
	t.Run("DuplicateRejected", func(t *testing.T) {
		l, _, _ := newLedger(t)
		mustRegisterProvider(t, l, providerA, "Acme")

		err := l.RegisterProvider(context.Background(), providerA, "Acme again")
		if !errors.Is(err, escrow.ErrProviderExists) {
			t.Fatalf("got %v, want ErrProviderExists", err)
		}

		ok, err := l.IsProviderRegistered(context.Background(), providerA)
		if err != nil || !ok {
			t.Fatalf("provider should remain registered after duplicate attempt")
		}
	})

	t.Run("NameTooLong", func(t *testing.T) {
		l, _, _ := newLedger(t)
		long := make([]byte, 101)
		for i := range long {
			long[i] = 'x'
		}
		err := l.RegisterProvider(context.Background(), providerA, string(long))
		if !errors.Is(err, escrow.ErrNameTooLong) {
			t.Fatalf("got %v, want ErrNameTooLong", err)
		}

		ok, _ := l.IsProviderRegistered(context.Background(), providerA)
		if ok {
			t.Fatal("rejected registration must not persist")
		}
	})

	t.Run("HundredByteNameAccepted", func(t *testing.T) {
		l, _, _ := newLedger(t)
		name := make([]byte, 100)
		for i := range name {
			name[i] = 'y'
		}
		if err := l.RegisterProvider(context.Background(), providerA, string(name)); err != nil {
			t.Fatalf("100-byte name should be accepted: %v", err)
		}
	})

	t.Run("LimitCountsBytesNotRunes", func(t *testing.T) {
		l, _, _ := newLedger(t)

		// 51 two-byte runes: 51 runes, 102 bytes. The limit is a byte
		// limit, so this is over.
		over := strings.Repeat("é", 51)
		err := l.RegisterProvider(context.Background(), providerA, over)
		if !errors.Is(err, escrow.ErrNameTooLong) {
			t.Fatalf("got %v, want ErrNameTooLong for a 102-byte name", err)
		}

		// 50 two-byte runes: exactly 100 bytes, accepted.
		if err := l.RegisterProvider(context.Background(), providerA, strings.Repeat("é", 50)); err != nil {
			t.Fatalf("100-byte multibyte name should be accepted: %v", err)
		}
	})
}

func TestCreatePlan(t *testing.T) {
	t.Run("UnregisteredProviderRejected", func(t *testing.T) {
		l, _, _ := newLedger(t)
		_, err := l.CreatePlan(context.Background(), providerA, escrow.CreatePlanParams{
			Price:    100,
			Interval: time.Hour,
		})
		if !errors.Is(err, escrow.ErrNotRegisteredProvider) {
			t.Fatalf("got %v, want ErrNotRegisteredProvider", err)
		}
		if !escrow.IsUnauthorized(err) {
			t.Fatal("unregistered provider should classify as unauthorized")
		}
	})

	t.Run("ZeroPriceAndInterval", func(t *testing.T) {
		l, _, _ := newLedger(t)
		mustRegisterProvider(t, l, providerA, "Acme")

		_, err := l.CreatePlan(context.Background(), providerA, escrow.CreatePlanParams{Interval: time.Hour})
		if !errors.Is(err, escrow.ErrZeroPrice) {
			t.Fatalf("got %v, want ErrZeroPrice", err)
		}

		_, err = l.CreatePlan(context.Background(), providerA, escrow.CreatePlanParams{Price: 100})
		if !errors.Is(err, escrow.ErrZeroInterval) {
			t.Fatalf("got %v, want ErrZeroInterval", err)
		}
	})

	t.Run("MonotonicIdentifiers", func(t *testing.T) {
		l, _, _ := newLedger(t)
		mustRegisterProvider(t, l, providerA, "Acme")

		for want := id.PlanID(1); want <= 3; want++ {
			got := mustCreatePlan(t, l, providerA, 100, time.Hour)
			if got != want {
				t.Fatalf("plan id = %v, want %v", got, want)
			}
		}
	})
}

func TestDeposit(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	if err := l.Deposit(ctx, subscriber, 0); !errors.Is(err, escrow.ErrZeroAmount) {
		t.Fatalf("got %v, want ErrZeroAmount", err)
	}

	if err := l.Deposit(ctx, subscriber, 500); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := l.Deposit(ctx, subscriber, 250); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if bal := mustBalance(t, l, subscriber); bal != 750 {
		t.Fatalf("balance = %v, want 750", bal)
	}
}

func TestWithdraw(t *testing.T) {
	t.Run("ExactBalance", func(t *testing.T) {
		l, transfers, _ := newLedger(t)
		ctx := context.Background()

		if err := l.Deposit(ctx, subscriber, 500); err != nil {
			t.Fatal(err)
		}
		if err := l.Withdraw(ctx, subscriber, 500); err != nil {
			t.Fatalf("withdrawing the exact balance should succeed: %v", err)
		}
		if bal := mustBalance(t, l, subscriber); bal != 0 {
			t.Fatalf("balance = %v, want 0", bal)
		}
		if len(transfers.calls) != 1 || transfers.calls[0].amount != 500 || transfers.calls[0].to != subscriber {
			t.Fatalf("unexpected transfer calls: %+v", transfers.calls)
		}
	})

	t.Run("OverdraftRejected", func(t *testing.T) {
		l, _, _ := newLedger(t)
		ctx := context.Background()

		if err := l.Deposit(ctx, subscriber, 500); err != nil {
			t.Fatal(err)
		}
		err := l.Withdraw(ctx, subscriber, 501)
		if !escrow.IsInsufficientFunds(err) {
			t.Fatalf("got %v, want insufficient funds", err)
		}
		if bal := mustBalance(t, l, subscriber); bal != 500 {
			t.Fatalf("balance = %v, want 500 after rejected withdrawal", bal)
		}
	})

	t.Run("ZeroAmountRejected", func(t *testing.T) {
		l, _, _ := newLedger(t)
		err := l.Withdraw(context.Background(), subscriber, 0)
		if !escrow.IsInsufficientFunds(err) {
			t.Fatalf("got %v, want insufficient funds", err)
		}
	})

	t.Run("TransferFailureRollsBack", func(t *testing.T) {
		l, transfers, _ := newLedger(t)
		ctx := context.Background()

		if err := l.Deposit(ctx, subscriber, 500); err != nil {
			t.Fatal(err)
		}
		transfers.err = errors.New("host transfer refused")

		err := l.Withdraw(ctx, subscriber, 300)
		if !errors.Is(err, escrow.ErrTransferFailed) {
			t.Fatalf("got %v, want ErrTransferFailed", err)
		}
		if !escrow.IsInvalidInput(err) {
			t.Fatal("transfer failure should classify as invalid input")
		}
		if bal := mustBalance(t, l, subscriber); bal != 500 {
			t.Fatalf("balance = %v, want 500 after rollback", bal)
		}
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("FeeSplitExact", func(t *testing.T) {
		l, transfers, _ := newLedger(t) // 250 bps
		ctx := context.Background()
		mustRegisterProvider(t, l, providerA, "Acme")
		planID := mustCreatePlan(t, l, providerA, 1000, time.Hour)

		subID, err := l.Subscribe(ctx, subscriber, planID, 1000)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		if subID != 1 {
			t.Fatalf("subscription id = %v, want 1", subID)
		}

		// price 1000 at 250 bps: fee 25, provider 975
		if len(transfers.calls) != 1 {
			t.Fatalf("expected one transfer, got %d", len(transfers.calls))
		}
		if transfers.calls[0].to != providerA || transfers.calls[0].amount != 975 {
			t.Fatalf("transfer = %+v, want 975 to provider", transfers.calls[0])
		}
		// Full price is debited; the fee remains in escrow custody.
		if bal := mustBalance(t, l, subscriber); bal != 0 {
			t.Fatalf("balance = %v, want 0", bal)
		}
	})

	t.Run("NonexistentPlan", func(t *testing.T) {
		l, _, _ := newLedger(t)
		ctx := context.Background()

		if err := l.Deposit(ctx, subscriber, 100); err != nil {
			t.Fatal(err)
		}
		_, err := l.Subscribe(ctx, subscriber, 42, 0)
		if !errors.Is(err, escrow.ErrPlanNotFound) {
			t.Fatalf("got %v, want ErrPlanNotFound", err)
		}
		if bal := mustBalance(t, l, subscriber); bal != 100 {
			t.Fatalf("balance = %v, want 100 unchanged", bal)
		}
	})

	t.Run("InsufficientFundsLeavesNoTrace", func(t *testing.T) {
		l, _, _ := newLedger(t)
		ctx := context.Background()
		mustRegisterProvider(t, l, providerA, "Acme")
		planID := mustCreatePlan(t, l, providerA, 1000, time.Hour)

		_, err := l.Subscribe(ctx, subscriber, planID, 999)
		if !escrow.IsInsufficientFunds(err) {
			t.Fatalf("got %v, want insufficient funds", err)
		}
		// The attached credit is returned, not retained.
		if bal := mustBalance(t, l, subscriber); bal != 0 {
			t.Fatalf("balance = %v, want 0 after rejected subscribe", bal)
		}

		// The identifier was not consumed.
		subID, err := l.Subscribe(ctx, subscriber, planID, 1000)
		if err != nil {
			t.Fatal(err)
		}
		if subID != 1 {
			t.Fatalf("subscription id = %v, want 1 (counter untouched by rejection)", subID)
		}
	})

	t.Run("AttachedFundsTopUpExistingBalance", func(t *testing.T) {
		l, _, _ := newLedger(t)
		ctx := context.Background()
		mustRegisterProvider(t, l, providerA, "Acme")
		planID := mustCreatePlan(t, l, providerA, 1000, time.Hour)

		if err := l.Deposit(ctx, subscriber, 600); err != nil {
			t.Fatal(err)
		}
		if _, err := l.Subscribe(ctx, subscriber, planID, 600); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		// 600 + 600 - 1000 = 200 stays in escrow.
		if bal := mustBalance(t, l, subscriber); bal != 200 {
			t.Fatalf("balance = %v, want 200", bal)
		}
	})

	t.Run("StoreFailureRevertsAttachedCredit", func(t *testing.T) {
		// A store-write failure after the attached-funds credit is not
		// the sanctioned transfer asymmetry: the balance goes back to
		// its pre-call value.
		fs := &flakyStore{Store: memory.New()}
		l, transfers, _ := newLedgerWithStore(t, fs)
		ctx := context.Background()
		mustRegisterProvider(t, l, providerA, "Acme")
		planID := mustCreatePlan(t, l, providerA, 1000, time.Hour)

		fs.failPutSubscription = true
		_, err := l.Subscribe(ctx, subscriber, planID, 1000)
		if !errors.Is(err, errStoreWrite) {
			t.Fatalf("got %v, want the store error", err)
		}
		if bal := mustBalance(t, l, subscriber); bal != 0 {
			t.Fatalf("balance = %v, want 0 (attached credit reverted)", bal)
		}
		if len(transfers.calls) != 0 {
			t.Fatalf("no transfer should happen: %+v", transfers.calls)
		}

		subID, err := l.Subscribe(ctx, subscriber, planID, 1000)
		if err != nil {
			t.Fatalf("retry: %v", err)
		}
		if subID != 1 {
			t.Fatalf("retry subscription id = %v, want 1", subID)
		}
	})

	t.Run("TransferFailureKeepsProvisionalRecord", func(t *testing.T) {
		// A failed initial transfer reverts the debit but leaves the
		// subscription record behind at an uncommitted identifier. The
		// next successful subscribe reuses and overwrites it. This
		// mirrors the renewal path's full rollback being absent here.
		l, transfers, _ := newLedger(t)
		ctx := context.Background()
		mustRegisterProvider(t, l, providerA, "Acme")
		planID := mustCreatePlan(t, l, providerA, 1000, time.Hour)

		transfers.err = errors.New("host transfer refused")
		_, err := l.Subscribe(ctx, subscriber, planID, 1000)
		if !errors.Is(err, escrow.ErrTransferFailed) {
			t.Fatalf("got %v, want ErrTransferFailed", err)
		}
		// Attached credit stays in escrow; only the debit is reverted.
		if bal := mustBalance(t, l, subscriber); bal != 1000 {
			t.Fatalf("balance = %v, want 1000 after reverted debit", bal)
		}

		// Provisional record exists at the unadvanced identifier.
		sub, err := l.GetSubscription(ctx, 1)
		if err != nil {
			t.Fatalf("provisional record should exist: %v", err)
		}
		if sub.Subscriber != subscriber {
			t.Fatalf("provisional record subscriber = %v", sub.Subscriber)
		}

		// Retry succeeds with the same identifier, overwriting it.
		transfers.err = nil
		subID, err := l.Subscribe(ctx, subscriber, planID, 0)
		if err != nil {
			t.Fatalf("retry: %v", err)
		}
		if subID != 1 {
			t.Fatalf("retry subscription id = %v, want 1", subID)
		}
	})
}

func TestProcessSubscriptionPayment(t *testing.T) {
	const (
		price    = escrow.Amount(1000)
		interval = 30 * 24 * time.Hour
	)

	setup := func(t *testing.T) (*escrow.Ledger, *transferRecorder, *fakeClock, id.SubscriptionID) {
		t.Helper()
		l, transfers, clock := newLedger(t)
		ctx := context.Background()
		mustRegisterProvider(t, l, providerA, "Acme")
		planID := mustCreatePlan(t, l, providerA, price, interval)
		subID, err := l.Subscribe(ctx, subscriber, planID, 1000)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		transfers.calls = nil
		return l, transfers, clock, subID
	}

	t.Run("NotDueMutatesNothing", func(t *testing.T) {
		l, transfers, clock, subID := setup(t)
		ctx := context.Background()
		if err := l.Deposit(ctx, subscriber, 1000); err != nil {
			t.Fatal(err)
		}

		clock.advance(interval - time.Second)
		err := l.ProcessSubscriptionPayment(ctx, subID)
		if !errors.Is(err, escrow.ErrPaymentNotDue) {
			t.Fatalf("got %v, want ErrPaymentNotDue", err)
		}
		if bal := mustBalance(t, l, subscriber); bal != 1000 {
			t.Fatalf("balance = %v, want 1000 untouched", bal)
		}
		if len(transfers.calls) != 0 {
			t.Fatalf("no transfer should happen: %+v", transfers.calls)
		}
		sub, _ := l.GetSubscription(ctx, subID)
		if !sub.Active {
			t.Fatal("subscription must stay active after a too-early charge")
		}
	})

	t.Run("DueExactlyAtInterval", func(t *testing.T) {
		l, transfers, clock, subID := setup(t)
		ctx := context.Background()
		if err := l.Deposit(ctx, subscriber, 1000); err != nil {
			t.Fatal(err)
		}

		clock.advance(interval)
		if err := l.ProcessSubscriptionPayment(ctx, subID); err != nil {
			t.Fatalf("charge at exactly last-payment+interval should succeed: %v", err)
		}
		if bal := mustBalance(t, l, subscriber); bal != 0 {
			t.Fatalf("balance = %v, want 0", bal)
		}
		if len(transfers.calls) != 1 || transfers.calls[0].amount != 975 {
			t.Fatalf("transfer calls = %+v, want one 975 payout", transfers.calls)
		}
	})

	t.Run("InsufficientFundsDeactivatesForever", func(t *testing.T) {
		l, _, clock, subID := setup(t)
		ctx := context.Background()

		clock.advance(interval)
		err := l.ProcessSubscriptionPayment(ctx, subID)
		if !escrow.IsInsufficientFunds(err) {
			t.Fatalf("got %v, want insufficient funds", err)
		}
		sub, _ := l.GetSubscription(ctx, subID)
		if sub.Active {
			t.Fatal("subscription should be deactivated")
		}

		// Funding the balance afterwards does not revive it.
		if err := l.Deposit(ctx, subscriber, 5000); err != nil {
			t.Fatal(err)
		}
		err = l.ProcessSubscriptionPayment(ctx, subID)
		if !errors.Is(err, escrow.ErrSubscriptionInactive) {
			t.Fatalf("got %v, want ErrSubscriptionInactive", err)
		}
	})

	t.Run("UnknownSubscriptionInactive", func(t *testing.T) {
		l, _, _ := newLedger(t)
		err := l.ProcessSubscriptionPayment(context.Background(), 99)
		if !errors.Is(err, escrow.ErrSubscriptionInactive) {
			t.Fatalf("got %v, want ErrSubscriptionInactive", err)
		}
	})

	t.Run("StoreFailureRevertsDebit", func(t *testing.T) {
		fs := &flakyStore{Store: memory.New()}
		l, transfers, clock := newLedgerWithStore(t, fs)
		ctx := context.Background()
		mustRegisterProvider(t, l, providerA, "Acme")
		planID := mustCreatePlan(t, l, providerA, price, interval)
		subID, err := l.Subscribe(ctx, subscriber, planID, 1000)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		transfers.calls = nil
		if err := l.Deposit(ctx, subscriber, 1000); err != nil {
			t.Fatal(err)
		}
		before, _ := l.GetSubscription(ctx, subID)

		clock.advance(interval)
		fs.failUpdateSubscription = true
		err = l.ProcessSubscriptionPayment(ctx, subID)
		if !errors.Is(err, errStoreWrite) {
			t.Fatalf("got %v, want the store error", err)
		}
		if bal := mustBalance(t, l, subscriber); bal != 1000 {
			t.Fatalf("balance = %v, want 1000 restored after failed record write", bal)
		}
		if len(transfers.calls) != 0 {
			t.Fatalf("no transfer should happen: %+v", transfers.calls)
		}
		after, _ := l.GetSubscription(ctx, subID)
		if !after.Active || !after.LastPayment.Equal(before.LastPayment) {
			t.Fatalf("subscription mutated: %+v", after)
		}

		// The charge is still due; a retry collects it.
		if err := l.ProcessSubscriptionPayment(ctx, subID); err != nil {
			t.Fatalf("retry: %v", err)
		}
		if bal := mustBalance(t, l, subscriber); bal != 0 {
			t.Fatalf("balance = %v, want 0 after retry", bal)
		}
	})

	t.Run("TransferFailureFullyRollsBack", func(t *testing.T) {
		l, transfers, clock, subID := setup(t)
		ctx := context.Background()
		if err := l.Deposit(ctx, subscriber, 1000); err != nil {
			t.Fatal(err)
		}

		before, _ := l.GetSubscription(ctx, subID)

		clock.advance(interval)
		transfers.err = errors.New("host transfer refused")
		err := l.ProcessSubscriptionPayment(ctx, subID)
		if !errors.Is(err, escrow.ErrTransferFailed) {
			t.Fatalf("got %v, want ErrTransferFailed", err)
		}

		if bal := mustBalance(t, l, subscriber); bal != 1000 {
			t.Fatalf("balance = %v, want 1000 restored", bal)
		}
		after, _ := l.GetSubscription(ctx, subID)
		if !after.Active {
			t.Fatal("subscription must stay active after a failed transfer")
		}
		if !after.LastPayment.Equal(before.LastPayment) {
			t.Fatalf("last payment = %v, want %v restored", after.LastPayment, before.LastPayment)
		}

		// The charge is still due; a retry collects it.
		transfers.err = nil
		if err := l.ProcessSubscriptionPayment(ctx, subID); err != nil {
			t.Fatalf("retry: %v", err)
		}
		if bal := mustBalance(t, l, subscriber); bal != 0 {
			t.Fatalf("balance = %v, want 0 after retry", bal)
		}
	})
}

func TestPlans(t *testing.T) {
	t.Run("CappedAtTen", func(t *testing.T) {
		l, _, _ := newLedger(t)
		mustRegisterProvider(t, l, providerA, "Acme")
		for i := 0; i < 12; i++ {
			mustCreatePlan(t, l, providerA, 100, time.Hour)
		}

		var got []id.PlanID
		for pid := range l.Plans(context.Background()) {
			got = append(got, pid)
		}
		if len(got) != 10 {
			t.Fatalf("listed %d plans, want 10", len(got))
		}
		for i, pid := range got {
			if pid != id.PlanID(i+1) {
				t.Fatalf("plans[%d] = %v, want %v", i, pid, i+1)
			}
		}
	})

	t.Run("Restartable", func(t *testing.T) {
		l, _, _ := newLedger(t)
		mustRegisterProvider(t, l, providerA, "Acme")
		mustCreatePlan(t, l, providerA, 100, time.Hour)
		mustCreatePlan(t, l, providerA, 200, time.Hour)

		seq := l.Plans(context.Background())
		first := 0
		for range seq {
			first++
		}
		second := 0
		for range seq {
			second++
		}
		if first != 2 || second != 2 {
			t.Fatalf("iterations = %d, %d; want 2, 2", first, second)
		}
	})

	t.Run("EarlyBreak", func(t *testing.T) {
		l, _, _ := newLedger(t)
		mustRegisterProvider(t, l, providerA, "Acme")
		mustCreatePlan(t, l, providerA, 100, time.Hour)
		mustCreatePlan(t, l, providerA, 200, time.Hour)

		for pid := range l.Plans(context.Background()) {
			if pid == 1 {
				break
			}
			t.Fatalf("unexpected plan %v before break", pid)
		}
	})
}

func TestIPBookkeeping(t *testing.T) {
	t.Run("RegisterPlanIPAsset", func(t *testing.T) {
		l, _, _ := newLedger(t)
		ctx := context.Background()
		mustRegisterProvider(t, l, providerA, "Acme")
		mustRegisterProvider(t, l, providerB, "Umbrella")
		planID := mustCreatePlan(t, l, providerA, 100, time.Hour)

		// Only the owning provider may link an asset.
		err := l.RegisterPlanIPAsset(ctx, providerB, planID, ipAsset, "ipfs://meta")
		if !errors.Is(err, escrow.ErrNotPlanOwner) {
			t.Fatalf("got %v, want ErrNotPlanOwner", err)
		}

		// A missing plan has no owner.
		err = l.RegisterPlanIPAsset(ctx, providerA, 77, ipAsset, "ipfs://meta")
		if !errors.Is(err, escrow.ErrNotPlanOwner) {
			t.Fatalf("got %v, want ErrNotPlanOwner", err)
		}

		err = l.RegisterPlanIPAsset(ctx, providerA, planID, escrow.ZeroAddress, "ipfs://meta")
		if !errors.Is(err, escrow.ErrNullAddress) {
			t.Fatalf("got %v, want ErrNullAddress", err)
		}

		if err := l.RegisterPlanIPAsset(ctx, providerA, planID, ipAsset, "ipfs://meta"); err != nil {
			t.Fatalf("RegisterPlanIPAsset: %v", err)
		}
		asset, err := l.PlanIPAsset(ctx, planID)
		if err != nil || asset != ipAsset {
			t.Fatalf("PlanIPAsset = %v, %v", asset, err)
		}
		uri, err := l.PlanMetadataURI(ctx, planID)
		if err != nil || uri != "ipfs://meta" {
			t.Fatalf("PlanMetadataURI = %q, %v", uri, err)
		}

		// Re-registration silently replaces the previous linkage.
		other := escrow.Address{0x2b}
		if err := l.RegisterPlanIPAsset(ctx, providerA, planID, other, "ipfs://meta2"); err != nil {
			t.Fatalf("overwrite should be permitted: %v", err)
		}
		asset, _ = l.PlanIPAsset(ctx, planID)
		if asset != other {
			t.Fatalf("PlanIPAsset = %v, want %v after overwrite", asset, other)
		}
	})

	t.Run("UnknownPlanViewsDefault", func(t *testing.T) {
		l, _, _ := newLedger(t)
		ctx := context.Background()

		asset, err := l.PlanIPAsset(ctx, 9)
		if err != nil || asset != escrow.ZeroAddress {
			t.Fatalf("PlanIPAsset = %v, %v; want zero address, nil", asset, err)
		}
		uri, err := l.PlanMetadataURI(ctx, 9)
		if err != nil || uri != "" {
			t.Fatalf("PlanMetadataURI = %q, %v; want empty, nil", uri, err)
		}
	})

	t.Run("LicenseRecords", func(t *testing.T) {
		l, _, _ := newLedger(t)
		ctx := context.Background()
		licensee := escrow.Address{0x7c}

		if err := l.RecordLicenseAttachment(ctx, escrow.ZeroAddress, 1); !errors.Is(err, escrow.ErrNullAddress) {
			t.Fatalf("got %v, want ErrNullAddress", err)
		}
		if err := l.RecordLicenseAttachment(ctx, ipAsset, 1); err != nil {
			t.Fatalf("RecordLicenseAttachment: %v", err)
		}

		if err := l.RecordLicenseMint(ctx, ipAsset, escrow.ZeroAddress, 1); !errors.Is(err, escrow.ErrNullAddress) {
			t.Fatalf("got %v, want ErrNullAddress", err)
		}
		has, _ := l.HasIPLicense(ctx, licensee)
		if has {
			t.Fatal("no license should exist yet")
		}
		if err := l.RecordLicenseMint(ctx, ipAsset, licensee, 7); err != nil {
			t.Fatalf("RecordLicenseMint: %v", err)
		}
		has, err := l.HasIPLicense(ctx, licensee)
		if err != nil || !has {
			t.Fatalf("HasIPLicense = %v, %v; want true", has, err)
		}
	})

	t.Run("DistributeRoyalty", func(t *testing.T) {
		l, _, _ := newLedger(t)
		ctx := context.Background()
		recipient := escrow.Address{0x9e}

		err := l.DistributeRoyalty(ctx, providerA, ipAsset, recipient, 100)
		if !errors.Is(err, escrow.ErrNotAdmin) {
			t.Fatalf("got %v, want ErrNotAdmin", err)
		}
		err = l.DistributeRoyalty(ctx, admin, ipAsset, recipient, 0)
		if !errors.Is(err, escrow.ErrZeroAmount) {
			t.Fatalf("got %v, want ErrZeroAmount", err)
		}
		err = l.DistributeRoyalty(ctx, admin, ipAsset, escrow.ZeroAddress, 100)
		if !errors.Is(err, escrow.ErrNullAddress) {
			t.Fatalf("got %v, want ErrNullAddress", err)
		}

		if err := l.DistributeRoyalty(ctx, admin, ipAsset, recipient, 100); err != nil {
			t.Fatalf("DistributeRoyalty: %v", err)
		}
		if err := l.DistributeRoyalty(ctx, admin, ipAsset, recipient, 40); err != nil {
			t.Fatalf("DistributeRoyalty: %v", err)
		}
		bal, err := l.RoyaltyBalance(ctx, ipAsset)
		if err != nil || bal != 140 {
			t.Fatalf("RoyaltyBalance = %v, %v; want 140", bal, err)
		}
	})

	t.Run("RegisterContentIP", func(t *testing.T) {
		l, _, clock := newLedger(t)
		ctx := context.Background()
		mustRegisterProvider(t, l, providerA, "Acme")
		planID := mustCreatePlan(t, l, providerA, 100, time.Hour)
		subID, err := l.Subscribe(ctx, subscriber, planID, 100)
		if err != nil {
			t.Fatal(err)
		}
		contentIP := escrow.Address{0xc1}

		err = l.RegisterContentIP(ctx, providerA, subID, contentIP)
		if !errors.Is(err, escrow.ErrNotSubscriber) {
			t.Fatalf("got %v, want ErrNotSubscriber", err)
		}
		err = l.RegisterContentIP(ctx, subscriber, 42, contentIP)
		if !errors.Is(err, escrow.ErrNotSubscriber) {
			t.Fatalf("got %v, want ErrNotSubscriber for unknown subscription", err)
		}

		if err := l.RegisterContentIP(ctx, subscriber, subID, contentIP); err != nil {
			t.Fatalf("RegisterContentIP: %v", err)
		}
		sub, _ := l.GetSubscription(ctx, subID)
		if sub.ContentIP != contentIP {
			t.Fatalf("ContentIP = %v, want %v", sub.ContentIP, contentIP)
		}

		// Deactivate by letting a renewal fail on funds, then verify
		// content registration is refused.
		clock.advance(time.Hour)
		_ = l.ProcessSubscriptionPayment(ctx, subID)
		err = l.RegisterContentIP(ctx, subscriber, subID, contentIP)
		if !errors.Is(err, escrow.ErrSubscriptionInactive) {
			t.Fatalf("got %v, want ErrSubscriptionInactive", err)
		}
	})
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"NotPlanOwner", escrow.ErrNotPlanOwner, escrow.IsUnauthorized},
		{"NotAdmin", escrow.ErrNotAdmin, escrow.IsUnauthorized},
		{"NotSubscriber", escrow.ErrNotSubscriber, escrow.IsUnauthorized},
		{"ZeroAmount", escrow.ErrZeroAmount, escrow.IsInvalidInput},
		{"PaymentNotDue", escrow.ErrPaymentNotDue, escrow.IsInvalidInput},
		{"SubscriptionInactive", escrow.ErrSubscriptionInactive, escrow.IsInvalidInput},
		{"TransferFailed", escrow.ErrTransferFailed, escrow.IsInvalidInput},
		{"PlanNotFound", escrow.ErrPlanNotFound, escrow.IsNotFound},
		{"ProviderNotFound", escrow.ErrProviderNotFound, escrow.IsNotFound},
		{"InsufficientFunds", escrow.ErrInsufficientFunds, escrow.IsInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.check(tc.err) {
				t.Fatalf("%v should match its kind", tc.err)
			}
		})
	}
}
