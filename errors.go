package escrow

import (
	"errors"
	"fmt"
)

// The four error kinds every failure maps onto. Specific sentinels below
// wrap one of these, so callers can classify with errors.Is or use the
// sentinel directly for the exact cause.
var (
	ErrUnauthorized      = errors.New("escrow: unauthorized")
	ErrInvalidInput      = errors.New("escrow: invalid input")
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")
	ErrNotFound          = errors.New("escrow: not found")
)

// Invalid-input errors.
var (
	ErrAlreadyInitialized = fmt.Errorf("escrow: already initialized: %w", ErrInvalidInput)
	ErrNotInitialized     = fmt.Errorf("escrow: not initialized: %w", ErrInvalidInput)
	ErrProviderExists     = fmt.Errorf("escrow: provider already registered: %w", ErrInvalidInput)
	ErrNameTooLong        = fmt.Errorf("escrow: provider name too long: %w", ErrInvalidInput)
	ErrZeroAmount         = fmt.Errorf("escrow: amount must be positive: %w", ErrInvalidInput)
	ErrZeroPrice          = fmt.Errorf("escrow: plan price must be positive: %w", ErrInvalidInput)
	ErrZeroInterval       = fmt.Errorf("escrow: billing interval must be positive: %w", ErrInvalidInput)
	ErrNullAddress        = fmt.Errorf("escrow: null address: %w", ErrInvalidInput)
	ErrInvalidFee         = fmt.Errorf("escrow: protocol fee above 10000 bps: %w", ErrInvalidInput)

	// ErrSubscriptionInactive is terminal: a deactivated subscription is
	// never charged again and never reactivated.
	ErrSubscriptionInactive = fmt.Errorf("escrow: subscription inactive: %w", ErrInvalidInput)
	// ErrPaymentNotDue is a hard rejection, not a retryable pending state.
	ErrPaymentNotDue = fmt.Errorf("escrow: payment not yet due: %w", ErrInvalidInput)
	// ErrTransferFailed is the generic fallback when the host value
	// transfer reports failure after ledger state was already rolled back.
	ErrTransferFailed = fmt.Errorf("escrow: native transfer failed: %w", ErrInvalidInput)
)

// Authorization errors.
var (
	ErrNotRegisteredProvider = fmt.Errorf("escrow: caller is not a registered provider: %w", ErrUnauthorized)
	ErrNotPlanOwner          = fmt.Errorf("escrow: caller does not own the plan: %w", ErrUnauthorized)
	ErrNotSubscriber         = fmt.Errorf("escrow: caller is not the subscriber: %w", ErrUnauthorized)
	ErrNotAdmin              = fmt.Errorf("escrow: caller is not the admin: %w", ErrUnauthorized)
)

// Not-found errors.
var (
	ErrPlanNotFound         = fmt.Errorf("escrow: plan not found: %w", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("escrow: subscription not found: %w", ErrNotFound)
	ErrProviderNotFound     = fmt.Errorf("escrow: provider not found: %w", ErrNotFound)
	ErrConfigNotFound       = fmt.Errorf("escrow: protocol config not found: %w", ErrNotFound)
)

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsInvalidInput reports whether err is a malformed, zero, null, premature
// or already-initialized argument (or a transfer failure).
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsInsufficientFunds reports whether err is a balance shortfall.
func IsInsufficientFunds(err error) bool { return errors.Is(err, ErrInsufficientFunds) }

// IsNotFound reports whether err refers to a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
