package royalty

import (
	"context"

	"github.com/xraph/escrow/types"
)

// Store is the persistence surface for royalty accounting and license
// holder bookkeeping.
type Store interface {
	// Credit accumulates amount into the IP asset's royalty balance and
	// returns the new balance.
	Credit(ctx context.Context, asset types.Address, amount types.Amount) (types.Amount, error)
	// Balance returns the accumulated royalties for an IP asset; zero if
	// the asset has never been credited.
	Balance(ctx context.Context, asset types.Address) (types.Amount, error)
	// SetLicenseHolder marks an address as holding a minted IP license.
	SetLicenseHolder(ctx context.Context, holder types.Address) error
	// HasLicense reports whether an address holds a minted IP license.
	HasLicense(ctx context.Context, holder types.Address) (bool, error)
}
