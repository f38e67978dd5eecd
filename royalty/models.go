// Package royalty holds the IP royalty bookkeeping model.
package royalty

import (
	"github.com/xraph/escrow/types"
)

// Balance is the accumulated royalty credit for one IP asset. Accumulation
// is write-only in this core: credits are monotonic and no payout path
// exists here.
type Balance struct {
	IPAsset types.Address `json:"ip_asset"`
	Accrued types.Amount  `json:"accrued"`
}
