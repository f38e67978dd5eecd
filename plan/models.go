// Package plan holds the plan catalog model.
package plan

import (
	"time"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// MaxListing bounds the number of identifiers a catalog scan returns.
// Callers needing more paginate externally; this is a ceiling, not an error.
const MaxListing = 10

// Plan is a recurring-billing offer published by a registered provider.
// Price and Interval are immutable after creation. IPAsset and MetadataURI
// are optional annotations set by the owning provider; setting them again
// overwrites the prior linkage.
type Plan struct {
	types.Entity
	ID          id.PlanID     `json:"id"`
	Provider    types.Address `json:"provider"`
	Price       types.Amount  `json:"price"`
	Interval    time.Duration `json:"interval"`
	Metadata    string        `json:"metadata,omitempty"`
	IPAsset     types.Address `json:"ip_asset,omitempty"`
	MetadataURI string        `json:"metadata_uri,omitempty"`
}
