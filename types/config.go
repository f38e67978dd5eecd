package types

import "time"

// DefaultProtocolFeeBps is the protocol fee applied when none is configured
// explicitly: 250 basis points (2.5%).
const DefaultProtocolFeeBps = 250

// Config is the protocol configuration written exactly once at
// initialization. Admin is the only identity allowed to distribute
// royalties; FeeBps is immutable after initialization.
type Config struct {
	Admin         Address   `json:"admin"`
	FeeBps        uint64    `json:"fee_bps"`
	InitializedAt time.Time `json:"initialized_at"`
}
