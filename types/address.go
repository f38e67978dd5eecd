package types

import "github.com/ethereum/go-ethereum/common"

// Address identifies providers, subscribers, IP assets and the admin.
// It is the 20-byte address type used by the host value-transfer layer.
type Address = common.Address

// ZeroAddress is the null identity. Entities keyed by an address treat it
// as "not present": a plan whose provider is the zero address does not exist.
var ZeroAddress = Address{}

// HexToAddress parses a hex string into an Address.
func HexToAddress(s string) Address { return common.HexToAddress(s) }
