package escrow

import "github.com/xraph/escrow/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// Config is re-exported from types package.
type Config = types.Config

// Entity is re-exported from types package.
type Entity = types.Entity

// ZeroAddress is re-exported from types package.
var ZeroAddress = types.ZeroAddress

// Re-export address and entity constructors
var (
	HexToAddress = types.HexToAddress
	NewEntity    = types.NewEntity
)
