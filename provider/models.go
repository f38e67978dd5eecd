// Package provider holds the provider registry model.
package provider

import (
	"github.com/xraph/escrow/types"
)

// MaxNameLen is the longest registration name accepted, in bytes.
const MaxNameLen = 100

// Provider is an identity authorized to create billing plans.
// Registration is permanent; providers are never removed.
type Provider struct {
	types.Entity
	Address types.Address `json:"address"`
	Name    string        `json:"name"`
}
