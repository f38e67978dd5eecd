package provider

import (
	"context"

	"github.com/xraph/escrow/types"
)

// Store is the persistence surface for the provider registry.
type Store interface {
	// Create registers a provider. Fails if the address is already registered.
	Create(ctx context.Context, p *Provider) error
	// Get returns the provider for an address, or a not-found error.
	Get(ctx context.Context, addr types.Address) (*Provider, error)
}
