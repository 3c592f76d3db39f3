package ports

import (
	"context"

	"github.com/TrainProtocol/swapd/internal/core/domain"
)

// LightClient independently verifies destination-chain HTLC state through a
// trust-minimized client instead of a single RPC endpoint. One
// implementation per supported chain family.
type LightClient interface {
	// GetDetails reads the HTLC state for the given id. Implementations
	// return domain.ErrNoResult while the state is not yet provable.
	GetDetails(ctx context.Context, params GetDetailsParams) (*domain.Commit, error)

	// Close releases the underlying worker/process. Must be called on
	// success, on exhausted retries and on teardown; workers are scarce.
	Close()
}

// LightClientProvider creates a light client session for a network, or
// reports the network as unsupported. Verification degrades to a no-op when
// no provider supports the destination chain.
type LightClientProvider interface {
	Supports(network string) bool
	New(ctx context.Context, network string) (LightClient, error)
}

// LightClientRegistry looks up the provider for a network.
type LightClientRegistry struct {
	providers []LightClientProvider
}

func NewLightClientRegistry(providers ...LightClientProvider) *LightClientRegistry {
	return &LightClientRegistry{providers: providers}
}

// For returns the first provider supporting the network, or nil.
func (r *LightClientRegistry) For(network string) LightClientProvider {
	for _, p := range r.providers {
		if p.Supports(network) {
			return p
		}
	}
	return nil
}
