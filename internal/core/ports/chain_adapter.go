package ports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/TrainProtocol/swapd/internal/core/domain"
)

// AssetType distinguishes token-contract HTLCs from native-asset ones.
type AssetType string

const (
	AssetERC20  AssetType = "erc20"
	AssetNative AssetType = "native"
)

type CreatePreHTLCParams struct {
	SourceChain          string
	DestinationChain     string
	SourceAsset          string
	DestinationAsset     string
	Amount               decimal.Decimal
	Decimals             int
	Address              string
	SrcLpAddress         string
	AtomicContract       string
	TokenContractAddress string
}

type CreatePreHTLCResult struct {
	Hash     string
	CommitId string
}

type GetDetailsParams struct {
	Id              string
	ChainId         string
	ContractAddress string
	Type            AssetType
}

type AddLockParams struct {
	Id              string
	ChainId         string
	ContractAddress string
	Type            AssetType
	Hashlock        string
	Timelock        int64
	SourceAsset     string
	Solver          string
}

type AddLockResult struct {
	Hash   string
	Result any
}

type ClaimParams struct {
	Id                 string
	ChainId            string
	ContractAddress    string
	Type               AssetType
	Secret             string
	SourceAsset        string
	DestinationAddress string
}

type RefundParams struct {
	Id              string
	ChainId         string
	ContractAddress string
	Type            AssetType
	Hashlock        string
	SourceAsset     string
}

// ChainAdapter is the per-chain-family capability the orchestrator drives.
// Implementations wrap a chain's PHTLC contract and wallet SDK; they are
// consumed opaquely and selected through the AdapterRegistry.
type ChainAdapter interface {
	// CreatePreHTLC escrows funds on the source chain and registers the
	// swap parameters. The returned commit id keys the HTLC on-chain.
	CreatePreHTLC(ctx context.Context, params CreatePreHTLCParams) (*CreatePreHTLCResult, error)

	// GetDetails reads the current HTLC state for the given id. A nil
	// result means the HTLC is not (yet) visible.
	GetDetails(ctx context.Context, params GetDetailsParams) (*domain.Commit, error)

	// AddLock attaches the hashlock to an already-committed HTLC, directly
	// or via a signed message.
	AddLock(ctx context.Context, params AddLockParams) (*AddLockResult, error)

	// Claim redeems the HTLC by revealing the secret.
	Claim(ctx context.Context, params ClaimParams) (string, error)

	// Refund reclaims funds after timelock expiry.
	Refund(ctx context.Context, params RefundParams) (string, error)
}

// AdapterRegistry resolves the adapter for a network. Bindings are resolved
// once at startup from static network configuration, not duck-typed at call
// time.
type AdapterRegistry struct {
	families map[string]ChainAdapter
	networks map[string]string
}

func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{
		families: make(map[string]ChainAdapter),
		networks: make(map[string]string),
	}
}

// RegisterFamily registers the adapter implementation for a chain family
// (e.g. evm, starknet, solana).
func (r *AdapterRegistry) RegisterFamily(family string, adapter ChainAdapter) {
	r.families[family] = adapter
}

// BindNetwork maps a network identifier to its chain family.
func (r *AdapterRegistry) BindNetwork(network, family string) {
	r.networks[network] = family
}

// Resolve returns the adapter serving the given network.
func (r *AdapterRegistry) Resolve(network string) (ChainAdapter, error) {
	family, ok := r.networks[network]
	if !ok {
		return nil, fmt.Errorf("no chain family bound for network %s", network)
	}
	adapter, ok := r.families[family]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for family %s", family)
	}
	return adapter, nil
}
