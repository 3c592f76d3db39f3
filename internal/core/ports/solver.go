package ports

import (
	"context"

	"github.com/TrainProtocol/swapd/internal/core/domain"
)

// AddLockSigRequest carries the user's countersignature over the add-lock
// message. Either the r/s/v triple or the raw signature array is set,
// depending on the chain's signature scheme.
type AddLockSigRequest struct {
	R              string   `json:"r,omitempty"`
	S              string   `json:"s,omitempty"`
	V              string   `json:"v,omitempty"`
	Signature      string   `json:"signature,omitempty"`
	SignatureArray []string `json:"signatureArray,omitempty"`
	Timelock       int64    `json:"timelock"`
}

// SolverClient is the off-chain solver/liquidity-provider API.
type SolverClient interface {
	// GetSwap fetches the solver's view of a swap.
	GetSwap(ctx context.Context, commitId string) (*domain.SolverSwap, error)

	// SubmitAddLockSig posts the user's add-lock countersignature.
	SubmitAddLockSig(ctx context.Context, commitId string, req AddLockSigRequest) error
}
