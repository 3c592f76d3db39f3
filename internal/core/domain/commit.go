package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TrainProtocol/swapd/pkg/hashlock"
)

// ClaimStatus is the chain-reported terminal marker of an HTLC leg.
type ClaimStatus int

const (
	ClaimNone ClaimStatus = iota
	ClaimSourceLocked
	ClaimRefunded
	ClaimRedeemed
)

// Commit is the last known on-chain state of one HTLC leg.
type Commit struct {
	Id          string
	Sender      string
	SrcReceiver string
	Amount      decimal.Decimal
	Hashlock    string
	Secret      string
	Timelock    int64
	Claimed     ClaimStatus
	Ownership   string
}

// HasHashlock reports whether the leg carries a real hashlock. Reserved
// sentinel values (all-zero, all-"1") count as absent.
func (c *Commit) HasHashlock() bool {
	return c != nil && !hashlock.IsSentinel(c.Hashlock)
}

// IsTerminal reports whether the leg reached a state that forbids any
// further mutating action.
func (c *Commit) IsTerminal() bool {
	return c != nil && (c.Claimed == ClaimRefunded || c.Claimed == ClaimRedeemed)
}

// LightClientDetails is the independently verified view of the destination
// leg. Only one of Data and Error is set.
type LightClientDetails struct {
	Data  *Commit
	Error string
}

// CommitError is the last surfaced recoverable error for a swap; cleared on
// acknowledgement only.
type CommitError struct {
	Message    string
	ButtonText string
}

// CommitState is the full tracked state of one swap, keyed by commit id.
type CommitState struct {
	Id string

	SourceNetwork      string
	DestinationNetwork string
	SourceAsset        string
	DestinationAsset   string

	SourceContract       string
	DestinationContract  string
	DestinationAddress   string
	SourceAssetType      string
	DestinationAssetType string
	Solver               string

	// Timelock is the source timelock chosen at commit time, kept so the
	// secret can be re-derived before the first chain read lands.
	Timelock int64

	SourceDetails                   *Commit
	DestinationDetails              *Commit
	DestinationDetailsByLightClient LightClientDetails

	CommitFromApi *SolverSwap

	UserLocked           bool
	IsTimelockExpired    bool
	ManualClaimRequested bool

	CommitTxId string
	ClaimTxId  string
	RefundTxId string

	// SourceClaimedAt records when the source leg was first seen redeemed,
	// used to gate the manual-claim fallback window.
	SourceClaimedAt int64

	Error *CommitError

	CreatedAt int64
	UpdatedAt int64
}

// CommitStatePatch is a partial update. Nil fields are left untouched by
// Apply; set fields replace the current value wholesale.
type CommitStatePatch struct {
	SourceNetwork                   *string
	DestinationNetwork              *string
	SourceAsset                     *string
	DestinationAsset                *string
	SourceContract                  *string
	DestinationContract             *string
	DestinationAddress              *string
	SourceAssetType                 *string
	DestinationAssetType            *string
	Solver                          *string
	Timelock                        *int64
	SourceDetails                   *Commit
	DestinationDetails              *Commit
	DestinationDetailsByLightClient *LightClientDetails
	CommitFromApi                   *SolverSwap
	UserLocked                      *bool
	IsTimelockExpired               *bool
	ManualClaimRequested            *bool
	CommitTxId                      *string
	ClaimTxId                       *string
	RefundTxId                      *string
	SourceClaimedAt                 *int64
	Error                           **CommitError
}

// Apply shallow-merges the patch into the state. This is the only mutation
// primitive; all concurrent writers funnel through it.
func (s *CommitState) Apply(patch CommitStatePatch, now time.Time) {
	if patch.SourceNetwork != nil {
		s.SourceNetwork = *patch.SourceNetwork
	}
	if patch.DestinationNetwork != nil {
		s.DestinationNetwork = *patch.DestinationNetwork
	}
	if patch.SourceAsset != nil {
		s.SourceAsset = *patch.SourceAsset
	}
	if patch.DestinationAsset != nil {
		s.DestinationAsset = *patch.DestinationAsset
	}
	if patch.SourceContract != nil {
		s.SourceContract = *patch.SourceContract
	}
	if patch.DestinationContract != nil {
		s.DestinationContract = *patch.DestinationContract
	}
	if patch.DestinationAddress != nil {
		s.DestinationAddress = *patch.DestinationAddress
	}
	if patch.SourceAssetType != nil {
		s.SourceAssetType = *patch.SourceAssetType
	}
	if patch.DestinationAssetType != nil {
		s.DestinationAssetType = *patch.DestinationAssetType
	}
	if patch.Solver != nil {
		s.Solver = *patch.Solver
	}
	if patch.Timelock != nil {
		s.Timelock = *patch.Timelock
	}
	if patch.SourceDetails != nil {
		s.SourceDetails = patch.SourceDetails
	}
	if patch.DestinationDetails != nil {
		s.DestinationDetails = patch.DestinationDetails
	}
	if patch.DestinationDetailsByLightClient != nil {
		s.DestinationDetailsByLightClient = *patch.DestinationDetailsByLightClient
	}
	if patch.CommitFromApi != nil {
		s.CommitFromApi = patch.CommitFromApi
	}
	if patch.UserLocked != nil {
		s.UserLocked = *patch.UserLocked
	}
	if patch.IsTimelockExpired != nil {
		// expiry latches: once set it is never reset for the same swap
		if *patch.IsTimelockExpired {
			s.IsTimelockExpired = true
		}
	}
	if patch.ManualClaimRequested != nil {
		s.ManualClaimRequested = *patch.ManualClaimRequested
	}
	if patch.CommitTxId != nil {
		s.CommitTxId = *patch.CommitTxId
	}
	if patch.ClaimTxId != nil {
		s.ClaimTxId = *patch.ClaimTxId
	}
	if patch.RefundTxId != nil {
		s.RefundTxId = *patch.RefundTxId
	}
	if patch.SourceClaimedAt != nil {
		s.SourceClaimedAt = *patch.SourceClaimedAt
	}
	if patch.Error != nil {
		s.Error = *patch.Error
	}
	if s.SourceClaimedAt == 0 && s.SourceDetails != nil &&
		s.SourceDetails.Claimed == ClaimRedeemed {
		s.SourceClaimedAt = now.Unix()
	}
	s.UpdatedAt = now.Unix()
}

// AckError clears the surfaced error. Errors are never cleared implicitly.
func (s *CommitState) AckError() {
	s.Error = nil
}

// BothLegsLocked reports whether both legs show a matching non-sentinel
// hashlock.
func (s *CommitState) BothLegsLocked() bool {
	if s.SourceDetails == nil || s.DestinationDetails == nil {
		return false
	}
	return hashlock.Equal(s.SourceDetails.Hashlock, s.DestinationDetails.Hashlock)
}

// IsOpen reports whether the swap still needs tracking (poller, monitors).
// Only on-chain facts close a swap: a solver-reported redeem may surface in
// the displayed status, but the swap stays open until the chain confirms it.
func (s *CommitState) IsOpen() bool {
	redeemed := s.DestinationDetails != nil && s.DestinationDetails.Claimed == ClaimRedeemed
	return !redeemed && !s.IsTimelockExpired
}

// CommitStateRepository stores the per-swap states tracked by the daemon.
type CommitStateRepository interface {
	// Get retrieves a state by commit id.
	Get(ctx context.Context, id string) (*CommitState, error)

	// GetAll retrieves every tracked state.
	GetAll(ctx context.Context) ([]CommitState, error)

	// GetOpen retrieves states that still need tracking.
	GetOpen(ctx context.Context) ([]CommitState, error)

	// Merge atomically applies the patch to the state with the given id,
	// creating the record on first reference, and returns the merged value.
	Merge(ctx context.Context, id string, patch CommitStatePatch) (*CommitState, error)

	// Close closes the repository.
	Close()
}
