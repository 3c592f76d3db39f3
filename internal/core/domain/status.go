package domain

import "time"

// CommitStatus is the discrete lifecycle state of a swap, derived from the
// accumulated facts in a CommitState.
type CommitStatus int

const (
	// StatusCommit is the initial state, nothing recorded yet.
	StatusCommit CommitStatus = iota

	// StatusCommitted means the source leg exists but no lock activity yet.
	StatusCommitted

	// StatusLpLockDetected means the destination leg shows a hashlock the
	// source leg does not mirror yet (the solver locked first).
	StatusLpLockDetected

	// StatusUserLocked means the user's add-lock has been accepted but the
	// mutual destination lock is not yet externally observable.
	StatusUserLocked

	// StatusAssetsLocked means both legs show a matching hashlock.
	StatusAssetsLocked

	// StatusTimelockExpired means the source timelock elapsed before full
	// completion; refund is the only remaining path.
	StatusTimelockExpired

	// StatusRedeemCompleted means the destination leg has been redeemed.
	StatusRedeemCompleted
)

func (s CommitStatus) String() string {
	switch s {
	case StatusCommit:
		return "commit"
	case StatusCommitted:
		return "committed"
	case StatusLpLockDetected:
		return "lp_lock_detected"
	case StatusUserLocked:
		return "user_locked"
	case StatusAssetsLocked:
		return "assets_locked"
	case StatusTimelockExpired:
		return "timelock_expired"
	case StatusRedeemCompleted:
		return "redeem_completed"
	default:
		return "unknown"
	}
}

// ResolveStatus maps the accumulated facts of a swap to one status. The
// checks form a strict precedence chain, highest priority first, which makes
// the result idempotent under out-of-order merges: re-applying an older fact
// can never move the status backwards past a higher-priority one.
func ResolveStatus(s *CommitState) CommitStatus {
	if s == nil {
		return StatusCommit
	}

	// destination redeemed on-chain, or the solver reports a redeem tx for
	// the destination network
	if s.DestinationDetails != nil && s.DestinationDetails.Claimed == ClaimRedeemed {
		return StatusRedeemCompleted
	}
	if s.CommitFromApi.Transaction(TxTypeHTLCRedeem, s.DestinationNetwork) != nil {
		return StatusRedeemCompleted
	}

	if s.IsTimelockExpired {
		return StatusTimelockExpired
	}

	// both legs locked on-chain, or the signature-based lock path went
	// through off-chain and the chain read is lagging
	if s.BothLegsLocked() {
		return StatusAssetsLocked
	}
	if s.CommitFromApi.Transaction(TxTypeHTLCAddLockSig, "") != nil {
		return StatusAssetsLocked
	}

	if s.UserLocked {
		return StatusUserLocked
	}

	if s.DestinationDetails.HasHashlock() {
		return StatusLpLockDetected
	}

	if s.SourceDetails != nil {
		return StatusCommitted
	}
	// a solver lock record alone never advances the swap past commit: a
	// claim must not be authorized before a source commit is confirmed
	if s.CommitTxId != "" || s.CommitFromApi.Transaction(TxTypeHTLCCommit, s.SourceNetwork) != nil {
		return StatusCommitted
	}

	return StatusCommit
}

// ManualClaimable reports whether the manual-claim fallback applies: assets
// are locked, the solver already consumed the source funds, the destination
// has not been redeemed, and either the destination chain never auto-relays
// or the auto-relay grace window has elapsed.
func ManualClaimable(s *CommitState, noAutoRelay map[string]bool, window time.Duration, now time.Time) bool {
	if s == nil {
		return false
	}
	if ResolveStatus(s) != StatusAssetsLocked {
		return false
	}
	if s.SourceDetails == nil || s.SourceDetails.Claimed != ClaimRedeemed {
		return false
	}
	if s.DestinationDetails != nil && s.DestinationDetails.Claimed == ClaimRedeemed {
		return false
	}
	if noAutoRelay[s.DestinationNetwork] {
		return true
	}
	if s.SourceClaimedAt == 0 {
		return false
	}
	return now.Sub(time.Unix(s.SourceClaimedAt, 0)) > window
}
