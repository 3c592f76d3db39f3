package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/TrainProtocol/swapd/internal/core/domain"
)

// rearmTimelock keeps the expiry job for a swap consistent with its latest
// state: armed at timelock+grace while a refund could still be needed,
// disarmed once expiry latched or both legs locked (redemption, not refund,
// is then the terminal path).
func (s *Service) rearmTimelock(state *domain.CommitState) {
	if state == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tracked[state.Id]
	if !ok {
		return
	}

	if state.IsTimelockExpired || state.BothLegsLocked() {
		if t.armedAt != 0 {
			s.schedulerSvc.Cancel(state.Id)
			t.armedAt = 0
		}
		return
	}

	timelock := s.sourceTimelock(state)
	if timelock == 0 {
		return
	}

	at := timelock + int64(s.opts.TimelockGrace/time.Second)
	if t.armedAt == at {
		return
	}

	commitId := state.Id
	if err := s.schedulerSvc.ScheduleExpiry(
		commitId, time.Unix(at, 0), func() { s.onTimelockExpired(commitId) },
	); err != nil {
		log.WithError(err).Warnf("failed to arm timelock expiry for swap %s", commitId)
		return
	}
	t.armedAt = at
}

// onTimelockExpired latches expiry for a swap. Fires at most once per swap
// id: a second invocation finds the latch already set and returns.
func (s *Service) onTimelockExpired(commitId string) {
	ctx := context.Background()

	state, err := s.repo.Get(ctx, commitId)
	if err != nil {
		log.WithError(err).Warnf("timelock fired for unknown swap %s", commitId)
		return
	}
	if state.IsTimelockExpired {
		return
	}
	// the destination lock may have landed between arming and firing
	if state.BothLegsLocked() {
		return
	}
	// only the chain-confirmed redeem waives the refund window; a solver
	// redeem record alone must not
	if state.DestinationDetails != nil && state.DestinationDetails.Claimed == domain.ClaimRedeemed {
		return
	}

	expired := true
	patch := domain.CommitStatePatch{IsTimelockExpired: &expired}

	// a counterparty lock was observed but the window closed without full
	// completion; this needs the user's attention, not just a status flip
	if state.DestinationDetails.HasHashlock() {
		commitErr := &domain.CommitError{
			Message:    "the swap was not completed before the timelock expired; wait for the refund window",
			ButtonText: "Refund",
		}
		patch.Error = &commitErr
	}

	if _, err := s.repo.Merge(ctx, commitId, patch); err != nil {
		log.WithError(err).Errorf("failed to latch timelock expiry for swap %s", commitId)
		return
	}

	log.WithField("commitId", commitId).Warn("timelock expired, refund unlocked")
}
