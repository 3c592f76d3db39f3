package application

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/TrainProtocol/swapd/internal/core/domain"
	"github.com/TrainProtocol/swapd/internal/core/ports"
	"github.com/TrainProtocol/swapd/pkg/hashlock"
)

// runPoller refreshes a swap every poll interval: the solver's advisory view
// plus direct reads of both legs. It exits once the swap no longer needs
// tracking. Transient fetch errors are swallowed and retried on the next
// tick; they never surface to the user.
func (s *Service) runPoller(ctx context.Context, commitId string) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	logger := log.WithField("commitId", commitId)
	logger.Debug("poller started")

	// ticks since the solver reported a destination redeem the chain read
	// has not confirmed
	unconfirmedRedeemTicks := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			state, err := s.repo.Get(ctx, commitId)
			if err != nil {
				if errors.Is(err, domain.ErrNotTracked) {
					return err
				}
				logger.WithError(err).Warn("poller failed to read state")
				continue
			}

			if state.ClaimTxId != "" || !state.IsOpen() {
				logger.WithField("status", domain.ResolveStatus(state)).Debug("poller stopping")
				if !state.IsOpen() {
					s.schedulerSvc.Cancel(commitId)
				}
				return nil
			}

			state = s.pollOnce(ctx, state, logger)

			// reconciliation policy: the solver claiming a redeem the chain
			// never confirms keeps the swap open, but is flagged
			if state.CommitFromApi.Transaction(domain.TxTypeHTLCRedeem, state.DestinationNetwork) != nil &&
				(state.DestinationDetails == nil || state.DestinationDetails.Claimed != domain.ClaimRedeemed) {
				unconfirmedRedeemTicks++
				if unconfirmedRedeemTicks > 2 {
					logger.Warn("solver reports destination redeem not yet confirmed on-chain")
				}
			} else {
				unconfirmedRedeemTicks = 0
			}
		}
	}
}

// pollOnce performs one refresh round and returns the latest merged state.
func (s *Service) pollOnce(ctx context.Context, state *domain.CommitState, logger *log.Entry) *domain.CommitState {
	commitId := state.Id

	if swap, err := s.solverSvc.GetSwap(ctx, commitId); err != nil {
		logger.WithError(err).Debug("solver fetch failed")
	} else {
		patch := domain.CommitStatePatch{CommitFromApi: swap}
		// the solver's contract addresses fill gaps left by a resumed
		// session, never overwrite what the user supplied
		if state.SourceContract == "" && swap.SourceContractAddress != "" {
			patch.SourceContract = &swap.SourceContractAddress
		}
		if state.DestinationContract == "" && swap.DestinationContractAddress != "" {
			patch.DestinationContract = &swap.DestinationContractAddress
		}
		if merged, err := s.repo.Merge(ctx, commitId, patch); err != nil {
			logger.WithError(err).Warn("failed to merge solver view")
		} else {
			state = merged
		}
	}

	if leg := s.readLeg(ctx, state.SourceNetwork, ports.GetDetailsParams{
		Id:              commitId,
		ChainId:         state.SourceNetwork,
		ContractAddress: state.SourceContract,
		Type:            ports.AssetType(state.SourceAssetType),
	}, logger); leg != nil {
		if merged, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
			SourceDetails: leg,
		}); err != nil {
			logger.WithError(err).Warn("failed to merge source leg")
		} else {
			state = merged
		}
	}

	if leg := s.readLeg(ctx, state.DestinationNetwork, ports.GetDetailsParams{
		Id:              commitId,
		ChainId:         state.DestinationNetwork,
		ContractAddress: state.DestinationContract,
		Type:            ports.AssetType(state.DestinationAssetType),
	}, logger); leg != nil {
		if merged, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
			DestinationDetails: leg,
		}); err != nil {
			logger.WithError(err).Warn("failed to merge destination leg")
		} else {
			state = merged
		}
	}

	s.rearmTimelock(state)

	// record a blocking error as soon as the views diverge, without waiting
	// for the user to attempt an action
	// nolint:all
	s.checkHashlockMismatch(ctx, state)

	return state
}

// readLeg reads one leg through its chain adapter. Sentinel hashlocks are
// cleared so downstream consumers only ever see real locks. A nil result
// means "not yet available".
func (s *Service) readLeg(ctx context.Context, network string, params ports.GetDetailsParams, logger *log.Entry) *domain.Commit {
	if network == "" || params.ContractAddress == "" {
		return nil
	}
	adapter, err := s.adapters.Resolve(network)
	if err != nil {
		logger.WithError(err).Debug("no adapter for leg read")
		return nil
	}
	leg, err := adapter.GetDetails(ctx, params)
	if err != nil {
		if !errors.Is(err, domain.ErrNoResult) {
			logger.WithError(err).Debugf("leg read failed on %s", network)
		}
		return nil
	}
	if leg == nil {
		return nil
	}
	if hashlock.IsSentinel(leg.Hashlock) {
		leg.Hashlock = ""
	}
	return leg
}
