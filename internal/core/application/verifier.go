package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/TrainProtocol/swapd/internal/core/domain"
	"github.com/TrainProtocol/swapd/internal/core/ports"
)

// runVerifier independently confirms the destination hashlock through a
// trust-minimized light client. No provider for the destination chain means
// verification degrades to a no-op. The read is retried on a constant delay
// until the hashlock is a real value or the attempt budget is spent; the
// client session is closed on every exit path.
func (s *Service) runVerifier(ctx context.Context, commitId, network, contract string) error {
	logger := log.WithFields(log.Fields{"commitId": commitId, "network": network})

	if s.lightClients == nil {
		return nil
	}
	provider := s.lightClients.For(network)
	if provider == nil {
		logger.Debug("no light client for destination network, skipping verification")
		return nil
	}

	client, err := provider.New(ctx, network)
	if err != nil {
		s.recordVerifierError(ctx, commitId, fmt.Errorf("light client init: %w", err))
		return err
	}
	defer client.Close()

	state, err := s.repo.Get(ctx, commitId)
	if err != nil {
		return err
	}
	if contract == "" {
		contract = state.DestinationContract
	}

	var details *domain.Commit
	operation := func() error {
		got, err := client.GetDetails(ctx, ports.GetDetailsParams{
			Id:              commitId,
			ChainId:         network,
			ContractAddress: contract,
			Type:            ports.AssetType(state.DestinationAssetType),
		})
		if err != nil {
			return err
		}
		if got == nil || !got.HasHashlock() {
			return domain.ErrNoResult
		}
		details = got
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(s.opts.LightClientDelay),
			s.opts.LightClientAttempts-1,
		),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		logger.WithError(err).Warn("light client verification gave up")
		s.recordVerifierError(ctx, commitId, err)
		return err
	}

	merged, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
		DestinationDetailsByLightClient: &domain.LightClientDetails{Data: details},
	})
	if err != nil {
		return err
	}

	logger.WithField("hashlock", details.Hashlock).Info("destination hashlock verified by light client")

	// the verified value is authoritative; flag a disagreement with the RPC
	// view immediately
	// nolint:all
	s.checkHashlockMismatch(ctx, merged)
	return nil
}

func (s *Service) recordVerifierError(ctx context.Context, commitId string, cause error) {
	if _, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
		DestinationDetailsByLightClient: &domain.LightClientDetails{Error: cause.Error()},
	}); err != nil {
		log.WithError(err).Errorf("failed to record light client error for swap %s", commitId)
	}
}
