package application

import (
	"context"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/TrainProtocol/swapd/internal/core/domain"
	"github.com/TrainProtocol/swapd/internal/core/ports"
)

func pollerOptions() Options {
	opts := DefaultOptions()
	opts.PollInterval = 10 * time.Millisecond
	return opts
}

func seedSwap(t *testing.T, env *testEnv, id string, withContracts bool) {
	t.Helper()
	src, dest := srcNetwork, destNetwork
	timelock := time.Now().Unix() + 1100
	commitTx := "0xtx"
	patch := domain.CommitStatePatch{
		SourceNetwork:      &src,
		DestinationNetwork: &dest,
		Timelock:           &timelock,
		CommitTxId:         &commitTx,
	}
	if withContracts {
		srcContract, destContract := "0xsrcContract", "0xdstContract"
		patch.SourceContract = &srcContract
		patch.DestinationContract = &destContract
	}
	_, err := env.svc.UpdateCommit(context.Background(), id, patch)
	require.NoError(t, err)
}

func TestPollerStopsOnRedeem(t *testing.T) {
	env := newTestEnv(t, pollerOptions())
	const id = "0xp1"
	seedSwap(t, env, id, true)

	lock := "0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
	env.solver.swapFn = func(string) (*domain.SolverSwap, error) {
		return &domain.SolverSwap{
			SourceNetwork:      srcNetwork,
			DestinationNetwork: destNetwork,
			Transactions: []domain.SolverTransaction{
				{Type: domain.TxTypeHTLCRedeem, Hash: "0xr", Network: destNetwork},
			},
		}, nil
	}
	env.adapter.detailsFn = func(params ports.GetDetailsParams) (*domain.Commit, error) {
		leg := &domain.Commit{Id: id, Hashlock: lock}
		if params.ChainId == destNetwork {
			leg.Claimed = domain.ClaimRedeemed
		}
		return leg, nil
	}

	errCh := make(chan error, 1)
	go func() { errCh <- env.svc.runPoller(context.Background(), id) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after redeem completed")
	}

	state, err := env.svc.State(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, state.CommitFromApi)
	require.Equal(t, domain.ClaimRedeemed, state.DestinationDetails.Claimed)
	require.Equal(t, domain.StatusRedeemCompleted, domain.ResolveStatus(state))
	require.Contains(t, env.sched.canceled, id)
}

func TestPollerKeepsPollingOnUnconfirmedSolverRedeem(t *testing.T) {
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	env := newTestEnv(t, pollerOptions())
	const id = "0xp5"
	seedSwap(t, env, id, true)

	// the solver reports a destination redeem; chain reads never confirm it
	env.solver.swapFn = func(string) (*domain.SolverSwap, error) {
		return &domain.SolverSwap{
			DestinationNetwork: destNetwork,
			Transactions: []domain.SolverTransaction{
				{Type: domain.TxTypeHTLCRedeem, Hash: "0xr", Network: destNetwork},
			},
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- env.svc.runPoller(ctx, id) }()

	require.Eventually(t, func() bool {
		for _, entry := range hook.AllEntries() {
			if entry.Level == log.WarnLevel &&
				strings.Contains(entry.Message, "not yet confirmed") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// the swap stays open and the expiry job untouched
	state, err := env.svc.State(context.Background(), id)
	require.NoError(t, err)
	require.True(t, state.IsOpen())
	require.NotContains(t, env.sched.canceled, id)
}

func TestPollerStopsOnceClaimSubmitted(t *testing.T) {
	env := newTestEnv(t, pollerOptions())
	const id = "0xp2"
	seedSwap(t, env, id, true)

	claimTx := "0xclaim"
	_, err := env.svc.UpdateCommit(context.Background(), id, domain.CommitStatePatch{
		ClaimTxId: &claimTx,
	})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- env.svc.runPoller(context.Background(), id) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after claim submission")
	}
}

func TestPollerBackfillsContractsFromSolver(t *testing.T) {
	env := newTestEnv(t, pollerOptions())
	const id = "0xp3"
	seedSwap(t, env, id, false)

	env.solver.swapFn = func(string) (*domain.SolverSwap, error) {
		return &domain.SolverSwap{
			SourceContractAddress:      "0xsolverSrc",
			DestinationContractAddress: "0xsolverDst",
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- env.svc.runPoller(ctx, id) }()

	require.Eventually(t, func() bool {
		state, err := env.svc.State(context.Background(), id)
		return err == nil && state.SourceContract == "0xsolverSrc" &&
			state.DestinationContract == "0xsolverDst"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestPollerClearsSentinelHashlocks(t *testing.T) {
	env := newTestEnv(t, pollerOptions())
	const id = "0xp4"
	seedSwap(t, env, id, true)

	sentinel := "0x0000000000000000000000000000000000000000000000000000000000000000"
	env.adapter.detailsFn = func(params ports.GetDetailsParams) (*domain.Commit, error) {
		return &domain.Commit{Id: id, Hashlock: sentinel}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- env.svc.runPoller(ctx, id) }()

	require.Eventually(t, func() bool {
		state, err := env.svc.State(context.Background(), id)
		return err == nil && state.DestinationDetails != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	state, err := env.svc.State(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, state.DestinationDetails.Hashlock)
	// a sentinel lock is not a counterparty lock
	require.Equal(t, domain.StatusCommitted, domain.ResolveStatus(state))
}
