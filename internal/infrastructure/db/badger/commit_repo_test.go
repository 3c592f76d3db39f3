package badgerdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TrainProtocol/swapd/internal/core/domain"
)

func newTestRepo(t *testing.T) domain.CommitStateRepository {
	t.Helper()
	repo, err := NewCommitStateRepository("", nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

func TestMergeCreatesOnFirstReference(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Get(ctx, "0xabc")
	require.ErrorIs(t, err, domain.ErrNotTracked)

	src := "ETHEREUM_SEPOLIA"
	state, err := repo.Merge(ctx, "0xabc", domain.CommitStatePatch{
		SourceNetwork: &src,
	})
	require.NoError(t, err)
	require.Equal(t, "0xabc", state.Id)
	require.Equal(t, src, state.SourceNetwork)
	require.NotZero(t, state.CreatedAt)

	got, err := repo.Get(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, src, got.SourceNetwork)
}

func TestMergePreservesUnpatchedFields(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	src, dest := "ETHEREUM_SEPOLIA", "STARKNET_SEPOLIA"
	_, err := repo.Merge(ctx, "0xabc", domain.CommitStatePatch{
		SourceNetwork:      &src,
		DestinationNetwork: &dest,
	})
	require.NoError(t, err)

	tx := "0xtx"
	state, err := repo.Merge(ctx, "0xabc", domain.CommitStatePatch{
		CommitTxId: &tx,
	})
	require.NoError(t, err)
	require.Equal(t, src, state.SourceNetwork)
	require.Equal(t, dest, state.DestinationNetwork)
	require.Equal(t, tx, state.CommitTxId)
}

func TestMergeExpiryLatchSurvivesRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	expired := true
	_, err := repo.Merge(ctx, "0xabc", domain.CommitStatePatch{
		IsTimelockExpired: &expired,
	})
	require.NoError(t, err)

	notExpired := false
	state, err := repo.Merge(ctx, "0xabc", domain.CommitStatePatch{
		IsTimelockExpired: &notExpired,
	})
	require.NoError(t, err)
	require.True(t, state.IsTimelockExpired)

	got, err := repo.Get(ctx, "0xabc")
	require.NoError(t, err)
	require.True(t, got.IsTimelockExpired)
}

func TestGetOpenFiltersFinishedSwaps(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tx := "0xtx"
	_, err := repo.Merge(ctx, "0xopen", domain.CommitStatePatch{CommitTxId: &tx})
	require.NoError(t, err)

	expired := true
	_, err = repo.Merge(ctx, "0xexpired", domain.CommitStatePatch{IsTimelockExpired: &expired})
	require.NoError(t, err)

	lock := "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
	_, err = repo.Merge(ctx, "0xredeemed", domain.CommitStatePatch{
		DestinationDetails: &domain.Commit{
			Id: "0xredeemed", Hashlock: lock, Claimed: domain.ClaimRedeemed,
		},
	})
	require.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	open, err := repo.GetOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "0xopen", open[0].Id)
}

func TestMergeStoresNestedDetails(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	lock := "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff00"
	_, err := repo.Merge(ctx, "0xabc", domain.CommitStatePatch{
		SourceDetails: &domain.Commit{
			Id: "0xabc", Sender: "0xuser", Hashlock: lock, Timelock: 1234,
		},
		DestinationDetailsByLightClient: &domain.LightClientDetails{
			Data: &domain.Commit{Id: "0xabc", Hashlock: lock},
		},
		Error: errPtr(&domain.CommitError{Message: "boom", ButtonText: "Retry"}),
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, "0xuser", got.SourceDetails.Sender)
	require.Equal(t, lock, got.SourceDetails.Hashlock)
	require.Equal(t, int64(1234), got.SourceDetails.Timelock)
	require.NotNil(t, got.DestinationDetailsByLightClient.Data)
	require.Equal(t, lock, got.DestinationDetailsByLightClient.Data.Hashlock)
	require.NotNil(t, got.Error)
	require.Equal(t, "boom", got.Error.Message)
}

func errPtr(e *domain.CommitError) **domain.CommitError {
	return &e
}
