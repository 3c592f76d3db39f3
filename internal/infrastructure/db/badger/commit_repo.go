package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/timshannon/badgerhold/v4"

	"github.com/TrainProtocol/swapd/internal/core/domain"
)

const commitDir = "commit"

type commitStateRepository struct {
	store *badgerhold.Store

	// lock serializes read-modify-write merges so a merge is atomic from
	// the caller's point of view.
	lock sync.Mutex
}

func NewCommitStateRepository(baseDir string, logger badger.Logger) (domain.CommitStateRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, commitDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open commit store: %s", err)
	}
	return &commitStateRepository{store: store}, nil
}

func (r *commitStateRepository) Get(ctx context.Context, id string) (*domain.CommitState, error) {
	var state domain.CommitState
	err := r.store.Get(id, &state)
	if err == badgerhold.ErrNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotTracked, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commit state: %w", err)
	}
	return &state, nil
}

func (r *commitStateRepository) GetAll(ctx context.Context) ([]domain.CommitState, error) {
	var states []domain.CommitState
	if err := r.store.Find(&states, nil); err != nil {
		return nil, fmt.Errorf("failed to get all commit states: %w", err)
	}
	return states, nil
}

func (r *commitStateRepository) GetOpen(ctx context.Context) ([]domain.CommitState, error) {
	states, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]domain.CommitState, 0, len(states))
	for _, state := range states {
		if state.IsOpen() {
			open = append(open, state)
		}
	}
	return open, nil
}

// Merge applies the patch to the stored state under the repository lock,
// creating the record on first reference to the id.
func (r *commitStateRepository) Merge(
	ctx context.Context, id string, patch domain.CommitStatePatch,
) (*domain.CommitState, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	now := time.Now()

	var state domain.CommitState
	err := r.store.Get(id, &state)
	if err == badgerhold.ErrNotFound {
		state = domain.CommitState{Id: id, CreatedAt: now.Unix()}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get commit state: %w", err)
	}

	state.Apply(patch, now)

	if err := r.store.Upsert(id, state); err != nil {
		return nil, fmt.Errorf("failed to upsert commit state: %w", err)
	}
	return &state, nil
}

func (r *commitStateRepository) Close() {
	// nolint:all
	r.store.Close()
}

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)
		go func() {
			for range ticker.C {
				// nolint:all
				db.Badger().RunValueLogGC(0.5)
			}
		}()
	}

	return db, nil
}
