package application

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/TrainProtocol/swapd/internal/core/domain"
	"github.com/TrainProtocol/swapd/internal/core/ports"
	"github.com/TrainProtocol/swapd/pkg/hashlock"
	"github.com/TrainProtocol/swapd/pkg/monitor"
)

// Options tunes the orchestrator's timers and fallbacks.
type Options struct {
	PollInterval        time.Duration
	TimelockGrace       time.Duration
	ManualClaimAfter    time.Duration
	LightClientAttempts uint64
	LightClientDelay    time.Duration
	NoAutoRelayNetworks map[string]bool
}

func DefaultOptions() Options {
	return Options{
		PollInterval:        5 * time.Second,
		TimelockGrace:       5 * time.Second,
		ManualClaimAfter:    30 * time.Second,
		LightClientAttempts: 15,
		LightClientDelay:    5 * time.Second,
	}
}

// Service is the swap session manager. It sequences the four on-chain
// actions, drives the poller, timelock monitor and light-client verifier for
// every tracked swap, and owns the single merge surface into the commit
// store. All collaborators are injected; there is no ambient state.
type Service struct {
	repo         domain.CommitStateRepository
	adapters     *ports.AdapterRegistry
	solverSvc    ports.SolverClient
	lightClients *ports.LightClientRegistry
	schedulerSvc ports.TimelockScheduler
	entropy      hashlock.EntropySource
	opts         Options

	workers *monitor.Monitor

	mu      sync.Mutex
	tracked map[string]*tracking
}

type tracking struct {
	poller   monitor.TaskHandle
	verifier monitor.TaskHandle

	// armedAt is the unix timestamp the expiry job is currently armed for,
	// zero when disarmed.
	armedAt int64
}

func NewService(
	repo domain.CommitStateRepository,
	adapters *ports.AdapterRegistry,
	solverSvc ports.SolverClient,
	lightClients *ports.LightClientRegistry,
	schedulerSvc ports.TimelockScheduler,
	entropy hashlock.EntropySource,
	opts Options,
) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.TimelockGrace <= 0 {
		opts.TimelockGrace = DefaultOptions().TimelockGrace
	}
	if opts.ManualClaimAfter <= 0 {
		opts.ManualClaimAfter = DefaultOptions().ManualClaimAfter
	}
	if opts.LightClientAttempts == 0 {
		opts.LightClientAttempts = DefaultOptions().LightClientAttempts
	}
	if opts.LightClientDelay <= 0 {
		opts.LightClientDelay = DefaultOptions().LightClientDelay
	}
	return &Service{
		repo:         repo,
		adapters:     adapters,
		solverSvc:    solverSvc,
		lightClients: lightClients,
		schedulerSvc: schedulerSvc,
		entropy:      entropy,
		opts:         opts,
		workers:      monitor.New(),
		tracked:      make(map[string]*tracking),
	}
}

// CommitParams describes a new swap to escrow on the source chain.
type CommitParams struct {
	ports.CreatePreHTLCParams

	// CommitId may carry the id of a previous attempt; if that swap is
	// already committed the call is a no-op.
	CommitId string

	SourceType          ports.AssetType
	DestinationType     ports.AssetType
	DestinationContract string
	DestinationAddress  string
	Timelock            int64
	Solver              string
}

// Commit escrows funds on the source chain and starts tracking the swap.
// Idempotent from the caller's perspective: re-invoking with an id that
// already committed returns the recorded transaction instead of issuing a
// duplicate contract call.
func (s *Service) Commit(ctx context.Context, params CommitParams) (*ports.CreatePreHTLCResult, error) {
	if params.Timelock <= time.Now().Unix() {
		return nil, fmt.Errorf("timelock must be in the future")
	}

	if params.CommitId != "" {
		state, err := s.repo.Get(ctx, params.CommitId)
		if err == nil && state.CommitTxId != "" {
			log.WithField("commitId", params.CommitId).Info("swap already committed")
			return &ports.CreatePreHTLCResult{
				Hash: state.CommitTxId, CommitId: state.Id,
			}, nil
		}
	}

	// the entropy source must be reachable before funds are escrowed,
	// otherwise the secret could never be re-derived for redemption
	if _, err := hashlock.DeriveFromSource(
		ctx, s.entropy, params.SourceChain, uint64(params.Timelock),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEntropyUnavailable, err)
	}

	adapter, err := s.adapters.Resolve(params.SourceChain)
	if err != nil {
		return nil, err
	}

	result, err := adapter.CreatePreHTLC(ctx, params.CreatePreHTLCParams)
	if err != nil {
		return nil, domain.ClassifyAdapterError(err)
	}

	if err := s.OnCommit(ctx, result.CommitId, result.Hash, params); err != nil {
		return nil, err
	}
	return result, nil
}

// OnCommit records a successful commit into durable state and begins
// tracking the swap. Safe to call again after a restart with the same ids.
func (s *Service) OnCommit(ctx context.Context, commitId, txId string, params CommitParams) error {
	srcType := string(defaultAssetType(params.SourceType))
	destType := string(defaultAssetType(params.DestinationType))
	address := params.DestinationAddress

	if _, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
		SourceNetwork:        &params.SourceChain,
		DestinationNetwork:   &params.DestinationChain,
		SourceAsset:          &params.SourceAsset,
		DestinationAsset:     &params.DestinationAsset,
		SourceContract:       &params.AtomicContract,
		DestinationContract:  &params.DestinationContract,
		DestinationAddress:   &address,
		SourceAssetType:      &srcType,
		DestinationAssetType: &destType,
		Solver:               &params.Solver,
		Timelock:             &params.Timelock,
		CommitTxId:           &txId,
	}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"commitId": commitId,
		"txId":     txId,
	}).Info("swap committed")

	return s.Track(ctx, commitId)
}

// Track starts the poller, light-client verifier and timelock monitor for a
// swap. It is a no-op for a swap already tracked.
func (s *Service) Track(ctx context.Context, commitId string) error {
	state, err := s.repo.Get(ctx, commitId)
	if err != nil {
		return err
	}
	if !state.IsOpen() {
		return nil
	}

	s.mu.Lock()
	if _, ok := s.tracked[commitId]; ok {
		s.mu.Unlock()
		return nil
	}
	t := &tracking{}
	s.tracked[commitId] = t
	s.mu.Unlock()

	t.poller = s.workers.Go("poll-"+commitId, func(ctx context.Context) error {
		return s.runPoller(ctx, commitId)
	})
	t.verifier = s.workers.Go("verify-"+commitId, func(ctx context.Context) error {
		return s.runVerifier(ctx, commitId, state.DestinationNetwork, state.DestinationContract)
	})

	// the poller exits when the swap closes; release its tracking record so
	// entries do not pile up over the session
	go func() {
		<-t.poller.Done()
		s.Untrack(commitId)
	}()

	s.rearmTimelock(state)
	return nil
}

// Untrack stops the swap's workers and cancels its expiry job. Called on
// terminal states and on teardown so no timer or worker outlives its swap.
func (s *Service) Untrack(commitId string) {
	s.mu.Lock()
	t, ok := s.tracked[commitId]
	if ok {
		delete(s.tracked, commitId)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	t.poller.Stop()
	t.verifier.Stop()
	s.schedulerSvc.Cancel(commitId)
}

// Resume restores tracking for every open swap found in the store. Called
// once at startup.
func (s *Service) Resume(ctx context.Context) error {
	open, err := s.repo.GetOpen(ctx)
	if err != nil {
		return err
	}
	for _, state := range open {
		if err := s.Track(ctx, state.Id); err != nil {
			log.WithError(err).Warnf("failed to resume tracking for swap %s", state.Id)
		}
	}
	if len(open) > 0 {
		log.Infof("resumed tracking for %d open swaps", len(open))
	}
	return nil
}

// AddLock attaches the derived hashlock to the source HTLC. Only legal once
// the solver's destination lock has been observed, and vetoed outright on a
// light-client hashlock mismatch.
func (s *Service) AddLock(ctx context.Context, commitId string) (*ports.AddLockResult, error) {
	state, err := s.repo.Get(ctx, commitId)
	if err != nil {
		return nil, err
	}

	if err := s.checkHashlockMismatch(ctx, state); err != nil {
		return nil, err
	}

	status := domain.ResolveStatus(state)
	if status != domain.StatusLpLockDetected {
		return nil, fmt.Errorf("%w: add-lock requires an observed counterparty lock, status is %s",
			domain.ErrActionNotAllowed, status)
	}

	timelock := s.sourceTimelock(state)
	if timelock == 0 {
		return nil, fmt.Errorf("source timelock unknown for swap %s", commitId)
	}

	secret, err := hashlock.DeriveFromSource(ctx, s.entropy, state.SourceNetwork, uint64(timelock))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEntropyUnavailable, err)
	}

	adapter, err := s.adapters.Resolve(state.SourceNetwork)
	if err != nil {
		return nil, err
	}

	result, err := adapter.AddLock(ctx, ports.AddLockParams{
		Id:              commitId,
		ChainId:         state.SourceNetwork,
		ContractAddress: state.SourceContract,
		Type:            ports.AssetType(state.SourceAssetType),
		Hashlock:        secret.HashlockHex(),
		Timelock:        timelock,
		SourceAsset:     state.SourceAsset,
		Solver:          state.Solver,
	})
	if err != nil {
		return nil, domain.ClassifyAdapterError(err)
	}

	userLocked := true
	if _, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
		UserLocked: &userLocked,
	}); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"commitId": commitId,
		"txId":     result.Hash,
	}).Info("add-lock submitted")
	return result, nil
}

// Claim redeems the destination HTLC with the re-derived secret. Legal once
// assets are locked on both legs, or when the manual-claim fallback holds.
func (s *Service) Claim(ctx context.Context, commitId string) (string, error) {
	state, err := s.repo.Get(ctx, commitId)
	if err != nil {
		return "", err
	}

	if err := s.checkHashlockMismatch(ctx, state); err != nil {
		return "", err
	}

	if state.IsTimelockExpired {
		return "", fmt.Errorf("%w: timelock expired, refund is the only remaining path",
			domain.ErrActionNotAllowed)
	}

	manual := domain.ManualClaimable(state, s.opts.NoAutoRelayNetworks, s.opts.ManualClaimAfter, time.Now())
	// the solver's add-lock-sig record may surface assets-locked for display
	// before the chain reads catch up; dispatching the claim needs both legs
	// locked on-chain
	if !state.BothLegsLocked() && !manual {
		return "", fmt.Errorf("%w: claim requires locked assets, status is %s",
			domain.ErrActionNotAllowed, domain.ResolveStatus(state))
	}

	timelock := s.sourceTimelock(state)
	if timelock == 0 {
		return "", fmt.Errorf("source timelock unknown for swap %s", commitId)
	}

	// the secret is re-derived here and nowhere stored; a cached secret
	// would be equivalent to a leaked private key for this timelock
	secret, err := hashlock.DeriveFromSource(ctx, s.entropy, state.SourceNetwork, uint64(timelock))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEntropyUnavailable, err)
	}

	adapter, err := s.adapters.Resolve(state.DestinationNetwork)
	if err != nil {
		return "", err
	}

	txId, err := adapter.Claim(ctx, ports.ClaimParams{
		Id:                 commitId,
		ChainId:            state.DestinationNetwork,
		ContractAddress:    state.DestinationContract,
		Type:               ports.AssetType(state.DestinationAssetType),
		Secret:             secret.SecretHex(),
		SourceAsset:        state.SourceAsset,
		DestinationAddress: state.DestinationAddress,
	})
	if err != nil {
		return "", domain.ClassifyAdapterError(err)
	}

	if _, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
		ClaimTxId: &txId,
	}); err != nil {
		return "", err
	}

	log.WithFields(log.Fields{
		"commitId": commitId,
		"txId":     txId,
		"manual":   manual,
	}).Info("claim submitted")
	return txId, nil
}

// Refund reclaims escrowed source funds. Legal only after the timelock
// monitor latched expiry and while the source leg is not already consumed.
func (s *Service) Refund(ctx context.Context, commitId string) (string, error) {
	state, err := s.repo.Get(ctx, commitId)
	if err != nil {
		return "", err
	}

	if !state.IsTimelockExpired {
		return "", fmt.Errorf("%w: refund requires an expired timelock", domain.ErrActionNotAllowed)
	}
	if state.SourceDetails.IsTerminal() {
		return "", fmt.Errorf("%w: source leg already claimed", domain.ErrActionNotAllowed)
	}

	adapter, err := s.adapters.Resolve(state.SourceNetwork)
	if err != nil {
		return "", err
	}

	var lock string
	if state.SourceDetails.HasHashlock() {
		lock = state.SourceDetails.Hashlock
	}
	txId, err := adapter.Refund(ctx, ports.RefundParams{
		Id:              commitId,
		ChainId:         state.SourceNetwork,
		ContractAddress: state.SourceContract,
		Type:            ports.AssetType(state.SourceAssetType),
		Hashlock:        lock,
		SourceAsset:     state.SourceAsset,
	})
	if err != nil {
		return "", domain.ClassifyAdapterError(err)
	}

	if _, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
		RefundTxId: &txId,
	}); err != nil {
		return "", err
	}

	log.WithFields(log.Fields{
		"commitId": commitId,
		"txId":     txId,
	}).Info("refund submitted")
	return txId, nil
}

// UpdateCommit is the single primitive for external callers to merge facts
// into a tracked swap.
func (s *Service) UpdateCommit(ctx context.Context, commitId string, patch domain.CommitStatePatch) (*domain.CommitState, error) {
	state, err := s.repo.Merge(ctx, commitId, patch)
	if err != nil {
		return nil, err
	}
	s.rearmTimelock(state)
	return state, nil
}

// Status resolves the swap's current discrete status.
func (s *Service) Status(ctx context.Context, commitId string) (domain.CommitStatus, error) {
	state, err := s.repo.Get(ctx, commitId)
	if err != nil {
		return domain.StatusCommit, err
	}
	return domain.ResolveStatus(state), nil
}

// State returns the full tracked state for a swap.
func (s *Service) State(ctx context.Context, commitId string) (*domain.CommitState, error) {
	return s.repo.Get(ctx, commitId)
}

// IsManualClaimable reports whether the manual-claim fallback currently
// applies to the swap.
func (s *Service) IsManualClaimable(ctx context.Context, commitId string) (bool, error) {
	state, err := s.repo.Get(ctx, commitId)
	if err != nil {
		return false, err
	}
	return domain.ManualClaimable(state, s.opts.NoAutoRelayNetworks, s.opts.ManualClaimAfter, time.Now()), nil
}

// RequestManualClaim flags the swap for a user-triggered destination claim.
func (s *Service) RequestManualClaim(ctx context.Context, commitId string) error {
	requested := true
	_, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
		ManualClaimRequested: &requested,
	})
	return err
}

// AckError clears the surfaced error for a swap. Errors are only ever
// cleared through acknowledgement.
func (s *Service) AckError(ctx context.Context, commitId string) error {
	var cleared *domain.CommitError
	_, err := s.repo.Merge(ctx, commitId, domain.CommitStatePatch{
		Error: &cleared,
	})
	return err
}

// ShareLink serializes the swap's progress into URL query parameters so the
// flow can resume from a shared link. The secret is never part of it.
func (s *Service) ShareLink(ctx context.Context, commitId string) (url.Values, error) {
	state, err := s.repo.Get(ctx, commitId)
	if err != nil {
		return nil, err
	}
	share := domain.ShareState{
		CommitId:         state.Id,
		TxId:             state.CommitTxId,
		Source:           state.SourceNetwork,
		Destination:      state.DestinationNetwork,
		SourceAsset:      state.SourceAsset,
		DestinationAsset: state.DestinationAsset,
		Address:          state.DestinationAddress,
		Solver:           state.Solver,
		SrcContract:      state.SourceContract,
		DestContract:     state.DestinationContract,
	}
	if state.SourceDetails != nil {
		share.Amount = state.SourceDetails.Amount
	}
	return share.Encode(), nil
}

// Stop tears the session manager down: every worker is cancelled and the
// expiry scheduler stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.tracked))
	for id := range s.tracked {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.schedulerSvc.Cancel(id)
	}
	s.workers.Stop()
	s.schedulerSvc.Stop()
}

// checkHashlockMismatch compares the light-client view of the destination
// hashlock against the RPC view. A disagreement between two non-sentinel
// values means one endpoint is lying about contract state; the happy path is
// halted and the blocking error recorded.
func (s *Service) checkHashlockMismatch(ctx context.Context, state *domain.CommitState) error {
	lc := state.DestinationDetailsByLightClient.Data
	rpc := state.DestinationDetails
	if !lc.HasHashlock() || !rpc.HasHashlock() {
		return nil
	}
	if hashlock.Equal(lc.Hashlock, rpc.Hashlock) {
		return nil
	}

	commitErr := &domain.CommitError{
		Message:    domain.ErrHashlockMismatch.Error(),
		ButtonText: "Wait for refund",
	}
	if _, err := s.repo.Merge(ctx, state.Id, domain.CommitStatePatch{
		Error: &commitErr,
	}); err != nil {
		log.WithError(err).Errorf("failed to record hashlock mismatch for swap %s", state.Id)
	}
	log.WithFields(log.Fields{
		"commitId":    state.Id,
		"lightClient": lc.Hashlock,
		"rpc":         rpc.Hashlock,
	}).Error("destination hashlock mismatch")
	return domain.ErrHashlockMismatch
}

func (s *Service) sourceTimelock(state *domain.CommitState) int64 {
	if state.SourceDetails != nil && state.SourceDetails.Timelock > 0 {
		return state.SourceDetails.Timelock
	}
	return state.Timelock
}

func defaultAssetType(t ports.AssetType) ports.AssetType {
	if t == "" {
		return ports.AssetNative
	}
	return t
}
