package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEntropyUnavailable means the secret derivation cannot proceed
	// because the wallet or passkey entropy source is not ready. Fatal for
	// the current attempt only.
	ErrEntropyUnavailable = errors.New("entropy source unavailable")

	// ErrHashlockMismatch means the light client and the RPC endpoint
	// disagree about the destination hashlock. The happy path is halted and
	// the user must wait for refund.
	ErrHashlockMismatch = errors.New("hashlock mismatch, please wait for refund")

	// ErrNoResult means a chain read returned nothing where a result was
	// expected. Treated as "not yet available" and re-polled, unless a
	// bounded retry budget is exhausted.
	ErrNoResult = errors.New("no result")

	// ErrNotTracked means no state exists for the given commit id.
	ErrNotTracked = errors.New("commit not tracked")

	// ErrActionNotAllowed means the requested on-chain action is not legal
	// in the swap's current status.
	ErrActionNotAllowed = errors.New("action not allowed in current status")
)

// AdapterErrorKind classifies failures surfaced by chain adapters.
type AdapterErrorKind int

const (
	// AdapterErrUnknown covers unclassified adapter failures.
	AdapterErrUnknown AdapterErrorKind = iota

	// AdapterErrUserDeclined means the wallet rejected the signature.
	// Recoverable, retry allowed.
	AdapterErrUserDeclined

	// AdapterErrAlreadyExists means the contract reports the action was
	// already performed. Terminal for that action; re-poll state instead.
	AdapterErrAlreadyExists

	// AdapterErrNetwork is a transient RPC or network failure, retryable
	// with backoff.
	AdapterErrNetwork
)

// ChainAdapterError wraps an underlying wallet/RPC error with a
// classification the orchestrator can act on.
type ChainAdapterError struct {
	Kind AdapterErrorKind
	Err  error
}

func (e *ChainAdapterError) Error() string {
	return fmt.Sprintf("chain adapter: %v", e.Err)
}

func (e *ChainAdapterError) Unwrap() error {
	return e.Err
}

// Retryable reports whether re-invoking the same action may succeed.
func (e *ChainAdapterError) Retryable() bool {
	return e.Kind == AdapterErrUserDeclined || e.Kind == AdapterErrNetwork
}

// ClassifyAdapterError best-effort classifies an adapter failure from its
// message when the adapter did not classify it itself.
func ClassifyAdapterError(err error) *ChainAdapterError {
	if err == nil {
		return nil
	}
	var adapterErr *ChainAdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr
	}

	msg := strings.ToLower(err.Error())
	kind := AdapterErrUnknown
	switch {
	case strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "user denied"),
		strings.Contains(msg, "rejected by user"):
		kind = AdapterErrUserDeclined
	case strings.Contains(msg, "already exists"),
		strings.Contains(msg, "already claimed"),
		strings.Contains(msg, "already redeemed"):
		kind = AdapterErrAlreadyExists
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "temporarily"):
		kind = AdapterErrNetwork
	}
	return &ChainAdapterError{Kind: kind, Err: err}
}
