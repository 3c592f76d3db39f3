package hashlock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const SecretSize = 32

// EntropySource provides the stable, wallet-bound entropy the derivation is
// keyed on (e.g. a deterministic signature over a fixed message, or a
// passkey-derived key). It may fail when the wallet is not connected.
type EntropySource interface {
	Entropy(ctx context.Context) ([]byte, error)
}

// Secret is a derived swap secret together with its hashlock.
type Secret struct {
	Secret   []byte
	Hashlock []byte
}

// SecretHex returns the 0x-prefixed hex encoding of the secret.
func (s Secret) SecretHex() string {
	return "0x" + hex.EncodeToString(s.Secret)
}

// HashlockHex returns the 0x-prefixed hex encoding of the hashlock.
func (s Secret) HashlockHex() string {
	return "0x" + hex.EncodeToString(s.Hashlock)
}

// Derive computes the per-swap secret and hashlock from wallet entropy, the
// locking chain id and the swap timelock. The same inputs always yield the
// same pair, which is what allows redemption without persisting the secret:
//
//	initialKey = HKDF-SHA256(entropy, salt=chainID)
//	secret     = HKDF-SHA256(initialKey, salt=be64(timelock))
//	hashlock   = SHA256(secret)
func Derive(entropy []byte, chainID string, timelock uint64) (Secret, error) {
	if len(entropy) == 0 {
		return Secret{}, fmt.Errorf("empty entropy")
	}

	initialKey := make([]byte, SecretSize)
	if _, err := io.ReadFull(
		hkdf.New(sha256.New, entropy, []byte(chainID), nil), initialKey,
	); err != nil {
		return Secret{}, fmt.Errorf("derive initial key: %w", err)
	}

	timelockSalt := make([]byte, 8)
	binary.BigEndian.PutUint64(timelockSalt, timelock)

	secret := make([]byte, SecretSize)
	if _, err := io.ReadFull(
		hkdf.New(sha256.New, initialKey, timelockSalt, nil), secret,
	); err != nil {
		return Secret{}, fmt.Errorf("derive secret: %w", err)
	}

	hash := sha256.Sum256(secret)
	return Secret{Secret: secret, Hashlock: hash[:]}, nil
}

// DeriveFromSource pulls entropy from the source and derives the secret.
func DeriveFromSource(
	ctx context.Context, source EntropySource, chainID string, timelock uint64,
) (Secret, error) {
	entropy, err := source.Entropy(ctx)
	if err != nil {
		return Secret{}, fmt.Errorf("entropy source unavailable: %w", err)
	}
	if len(entropy) == 0 {
		return Secret{}, fmt.Errorf("entropy source returned no data")
	}
	return Derive(entropy, chainID, timelock)
}

// IsSentinel reports whether a hex-encoded hashlock is one of the reserved
// placeholder values some contracts return before a real lock is applied: an
// empty string, all-zero digits or all-"1" digits. A sentinel must always be
// treated as "no hashlock".
func IsSentinel(hashlock string) bool {
	h := strings.TrimPrefix(strings.TrimPrefix(hashlock, "0x"), "0X")
	if len(h) == 0 {
		return true
	}
	allZero, allOne := true, true
	for _, c := range h {
		if c != '0' {
			allZero = false
		}
		if c != '1' {
			allOne = false
		}
		if !allZero && !allOne {
			return false
		}
	}
	return true
}

// Equal compares two hex-encoded hashlocks ignoring 0x prefix and case.
// Sentinel values never compare equal to anything.
func Equal(a, b string) bool {
	if IsSentinel(a) || IsSentinel(b) {
		return false
	}
	return strings.EqualFold(normalize(a), normalize(b))
}

func normalize(h string) string {
	return strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
}
