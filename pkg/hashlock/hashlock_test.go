package hashlock

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticEntropy struct {
	data []byte
	err  error
}

func (s staticEntropy) Entropy(ctx context.Context) ([]byte, error) {
	return s.data, s.err
}

func TestDeriveDeterminism(t *testing.T) {
	entropy := make([]byte, 64)
	_, err := rand.Read(entropy)
	require.NoError(t, err)

	first, err := Derive(entropy, "ETHEREUM_SEPOLIA", 1700001100)
	require.NoError(t, err)
	second, err := Derive(entropy, "ETHEREUM_SEPOLIA", 1700001100)
	require.NoError(t, err)

	require.Equal(t, first.Secret, second.Secret)
	require.Equal(t, first.Hashlock, second.Hashlock)
	require.Len(t, first.Secret, SecretSize)

	hash := sha256.Sum256(first.Secret)
	require.Equal(t, hash[:], first.Hashlock)
}

func TestDeriveDomainSeparation(t *testing.T) {
	entropy := make([]byte, 64)
	_, err := rand.Read(entropy)
	require.NoError(t, err)

	base, err := Derive(entropy, "ETHEREUM_SEPOLIA", 1700001100)
	require.NoError(t, err)

	otherChain, err := Derive(entropy, "STARKNET_SEPOLIA", 1700001100)
	require.NoError(t, err)
	require.NotEqual(t, base.Secret, otherChain.Secret)

	otherTimelock, err := Derive(entropy, "ETHEREUM_SEPOLIA", 1700001101)
	require.NoError(t, err)
	require.NotEqual(t, base.Secret, otherTimelock.Secret)
}

func TestDeriveFromSourceUnavailable(t *testing.T) {
	_, err := DeriveFromSource(
		context.Background(),
		staticEntropy{err: errors.New("wallet disconnected")},
		"ETHEREUM_SEPOLIA", 1700001100,
	)
	require.Error(t, err)

	_, err = DeriveFromSource(
		context.Background(), staticEntropy{}, "ETHEREUM_SEPOLIA", 1700001100,
	)
	require.Error(t, err)
}

func TestIsSentinel(t *testing.T) {
	require.True(t, IsSentinel(""))
	require.True(t, IsSentinel("0x"))
	require.True(t, IsSentinel("0x0000000000000000000000000000000000000000000000000000000000000000"))
	require.True(t, IsSentinel("0x1111111111111111111111111111111111111111111111111111111111111111"))
	require.True(t, IsSentinel("000000"))

	require.False(t, IsSentinel("0x01"))
	require.False(t, IsSentinel("0xdeadbeef"))
	require.False(t, IsSentinel("0x1111111111111111111111111111111111111111111111111111111111111112"))
}

func TestEqual(t *testing.T) {
	require.True(t, Equal("0xAA11", "0xaa11"))
	require.True(t, Equal("AA11", "0xaa11"))
	require.False(t, Equal("0xAA11", "0xBB22"))

	// sentinels never match, not even themselves
	zero := "0x0000"
	require.False(t, Equal(zero, zero))
	require.False(t, Equal("", ""))
}
