package entropy

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/TrainProtocol/swapd/pkg/hashlock"
)

type envService struct {
	entropy []byte
}

// NewEnvService builds an entropy source from a hex-encoded value handed in
// through the environment. Suited for headless deployments where the
// wallet-bound entropy is provisioned out of band.
func NewEnvService(entropyHex string) (hashlock.EntropySource, error) {
	if entropyHex == "" {
		return nil, fmt.Errorf("missing entropy")
	}
	entropy, err := hex.DecodeString(entropyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid entropy: %w", err)
	}
	return &envService{entropy}, nil
}

func (s *envService) Entropy(ctx context.Context) ([]byte, error) {
	return s.entropy, nil
}
