package entropy

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/TrainProtocol/swapd/pkg/hashlock"
)

type fileService struct {
	path string
}

// NewFileService builds an entropy source backed by a file holding the
// hex-encoded entropy. The file is re-read on every use so a revoked or
// rotated key takes effect without a restart.
func NewFileService(path string) (hashlock.EntropySource, error) {
	if path == "" {
		return nil, fmt.Errorf("missing entropy file path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("entropy file: %w", err)
	}
	return &fileService{path}, nil
}

func (s *fileService) Entropy(ctx context.Context) ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read entropy file: %w", err)
	}
	entropy, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("invalid entropy: %w", err)
	}
	return entropy, nil
}
