package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/camlink/internal/ports"
)

var errNoReaders = errors.New("no secret readers configured")

// Chain asks each reader in turn and returns the first value found.
type Chain struct {
	readers []ports.SecretReader
}

var _ ports.SecretReader = (*Chain)(nil)

func NewChain(readers ...ports.SecretReader) *Chain {
	return &Chain{readers: readers}
}

// NewPassFirstWithFileFallback reads from pass and then from files under fileRoot.
func NewPassFirstWithFileFallback(fileRoot string) *Chain {
	return NewChain(NewPassStore(), NewFileStore(fileRoot))
}

func (c *Chain) Get(ctx context.Context, ref string) (string, error) {
	if len(c.readers) == 0 {
		return "", errNoReaders
	}

	var errs []error
	for _, reader := range c.readers {
		value, err := reader.Get(ctx, ref)
		if err == nil {
			return value, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		errs = append(errs, err)
	}
	return "", fmt.Errorf("resolve secret %q: %w", ref, errors.Join(errs...))
}
