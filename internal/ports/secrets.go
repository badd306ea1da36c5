package ports

import "context"

// SecretReader resolves a secret reference such as a pass entry name.
type SecretReader interface {
	Get(ctx context.Context, ref string) (string, error)
}
