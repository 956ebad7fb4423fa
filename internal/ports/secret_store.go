package ports

import "context"

// SecretReader looks up credentials referenced from configuration.
type SecretReader interface {
	Get(ctx context.Context, key string) (string, error)
}
