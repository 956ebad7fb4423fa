// Package chain reads secrets from a primary backend and falls back to a
// second one, and resolves secret references found in configuration values.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	filestore "github.com/bnema/outreach-quota/internal/adapters/secrets/file"
	passstore "github.com/bnema/outreach-quota/internal/adapters/secrets/pass"
	"github.com/bnema/outreach-quota/internal/ports"
)

// RefPrefix marks a configuration value as a secret key rather than a literal.
const RefPrefix = "secret:"

type Store struct {
	primary  ports.SecretReader
	fallback ports.SecretReader
}

var _ ports.SecretReader = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

func NewStore(primary ports.SecretReader, fallback ports.SecretReader) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

func NewPassFirstWithFileFallback(fileRoot string) (*Store, error) {
	return NewStore(passstore.NewStore(), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

// Resolve returns value unchanged unless it starts with RefPrefix, in which
// case the rest is looked up in reader.
func Resolve(ctx context.Context, reader ports.SecretReader, value string) (string, error) {
	key, ok := strings.CutPrefix(strings.TrimSpace(value), RefPrefix)
	if !ok {
		return value, nil
	}
	if reader == nil {
		return "", fmt.Errorf("secret %q referenced but no secret store is configured", key)
	}

	resolved, err := reader.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve secret %q: %w", key, err)
	}
	return resolved, nil
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
