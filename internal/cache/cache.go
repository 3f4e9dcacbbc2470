package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented cache with TTL, used for report summaries. A miss
// is (nil, false, nil); errors are reserved for backend failures, which
// callers treat as a miss anyway.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Noop satisfies Cache while caching nothing.
type Noop struct{}

func (Noop) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (Noop) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (Noop) Delete(_ context.Context, _ string) error {
	return nil
}
