package repository

import (
	"context"
	"time"
)

// CacheRepository stores serialized calculation results keyed by their
// inputs. A miss is reported as ok == false with a nil error.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
