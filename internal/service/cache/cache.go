package cache

import (
	"context"
	"time"
)

// BytesCache stores raw provider responses with a TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key joins a namespace and parts into a cache key, e.g. "av:daily:AAPL".
func Key(namespace string, parts ...string) string {
	k := namespace
	for _, p := range parts {
		k += ":" + p
	}
	return k
}
