// Package metadata is a small key/value table in the local client database.
// The session store keeps one row per session field here.
package metadata

import (
	"context"
)

// Repository reads and writes raw values by key. Get returns (nil, nil) for
// a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	ListPrefix(ctx context.Context, prefix string) (map[string][]byte, error)
}
