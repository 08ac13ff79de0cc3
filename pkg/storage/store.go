// Package storage persists the per-client rate limit counters as plain
// string key/value pairs.
package storage

import (
	"context"
)

// Store is a string key/value store
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type scopedStore struct {
	inner  Store
	prefix string
}

// Scoped prefixes every key with scope so one backend can hold the
// counters of many clients.
func Scoped(inner Store, scope string) Store {
	return &scopedStore{inner: inner, prefix: scope + "."}
}

func (s *scopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scopedStore) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}
