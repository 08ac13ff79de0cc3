package storage

import (
	"context"

	"go.uber.org/zap"
)

type fallbackStore struct {
	primary   Store
	secondary Store
	logger    *zap.Logger
}

// WithFallback serves from primary and switches to secondary for any call
// the primary fails.
func WithFallback(primary, secondary Store, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fallbackStore{primary: primary, secondary: secondary, logger: logger}
}

func (s *fallbackStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, ok, nil
	}
	s.logger.Warn("primary store read failed, using fallback", zap.String("key", key), zap.Error(err))
	return s.secondary.Get(ctx, key)
}

func (s *fallbackStore) Set(ctx context.Context, key, value string) error {
	err := s.primary.Set(ctx, key, value)
	if err == nil {
		return nil
	}
	s.logger.Warn("primary store write failed, using fallback", zap.String("key", key), zap.Error(err))
	return s.secondary.Set(ctx, key, value)
}
