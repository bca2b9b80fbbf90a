// Package freeze holds the global scoring freeze flag toggled by the weekly
// scheduler.
package freeze

import (
	"context"
	"errors"
	"sync"

	"studiodesk/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("freeze.flag",
	fx.Provide(NewRedisStore),
)

type Store interface {
	IsFrozen(ctx context.Context) (bool, error)
	SetFrozen(ctx context.Context, frozen bool) error
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) Store {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) IsFrozen(ctx context.Context) (bool, error) {
	v, err := s.rdb.Get(ctx, rediskey.BuildFreezeFlagKey()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *RedisStore) SetFrozen(ctx context.Context, frozen bool) error {
	v := "0"
	if frozen {
		v = "1"
	}
	return s.rdb.Set(ctx, rediskey.BuildFreezeFlagKey(), v, 0).Err()
}

// Current reads the flag and treats any failure as not frozen.
func Current(ctx context.Context, s Store) bool {
	if s == nil {
		return false
	}
	frozen, err := s.IsFrozen(ctx)
	if err != nil {
		zap.L().Warn("failed to read freeze flag, assuming not frozen", zap.Error(err))
		return false
	}
	return frozen
}

// MemoryStore keeps the flag in process.
type MemoryStore struct {
	mu     sync.RWMutex
	frozen bool
}

func (s *MemoryStore) IsFrozen(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen, nil
}

func (s *MemoryStore) SetFrozen(_ context.Context, frozen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = frozen
	return nil
}
