package sequence

import (
	"context"
	"fmt"

	"studiodesk/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

type Generator interface {
	NextTaskCode(ctx context.Context) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
	}
}

// NextTaskCode returns a human-facing code such as "TSK-000042".
func (g *RedisGenerator) NextTaskCode(ctx context.Context) (string, error) {
	seq, err := g.rdb.Incr(ctx, rediskey.BuildSequenceKey("task")).Result()
	if err != nil {
		return "", err
	}
	return FormatTaskCode(seq), nil
}

func FormatTaskCode(seq int64) string {
	return fmt.Sprintf("TSK-%06d", seq)
}
