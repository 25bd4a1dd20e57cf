package resilience

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"gasroute/internal/opt"
)

// RedisCache shares the matrix cache across instances so multiple planners
// against one provider account reuse responses.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(url string) (*RedisCache, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{rdb: redis.NewClient(o)}, nil
}

func NewRedisCacheClient(rdb *redis.Client) *RedisCache { return &RedisCache{rdb: rdb} }

type redisMatrix struct {
	DistM  [][]float64 `json:"distM"`
	DurSec [][]float64 `json:"durSec"`
}

func (c *RedisCache) Get(ctx context.Context, key string) (opt.Matrix, bool) {
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return opt.Matrix{}, false
	}
	var rm redisMatrix
	if err := json.Unmarshal(data, &rm); err != nil {
		return opt.Matrix{}, false
	}
	return opt.Matrix{DistM: rm.DistM, DurSec: rm.DurSec}, true
}

func (c *RedisCache) Put(ctx context.Context, key string, m opt.Matrix, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(redisMatrix{DistM: m.DistM, DurSec: m.DurSec})
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, c.key(key), data, ttl).Err()
}

func (c *RedisCache) key(k string) string { return "matrix:" + k }
