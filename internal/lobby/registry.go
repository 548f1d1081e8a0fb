package lobby

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Registry reserves room codes so a code is only ever hosted once.
type Registry interface {
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
}

type MemoryRegistry struct {
	rooms sync.Map
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{}
}

func (m *MemoryRegistry) Reserve(ctx context.Context, code string) (bool, error) {
	_, loaded := m.rooms.LoadOrStore(code, struct{}{})
	return !loaded, nil
}

func (m *MemoryRegistry) Release(ctx context.Context, code string) error {
	m.rooms.Delete(code)
	return nil
}

// RedisRegistry shares reservations between lobby instances. Keys expire
// after ttl in case an instance dies without releasing them.
type RedisRegistry struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRegistry(rdb *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{rdb: rdb, ttl: ttl}
}

// ConnectRedis parses url and checks the server answers.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func roomKey(code string) string {
	return fmt.Sprintf("pong:room:%s", code)
}

func (r *RedisRegistry) Reserve(ctx context.Context, code string) (bool, error) {
	return r.rdb.SetNX(ctx, roomKey(code), "1", r.ttl).Result()
}

func (r *RedisRegistry) Release(ctx context.Context, code string) error {
	return r.rdb.Del(ctx, roomKey(code)).Err()
}
