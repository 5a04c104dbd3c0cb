package debuglog

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the log blob in a redis string and grows it with APPEND.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) AppendOption(ctx context.Context, name, value string) error {
	return s.client.Append(ctx, s.prefix+name, value).Err()
}

func (s *RedisStore) GetOption(ctx context.Context, name string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

func (s *RedisStore) DeleteOption(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.prefix+name).Err()
}
