package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "inkboard:doc:"

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client. The store closes it on Close.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to a redis URL such as redis://localhost:6379/0.
func DialRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, otherError(url, fmt.Errorf("failed to parse redis url: %w", err))
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, ioError(url, fmt.Errorf("failed to ping redis: %w", err))
	}
	return NewRedisStore(client), nil
}

func (s *RedisStore) Save(ctx context.Context, id string, data []byte) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisPrefix+id, data, 0).Err(); err != nil {
		return ioError(id, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	} else if err != nil {
		return nil, ioError(id, err)
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisPrefix+id).Result()
	if err != nil {
		return ioError(id, err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisPrefix+"*", 100).Result()
		if err != nil {
			return nil, ioError("", err)
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, redisPrefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, redisPrefix+id).Result()
	if err != nil {
		return false, ioError(id, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
