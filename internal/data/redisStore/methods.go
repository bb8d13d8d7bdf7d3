package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrKeyExists = errors.New("key already exists")

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	return count > 0, err
}

func (s *Store) ListGetAll(ctx context.Context, key string) ([]string, error) {
	return s.client.LRange(ctx, key, 0, -1).Result()
}

// ListAppend pushes values with one RPUSH and refreshes the ttl of every
// key in touch, all inside one MULTI.
func (s *Store) ListAppend(ctx context.Context, key string, ttl time.Duration, touch []string, values ...interface{}) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, ttl)
		for _, k := range touch {
			pipe.Expire(ctx, k, ttl)
		}
		return nil
	})
	return err
}

// CreateList writes metaKey and a fresh list under listKey unless metaKey
// already exists, in which case it returns ErrKeyExists and touches nothing.
func (s *Store) CreateList(ctx context.Context, listKey string, metaKey string, meta interface{}, ttl time.Duration, values ...interface{}) error {
	if len(values) == 0 {
		return errors.New("CreateList needs at least one value")
	}
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, metaKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrKeyExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, listKey)
			pipe.Set(ctx, metaKey, meta, ttl)
			pipe.RPush(ctx, listKey, values...)
			pipe.Expire(ctx, listKey, ttl)
			return nil
		})
		return err
	}, metaKey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrKeyExists
	}
	return err
}

// SetTouch sets key and refreshes the ttl of every key in touch in one MULTI.
func (s *Store) SetTouch(ctx context.Context, key string, value interface{}, ttl time.Duration, touch ...string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, ttl)
		for _, k := range touch {
			pipe.Expire(ctx, k, ttl)
		}
		return nil
	})
	return err
}
