package redisStore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

const ioTimeout = 5 * time.Second

var (
	stores    = make(map[int]*Store)
	mu        sync.Mutex
	closeOnce sync.Once
	logger    = logger_i.NewLogger("Redis Store")
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

type Store struct {
	client *redis.Client
	db     int
}

// GetRedisStore hands out one Store per database, nil when redis cannot be
// reached. Stores close when ctx ends.
func GetRedisStore(ctx context.Context, opts Options) *Store {
	mu.Lock()
	defer mu.Unlock()

	if s, ok := stores[opts.DB]; ok {
		return s
	}
	s, err := connect(ctx, opts)
	if err != nil {
		logger.Error("Redis is offline", "addr", opts.Addr, "db", opts.DB, "error", err)
		return nil
	}
	stores[opts.DB] = s
	closeOnce.Do(func() { go closeOnDone(ctx) })
	logger.Info("Redis store ready", "addr", opts.Addr, "db", opts.DB)
	return s
}

func connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		opts.Addr = config.RedisAddr
	}
	client := redis.NewClient(&redis.Options{
		Addr:                  opts.Addr,
		Password:              opts.Password,
		DB:                    opts.DB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           ioTimeout,
		WriteTimeout:          ioTimeout,
	})
	s := &Store{client: client, db: opts.DB}
	if err := s.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// Ping bounds the check by RedisPingTimeout whatever ctx allows.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, config.RedisPingTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis db %d ping: %w", s.db, err)
	}
	return nil
}

func closeOnDone(ctx context.Context) {
	<-ctx.Done()
	mu.Lock()
	defer mu.Unlock()
	for db, s := range stores {
		if err := s.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", db, "error", err)
		}
		delete(stores, db)
	}
	logger.Info("Redis stores closed")
}

// NewTestStore wraps a client pointed at miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}
