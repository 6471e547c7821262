package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"StockLens/internal/stock"
)

// Store is a second-level cache for stock snapshots shared across processes.
type Store interface {
	// Load reports false on a miss.
	Load(ctx context.Context, symbol string) (stock.Snapshot, bool, error)
	Save(ctx context.Context, snap stock.Snapshot) error
	Delete(ctx context.Context, symbol string) error
	Close() error
}

// NoopStore never holds anything.
type NoopStore struct{}

func (NoopStore) Load(context.Context, string) (stock.Snapshot, bool, error) {
	return stock.Snapshot{}, false, nil
}
func (NoopStore) Save(context.Context, stock.Snapshot) error { return nil }
func (NoopStore) Delete(context.Context, string) error       { return nil }
func (NoopStore) Close() error                               { return nil }

// RedisStore keeps JSON snapshots in Redis with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration, log *logrus.Entry) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	log.WithFields(logrus.Fields{"addr": addr, "ttl": ttl}).Info("redis snapshot store connected")
	return &RedisStore{client: client, ttl: ttl, log: log}, nil
}

func snapshotKey(symbol string) string {
	return fmt.Sprintf("stocklens:stock:%s", symbol)
}

func (s *RedisStore) Load(ctx context.Context, symbol string) (stock.Snapshot, bool, error) {
	data, err := s.client.Get(ctx, snapshotKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return stock.Snapshot{}, false, nil
	}
	if err != nil {
		return stock.Snapshot{}, false, fmt.Errorf("redis get %s: %w", symbol, err)
	}
	snap, err := stock.DecodeSnapshot(data)
	if err != nil {
		return stock.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *RedisStore) Save(ctx context.Context, snap stock.Snapshot) error {
	data, err := stock.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Symbol, err)
	}
	if err := s.client.Set(ctx, snapshotKey(snap.Symbol), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", snap.Symbol, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, symbol string) error {
	if err := s.client.Del(ctx, snapshotKey(symbol)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", symbol, err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
