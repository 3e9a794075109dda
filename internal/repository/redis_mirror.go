package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"OptiFeed/internal/domain/models"
	drepo "OptiFeed/internal/domain/repository"
)

// RedisMirrorConfig configures the latest-snapshot mirror.
type RedisMirrorConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisMirror keeps the most recent snapshot in Redis so dashboards and
// sibling services can read market state without hitting this process. Only
// the latest value is kept; the TTL lets the key age out if we stop.
type RedisMirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMirror connects and verifies the server with a ping.
func NewRedisMirror(cfg RedisMirrorConfig) (*RedisMirror, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "optifeed"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisMirror{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

func (m *RedisMirror) Publish(ctx context.Context, snap *models.MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, m.key("snapshot:latest"), data, m.ttl)
	for sym, quote := range snap.Underlyings {
		if spot, ok := quote.Spot(); ok {
			pipe.Set(ctx, m.key("spot:"+sym), spot, m.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror snapshot: %w", err)
	}
	return nil
}

// Latest reads back the mirrored snapshot, mainly for tooling.
func (m *RedisMirror) Latest(ctx context.Context) (*models.MarketSnapshot, error) {
	data, err := m.client.Get(ctx, m.key("snapshot:latest")).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNoSnapshot
		}
		return nil, err
	}
	var snap models.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}

func (m *RedisMirror) key(suffix string) string {
	return m.prefix + ":" + suffix
}

var _ drepo.SnapshotSink = (*RedisMirror)(nil)
