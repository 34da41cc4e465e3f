package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yukikurage/team-todo-api/internal/clock"
	"github.com/yukikurage/team-todo-api/internal/config"
	"github.com/yukikurage/team-todo-api/internal/constants"
)

// Denylist remembers revoked token ids until the tokens would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryDenylist keeps revocations in process memory.
type MemoryDenylist struct {
	clock clock.Clock

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryDenylist(clk clock.Clock) *MemoryDenylist {
	return &MemoryDenylist{clock: clk, revoked: make(map[string]time.Time)}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	for id, exp := range d.revoked {
		if !exp.After(now) {
			delete(d.revoked, id)
		}
	}
	if until.After(now) {
		d.revoked[tokenID] = until
	}
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.revoked[tokenID]
	return ok && exp.After(d.clock.Now()), nil
}

// RedisDenylist stores revocations as expiring keys so every replica sees them.
type RedisDenylist struct {
	client *redis.Client
	clock  clock.Clock
}

// NewRedisDenylist connects to Redis and verifies the connection.
func NewRedisDenylist(ctx context.Context, cfg config.RedisConfig, clk clock.Clock) (*RedisDenylist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}
	return &RedisDenylist{client: client, clock: clk}, nil
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.clock.Now())
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, constants.RevokedTokenKeyPrefix+tokenID, "1", ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, constants.RevokedTokenKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDenylist) Close() error {
	return d.client.Close()
}
