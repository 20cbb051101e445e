// Package callguard makes call-end processing idempotent per call id.
package callguard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a processed call id is remembered.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "dreamseed:call:"

// Guard hands out at most one claim per call id within its TTL.
type Guard interface {
	// Claim returns true when the caller is the first to claim callID.
	Claim(ctx context.Context, callID string) (bool, error)
	// Release forgets a claim so a failed call can be retried.
	Release(ctx context.Context, callID string) error
}

// Redis shares claims across replicas.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (g *Redis) Claim(ctx context.Context, callID string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, keyPrefix+callID, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim call %s: %w", callID, err)
	}
	return ok, nil
}

func (g *Redis) Release(ctx context.Context, callID string) error {
	if err := g.rdb.Del(ctx, keyPrefix+callID).Err(); err != nil {
		return fmt.Errorf("release call %s: %w", callID, err)
	}
	return nil
}

func (g *Redis) Close() error {
	return g.rdb.Close()
}

// Memory keeps claims in process. Used when Redis is not configured; it only
// deduplicates deliveries reaching the same replica.
type Memory struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	claims map[string]time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now, claims: map[string]time.Time{}}
}

func (g *Memory) Claim(_ context.Context, callID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for id, exp := range g.claims {
		if now.After(exp) {
			delete(g.claims, id)
		}
	}
	if _, taken := g.claims[callID]; taken {
		return false, nil
	}
	g.claims[callID] = now.Add(g.ttl)
	return true, nil
}

func (g *Memory) Release(_ context.Context, callID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, callID)
	return nil
}
