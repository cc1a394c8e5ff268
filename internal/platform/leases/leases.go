// Package leases provides a short-lived per-user lock covering the
// balance-check / run-creation window, which spans two stores with no shared
// transaction boundary.
package leases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/approva/simulado-backend/internal/platform/envutil"
	"github.com/approva/simulado-backend/internal/platform/logger"
)

var ErrLeaseHeld = errors.New("start lease already held")

type Lease struct {
	key   string
	token string
}

type Manager interface {
	Acquire(ctx context.Context, userID string) (*Lease, error)
	Release(ctx context.Context, lease *Lease)
}

type redisManager struct {
	log *logger.Logger
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisManagerFromEnv(log *logger.Logger) (Manager, error) {
	addr := envutil.String("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
	})
	ttl := time.Duration(envutil.Int("START_LEASE_TTL_SECONDS", 30)) * time.Second
	return &redisManager{
		log: log.With("service", "LeaseManager"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (m *redisManager) Acquire(ctx context.Context, userID string) (*Lease, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user id")
	}
	key := "simulado:start-lease:" + userID
	token := uuid.NewString()

	ok, err := m.rdb.SetNX(ctx, key, token, m.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire start lease: %w", err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	return &Lease{key: key, token: token}, nil
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

// Release is best-effort; an expired or stolen lease is just logged. The TTL
// bounds how long a crashed holder can block its user.
func (m *redisManager) Release(ctx context.Context, lease *Lease) {
	if lease == nil {
		return
	}
	if _, err := releaseScript.Run(ctx, m.rdb, []string{lease.key}, lease.token).Result(); err != nil {
		m.log.Warn("start lease release failed", "key", lease.key, "error", err)
	}
}
