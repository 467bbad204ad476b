package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	goredis "github.com/redis/go-redis/v9"

	pr "github.com/GL1KK/redisfirstapp/provider"
)

var (
	ErrNilClient = errors.New("redis provider: nil client")
	// ErrSourceOwnsClient rejects CloseClient with a Source: the source
	// decides when its client is closed.
	ErrSourceOwnsClient = errors.New("redis provider: CloseClient requires a static Client")
)

// ClientSource hands out the pooled client per operation. The store manager
// implements it so the pool is created on first use.
type ClientSource interface {
	Acquire(ctx context.Context) (goredis.UniversalClient, error)
}

type Redis struct {
	src   ClientSource
	owned goredis.UniversalClient // closed by Close; nil when borrowed
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	// One of Client or Source is required; Source wins when both are set.
	Client goredis.UniversalClient
	Source ClientSource
	// CloseClient lets Close shut down Client. Only valid with Client; a
	// Source (e.g. the store manager) closes its own pool.
	CloseClient bool
}

type staticSource struct{ c goredis.UniversalClient }

func (s staticSource) Acquire(context.Context) (goredis.UniversalClient, error) { return s.c, nil }

func New(cfg Config) (*Redis, error) {
	if cfg.Source != nil {
		if cfg.CloseClient {
			return nil, ErrSourceOwnsClient
		}
		return &Redis{src: cfg.Source}, nil
	}
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	p := &Redis{src: staticSource{c: cfg.Client}}
	if cfg.CloseClient {
		p.owned = cfg.Client
	}
	return p, nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	rdb, err := p.src.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	b, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

// Set issues SET key value EX/PX ttl, replacing value and TTL atomically.
// Non-positive TTLs store without expiry.
func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	rdb, err := p.src.Acquire(ctx)
	if err != nil {
		return false, err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	rdb, err := p.src.Acquire(ctx)
	if err != nil {
		return err
	}
	return rdb.Del(ctx, key).Err()
}

// Close shuts down the client only when it was handed over with
// CloseClient. Repeated calls are no-ops.
func (p *Redis) Close(_ context.Context) error {
	if p.owned == nil {
		return nil
	}
	if err := p.owned.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return errors.Wrap(err, "redis provider: close")
	}
	return nil
}
