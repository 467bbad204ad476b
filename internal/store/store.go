// Package store owns the process-wide connection pool to the key-value store.
//
// A Manager is built once at startup and injected wherever a connection is
// needed. The pool itself is created on the first Acquire and reused for the
// life of the process; Shutdown closes it.
package store

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	rf "github.com/GL1KK/redisfirstapp"
)

// MaxConnections bounds the pool. Callers beyond it wait up to PoolTimeout
// for a free connection.
const MaxConnections = 20

var ErrClosed = errors.New("store: manager is shut down")

// Config is resolved from the environment once, before New.
type Config struct {
	Host     string
	Port     int
	Password string // empty => no AUTH
	DB       int

	PoolSize    int           // 0 => MaxConnections
	PoolTimeout time.Duration // 0 => go-redis default (ReadTimeout + 1s)
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Manager hands out the pooled client. Safe for concurrent use.
//
// Once the pool exists Acquire is a single atomic load; mu only serializes
// creation and Shutdown.
type Manager struct {
	opts *redis.Options
	log  rf.Logger

	client atomic.Pointer[redis.Client]

	mu     sync.Mutex
	closed bool
}

func New(cfg Config, log rf.Logger) (*Manager, error) {
	if cfg.Host == "" {
		return nil, errors.New("store: host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.Newf("store: invalid port %d", cfg.Port)
	}
	if cfg.DB < 0 {
		return nil, errors.Newf("store: invalid database index %d", cfg.DB)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = MaxConnections
	}
	if log == nil {
		log = rf.NopLogger{}
	}
	return &Manager{
		opts: &redis.Options{
			Addr:        cfg.Addr(),
			Password:    cfg.Password,
			DB:          cfg.DB,
			PoolSize:    cfg.PoolSize,
			PoolTimeout: cfg.PoolTimeout,
		},
		log: log.With(rf.Fields{"component": "store"}),
	}, nil
}

// Acquire returns the pooled client, creating the pool on first use.
// Every command run on it leases one of the pooled connections. A client
// acquired just before Shutdown fails its commands with redis.ErrClosed.
func (m *Manager) Acquire(ctx context.Context) (redis.UniversalClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c := m.client.Load(); c != nil {
		return c, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if c := m.client.Load(); c != nil {
		return c, nil
	}
	c := redis.NewClient(m.opts)
	m.client.Store(c)
	m.log.Info("store pool created", rf.Fields{
		"addr":      m.opts.Addr,
		"db":        m.opts.DB,
		"pool_size": m.opts.PoolSize,
		"auth":      m.opts.Password != "",
	})
	return c, nil
}

// Ping round-trips to the store through the pool.
func (m *Manager) Ping(ctx context.Context) error {
	rdb, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrapf(err, "ping %s", m.opts.Addr)
	}
	return nil
}

// PoolStats reports pool usage; nil before the pool exists.
func (m *Manager) PoolStats() *redis.PoolStats {
	if c := m.client.Load(); c != nil {
		return c.PoolStats()
	}
	return nil
}

// Shutdown disconnects every pooled connection. It is a no-op when no pool
// was ever created and safe to call more than once.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	c := m.client.Swap(nil)
	if c == nil {
		return nil
	}
	if err := c.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return errors.Wrap(err, "store: close pool")
	}
	m.log.Info("store pool closed", nil)
	return nil
}
