// Package ristretto keeps cache entries in process with dgraph-io/ristretto.
// It suits a single replica or tests; entries are not shared across processes.
package ristretto

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	rc "github.com/dgraph-io/ristretto"

	pr "github.com/GL1KK/redisfirstapp/provider"
)

type Config struct {
	// MaxCost is a byte budget: the Accessor charges len(value) per entry.
	MaxCost int64
	// NumCounters tracks admission frequency; 0 => 10 per expected entry,
	// assuming 1KiB entries.
	NumCounters int64
	BufferItems int64 // 0 => 64, the library's recommendation
}

type Provider struct {
	c *rc.Cache
}

var _ pr.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.MaxCost <= 0 {
		return nil, errors.Newf("ristretto: max cost must be positive, got %d", cfg.MaxCost)
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = max(cfg.MaxCost/1024, 1) * 10
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, errors.Wrap(err, "ristretto: new cache")
	}
	return &Provider{c: c}, nil
}

// Get returns a copy so callers cannot mutate the stored entry.
func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		p.c.Del(key)
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Set blocks until the write buffer drains so the next Get sees the value.
// ok=false means the admission policy dropped it.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	ok := p.c.SetWithTTL(key, append([]byte(nil), value...), cost, max(ttl, 0))
	p.c.Wait()
	return ok, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Close()
	return nil
}
