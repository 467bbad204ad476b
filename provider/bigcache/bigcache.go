package bigcache

import (
	"context"
	"encoding/binary"
	"time"

	bc "github.com/allegro/bigcache/v3"
	"github.com/cockroachdb/errors"

	pr "github.com/GL1KK/redisfirstapp/provider"
)

// Provider keeps entries in an in-process BigCache.
//
// BigCache only has a global LifeWindow, so each entry is framed with its own
// deadline: deadline(i64 be, unix nanos; 0 => none) | value. Get strips the
// frame and reports expired entries as misses. LifeWindow must be at least
// the longest TTL in use; it bounds memory, not correctness.
type Provider struct {
	c   *bc.BigCache
	now func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

const headerLen = 8

type Config struct {
	Shards             int // power of two; 0 => bigcache default
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int              // ~ memory limit; 0 = unlimited
	Now                func() time.Time // nil => time.Now
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.Verbose = false
	if cfg.Shards != 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, errors.Wrap(err, "bigcache: new cache")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Provider{c: c, now: now}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(b) < headerLen {
		_ = p.c.Delete(key) // not ours
		return nil, false, nil
	}
	deadline := int64(binary.BigEndian.Uint64(b[:headerLen]))
	if deadline != 0 && p.now().UnixNano() >= deadline {
		_ = p.c.Delete(key)
		return nil, false, nil
	}
	out := make([]byte, len(b)-headerLen)
	copy(out, b[headerLen:])
	return out, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var deadline int64
	if ttl > 0 {
		deadline = p.now().Add(ttl).UnixNano()
	}
	framed := make([]byte, headerLen+len(value))
	binary.BigEndian.PutUint64(framed[:headerLen], uint64(deadline))
	copy(framed[headerLen:], value)
	return true, p.c.Set(key, framed)
}

func (p *Provider) Del(_ context.Context, key string) error {
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
