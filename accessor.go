package redisfirstapp

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	pr "github.com/GL1KK/redisfirstapp/provider"
)

// Accessor is the raw half of the cache-aside layer: opaque string payloads
// in and out of a Provider. It is safe for concurrent use and is meant to be
// shared by every Aside in the process.
type Accessor struct {
	provider pr.Provider
	log      Logger
	hooks    Hooks
	redact   func(string) string
}

type AccessorOptions struct {
	Provider pr.Provider // required
	Logger   Logger      // nil => NopLogger
	Hooks    Hooks       // nil => NopHooks

	// RedactKey rewrites keys before they reach logs and span attributes.
	// nil logs keys verbatim.
	RedactKey func(string) string
}

func NewAccessor(opts AccessorOptions) (*Accessor, error) {
	if opts.Provider == nil {
		return nil, errors.New("accessor: provider is required")
	}
	return &Accessor{
		provider: opts.Provider,
		log:      firstSet[Logger](opts.Logger, NopLogger{}),
		hooks:    firstSet[Hooks](opts.Hooks, NopHooks{}),
		redact:   opts.RedactKey,
	}, nil
}

func (a *Accessor) logKey(k string) string {
	if a.redact != nil {
		return a.redact(k)
	}
	return k
}

// Read returns the raw value for key. ok is false when the key does not
// exist, has expired, or holds an empty value.
func (a *Accessor) Read(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := a.provider.Get(ctx, key)
	if err != nil {
		a.hooks.StoreError(OpRead, key, err)
		return "", false, &StoreError{Op: OpRead, Key: key, Err: err}
	}
	if !ok || len(raw) == 0 {
		return "", false, nil
	}
	return string(raw), true, nil
}

// Write stores value under key with a fresh ttl countdown, replacing any
// previous value and TTL in a single store operation.
func (a *Accessor) Write(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.Wrapf(ErrInvalidTTL, "write %q: ttl=%s", key, ttl)
	}
	ok, err := a.provider.Set(ctx, key, []byte(value), int64(len(value)), ttl)
	if err != nil {
		a.hooks.StoreError(OpWrite, key, err)
		return &StoreError{Op: OpWrite, Key: key, Err: err}
	}
	if !ok {
		a.hooks.ProviderSetRejected(key)
		a.log.Debug("write rejected by provider (pressure)", Fields{"key": a.logKey(key)})
	}
	return nil
}

// Close releases the underlying provider.
func (a *Accessor) Close(ctx context.Context) error {
	return a.provider.Close(ctx)
}
