package redisfirstapp

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	c "github.com/GL1KK/redisfirstapp/codec"
)

// Source tells where a Result came from.
type Source string

const (
	SourceCache     Source = "cache"
	SourceGenerated Source = "generated"
)

// Result is the response envelope. It is built once per call and never mutated.
type Result[V any] struct {
	Data   V      `json:"data"`
	Source Source `json:"source"`
}

// ComputeFunc produces a fresh value on a cache miss.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Aside is the typed cache-aside API. V is the payload type; serialization
// is handled by a pluggable Codec[V] and storage by a shared *Accessor.
type Aside[V any] interface {
	Enabled() bool

	// Fetch reads key; on a hit the cached value is decoded and returned with
	// SourceCache. On a miss compute runs, its result is written under key
	// with ttl (0 => DefaultTTL) and returned with SourceGenerated.
	// Store and decode failures are returned as-is; a failed read never
	// falls back to compute.
	Fetch(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc[V]) (Result[V], error)

	// Peek reads and decodes key without computing on a miss.
	Peek(ctx context.Context, key string) (v V, ok bool, err error)
}

// Options tune a typed Aside. Only Accessor is required.
type Options[V any] struct {
	Accessor *Accessor
	Codec    c.Codec[V] // nil => codec.JSON[V]

	Logger     Logger        // nil => Accessor's logger
	Hooks      Hooks         // nil => Accessor's hooks
	DefaultTTL time.Duration // 0 => 60s
	Disabled   bool          // compute on every call, never touch the store

	// SingleFlight collapses concurrent misses for the same key into one
	// compute+write. Off by default: concurrent misses race and the last write wins.
	SingleFlight bool

	// TracerProvider receives one "aside.Fetch" span per Fetch, tagged with
	// cache.key and cache.source. nil => the global provider.
	TracerProvider trace.TracerProvider
}

func New[V any](opts Options[V]) (Aside[V], error) {
	return newAside[V](opts)
}
