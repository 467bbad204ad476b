package redisfirstapp

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	c "github.com/GL1KK/redisfirstapp/codec"
)

const (
	defaultTTL = 60 * time.Second
	tracerName = "github.com/GL1KK/redisfirstapp"
)

type aside[V any] struct {
	acc        *Accessor
	codec      c.Codec[V]
	log        Logger
	hooks      Hooks
	enabled    bool
	defaultTTL time.Duration
	flight     *singleflight.Group // nil unless SingleFlight
	tracer     trace.Tracer
}

func newAside[V any](opts Options[V]) (*aside[V], error) {
	if opts.Accessor == nil {
		return nil, errors.New("aside: accessor is required")
	}

	a := &aside[V]{
		acc:     opts.Accessor,
		enabled: !opts.Disabled,
	}

	// defaults
	a.codec = firstSet[c.Codec[V]](opts.Codec, c.JSON[V]{})
	a.log = firstSet[Logger](opts.Logger, opts.Accessor.log)
	a.hooks = firstSet[Hooks](opts.Hooks, opts.Accessor.hooks)
	a.defaultTTL = firstSet[time.Duration](opts.DefaultTTL, defaultTTL)

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	a.tracer = tp.Tracer(tracerName)

	if opts.SingleFlight {
		a.flight = &singleflight.Group{}
	}
	return a, nil
}

func (a *aside[V]) Enabled() bool { return a.enabled }

func (a *aside[V]) Fetch(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc[V]) (Result[V], error) {
	ctx, span := a.tracer.Start(ctx, "aside.Fetch", trace.WithAttributes(attribute.String("cache.key", a.acc.logKey(key))))
	defer span.End()

	res, err := a.fetch(ctx, key, ttl, compute)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(attribute.String("cache.source", string(res.Source)))
	return res, nil
}

func (a *aside[V]) fetch(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc[V]) (Result[V], error) {
	var zero Result[V]
	if key == "" {
		return zero, errors.New("aside: empty key")
	}
	if compute == nil {
		return zero, errors.Newf("aside: nil compute for %q", key)
	}
	if !a.enabled {
		v, err := compute(ctx)
		if err != nil {
			return zero, errors.Wrapf(err, "compute %q", key)
		}
		return Result[V]{Data: v, Source: SourceGenerated}, nil
	}

	v, ok, err := a.Peek(ctx, key)
	if err != nil {
		return zero, err
	}
	if ok {
		a.hooks.Hit(key)
		return Result[V]{Data: v, Source: SourceCache}, nil
	}
	a.hooks.Miss(key)

	if a.flight == nil {
		return a.populate(ctx, key, ttl, compute)
	}
	out, err, shared := a.flight.Do(key, func() (any, error) {
		return a.populate(ctx, key, ttl, compute)
	})
	if shared {
		a.hooks.SharedCompute(key)
	}
	if err != nil {
		return zero, err
	}
	return out.(Result[V]), nil
}

func (a *aside[V]) Peek(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if !a.enabled {
		return zero, false, nil
	}
	raw, ok, err := a.acc.Read(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := a.codec.Decode([]byte(raw))
	if err != nil {
		// Stale or foreign bytes are not deleted; the entry ages out with its TTL.
		a.hooks.DecodeError(key, err)
		return zero, false, &SerializationError{Op: OpDecode, Key: key, Err: err}
	}
	return v, true, nil
}

// populate runs compute and writes the encoded result. A failed compute or
// encode writes nothing.
func (a *aside[V]) populate(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc[V]) (Result[V], error) {
	var zero Result[V]
	if ttl <= 0 {
		ttl = a.defaultTTL
	}

	start := time.Now()
	v, err := compute(ctx)
	if err != nil {
		return zero, errors.Wrapf(err, "compute %q", key)
	}
	payload, err := a.codec.Encode(v)
	if err != nil {
		return zero, &SerializationError{Op: OpEncode, Key: key, Err: err}
	}
	if err := a.acc.Write(ctx, key, string(payload), ttl); err != nil {
		return zero, err
	}

	elapsed := time.Since(start)
	a.hooks.Generated(key, elapsed)
	a.log.Debug("cache populated", Fields{"key": a.acc.logKey(key), "ttl": ttl.String(), "bytes": len(payload), "elapsed": elapsed.String()})
	return Result[V]{Data: v, Source: SourceGenerated}, nil
}
