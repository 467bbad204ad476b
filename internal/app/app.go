// Package app wires configuration, store, cache and HTTP server together and
// owns their startup and shutdown order.
package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	rf "github.com/GL1KK/redisfirstapp"
	"github.com/GL1KK/redisfirstapp/codec"
	"github.com/GL1KK/redisfirstapp/generator"
	asynchook "github.com/GL1KK/redisfirstapp/hooks/async"
	"github.com/GL1KK/redisfirstapp/hooks/loghooks"
	"github.com/GL1KK/redisfirstapp/hooks/stats"
	"github.com/GL1KK/redisfirstapp/internal/config"
	"github.com/GL1KK/redisfirstapp/internal/server"
	"github.com/GL1KK/redisfirstapp/internal/store"
	"github.com/GL1KK/redisfirstapp/internal/telemetry"
	pr "github.com/GL1KK/redisfirstapp/provider"
	bigcacheprovider "github.com/GL1KK/redisfirstapp/provider/bigcache"
	redisprovider "github.com/GL1KK/redisfirstapp/provider/redis"
	ristrettoprovider "github.com/GL1KK/redisfirstapp/provider/ristretto"
)

const (
	startupPingTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

type App struct {
	cfg config.Config
	log rf.Logger

	store    *store.Manager // nil unless the redis backend is selected
	acc      *rf.Accessor
	logHooks *asynchook.Hooks
	counters *stats.Counters
	srv      *server.Server

	tracer        trace.TracerProvider
	traceShutdown telemetry.ShutdownFunc

	closeOnce sync.Once
	closeErr  error
}

// Option customizes App construction; used by tests.
type Option func(*options)

type options struct {
	gen   []generator.Option
	spans []sdktrace.SpanProcessor
}

// WithGenerator passes options to the payload generator (e.g. NoDelay).
func WithGenerator(opts ...generator.Option) Option {
	return func(o *options) { o.gen = append(o.gen, opts...) }
}

// WithSpanProcessor attaches sp to the tracer provider, enabling tracing even
// without a collector endpoint.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spans = append(o.spans, sp) }
}

func New(cfg config.Config, log rf.Logger, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if log == nil {
		log = rf.NopLogger{}
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		counters: stats.New(),
	}

	tcfg := telemetry.Config{
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    server.Title,
		ServiceVersion: server.Version,
		Processors:     o.spans,
	}
	tp, shutdown, err := telemetry.New(context.Background(), tcfg, log)
	if err != nil {
		return nil, err
	}
	a.tracer, a.traceShutdown = tp, shutdown
	if cfg.Telemetry.Endpoint != "" {
		otel.SetTracerProvider(tp)
	}

	p, err := a.provider()
	if err != nil {
		return nil, a.abort(err)
	}

	var redact func(string) string
	if cfg.Log.RedactKeys {
		redact = loghooks.Hash
	}
	// Counters stay synchronous so /stats is exact; log delivery is queued.
	a.logHooks = asynchook.New(loghooks.New(log, loghooks.Options{HitEvery: 10, Redact: redact}), 1, 1024)
	a.acc, err = rf.NewAccessor(rf.AccessorOptions{
		Provider:  p,
		Logger:    log.With(rf.Fields{"component": "cache"}),
		Hooks:     rf.MultiHooks{a.counters, a.logHooks},
		RedactKey: redact,
	})
	if err != nil {
		return nil, a.abort(err)
	}

	numbers, err := newAside[generator.Number](a, cfg.Cache.NumberTTL.Std())
	if err != nil {
		return nil, a.abort(err)
	}
	users, err := newAside[generator.User](a, cfg.Cache.UserTTL.Std())
	if err != nil {
		return nil, a.abort(err)
	}

	deps := server.Deps{
		Numbers:   numbers,
		Users:     users,
		Generator: generator.New(o.gen...),
		Logger:    log,
		Stats:     a.counters,
	}
	if a.store != nil {
		deps.Health = a.store
		deps.Pool = a.store
	}
	a.srv, err = server.New(server.Config{
		Host:      cfg.HTTP.Host,
		Port:      cfg.HTTP.Port,
		NumberTTL: cfg.Cache.NumberTTL.Std(),
		UserTTL:   cfg.Cache.UserTTL.Std(),
	}, deps)
	if err != nil {
		return nil, a.abort(err)
	}
	return a, nil
}

func newAside[V any](a *App, ttl time.Duration) (rf.Aside[V], error) {
	cd, err := codec.ByName[V](a.cfg.Cache.Codec, a.cfg.Cache.MaxPayload)
	if err != nil {
		return nil, err
	}
	return rf.New[V](rf.Options[V]{
		Accessor:       a.acc,
		Codec:          cd,
		DefaultTTL:     ttl,
		Disabled:       a.cfg.Cache.Disabled,
		SingleFlight:   a.cfg.Cache.SingleFlight,
		TracerProvider: a.tracer,
	})
}

func (a *App) provider() (pr.Provider, error) {
	c := a.cfg.Cache
	switch c.Backend {
	case config.BackendRedis, "":
		m, err := store.New(store.Config{
			Host:     a.cfg.Store.Host,
			Port:     a.cfg.Store.Port,
			Password: a.cfg.Store.Password,
			DB:       a.cfg.Store.DB,
		}, a.log)
		if err != nil {
			return nil, err
		}
		a.store = m
		return redisprovider.New(redisprovider.Config{Source: m})
	case config.BackendBigCache:
		life := max(c.NumberTTL.Std(), c.UserTTL.Std())
		return bigcacheprovider.New(bigcacheprovider.Config{
			LifeWindow:         life,
			CleanWindow:        time.Minute,
			HardMaxCacheSizeMB: 64,
		})
	case config.BackendRistretto:
		return ristrettoprovider.New(ristrettoprovider.Config{MaxCost: 64 << 20})
	default:
		return nil, errors.Newf("unknown cache backend %q", c.Backend)
	}
}

// Handler exposes the HTTP handler without binding a port.
func (a *App) Handler() http.Handler { return a.srv.Handler() }

// Run starts serving and blocks until ctx is done or the listener fails,
// then drains in-flight requests and releases the store.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting", rf.Fields{
		"title":         server.Title,
		"version":       server.Version,
		"backend":       a.cfg.Cache.Backend,
		"codec":         a.cfg.Cache.Codec,
		"single_flight": a.cfg.Cache.SingleFlight,
	})
	if a.store != nil {
		// Creates the pool up front. An unreachable store is not fatal here;
		// requests fail with 500 until it comes back.
		pctx, cancel := context.WithTimeout(ctx, startupPingTimeout)
		if err := a.store.Ping(pctx); err != nil {
			a.log.Warn("store not reachable at startup", rf.Fields{"err": err})
		}
		cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("shutting down", nil)
		return a.srv.Shutdown(sctx)
	})

	err := g.Wait()
	return errors.CombineErrors(err, a.Close())
}

// Close releases hooks, provider and the store pool, then flushes pending
// spans. Safe to call twice.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.logHooks != nil {
			a.logHooks.Close()
		}
		if a.acc != nil {
			a.closeErr = a.acc.Close(context.Background())
		}
		if a.store != nil {
			a.closeErr = errors.CombineErrors(a.closeErr, a.store.Shutdown())
		}
		if a.traceShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			err := a.traceShutdown(ctx)
			cancel()
			a.closeErr = errors.CombineErrors(a.closeErr, errors.Wrap(err, "tracing shutdown"))
		}
	})
	return a.closeErr
}

func (a *App) abort(err error) error {
	return errors.CombineErrors(err, a.Close())
}
