// Package asynchook moves hook delivery off the request path.
//
// usage:
//
//	counters := stats.New()
//	logged := loghooks.New(logger, loghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(redisfirstapp.MultiHooks{counters, logged}, 1, 1024)
//	defer hooks.Close()
//
//	acc, _ := redisfirstapp.NewAccessor(redisfirstapp.AccessorOptions{
//	    Provider: provider,
//	    Hooks:    hooks,
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	rf "github.com/GL1KK/redisfirstapp"
)

type Hooks struct {
	inner   rf.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ rf.Hooks = (*Hooks)(nil)

// New starts workers goroutines draining a queue of qlen events.
// When the queue is full, events are dropped and counted.
func New(inner rf.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close stops accepting events and waits for queued ones to be delivered.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded on a full queue.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost the race with Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(k string)           { h.try(func() { h.inner.Hit(k) }) }
func (h *Hooks) Miss(k string)          { h.try(func() { h.inner.Miss(k) }) }
func (h *Hooks) SharedCompute(k string) { h.try(func() { h.inner.SharedCompute(k) }) }
func (h *Hooks) Generated(k string, d time.Duration) {
	h.try(func() { h.inner.Generated(k, d) })
}
func (h *Hooks) StoreError(op rf.Op, k string, err error) {
	h.try(func() { h.inner.StoreError(op, k, err) })
}
func (h *Hooks) DecodeError(k string, err error) { h.try(func() { h.inner.DecodeError(k, err) }) }
func (h *Hooks) ProviderSetRejected(k string)    { h.try(func() { h.inner.ProviderSetRejected(k) }) }
