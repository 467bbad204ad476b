// Package loghooks reports cache events through a redisfirstapp.Logger.
package loghooks

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	rf "github.com/GL1KK/redisfirstapp"
)

type Options struct {
	// Sampling to avoid floods on the hot paths; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. nil logs keys verbatim; see Hash.
	Redact func(string) string
}

type Hooks struct {
	l    rf.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ rf.Hooks = (*Hooks)(nil)

func New(l rf.Logger, opts Options) *Hooks {
	if l == nil {
		l = rf.NopLogger{}
	}
	return &Hooks{l: l.With(rf.Fields{"component": "cache"}), opts: opts}
}

// Hash is a Redact func printing a short xxhash of the key.
func Hash(k string) string {
	return strconv.FormatUint(xxhash.Sum64String(k), 16)
}

func (h *Hooks) key(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return k
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(k string) {
	if !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("cache.hit", rf.Fields{"key": h.key(k)})
}

func (h *Hooks) Miss(k string) {
	if !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("cache.miss", rf.Fields{"key": h.key(k)})
}

func (h *Hooks) Generated(k string, d time.Duration) {
	h.l.Info("cache.generated", rf.Fields{"key": h.key(k), "elapsed_ms": d.Milliseconds()})
}

func (h *Hooks) SharedCompute(k string) {
	h.l.Debug("cache.shared_compute", rf.Fields{"key": h.key(k)})
}

func (h *Hooks) StoreError(op rf.Op, k string, err error) {
	h.l.Error("cache.store_error", rf.Fields{"op": string(op), "key": h.key(k), "err": err})
}

func (h *Hooks) DecodeError(k string, err error) {
	h.l.Error("cache.decode_error", rf.Fields{"key": h.key(k), "err": err})
}

func (h *Hooks) ProviderSetRejected(k string) {
	h.l.Warn("cache.provider_set_rejected", rf.Fields{"key": h.key(k)})
}
