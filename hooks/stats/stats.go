// Package stats counts cache events for the /stats endpoint.
package stats

import (
	"sync/atomic"
	"time"

	rf "github.com/GL1KK/redisfirstapp"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Generated     uint64  `json:"generated"`
	Shared        uint64  `json:"shared"`
	StoreErrors   uint64  `json:"store_errors"`
	DecodeErrors  uint64  `json:"decode_errors"`
	SetRejected   uint64  `json:"set_rejected"`
	AvgGenerateMS float64 `json:"avg_generate_ms"`
	HitRatio      float64 `json:"hit_ratio"`
}

// Counters implements rf.Hooks with atomic counters; safe for concurrent use.
type Counters struct {
	hits, misses, generated, shared atomic.Uint64
	storeErrs, decodeErrs, rejected atomic.Uint64
	genNanos                        atomic.Int64
}

var _ rf.Hooks = (*Counters)(nil)

func New() *Counters { return &Counters{} }

func (c *Counters) Hit(string)           { c.hits.Add(1) }
func (c *Counters) Miss(string)          { c.misses.Add(1) }
func (c *Counters) SharedCompute(string) { c.shared.Add(1) }
func (c *Counters) Generated(_ string, d time.Duration) {
	c.generated.Add(1)
	c.genNanos.Add(int64(d))
}
func (c *Counters) StoreError(rf.Op, string, error) { c.storeErrs.Add(1) }
func (c *Counters) DecodeError(string, error)       { c.decodeErrs.Add(1) }
func (c *Counters) ProviderSetRejected(string)      { c.rejected.Add(1) }

func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Generated:    c.generated.Load(),
		Shared:       c.shared.Load(),
		StoreErrors:  c.storeErrs.Load(),
		DecodeErrors: c.decodeErrs.Load(),
		SetRejected:  c.rejected.Load(),
	}
	if s.Generated > 0 {
		s.AvgGenerateMS = float64(c.genNanos.Load()) / float64(s.Generated) / float64(time.Millisecond)
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}
