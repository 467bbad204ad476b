package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	rf "github.com/GL1KK/redisfirstapp"
)

func TestSnapshot(t *testing.T) {
	c := New()
	assert.Equal(t, Snapshot{}, c.Snapshot())

	c.Miss("k")
	c.Generated("k", 10*time.Millisecond)
	c.Hit("k")
	c.Hit("k")
	c.Hit("k")
	c.Miss("k")
	c.Generated("k", 30*time.Millisecond)
	c.StoreError(rf.OpRead, "k", assert.AnError)
	c.DecodeError("k", assert.AnError)
	c.SharedCompute("k")
	c.ProviderSetRejected("k")

	s := c.Snapshot()
	assert.Equal(t, uint64(3), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)
	assert.Equal(t, uint64(2), s.Generated)
	assert.Equal(t, uint64(1), s.Shared)
	assert.Equal(t, uint64(1), s.StoreErrors)
	assert.Equal(t, uint64(1), s.DecodeErrors)
	assert.Equal(t, uint64(1), s.SetRejected)
	assert.InDelta(t, 20.0, s.AvgGenerateMS, 1e-9)
	assert.InDelta(t, 0.6, s.HitRatio, 1e-9)
}
