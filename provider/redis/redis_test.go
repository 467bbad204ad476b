package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	p, err := New(Config{Client: rdb, CloseClient: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return mr, p
}

func TestGetSetDel(t *testing.T) {
	ctx := context.Background()
	mr, p := setup(t)

	_, ok, err := p.Get(ctx, "random_number")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Set(ctx, "random_number", []byte(`{"number":42}`), 13, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	got, ok, err := p.Get(ctx, "random_number")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"number":42}`, string(got))
	assert.Equal(t, 30*time.Second, mr.TTL("random_number"))

	require.NoError(t, p.Del(ctx, "random_number"))
	assert.False(t, mr.Exists("random_number"))
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr, p := setup(t)

	_, err := p.Set(ctx, "k", []byte("v"), 1, 30*time.Second)
	require.NoError(t, err)

	mr.FastForward(29 * time.Second)
	_, ok, _ := p.Get(ctx, "k")
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = p.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetReplacesTTL(t *testing.T) {
	ctx := context.Background()
	mr, p := setup(t)

	_, _ = p.Set(ctx, "k", []byte("a"), 1, 10*time.Second)
	mr.FastForward(8 * time.Second)
	_, _ = p.Set(ctx, "k", []byte("b"), 1, 10*time.Second)
	assert.Equal(t, 10*time.Second, mr.TTL("k"))

	got, _ := mr.Get("k")
	assert.Equal(t, "b", got)
}

func TestNonPositiveTTLStoresWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	mr, p := setup(t)

	_, err := p.Set(ctx, "k", []byte("v"), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), mr.TTL("k"))
}

func TestStoreDownIsError(t *testing.T) {
	ctx := context.Background()
	mr, p := setup(t)
	mr.Close()

	_, ok, err := p.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)

	ok, err = p.Set(ctx, "k", []byte("v"), 1, time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
}

type failingSource struct{ err error }

func (f failingSource) Acquire(context.Context) (goredis.UniversalClient, error) { return nil, f.err }

func TestSourceErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("pool closed")
	p, err := New(Config{Source: failingSource{err: boom}})
	require.NoError(t, err)

	_, _, err = p.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	_, err = p.Set(ctx, "k", []byte("v"), 1, time.Second)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, p.Del(ctx, "k"), boom)
	assert.NoError(t, p.Close(ctx))
}

// countingSource hands out one client and counts how often it was asked.
type countingSource struct {
	c     goredis.UniversalClient
	calls atomic.Int64
}

func (s *countingSource) Acquire(context.Context) (goredis.UniversalClient, error) {
	s.calls.Add(1)
	return s.c, nil
}

func TestSourceCannotBeClosedByProvider(t *testing.T) {
	_, err := New(Config{Source: &countingSource{}, CloseClient: true})
	assert.ErrorIs(t, err, ErrSourceOwnsClient)
}

func TestCloseLeavesBorrowedClientUsable(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	src := &countingSource{c: rdb}

	p, err := New(Config{Source: src})
	require.NoError(t, err)
	require.NoError(t, p.Close(ctx))

	assert.Zero(t, src.calls.Load(), "Close must not acquire a client")
	assert.NoError(t, rdb.Ping(ctx).Err(), "source client still open")

	// Same for a static client that was not handed over.
	p, err = New(Config{Client: rdb})
	require.NoError(t, err)
	require.NoError(t, p.Close(ctx))
	assert.NoError(t, rdb.Ping(ctx).Err())
}

func TestCloseOwnedClient(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	p, err := New(Config{Client: rdb, CloseClient: true})
	require.NoError(t, err)
	require.NoError(t, p.Close(ctx))
	assert.ErrorIs(t, rdb.Ping(ctx).Err(), goredis.ErrClosed)
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestCloseIsIdempotent(t *testing.T) {
	_, p := setup(t)
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))
}
