package server

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rf "github.com/GL1KK/redisfirstapp"
	"github.com/GL1KK/redisfirstapp/generator"
	"github.com/GL1KK/redisfirstapp/hooks/stats"
	"github.com/GL1KK/redisfirstapp/internal/store"
	redisprovider "github.com/GL1KK/redisfirstapp/provider/redis"
)

type fixture struct {
	mr      *miniredis.Miniredis
	store   *store.Manager
	stats   *stats.Counters
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	m, err := store.New(store.Config{Host: mr.Host(), Port: port}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown() })

	p, err := redisprovider.New(redisprovider.Config{Source: m})
	require.NoError(t, err)

	counters := stats.New()
	acc, err := rf.NewAccessor(rf.AccessorOptions{Provider: p, Hooks: counters})
	require.NoError(t, err)

	numbers, err := rf.New[generator.Number](rf.Options[generator.Number]{Accessor: acc})
	require.NoError(t, err)
	users, err := rf.New[generator.User](rf.Options[generator.User]{Accessor: acc})
	require.NoError(t, err)

	gen := generator.New(
		generator.WithRand(rand.New(rand.NewPCG(7, 7))),
		generator.WithSleeper(generator.NoDelay),
	)
	srv, err := New(Config{}, Deps{
		Numbers:   numbers,
		Users:     users,
		Generator: gen,
		Health:    m,
		Pool:      m,
		Stats:     counters,
	})
	require.NoError(t, err)

	return &fixture{mr: mr, store: m, stats: counters, handler: srv.Handler()}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

type numberBody struct {
	Data   generator.Number `json:"data"`
	Source string           `json:"source"`
}

type userBody struct {
	Data   generator.User `json:"data"`
	Source string         `json:"source"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRandomNumberLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/random-number")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/json")
	first := decode[numberBody](t, rec)
	assert.Equal(t, "generated", first.Source)
	assert.GreaterOrEqual(t, first.Data.Number, 1)
	assert.LessOrEqual(t, first.Data.Number, 100)

	stored, err := f.mr.Get(NumberKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"number":`+strconv.Itoa(first.Data.Number)+`}`, stored)
	assert.Equal(t, 30*time.Second, f.mr.TTL(NumberKey))

	second := decode[numberBody](t, f.get(t, "/random-number"))
	assert.Equal(t, "cache", second.Source)
	assert.Equal(t, first.Data, second.Data)

	f.mr.FastForward(31 * time.Second)
	third := decode[numberBody](t, f.get(t, "/random-number"))
	assert.Equal(t, "generated", third.Source)
}

func TestRandomUserLifecycle(t *testing.T) {
	f := newFixture(t)

	first := decode[userBody](t, f.get(t, "/random-user"))
	assert.Equal(t, "generated", first.Source)
	assert.Regexp(t, `^user\d{3}@example\.com$`, first.Data.Email)
	assert.Equal(t, 60*time.Second, f.mr.TTL(UserKey))

	f.mr.FastForward(59 * time.Second)
	second := decode[userBody](t, f.get(t, "/random-user"))
	assert.Equal(t, "cache", second.Source)
	assert.Equal(t, first.Data, second.Data)

	f.mr.FastForward(2 * time.Second)
	assert.Equal(t, "generated", decode[userBody](t, f.get(t, "/random-user")).Source)
}

func TestEndpointsUseSeparateKeys(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "generated", decode[numberBody](t, f.get(t, "/random-number")).Source)
	assert.Equal(t, "generated", decode[userBody](t, f.get(t, "/random-user")).Source)
	assert.True(t, f.mr.Exists(NumberKey))
	assert.True(t, f.mr.Exists(UserKey))
}

func TestCachedValueWrittenByAnotherClient(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mr.Set(UserKey, `{"id":1234,"name":"Иван Петров","age":30,"email":"user100@example.com"}`))

	body := decode[userBody](t, f.get(t, "/random-user"))
	assert.Equal(t, "cache", body.Source)
	assert.Equal(t, generator.User{ID: 1234, Name: "Иван Петров", Age: 30, Email: "user100@example.com"}, body.Data)
}

func TestEmptyCachedValueIsRegenerated(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mr.Set(NumberKey, ""))

	assert.Equal(t, "generated", decode[numberBody](t, f.get(t, "/random-number")).Source)
}

func TestStoreDownIs500(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	for _, path := range []string{"/random-number", "/random-user"} {
		rec := f.get(t, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	}
	assert.Equal(t, uint64(2), f.stats.Snapshot().StoreErrors)
}

func TestCorruptCachedValueIs500(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mr.Set(NumberKey, "{not json"))

	rec := f.get(t, "/random-number")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())

	got, _ := f.mr.Get(NumberKey)
	assert.Equal(t, "{not json", got, "corrupt entry is left to expire")
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	f.mr.Close()
	rec = f.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	f.get(t, "/random-number")
	f.get(t, "/random-number")
	f.get(t, "/random-number")

	rec := f.get(t, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		stats.Snapshot
		Pool *struct {
			TotalConns uint32 `json:"total_conns"`
		} `json:"pool"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(2), body.Hits)
	assert.Equal(t, uint64(1), body.Misses)
	assert.Equal(t, uint64(1), body.Generated)
	require.NotNil(t, body.Pool)
	assert.LessOrEqual(t, body.Pool.TotalConns, uint32(store.MaxConnections))
}

func TestUnknownRouteIs404(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}

func TestResponseHeaders(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/healthz")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, Title+"/"+Version, rec.Header().Get(echo.HeaderServer))
}

// TestClientDisconnectStillCaches checks that a cancelled request still
// leaves the generated value in the store.
func TestClientDisconnectStillCaches(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/random-user", nil).WithContext(ctx)
	f.handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, f.mr.Exists(UserKey))
}

func TestConcurrentRequests(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	codes := make([]int, 50)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = f.get(t, "/random-number").Code
		}(i)
	}
	wg.Wait()
	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
	s := f.stats.Snapshot()
	assert.Equal(t, uint64(50), s.Hits+s.Misses)
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}
