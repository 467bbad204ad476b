package generator

import (
	"context"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() Option { return WithRand(rand.New(rand.NewPCG(1, 2))) }

type recorder struct {
	mu sync.Mutex
	d  []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	r.d = append(r.d, d)
	r.mu.Unlock()
	return nil
}

func TestNumberBounds(t *testing.T) {
	rec := &recorder{}
	g := New(seeded(), WithSleeper(rec.sleep))

	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		n, err := g.Number(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n.Number, 1)
		assert.LessOrEqual(t, n.Number, 100)
		seen[n.Number] = true
	}
	assert.True(t, seen[1] && seen[100], "both endpoints should be reachable")

	for _, d := range rec.d {
		assert.GreaterOrEqual(t, d, NumberDelay.Min)
		assert.LessOrEqual(t, d, NumberDelay.Max)
	}
}

var emailRe = regexp.MustCompile(`^user\d{3}@example\.com$`)

func TestUserShape(t *testing.T) {
	rec := &recorder{}
	g := New(seeded(), WithSleeper(rec.sleep))

	for i := 0; i < 1000; i++ {
		u, err := g.User(context.Background())
		require.NoError(t, err)

		assert.GreaterOrEqual(t, u.ID, 1000)
		assert.LessOrEqual(t, u.ID, 9999)
		assert.GreaterOrEqual(t, u.Age, 18)
		assert.LessOrEqual(t, u.Age, 65)
		assert.Regexp(t, emailRe, u.Email)

		first, last, ok := strings.Cut(u.Name, " ")
		require.True(t, ok, "name %q", u.Name)
		assert.True(t, slices.Contains(FirstNames[:], first), "first name %q", first)
		assert.True(t, slices.Contains(LastNames[:], last), "last name %q", last)
	}

	for _, d := range rec.d {
		assert.GreaterOrEqual(t, d, UserDelay.Min)
		assert.LessOrEqual(t, d, UserDelay.Max)
	}
}

func TestSeededIsDeterministic(t *testing.T) {
	a := New(seeded(), WithSleeper(NoDelay))
	b := New(seeded(), WithSleeper(NoDelay))
	for i := 0; i < 10; i++ {
		ua, _ := a.User(context.Background())
		ub, _ := b.User(context.Background())
		assert.Equal(t, ua, ub)
	}
}

func TestCancelledSleepReturnsError(t *testing.T) {
	g := New(seeded())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Number(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = g.User(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentUse(t *testing.T) {
	g := New(WithSleeper(NoDelay))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = g.Number(context.Background())
				_, _ = g.User(context.Background())
			}
		}()
	}
	wg.Wait()
}
