// Package generator produces the random demo payloads. Generators never touch
// the cache; each call returns a fresh value after a simulated processing delay.
package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Number is the payload of GET /random-number.
type Number struct {
	Number int `json:"number"`
}

// User is the payload of GET /random-user.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

const EmailDomain = "example.com"

// FirstNames and LastNames are disjoint; a name is one of each (25 combinations).
var (
	FirstNames = [...]string{"Алексей", "Мария", "Иван", "Ольга", "Дмитрий"}
	LastNames  = [...]string{"Петров", "Сидорова", "Иванов", "Смирнова", "Кузнецов"}
)

// Delay bounds, inclusive.
var (
	NumberDelay = Range{Min: 500 * time.Millisecond, Max: 2 * time.Second}
	UserDelay   = Range{Min: 500 * time.Millisecond, Max: 3 * time.Second}
)

type Range struct{ Min, Max time.Duration }

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoDelay skips the simulated processing time.
func NoDelay(context.Context, time.Duration) error { return nil }

type Option func(*Generator)

// WithRand injects the randomness source, e.g. a seeded PCG in tests.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rnd = r }
}

func WithSleeper(s Sleeper) Option {
	return func(g *Generator) { g.sleep = s }
}

// Generator is safe for concurrent use; draws from the shared source are serialized.
type Generator struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	sleep Sleeper
}

func New(opts ...Option) *Generator {
	g := &Generator{sleep: Sleep}
	for _, o := range opts {
		o(g)
	}
	if g.rnd == nil {
		g.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if g.sleep == nil {
		g.sleep = NoDelay
	}
	return g
}

// Number returns a value in [1, 100] after a delay in NumberDelay.
func (g *Generator) Number(ctx context.Context) (Number, error) {
	g.mu.Lock()
	d := g.duration(NumberDelay)
	n := g.intn(1, 100)
	g.mu.Unlock()

	if err := g.sleep(ctx, d); err != nil {
		return Number{}, err
	}
	return Number{Number: n}, nil
}

// User returns a random user after a delay in UserDelay.
func (g *Generator) User(ctx context.Context) (User, error) {
	g.mu.Lock()
	d := g.duration(UserDelay)
	u := User{
		ID:    g.intn(1000, 9999),
		Name:  FirstNames[g.rnd.IntN(len(FirstNames))] + " " + LastNames[g.rnd.IntN(len(LastNames))],
		Age:   g.intn(18, 65),
		Email: fmt.Sprintf("user%d@%s", g.intn(100, 999), EmailDomain),
	}
	g.mu.Unlock()

	if err := g.sleep(ctx, d); err != nil {
		return User{}, err
	}
	return u, nil
}

// intn returns a uniform int in [lo, hi]. Caller holds mu.
func (g *Generator) intn(lo, hi int) int {
	return lo + g.rnd.IntN(hi-lo+1)
}

// duration returns a uniform duration in [r.Min, r.Max]. Caller holds mu.
func (g *Generator) duration(r Range) time.Duration {
	return r.Min + time.Duration(g.rnd.Int64N(int64(r.Max-r.Min)+1))
}
