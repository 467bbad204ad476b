package redisfirstapp

import "time"

// Hooks lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on request paths.
type Hooks interface {
	// A cached value was found and decoded.
	Hit(key string)
	// The key was absent or expired; compute is about to run.
	Miss(key string)
	// compute ran and its result was written. elapsed covers compute+encode+write.
	Generated(key string, elapsed time.Duration)
	// A concurrent caller received a result computed by another in-flight call
	// (SingleFlight only).
	SharedCompute(key string)

	// The store failed. op ∈ {"read", "write"}
	StoreError(op Op, key string, err error)
	// Cached bytes failed to decode.
	DecodeError(key string, err error)
	// Provider returned ok=false on Set (backpressure/admission).
	ProviderSetRejected(key string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                      {}
func (NopHooks) Miss(string)                     {}
func (NopHooks) Generated(string, time.Duration) {}
func (NopHooks) SharedCompute(string)            {}
func (NopHooks) StoreError(Op, string, error)    {}
func (NopHooks) DecodeError(string, error)       {}
func (NopHooks) ProviderSetRejected(string)      {}

// MultiHooks fans every event out to each member in order.
type MultiHooks []Hooks

var _ Hooks = MultiHooks(nil)

func (m MultiHooks) Hit(k string) {
	for _, h := range m {
		h.Hit(k)
	}
}

func (m MultiHooks) Miss(k string) {
	for _, h := range m {
		h.Miss(k)
	}
}

func (m MultiHooks) Generated(k string, d time.Duration) {
	for _, h := range m {
		h.Generated(k, d)
	}
}

func (m MultiHooks) SharedCompute(k string) {
	for _, h := range m {
		h.SharedCompute(k)
	}
}

func (m MultiHooks) StoreError(op Op, k string, err error) {
	for _, h := range m {
		h.StoreError(op, k, err)
	}
}

func (m MultiHooks) DecodeError(k string, err error) {
	for _, h := range m {
		h.DecodeError(k, err)
	}
}

func (m MultiHooks) ProviderSetRejected(k string) {
	for _, h := range m {
		h.ProviderSetRejected(k)
	}
}
