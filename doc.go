// Package redisfirstapp implements a cache-aside layer over a pluggable byte store
// with per-entry TTLs, and the random data service built on top of it.
//
// Components:
//   - Provider: byte store with TTL (Redis by default; BigCache and Ristretto in-process).
//   - Accessor: raw string Read/Write against a Provider. No decoding.
//   - Codec[V]: (de)serializes V <-> []byte (JSON by default).
//   - Aside[V]: check cache, compute on miss, populate cache, return provenance.
//
// Keys are used verbatim; callers own the keyspace (e.g. "random_number").
//
// Cache-aside pattern:
//
//	res, err := numbers.Fetch(ctx, "random_number", 30*time.Second, gen.Number)
//	// res.Source is "cache" on a hit and "generated" when compute ran.
//
// Concurrent misses on the same key both compute and both write (last write wins)
// unless Options.SingleFlight is set.
package redisfirstapp
