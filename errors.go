package redisfirstapp

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Op names the cache operation that failed.
type Op string

const (
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpEncode Op = "encode"
	OpDecode Op = "decode"
)

var (
	// ErrStoreUnavailable matches every *StoreError.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrSerialization matches every *SerializationError.
	ErrSerialization = errors.New("serialization failed")
	ErrInvalidTTL    = errors.New("ttl must be positive")
)

// StoreError reports a failed round trip to the backing store.
// Not retried; callers surface it as a server error.
type StoreError struct {
	Op  Op
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error        { return e.Err }
func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// SerializationError reports a payload that could not be encoded, or cached
// bytes that could not be decoded back into the payload type.
type SerializationError struct {
	Op  Op
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	switch e.Op {
	case OpEncode:
		return fmt.Sprintf("encode %q: %v", e.Key, e.Err)
	case OpDecode:
		return fmt.Sprintf("decode cached %q: %v", e.Key, e.Err)
	default:
		return fmt.Sprintf("serialize %q: %v", e.Key, e.Err)
	}
}

func (e *SerializationError) Unwrap() error        { return e.Err }
func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }
