package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Names accepted by ByName.
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
	NameCBOR    = "cbor"
	NameProto   = "proto"
)

// ByName returns the codec registered under name. An empty name selects JSON.
// maxDecode > 0 wraps the result in a LimitCodec.
func ByName[V any](name string, maxDecode int) (Codec[V], error) {
	var inner Codec[V]
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameJSON:
		inner = JSON[V]{}
	case NameMsgpack:
		inner = Msgpack[V]{}
	case NameCBOR:
		cb, err := NewCBOR[V](CBOROptions{Canonical: true})
		if err != nil {
			return nil, err
		}
		inner = cb
	case NameProto:
		inner = ProtoStruct[V]{}
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	if maxDecode > 0 {
		return LimitCodec[V]{Inner: inner, MaxDecode: maxDecode}, nil
	}
	return inner, nil
}
