package codec

import (
	"github.com/fxamacker/cbor/v2"
)

type CBOROptions struct {
	// Canonical selects RFC 8949 core deterministic encoding: map keys are
	// sorted, so an unchanged payload is rewritten with identical bytes.
	Canonical bool
	// MaxNestedLevels caps decode depth; 0 keeps the library default.
	MaxNestedLevels int
}

// CBOR stores values as CBOR. Field names come from cbor tags, falling back
// to json tags, so payload structs need only one set of tags.
// Build it with NewCBOR; the zero value has no modes and panics.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](o CBOROptions) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if o.Canonical {
		eo = cbor.CoreDetEncOptions()
	}
	enc, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	// Duplicate map keys only show up in foreign or corrupt entries.
	do := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: o.MaxNestedLevels,
	}
	dec, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: enc, dec: dec}, nil
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	if err := c.dec.Unmarshal(b, &v); err != nil {
		return v, err
	}
	return v, nil
}
