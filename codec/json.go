package codec

import "encoding/json"

// JSON stores values as JSON text. It is the default codec; other clients
// reading the same keys expect this format.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
