package codec

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtoStruct stores V as a binary google.protobuf.Struct. V travels through
// its JSON form first, so json tags define the field names and any V that
// encodes to a JSON object is supported.
//
// Numbers inside a Struct are doubles; integers above 2^53 lose precision.
type ProtoStruct[V any] struct{}

func (ProtoStruct[V]) Encode(v V) ([]byte, error) {
	js, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func (ProtoStruct[V]) Decode(b []byte) (V, error) {
	var v V
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return v, err
	}
	js, err := protojson.Marshal(&s)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(js, &v)
	return v, err
}
