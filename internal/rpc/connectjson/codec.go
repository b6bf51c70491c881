// Package connectjson provides a plain JSON codec for Connect streams, so
// handlers and clients exchange ordinary Go structs without protobuf
// definitions.
package connectjson

import (
	"encoding/json"

	"github.com/bufbuild/connect-go"
)

// Codec encodes and decodes stream messages as JSON. The name must stay
// "json" so Connect negotiates the matching content type.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

var _ connect.Codec = Codec{}
