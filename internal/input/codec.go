package input

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes batches for the wire.
type Codec interface {
	Name() string
	Marshal(Batch) ([]byte, error)
	Unmarshal([]byte, *Batch) error
}

type JSONCodec struct{}

func (JSONCodec) Name() string                       { return "json" }
func (JSONCodec) Marshal(b Batch) ([]byte, error)    { return json.Marshal(b) }
func (JSONCodec) Unmarshal(d []byte, b *Batch) error { return json.Unmarshal(d, b) }

// MsgpackCodec matches the binary framing used on file transfer channels.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string                       { return "msgpack" }
func (MsgpackCodec) Marshal(b Batch) ([]byte, error)    { return msgpack.Marshal(b) }
func (MsgpackCodec) Unmarshal(d []byte, b *Batch) error { return msgpack.Unmarshal(d, b) }

// CodecByName returns the codec called name ("json" or "msgpack").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown input codec %q", name)
	}
}
