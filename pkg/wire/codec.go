package wire

import "github.com/vmihailenco/msgpack/v5"

// Codec defines the serialization contract for messages crossing a
// transport. Implementations handle encoding/decoding messages to/from
// the framed payload bytes.
type Codec interface {
	// Encode serializes a message to bytes
	Encode(msg *Message) ([]byte, error)

	// Decode deserializes bytes into a message
	Decode(data []byte) (*Message, error)

	// Name returns the codec identifier
	Name() string
}

// Codec name constants for format negotiation.
const (
	CodecNameBinary  = "binary"
	CodecNameMsgpack = "msgpack"
)

// CodecByName returns a codec by name. Defaults to the binary codec.
func CodecByName(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	default:
		return &BinaryCodec{}
	}
}

// BinaryCodec encodes messages in their native Marshal format: a
// big-endian int32 type tag followed by the raw payload.
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(msg *Message) ([]byte, error) {
	return msg.Marshal(), nil
}

func (c *BinaryCodec) Decode(data []byte) (*Message, error) {
	var m Message
	if err := m.Unmarshal(data); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *BinaryCodec) Name() string { return CodecNameBinary }

// msgpackEnvelope is the MessagePack representation of a message
type msgpackEnvelope struct {
	Type    int32  `msgpack:"t"`
	Payload []byte `msgpack:"p"`
}

// MsgpackCodec encodes messages as MessagePack envelopes. The payload
// bytes stay opaque; only the envelope is MessagePack.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(msg *Message) ([]byte, error) {
	return msgpack.Marshal(&msgpackEnvelope{Type: msg.Type(), Payload: msg.Bytes()})
}

func (c *MsgpackCodec) Decode(data []byte) (*Message, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	m := NewMessage(env.Type)
	m.Buffer = Buffer{buf: env.Payload}
	return m, nil
}

func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }
