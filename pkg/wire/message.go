package wire

import "encoding/binary"

// messageHeaderSize is the serialized size of the message type tag
const messageHeaderSize = 4

// Message is a typed, ordered binary payload. The type tag routes the
// message to a registered action on the receiving side; the embedded
// Buffer carries the payload and exposes the typed Write*/Read* surface
// directly on the message.
type Message struct {
	typ int32
	Buffer
}

// NewMessage creates an empty message with the given type tag.
func NewMessage(typ int32) *Message {
	return &Message{typ: typ}
}

// Type returns the message type tag.
func (m *Message) Type() int32 { return m.typ }

// Marshal serializes the message as a big-endian int32 type tag followed
// by the raw payload.
func (m *Message) Marshal() []byte {
	out := make([]byte, 0, messageHeaderSize+m.Len())
	out = binary.BigEndian.AppendUint32(out, uint32(m.typ))
	return append(out, m.Bytes()...)
}

// Unmarshal replaces the message content with the serialized form in
// data. The payload bytes are copied; the read cursor is rewound.
func (m *Message) Unmarshal(data []byte) error {
	if len(data) < messageHeaderSize {
		return ErrBufferShort
	}
	m.typ = int32(binary.BigEndian.Uint32(data))

	payload := make([]byte, len(data)-messageHeaderSize)
	copy(payload, data[messageHeaderSize:])
	m.Buffer = Buffer{buf: payload}
	return nil
}
