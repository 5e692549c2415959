// Package wire implements typed binary message payloads, pluggable codecs
// and length-prefixed framing for stream transports.
//
// All multi-byte values use big-endian byte order on the wire.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// Predefined errors
var (
	// ErrBufferShort indicates a read past the buffered payload
	ErrBufferShort = errors.New("wire: buffer too short")

	// ErrFrameTooLarge indicates a frame exceeding the configured maximum
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")
)

// Buffer is a byte serializer with an independent read cursor. Values are
// appended and read back in the same order, each with a fixed-width
// big-endian encoding (strings and byte slices carry a uint32 length
// prefix).
//
// Buffer is not safe for concurrent use; hand completed buffers between
// goroutines through a deque instead.
type Buffer struct {
	buf []byte
	r   int
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewBufferFrom creates a buffer reading from data. The slice is used
// directly, not copied.
func NewBufferFrom(data []byte) *Buffer {
	return &Buffer{buf: data}
}

// Len returns the total number of buffered bytes.
func (b *Buffer) Len() int { return len(b.buf) }

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int { return len(b.buf) - b.r }

// Bytes returns the underlying buffered bytes. The slice is shared with
// the buffer; it is only valid until the next write.
func (b *Buffer) Bytes() []byte { return b.buf }

// Reset discards all content and rewinds the read cursor.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.r = 0
}

// ResetRead rewinds the read cursor so the payload can be read again.
func (b *Buffer) ResetRead() { b.r = 0 }

// WriteUint8 appends a uint8
func (b *Buffer) WriteUint8(v uint8) *Buffer {
	b.buf = append(b.buf, v)
	return b
}

// WriteUint16 appends a uint16
func (b *Buffer) WriteUint16(v uint16) *Buffer {
	b.buf = binary.BigEndian.AppendUint16(b.buf, v)
	return b
}

// WriteUint32 appends a uint32
func (b *Buffer) WriteUint32(v uint32) *Buffer {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
	return b
}

// WriteUint64 appends a uint64
func (b *Buffer) WriteUint64(v uint64) *Buffer {
	b.buf = binary.BigEndian.AppendUint64(b.buf, v)
	return b
}

// WriteInt8 appends an int8
func (b *Buffer) WriteInt8(v int8) *Buffer { return b.WriteUint8(uint8(v)) }

// WriteInt16 appends an int16
func (b *Buffer) WriteInt16(v int16) *Buffer { return b.WriteUint16(uint16(v)) }

// WriteInt32 appends an int32
func (b *Buffer) WriteInt32(v int32) *Buffer { return b.WriteUint32(uint32(v)) }

// WriteInt64 appends an int64
func (b *Buffer) WriteInt64(v int64) *Buffer { return b.WriteUint64(uint64(v)) }

// WriteBool appends a bool as one byte
func (b *Buffer) WriteBool(v bool) *Buffer {
	if v {
		return b.WriteUint8(1)
	}
	return b.WriteUint8(0)
}

// WriteFloat32 appends a float32 in IEEE 754 representation
func (b *Buffer) WriteFloat32(v float32) *Buffer {
	return b.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 appends a float64 in IEEE 754 representation
func (b *Buffer) WriteFloat64(v float64) *Buffer {
	return b.WriteUint64(math.Float64bits(v))
}

// WriteString appends a length-prefixed string
func (b *Buffer) WriteString(v string) *Buffer {
	b.WriteUint32(uint32(len(v)))
	b.buf = append(b.buf, v...)
	return b
}

// WriteBytes appends a length-prefixed byte slice
func (b *Buffer) WriteBytes(v []byte) *Buffer {
	b.WriteUint32(uint32(len(v)))
	b.buf = append(b.buf, v...)
	return b
}

// take advances the read cursor over n bytes, failing with ErrBufferShort
// when fewer remain.
func (b *Buffer) take(n int) ([]byte, error) {
	if b.Remaining() < n {
		return nil, ErrBufferShort
	}
	s := b.buf[b.r : b.r+n]
	b.r += n
	return s, nil
}

// ReadUint8 reads a uint8
func (b *Buffer) ReadUint8() (uint8, error) {
	s, err := b.take(1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

// ReadUint16 reads a uint16
func (b *Buffer) ReadUint16() (uint16, error) {
	s, err := b.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(s), nil
}

// ReadUint32 reads a uint32
func (b *Buffer) ReadUint32() (uint32, error) {
	s, err := b.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(s), nil
}

// ReadUint64 reads a uint64
func (b *Buffer) ReadUint64() (uint64, error) {
	s, err := b.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(s), nil
}

// ReadInt8 reads an int8
func (b *Buffer) ReadInt8() (int8, error) {
	v, err := b.ReadUint8()
	return int8(v), err
}

// ReadInt16 reads an int16
func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads an int32
func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads an int64
func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

// ReadBool reads a bool
func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadUint8()
	return v != 0, err
}

// ReadFloat32 reads a float32
func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads a float64
func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadString reads a length-prefixed string
func (b *Buffer) ReadString() (string, error) {
	s, err := b.readLengthPrefixed()
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// ReadBytes reads a length-prefixed byte slice. The returned slice is a
// copy and remains valid after further buffer use.
func (b *Buffer) ReadBytes() ([]byte, error) {
	s, err := b.readLengthPrefixed()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(s))
	copy(out, s)
	return out, nil
}

func (b *Buffer) readLengthPrefixed() ([]byte, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return nil, err
	}
	return b.take(int(n))
}
