package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// frameHeaderSize is the size of the uint32 length prefix
const frameHeaderSize = 4

// DefaultMaxFrameSize bounds incoming frames unless the caller configures
// its own limit. It guards against a corrupt or hostile peer announcing a
// multi-gigabyte frame and forcing a matching allocation.
const DefaultMaxFrameSize uint32 = 16 << 20

// WriteFrame writes data as one length-prefixed frame: a big-endian
// uint32 byte count followed by the payload. Header and payload go out in
// a single Write so a frame is never interleaved mid-header.
func WriteFrame(w io.Writer, data []byte) error {
	_, err := w.Write(AppendFrame(nil, data))
	return err
}

// AppendFrame appends the framed form of data to dst and returns the
// extended slice. It is the allocation-free building block behind
// WriteFrame for callers that reuse scratch buffers.
func AppendFrame(dst, data []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(data)))
	return append(dst, data...)
}

// ReadFrame reads one length-prefixed frame from r. Frames announcing
// more than maxSize bytes fail with ErrFrameTooLarge before any payload
// is read; maxSize <= 0 falls back to DefaultMaxFrameSize. A clean EOF on
// the frame boundary is reported as io.EOF, a truncated frame as
// io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxFrameSize
	}

	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, maxSize)
	}
	if size == 0 {
		return nil, nil
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
