package remoting

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// frameHeaderLength is the 4-byte big-endian payload length.
const frameHeaderLength = 4

// MaxFrameSize bounds a single message. Read responses carry whole sample
// buffers, so the limit is generous.
const MaxFrameSize = 256 << 20

// ErrFrameTooLarge is returned for payloads above MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

// maxFrameSize is MaxFrameSize, lowered in tests.
var maxFrameSize = MaxFrameSize

// WriteFrame writes [4 bytes length, big-endian] [payload].
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrFrameTooLarge, len(payload), maxFrameSize)
	}

	var header [frameHeaderLength]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one frame written by WriteFrame. A clean end of stream
// before the header is returned as io.EOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if int64(length) > int64(maxFrameSize) {
		return nil, fmt.Errorf("%w: length %d exceeds maximum %d", ErrFrameTooLarge, length, maxFrameSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}
