// Package framing implements the length-delimited record boundary used on
// top of the raw TCP streams for the push, req, and sub sockets. A frame
// is a 4-byte big-endian length prefix followed by that many payload
// bytes; the payload is an opaque []byte to this package — callers hand
// it to the wire codec.
package framing

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame; a length prefix claiming more than
// this is treated as a corrupt stream rather than an attempt to read an
// unbounded amount of memory.
const MaxFrameSize = 16 << 20 // 16 MiB

// WriteFrame writes one length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("framing: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("framing: write payload: %w", err)
	}
	return nil
}

// Reader reads length-delimited frames off a stream. It owns no
// reconnection logic; a new Reader must be constructed after every
// reconnect so a partial frame from the old connection is never carried
// forward (§4.D: "frames never straddle connection resets").
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for frame-at-a-time reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4096)}
}

// ReadFrame blocks until one full frame is available, or returns an error
// (including io.EOF on a closed connection).
func (fr *Reader) ReadFrame() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(fr.br, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("framing: frame length %d exceeds maximum %d", n, MaxFrameSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(fr.br, payload); err != nil {
		return nil, fmt.Errorf("framing: short read on payload: %w", err)
	}
	return payload, nil
}
