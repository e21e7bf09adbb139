// Package wire implements the two framing modes used on the network:
// length-prefixed TCP streaming and length-announce + chunked UDP
// broadcast (spec §4.2).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTransport is returned when a framed read is truncated or a
// connection closes mid-message (spec §7.4 "TransportError").
var ErrTransport = errors.New("wire: transport error")

// ErrDecode is returned when a frame's bytes parse but its payload
// codec rejects them — a malformed cbor frame (spec §7.5 "DecodeError").
// Handled the same as ErrTransport: the affected client drops out of
// the phase it was decoded for.
var ErrDecode = errors.New("wire: decode error")

// MaxFrameSize bounds a single stream frame to guard against a
// malicious or corrupted length prefix forcing an unbounded allocation.
const MaxFrameSize = 64 << 20 // 64 MiB

// WriteFrame writes a 4-byte big-endian length prefix followed by b.
func WriteFrame(w io.Writer, b []byte) error {
	if len(b) > MaxFrameSize {
		return fmt.Errorf("wire: frame too large: %d bytes", len(b))
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. A short read (the
// connection closing before the declared byte count is reached) is
// fatal for that connection.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading length prefix: %v", ErrTransport, err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame too large: %d bytes", ErrTransport, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: truncated frame: %v", ErrTransport, err)
	}
	return buf, nil
}
