// Package format defines the on-disk encoding of ledger chunk files.
//
// A chunk file is a fixed-size file header followed by back-to-back framed
// entries:
//
//	[FirstFrameOffset:8 LE][len:4 LE][payload:len][len:4 LE][payload:len]...
//
// The file header value is the byte offset of the first frame, which today
// equals the header width itself; the prefix is reserved for future in-file
// metadata. Frames carry no checksums or flags: the entry payload is opaque
// to the ledger.
package format

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformed indicates a frame or file header that cannot be decoded.
var ErrMalformed = errors.New("malformed frame")

// FrameHeaderSize is the width of the length prefix preceding every entry.
const FrameHeaderSize = 4

// EncodeFrame returns the on-disk encoding of payload: a little-endian
// 32-bit length followed by the payload bytes.
func EncodeFrame(payload []byte) []byte {
	buf := make([]byte, FrameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[FrameHeaderSize:], payload)
	return buf
}

// FramedSize returns the on-disk size of an entry with the given payload length.
func FramedSize(payloadLen int) int64 {
	return int64(FrameHeaderSize + payloadLen)
}

// DecodeFrame reads one frame from the start of buf. The returned payload
// borrows buf's storage; rest is the remainder of buf past the frame.
func DecodeFrame(buf []byte) (payload, rest []byte, err error) {
	if len(buf) < FrameHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes remaining, want %d-byte length prefix",
			ErrMalformed, len(buf), FrameHeaderSize)
	}
	n := binary.LittleEndian.Uint32(buf)
	if uint64(len(buf)-FrameHeaderSize) < uint64(n) {
		return nil, nil, fmt.Errorf("%w: declared length %d exceeds %d remaining bytes",
			ErrMalformed, n, len(buf)-FrameHeaderSize)
	}
	end := FrameHeaderSize + int(n)
	return buf[FrameHeaderSize:end], buf[end:], nil
}
