package format

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FileHeaderSize is the width of the chunk file header: a little-endian
// unsigned integer holding the byte offset of the first frame.
const FileHeaderSize = 8

// EncodeFileHeader returns the header written at the start of a fresh chunk
// file. Its value is the offset of the first frame, i.e. the header width.
func EncodeFileHeader() []byte {
	buf := make([]byte, FileHeaderSize)
	binary.LittleEndian.PutUint64(buf, FileHeaderSize)
	return buf
}

// DecodeFileHeader parses the header at the start of buf and returns the
// byte offset of the first frame.
func DecodeFileHeader(buf []byte) (int64, error) {
	if len(buf) < FileHeaderSize {
		return 0, fmt.Errorf("%w: file shorter than %d-byte header", ErrMalformed, FileHeaderSize)
	}
	off := binary.LittleEndian.Uint64(buf)
	if off < FileHeaderSize || off > math.MaxInt64 {
		return 0, fmt.Errorf("%w: first-frame offset %d outside file", ErrMalformed, off)
	}
	return int64(off), nil
}
