package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrRingFull is returned when a record does not fit in the ring's free
// space. The writer never blocks; the producer decides whether to retry.
var ErrRingFull = errors.New("chunkledger: ring buffer full")

const recordHeaderSize = 4

// Ring is a bounded single-producer, single-consumer byte ring buffer
// holding length-prefixed records. Records may wrap around the buffer
// boundary. The producer and consumer may live on different threads; the
// head and tail cursors are the only shared state.
type Ring struct {
	buf  []byte
	size uint64
	head atomic.Uint64 // consumer cursor
	tail atomic.Uint64 // producer cursor
}

// NewRing returns a ring of the given capacity, which must be a positive
// power of two.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring capacity %d is not a positive power of two", capacity)
	}
	return &Ring{
		buf:  make([]byte, capacity),
		size: uint64(capacity),
	}, nil
}

// Write appends one record. It fails with ErrRingFull when the record plus
// its length prefix does not fit in the free space, and rejects records
// that could never fit.
func (r *Ring) Write(rec []byte) error {
	need := uint64(recordHeaderSize + len(rec))
	if need > r.size {
		return fmt.Errorf("record of %d bytes exceeds ring capacity %d", len(rec), r.size)
	}

	head := r.head.Load()
	tail := r.tail.Load()
	if r.size-(tail-head) < need {
		return ErrRingFull
	}

	var hdr [recordHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(rec)))
	r.copyIn(tail, hdr[:])
	r.copyIn(tail+recordHeaderSize, rec)
	r.tail.Store(tail + need)
	return nil
}

// Read removes and returns the oldest record, reporting false when the
// ring is empty.
func (r *Ring) Read() ([]byte, bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail-head < recordHeaderSize {
		return nil, false
	}

	var hdr [recordHeaderSize]byte
	r.copyOut(head, hdr[:])
	n := binary.LittleEndian.Uint32(hdr[:])

	rec := make([]byte, n)
	r.copyOut(head+recordHeaderSize, rec)
	r.head.Store(head + recordHeaderSize + uint64(n))
	return rec, true
}

// Len returns the number of buffered bytes, including record prefixes.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

func (r *Ring) copyIn(pos uint64, b []byte) {
	off := pos & (r.size - 1)
	n := copy(r.buf[off:], b)
	copy(r.buf, b[n:])
}

func (r *Ring) copyOut(pos uint64, b []byte) {
	off := pos & (r.size - 1)
	n := copy(b, r.buf[off:])
	copy(b[n:], r.buf)
}
