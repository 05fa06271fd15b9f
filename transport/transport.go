// Package transport carries the ledger's asynchronous responses back to
// the host's enclave-facing transport.
//
// The ledger completes batched historical reads off the synchronous call
// path and posts the result as a message. Production hosts bind the poster
// to a ring buffer shared with the transport thread; tests use MemPoster.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ReadResponse is the completion message for an asynchronous framed-entries
// read. ID is a correlation id chosen by the caller.
type ReadResponse struct {
	ID   uint64
	From uint64
	To   uint64
	OK   bool
	Data []byte // framed entries; empty when !OK
}

// Poster posts asynchronous ledger responses to the host transport.
type Poster interface {
	PostReadResponse(ReadResponse) error
}

// readResponseHeaderSize is the fixed portion of an encoded ReadResponse:
// ID(8) + From(8) + To(8) + OK(1).
const readResponseHeaderSize = 25

// EncodeReadResponse returns the wire encoding of resp: three little-endian
// 64-bit fields, a one-byte flag, then the framed payload.
func EncodeReadResponse(resp ReadResponse) []byte {
	buf := make([]byte, readResponseHeaderSize+len(resp.Data))
	binary.LittleEndian.PutUint64(buf[0:], resp.ID)
	binary.LittleEndian.PutUint64(buf[8:], resp.From)
	binary.LittleEndian.PutUint64(buf[16:], resp.To)
	if resp.OK {
		buf[24] = 1
	}
	copy(buf[readResponseHeaderSize:], resp.Data)
	return buf
}

// DecodeReadResponse parses a record produced by EncodeReadResponse.
func DecodeReadResponse(rec []byte) (ReadResponse, error) {
	if len(rec) < readResponseHeaderSize {
		return ReadResponse{}, fmt.Errorf("read response record too short: %d bytes", len(rec))
	}
	resp := ReadResponse{
		ID:   binary.LittleEndian.Uint64(rec[0:]),
		From: binary.LittleEndian.Uint64(rec[8:]),
		To:   binary.LittleEndian.Uint64(rec[16:]),
		OK:   rec[24] == 1,
	}
	if len(rec) > readResponseHeaderSize {
		resp.Data = rec[readResponseHeaderSize:]
	}
	return resp, nil
}

// RingPoster posts read responses onto a ring buffer.
type RingPoster struct {
	ring *Ring
}

// NewRingPoster returns a poster writing into r.
func NewRingPoster(r *Ring) *RingPoster {
	return &RingPoster{ring: r}
}

// PostReadResponse implements Poster.
func (p *RingPoster) PostReadResponse(resp ReadResponse) error {
	return p.ring.Write(EncodeReadResponse(resp))
}

// MemPoster collects responses in memory. It is the test binding of Poster.
type MemPoster struct {
	Responses []ReadResponse
}

// PostReadResponse implements Poster.
func (p *MemPoster) PostReadResponse(resp ReadResponse) error {
	p.Responses = append(p.Responses, resp)
	return nil
}

// ErrPosterRequired is returned when an asynchronous read is requested on a
// ledger constructed without a poster.
var ErrPosterRequired = errors.New("chunkledger: no response poster configured")
