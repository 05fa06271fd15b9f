package format

import (
	"bytes"
	"testing"
)

// FuzzFrameRoundTrip checks that any payload survives encode/decode.
func FuzzFrameRoundTrip(f *testing.F) {
	f.Add([]byte("hello world"))
	f.Add([]byte{0x00})
	f.Add(make([]byte, 1024))

	f.Fuzz(func(t *testing.T, payload []byte) {
		if len(payload) > 10*1024*1024 {
			t.Skip()
		}

		frame := EncodeFrame(payload)
		got, rest, err := DecodeFrame(frame)
		if err != nil {
			t.Fatalf("DecodeFrame failed: %v (frame len %d)", err, len(frame))
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("payload mismatch: got %d bytes, want %d bytes", len(got), len(payload))
		}
		if len(rest) != 0 {
			t.Errorf("remaining bytes = %d, want 0", len(rest))
		}
	})
}

// FuzzDecodeFrame checks that arbitrary input never panics the decoder.
func FuzzDecodeFrame(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x05, 0x00, 0x00, 0x00})
	f.Add(EncodeFrame([]byte("seed")))

	f.Fuzz(func(t *testing.T, buf []byte) {
		payload, rest, err := DecodeFrame(buf)
		if err != nil {
			return
		}
		if FramedSize(len(payload))+int64(len(rest)) != int64(len(buf)) {
			t.Errorf("frame(%d) + rest(%d) does not cover input(%d)",
				len(payload), len(rest), len(buf))
		}
	})
}
