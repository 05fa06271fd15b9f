package chunkledger

import (
	"github.com/rs/zerolog"

	"github.com/vnykmshr/chunkledger/transport"
)

// Options contains configuration parameters for a Ledger.
type Options struct {
	// ChunkThreshold is the chunk size in bytes at or above which a
	// committable append seals the current chunk. Must be strictly positive.
	// Default: 5 MB
	ChunkThreshold int64

	// ReadCacheBound caps the number of open read-only chunk handles.
	// The write head is not counted. Zero selects the default.
	// Default: 5
	ReadCacheBound int

	// ReadOnlyDirs is an ordered list of directories that contribute
	// committed chunks. Pending files found there are ignored. When the
	// same start index appears in several places, the writable directory
	// wins, then read-only directories in declaration order.
	ReadOnlyDirs []string

	// Logger receives chunk lifecycle and read-path events.
	// Default: no logging
	Logger zerolog.Logger

	// Poster receives asynchronous read completions. Required only when
	// ReadFramedEntriesAsync is used.
	Poster transport.Poster
}

// DefaultOptions returns the default configuration options.
func DefaultOptions() Options {
	return Options{
		ChunkThreshold: 5 * 1024 * 1024, // 5 MB
		ReadCacheBound: 5,
		Logger:         zerolog.Nop(),
	}
}
