// Package chunkledger provides the durable append-only ledger of a
// replicated state-machine node.
//
// The ledger records a totally ordered sequence of opaque entries in
// chunked files and makes arbitrary historical ranges cheaply re-readable
// for replay, catch-up, and recovery. Entries are immutable once written;
// only suffix truncation is allowed, and committed chunks are immutable
// outright.
//
// Example usage:
//
//	l, err := chunkledger.Open("./ledger", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer l.Close()
//
//	idx, err := l.WriteEntry([]byte("payload"), true, false)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := l.Commit(idx); err != nil {
//		log.Fatal(err)
//	}
//
//	data, ok := l.ReadEntry(idx)
package chunkledger

import (
	"github.com/vnykmshr/chunkledger/internal/ledger"
)

// Ledger is a chunked, append-only entry store over one writable directory
// and any number of read-only directories.
type Ledger struct {
	l *ledger.Ledger
}

// Open creates or recovers a ledger in dir. A nil opts selects
// DefaultOptions. Construction fails on invalid options and on any
// corruption found while rebuilding state from the directory.
func Open(dir string, opts *Options) (*Ledger, error) {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}
	l, err := ledger.Open(dir, ledger.Options{
		ChunkThreshold: opts.ChunkThreshold,
		ReadCacheBound: opts.ReadCacheBound,
		ReadOnlyDirs:   opts.ReadOnlyDirs,
		Logger:         opts.Logger,
		Poster:         opts.Poster,
	})
	if err != nil {
		return nil, err
	}
	return &Ledger{l: l}, nil
}

// WriteEntry appends one entry and returns its index, one past the
// previous entry's. Committable entries are legal chunk boundaries; when
// forceChunk is set on a committable entry, the next append lands in a
// fresh chunk.
func (l *Ledger) WriteEntry(data []byte, committable, forceChunk bool) (uint64, error) {
	return l.l.WriteEntry(data, committable, forceChunk)
}

// ReadEntry returns the payload of entry i, reporting false when i is
// zero, past the last index, or not resident.
func (l *Ledger) ReadEntry(i uint64) ([]byte, bool) {
	return l.l.ReadEntry(i)
}

// ReadFramedEntries returns the length-prefixed wire form of entries
// [from, to], stitched across chunks in index order.
func (l *Ledger) ReadFramedEntries(from, to uint64) ([]byte, bool) {
	return l.l.ReadFramedEntries(from, to)
}

// ReadFramedEntriesAsync performs a framed-entries read and posts its
// completion to the configured transport poster under the caller-chosen
// correlation id.
func (l *Ledger) ReadFramedEntriesAsync(from, to, correlationID uint64) error {
	return l.l.ReadFramedEntriesAsync(from, to, correlationID)
}

// Commit marks every chunk ending at or before i as committed. Commits
// below the current commit index, past the last index, or landing strictly
// inside a sealed chunk rename nothing.
func (l *Ledger) Commit(i uint64) error {
	return l.l.Commit(i)
}

// Truncate drops every entry after i. Truncating below the commit index or
// at the last index is a no-op; Truncate(0) empties the ledger.
func (l *Ledger) Truncate(i uint64) error {
	return l.l.Truncate(i)
}

// LastIndex returns the highest resident index, zero when empty.
func (l *Ledger) LastIndex() uint64 {
	return l.l.LastIndex()
}

// CommitIndex returns the highest committed index.
func (l *Ledger) CommitIndex() uint64 {
	return l.l.CommitIndex()
}

// Close releases all file handles. No further operation is valid.
func (l *Ledger) Close() error {
	return l.l.Close()
}
