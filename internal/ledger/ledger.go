// Package ledger implements the write head, the commit/truncate state
// machine, and multi-directory recovery behind the public facade.
//
// The write head uniquely owns the single Writing chunk; the read cache
// uniquely owns every reopened read handle. Sealed chunks in the writable
// directory are tracked as closed handles holding only identity metadata,
// so memory stays proportional to the entries resident in open chunks.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vnykmshr/chunkledger/internal/chunk"
	"github.com/vnykmshr/chunkledger/internal/metrics"
	"github.com/vnykmshr/chunkledger/transport"
)

// Common errors returned by ledger operations.
var (
	// ErrConfig indicates invalid construction parameters.
	ErrConfig = errors.New("chunkledger: invalid configuration")

	// ErrClosed indicates the ledger has been closed.
	ErrClosed = errors.New("chunkledger: ledger closed")

	// ErrEmptyEntry indicates a write of a zero-length entry.
	ErrEmptyEntry = errors.New("chunkledger: empty entry")
)

// DefaultReadCacheBound is the read-handle cap used when none is configured.
const DefaultReadCacheBound = 5

// Options configures a Ledger.
type Options struct {
	// ChunkThreshold is the chunk size in bytes at or above which a
	// committable append seals the current chunk. Must be positive.
	ChunkThreshold int64

	// ReadCacheBound caps the number of open read-only chunk handles.
	// Zero selects DefaultReadCacheBound.
	ReadCacheBound int

	// ReadOnlyDirs is an ordered list of directories contributing
	// committed chunks only.
	ReadOnlyDirs []string

	// Logger receives chunk lifecycle and read-path events.
	Logger zerolog.Logger

	// Poster receives asynchronous read completions. Optional; required
	// only for ReadFramedEntriesAsync.
	Poster transport.Poster
}

// Ledger is the durable append-only entry store of a node.
//
// All operations are serialised; writes and truncations complete against
// the writable directory before returning.
type Ledger struct {
	mu sync.Mutex

	writableDir string
	roDirs      []string
	threshold   int64
	log         zerolog.Logger
	poster      transport.Poster
	stats       *metrics.Collector

	head     *chunk.File   // Writing chunk; nil when the next append opens one
	sealed   []*chunk.File // closed chunks in the writable dir, ascending start
	cache    *chunk.Cache
	sealNext bool // a committable append requested a seam here

	lastIdx   uint64
	commitIdx uint64
	closed    bool
}

// WriteEntry frames and appends one entry, returning its assigned index.
// Only committable entries may end a chunk; forceChunk marks a seam after
// this entry so the next append lands in a fresh chunk. A write failure is
// fatal to the ledger instance.
func (l *Ledger) WriteEntry(data []byte, committable, forceChunk bool) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}
	if len(data) == 0 {
		return 0, ErrEmptyEntry
	}

	if l.head == nil {
		head, err := chunk.Create(l.writableDir, l.lastIdx+1)
		if err != nil {
			l.closed = true
			return 0, err
		}
		l.head = head
		l.sealNext = false
	} else if l.sealNext {
		if err := l.sealHead(); err != nil {
			l.closed = true
			return 0, err
		}
		head, err := chunk.Create(l.writableDir, l.lastIdx+1)
		if err != nil {
			l.closed = true
			return 0, err
		}
		l.head = head
		l.sealNext = false
	}

	idx, err := l.head.Append(data)
	if err != nil {
		l.closed = true
		return 0, err
	}
	l.lastIdx = idx
	l.stats.RecordWrite(len(data))

	if committable {
		if forceChunk {
			l.sealNext = true
		}
		if l.head.Size() >= l.threshold {
			if err := l.sealHead(); err != nil {
				l.closed = true
				return 0, err
			}
			l.head = nil
			l.sealNext = false
		}
	}

	return idx, nil
}

// sealHead closes the writing chunk and appends it to the sealed list.
// The successor chunk file is created lazily on the next append, so an
// empty chunk file never reaches disk.
func (l *Ledger) sealHead() error {
	head := l.head
	if err := head.Seal(); err != nil {
		return err
	}
	l.sealed = append(l.sealed, head)
	l.stats.RecordSeal()
	l.log.Debug().
		Uint64("start", head.StartIdx()).
		Uint64("last", head.LastIdx()).
		Int64("size", head.Size()).
		Msg("chunk sealed")
	return nil
}

// Commit marks every chunk ending at or before index i as committed,
// renaming its file atomically. Commits that do not land on the last index
// of a sealed chunk, that lag the current commit index, or that point past
// the last index rename nothing.
func (l *Ledger) Commit(i uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if i <= l.commitIdx || i > l.lastIdx {
		return nil
	}
	if !l.sealedBoundaryAt(i) {
		return nil
	}

	renamed := 0
	for _, c := range l.sealed {
		if c.LastIdx() > i || c.State() != chunk.SealedPending {
			continue
		}
		if err := c.RenameCommitted(); err != nil {
			l.closed = true
			return err
		}
		renamed++
		l.log.Debug().
			Uint64("start", c.StartIdx()).
			Uint64("last", c.LastIdx()).
			Msg("chunk committed")
	}

	l.commitIdx = i
	l.stats.RecordCommit(renamed)
	l.log.Info().
		Uint64("commit_idx", i).
		Int("chunks", renamed).
		Msg("commit advanced")
	return nil
}

// sealedBoundaryAt reports whether some sealed chunk ends exactly at i.
func (l *Ledger) sealedBoundaryAt(i uint64) bool {
	for _, c := range l.sealed {
		if c.LastIdx() == i {
			return true
		}
	}
	return false
}

// Truncate drops every entry after index i. Truncating below the commit
// index or at or beyond the last index is a no-op. The chunk left holding
// the tail becomes the write head again; Truncate(0) deletes every chunk.
func (l *Ledger) Truncate(i uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if i < l.commitIdx || i >= l.lastIdx {
		return nil
	}

	// The seam request, if any, pointed at an index that no longer ends
	// the revised tail.
	l.sealNext = false

	if l.head != nil && l.head.EntryCount() > 0 && i >= l.head.StartIdx() {
		if err := l.head.TruncateAt(i); err != nil {
			l.closed = true
			return err
		}
		l.finishTruncate(i)
		return nil
	}

	if l.head != nil {
		if err := l.head.Delete(); err != nil {
			l.closed = true
			return err
		}
		l.head = nil
	}

	for len(l.sealed) > 0 {
		c := l.sealed[len(l.sealed)-1]
		if c.StartIdx() <= i {
			break
		}
		if err := c.Delete(); err != nil {
			l.closed = true
			return err
		}
		l.cache.Remove(c.StartIdx())
		l.sealed = l.sealed[:len(l.sealed)-1]
	}

	if len(l.sealed) > 0 {
		tail := l.sealed[len(l.sealed)-1]
		if tail.Covers(i) {
			if err := l.reopenAsHead(tail, i); err != nil {
				l.closed = true
				return err
			}
			l.sealed = l.sealed[:len(l.sealed)-1]
		}
	}

	l.finishTruncate(i)
	return nil
}

// reopenAsHead turns the sealed chunk holding the new tail back into the
// write head, truncated at i. A committed chunk first reverts to its
// pending name; the in-memory commit index does not move back.
func (l *Ledger) reopenAsHead(c *chunk.File, i uint64) error {
	l.cache.Remove(c.StartIdx())
	if c.State() == chunk.SealedCommitted {
		if err := c.RenamePending(); err != nil {
			return err
		}
	}
	head, err := chunk.OpenWriting(c.Path())
	if err != nil {
		return err
	}
	if i < head.LastIdx() {
		if err := head.TruncateAt(i); err != nil {
			_ = head.Close()
			return err
		}
	}
	l.head = head
	return nil
}

func (l *Ledger) finishTruncate(i uint64) {
	l.lastIdx = i
	l.stats.RecordTruncation()
	l.log.Info().
		Uint64("last_idx", i).
		Msg("ledger truncated")
}

// LastIndex returns the highest resident index, zero when empty.
func (l *Ledger) LastIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastIdx
}

// CommitIndex returns the highest committed index.
func (l *Ledger) CommitIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commitIdx
}

// Close releases every handle. No further operation is valid.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	if l.head != nil {
		if err := l.head.Close(); err != nil {
			firstErr = err
		}
		l.head = nil
	}
	l.cache.Close()
	return firstErr
}

// Snapshot is a point-in-time view of the ledger for stats reporting.
type Snapshot struct {
	LastIdx         uint64
	CommitIdx       uint64
	ChunkCount      int
	CommittedChunks int
	DiskUsageBytes  int64
	OpenReadHandles int
	Metrics         metrics.Snapshot
}

// Snapshot returns the ledger's current stats.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Snapshot{
		LastIdx:         l.lastIdx,
		CommitIdx:       l.commitIdx,
		OpenReadHandles: l.cache.Len(),
		Metrics:         l.stats.Snapshot(),
	}
	for _, c := range l.sealed {
		s.ChunkCount++
		s.DiskUsageBytes += c.Size()
		if c.State() == chunk.SealedCommitted {
			s.CommittedChunks++
		}
	}
	if l.head != nil {
		s.ChunkCount++
		s.DiskUsageBytes += l.head.Size()
	}
	return s
}

// findSealed returns the sealed chunk covering index i, if any.
func (l *Ledger) findSealed(i uint64) (*chunk.File, bool) {
	n := sort.Search(len(l.sealed), func(k int) bool {
		return l.sealed[k].LastIdx() >= i
	})
	if n < len(l.sealed) && l.sealed[n].Covers(i) {
		return l.sealed[n], true
	}
	return nil, false
}

// chunkError wraps read-path failures with the requested index for logs.
func chunkError(i uint64, err error) error {
	return fmt.Errorf("entry %d: %w", i, err)
}
