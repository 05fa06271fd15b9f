package ledger

import (
	"fmt"

	"github.com/vnykmshr/chunkledger/internal/chunk"
	"github.com/vnykmshr/chunkledger/transport"
)

// ReadEntry returns the payload of entry i. It reports false for index
// zero, for indices past the last index, and for indices whose chunk is
// not resident in the configured directories. Read failures never poison
// the ledger.
func (l *Ledger) ReadEntry(i uint64) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || i == 0 || i > l.lastIdx {
		return nil, false
	}

	f, release, err := l.resolveChunk(i)
	if err != nil {
		l.readMiss(i, err)
		return nil, false
	}
	defer release()

	data, err := f.Read(i)
	if err != nil {
		l.readMiss(i, err)
		return nil, false
	}
	return data, true
}

// ReadFramedEntries returns the framed bytes of entries [from, to],
// stitched across chunk boundaries in index order. It reports false when
// the range is empty, starts at zero, extends past the last index, or
// contains an unresolvable index.
func (l *Ledger) ReadFramedEntries(from, to uint64) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readFramedLocked(from, to)
}

func (l *Ledger) readFramedLocked(from, to uint64) ([]byte, bool) {
	if l.closed || from == 0 || from > to || to > l.lastIdx {
		return nil, false
	}

	var out []byte
	for i := from; i <= to; {
		f, release, err := l.resolveChunk(i)
		if err != nil {
			l.readMiss(i, err)
			return nil, false
		}

		hi := f.LastIdx()
		if hi > to {
			hi = to
		}
		seg, err := f.ReadFramedRange(i, hi)
		release()
		if err != nil {
			l.readMiss(i, err)
			return nil, false
		}
		out = append(out, seg...)
		i = hi + 1
	}
	return out, true
}

// ReadFramedEntriesAsync performs a framed-entries read and posts the
// completion, tagged with the caller-chosen correlation id, to the host
// transport. An unresolvable range posts a failed response.
func (l *Ledger) ReadFramedEntriesAsync(from, to, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.poster == nil {
		return transport.ErrPosterRequired
	}

	data, ok := l.readFramedLocked(from, to)
	l.stats.RecordAsyncRead()
	return l.poster.PostReadResponse(transport.ReadResponse{
		ID:   id,
		From: from,
		To:   to,
		OK:   ok,
		Data: data,
	})
}

// resolveChunk returns an open handle covering index i plus a release
// function. Lookup order: write head, sealed chunks of the writable
// directory (committed ones through the read cache, pending ones through a
// transient handle), then each read-only directory in declaration order.
func (l *Ledger) resolveChunk(i uint64) (*chunk.File, func(), error) {
	if l.head != nil && l.head.Covers(i) {
		return l.head, func() {}, nil
	}

	if c, ok := l.findSealed(i); ok {
		if c.State() == chunk.SealedCommitted {
			f, hit, err := l.cache.GetOrOpen(c.StartIdx(), c.Path())
			if err != nil {
				return nil, nil, err
			}
			l.recordCacheLookup(hit)
			return f, func() {}, nil
		}
		f, err := chunk.Open(c.Path())
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}

	for _, dir := range l.roDirs {
		info, ok := chunk.FindCommitted(dir, i)
		if !ok {
			continue
		}
		f, hit, err := l.cache.GetOrOpen(info.StartIdx, info.Path)
		if err != nil {
			return nil, nil, err
		}
		l.recordCacheLookup(hit)
		return f, func() {}, nil
	}

	return nil, nil, fmt.Errorf("no resident chunk covers index %d: %w", i, chunk.ErrOutOfRange)
}

func (l *Ledger) recordCacheLookup(hit bool) {
	if hit {
		l.stats.RecordCacheHit()
	} else {
		l.stats.RecordCacheMiss()
	}
}

func (l *Ledger) readMiss(i uint64, err error) {
	l.stats.RecordReadMiss()
	l.log.Warn().Err(chunkError(i, err)).Msg("read miss")
}
