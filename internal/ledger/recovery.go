package ledger

import (
	"fmt"
	"os"

	"github.com/vnykmshr/chunkledger/internal/chunk"
	"github.com/vnykmshr/chunkledger/internal/metrics"
)

// Open constructs a ledger over writableDir, rebuilding its state from the
// chunk files found there. Read-only directories are validated here and
// scanned lazily on reads. Recovery is strict: a corrupt header, an
// unreadable file, or a gap or overlap between chunks refuses construction
// rather than silently dropping entries.
func Open(writableDir string, opts Options) (*Ledger, error) {
	if writableDir == "" {
		return nil, fmt.Errorf("%w: writable directory required", ErrConfig)
	}
	if opts.ChunkThreshold <= 0 {
		return nil, fmt.Errorf("%w: chunk threshold must be positive", ErrConfig)
	}
	bound := opts.ReadCacheBound
	if bound == 0 {
		bound = DefaultReadCacheBound
	}
	if bound < 0 {
		return nil, fmt.Errorf("%w: read cache bound must be positive", ErrConfig)
	}

	if err := os.MkdirAll(writableDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	for _, dir := range opts.ReadOnlyDirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: read-only directory %s: %v", ErrConfig, dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: read-only path %s is not a directory", ErrConfig, dir)
		}
	}

	infos, err := chunk.Discover(writableDir)
	if err != nil {
		return nil, err
	}

	var (
		sealed    []*chunk.File
		commitIdx uint64
		expected  uint64
	)
	for n, info := range infos {
		c, err := chunk.Open(info.Path)
		if err != nil {
			return nil, fmt.Errorf("recovery failed: %w", err)
		}

		last := n == len(infos)-1
		if c.EntryCount() == 0 && (!last || info.Committed) {
			_ = c.Close()
			return nil, fmt.Errorf("recovery failed: chunk %s holds no entries", info.Path)
		}
		if expected != 0 && c.StartIdx() != expected {
			_ = c.Close()
			return nil, fmt.Errorf("recovery failed: chunk %s starts at %d, expected %d",
				info.Path, c.StartIdx(), expected)
		}
		expected = c.LastIdx() + 1

		if info.Committed {
			commitIdx = c.LastIdx()
		}
		if err := c.Close(); err != nil {
			return nil, fmt.Errorf("recovery failed: %w", err)
		}
		sealed = append(sealed, c)
	}

	// The final chunk goes back under the write head unless it is
	// committed; it may already be at threshold, in which case the next
	// committable append seals it again.
	var head *chunk.File
	if n := len(sealed); n > 0 && sealed[n-1].State() == chunk.SealedPending {
		head, err = chunk.OpenWriting(sealed[n-1].Path())
		if err != nil {
			return nil, fmt.Errorf("recovery failed: %w", err)
		}
		sealed = sealed[:n-1]
	}

	var lastIdx uint64
	switch {
	case head != nil:
		lastIdx = head.LastIdx()
	case len(sealed) > 0:
		lastIdx = sealed[len(sealed)-1].LastIdx()
	}

	l := &Ledger{
		writableDir: writableDir,
		roDirs:      opts.ReadOnlyDirs,
		threshold:   opts.ChunkThreshold,
		log:         opts.Logger,
		poster:      opts.Poster,
		stats:       metrics.NewCollector(),
		head:        head,
		sealed:      sealed,
		cache:       chunk.NewCache(bound),
		lastIdx:     lastIdx,
		commitIdx:   commitIdx,
	}

	l.log.Info().
		Str("dir", writableDir).
		Int("chunks", len(infos)).
		Uint64("last_idx", lastIdx).
		Uint64("commit_idx", commitIdx).
		Msg("ledger recovered")

	return l, nil
}
