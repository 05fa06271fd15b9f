package chunkledger

// Stats contains a point-in-time view of the ledger and its operation
// counters.
type Stats struct {
	// LastIndex is the highest resident index, zero when empty.
	LastIndex uint64

	// CommitIndex is the highest committed index.
	CommitIndex uint64

	// ChunkCount is the number of chunks in the writable directory,
	// including the write head.
	ChunkCount int

	// CommittedChunks is the number of chunks bearing the committed name.
	CommittedChunks int

	// DiskUsageBytes is the total size of the writable directory's chunks.
	DiskUsageBytes int64

	// OpenReadHandles is the number of chunk files held open by the read
	// cache.
	OpenReadHandles int

	// Lifetime operation counters.
	EntriesWritten  uint64
	BytesWritten    uint64
	ChunksSealed    uint64
	ChunksCommitted uint64
	Truncations     uint64
	CacheHits       uint64
	CacheMisses     uint64
	AsyncReads      uint64
	ReadMisses      uint64
}

// Stats returns current ledger statistics.
func (l *Ledger) Stats() Stats {
	s := l.l.Snapshot()
	return Stats{
		LastIndex:       s.LastIdx,
		CommitIndex:     s.CommitIdx,
		ChunkCount:      s.ChunkCount,
		CommittedChunks: s.CommittedChunks,
		DiskUsageBytes:  s.DiskUsageBytes,
		OpenReadHandles: s.OpenReadHandles,
		EntriesWritten:  s.Metrics.EntriesWritten,
		BytesWritten:    s.Metrics.BytesWritten,
		ChunksSealed:    s.Metrics.ChunksSealed,
		ChunksCommitted: s.Metrics.ChunksCommitted,
		Truncations:     s.Metrics.Truncations,
		CacheHits:       s.Metrics.CacheHits,
		CacheMisses:     s.Metrics.CacheMisses,
		AsyncReads:      s.Metrics.AsyncReads,
		ReadMisses:      s.Metrics.ReadMisses,
	}
}
