// Package metrics tracks ledger operation counters.
//
// The collector is a set of atomic counters updated on the ledger's hot
// paths and snapshotted for stats reporting. It carries no dependency on a
// metrics backend; hosts export the snapshot however they like.
package metrics

import (
	"sync/atomic"
)

// Collector tracks ledger metrics.
type Collector struct {
	entriesWritten  atomic.Uint64
	bytesWritten    atomic.Uint64
	chunksSealed    atomic.Uint64
	chunksCommitted atomic.Uint64
	truncations     atomic.Uint64
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	asyncReads      atomic.Uint64
	readMisses      atomic.Uint64
}

// NewCollector creates an empty metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordWrite records one appended entry of the given payload size.
func (c *Collector) RecordWrite(payloadSize int) {
	c.entriesWritten.Add(1)
	c.bytesWritten.Add(uint64(payloadSize))
}

// RecordSeal records a chunk transitioning out of the write head.
func (c *Collector) RecordSeal() {
	c.chunksSealed.Add(1)
}

// RecordCommit records n chunks renamed to their committed names.
func (c *Collector) RecordCommit(n int) {
	c.chunksCommitted.Add(uint64(n))
}

// RecordTruncation records an effective suffix truncation.
func (c *Collector) RecordTruncation() {
	c.truncations.Add(1)
}

// RecordCacheHit records a read served by an already-open chunk handle.
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Add(1)
}

// RecordCacheMiss records a read that had to open a chunk file.
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Add(1)
}

// RecordAsyncRead records a framed-entries read completed over the host
// transport.
func (c *Collector) RecordAsyncRead() {
	c.asyncReads.Add(1)
}

// RecordReadMiss records a read request for an unresolvable index.
func (c *Collector) RecordReadMiss() {
	c.readMisses.Add(1)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
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

// Snapshot returns a consistent-enough copy of the counters for reporting.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		EntriesWritten:  c.entriesWritten.Load(),
		BytesWritten:    c.bytesWritten.Load(),
		ChunksSealed:    c.chunksSealed.Load(),
		ChunksCommitted: c.chunksCommitted.Load(),
		Truncations:     c.truncations.Load(),
		CacheHits:       c.cacheHits.Load(),
		CacheMisses:     c.cacheMisses.Load(),
		AsyncReads:      c.asyncReads.Load(),
		ReadMisses:      c.readMisses.Load(),
	}
}
