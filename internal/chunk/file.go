package chunk

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vnykmshr/chunkledger/internal/format"
)

// ErrOutOfRange indicates an entry index outside the resident range.
var ErrOutOfRange = errors.New("index out of range")

// State describes the lifecycle position of a chunk file handle.
type State int

const (
	// Writing is an open read-write chunk positioned at its end.
	Writing State = iota

	// SealedPending is a closed chunk whose name has no committed suffix.
	SealedPending

	// SealedCommitted is a closed chunk renamed with the committed suffix.
	SealedCommitted

	// ReopenedForRead is an open read-only chunk with memoised offsets.
	ReopenedForRead
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Writing:
		return "writing"
	case SealedPending:
		return "sealed-pending"
	case SealedCommitted:
		return "sealed-committed"
	case ReopenedForRead:
		return "reopened-for-read"
	default:
		return "unknown"
	}
}

// File is a handle to one chunk file plus the byte offset of every framed
// entry it holds. Offset tables exist only while the handle is open; a
// sealed File retains just enough metadata to locate and identify the chunk.
type File struct {
	path     string
	startIdx uint64
	count    int     // number of complete entries
	offsets  []int64 // byte offset of each frame; nil once closed
	end      int64   // offset past the last complete frame
	size     int64   // current file size
	f        *os.File
	state    State
}

// Create creates a fresh pending chunk file in dir whose first entry will
// be assigned startIdx, and opens it for writing.
func Create(dir string, startIdx uint64) (*File, error) {
	path := filepath.Join(dir, PendingName(startIdx))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk file: %w", err)
	}

	hdr := format.EncodeFileHeader()
	if _, err := f.Write(hdr); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write chunk header: %w", err)
	}

	return &File{
		path:     path,
		startIdx: startIdx,
		end:      int64(len(hdr)),
		size:     int64(len(hdr)),
		f:        f,
		state:    Writing,
	}, nil
}

// Open opens an existing chunk file read-only and rebuilds its offset table
// by scanning every frame. A torn final frame is treated as absent. For a
// committed file, the scanned extent must match the range in the name.
func Open(path string) (*File, error) {
	startIdx, nameLast, committed, err := ParseName(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat chunk file: %w", err)
	}

	offsets, end, err := scanFrames(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("chunk %s: %w", path, err)
	}

	c := &File{
		path:     path,
		startIdx: startIdx,
		count:    len(offsets),
		offsets:  offsets,
		end:      end,
		size:     info.Size(),
		f:        f,
		state:    ReopenedForRead,
	}

	if committed && (c.count == 0 || c.LastIdx() != nameLast) {
		_ = f.Close()
		return nil, fmt.Errorf("%w: committed chunk %s holds entries through %d, name says %d",
			format.ErrMalformed, path, c.LastIdx(), nameLast)
	}

	return c, nil
}

// OpenWriting opens an existing pending chunk file for appending. The file
// is physically truncated to its last complete frame, so a torn final write
// from a previous run is discarded.
func OpenWriting(path string) (*File, error) {
	startIdx, _, committed, err := ParseName(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if committed {
		return nil, fmt.Errorf("cannot open committed chunk %s for writing", path)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat chunk file: %w", err)
	}

	offsets, end, err := scanFrames(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("chunk %s: %w", path, err)
	}

	if end < info.Size() {
		if err := f.Truncate(end); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to drop torn frame from %s: %w", path, err)
		}
	}
	if _, err := f.Seek(end, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to seek chunk %s: %w", path, err)
	}

	return &File{
		path:     path,
		startIdx: startIdx,
		count:    len(offsets),
		offsets:  offsets,
		end:      end,
		size:     end,
		f:        f,
		state:    Writing,
	}, nil
}

// scanFrames walks the file from the header to EOF and returns the offset
// of every complete frame plus the offset past the last one. A length
// prefix without its full payload marks the logical end of the file.
func scanFrames(f *os.File, size int64) (offsets []int64, end int64, err error) {
	r := bufio.NewReaderSize(io.NewSectionReader(f, 0, size), 64*1024)

	hdr := make([]byte, format.FileHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, 0, fmt.Errorf("%w: file shorter than header", format.ErrMalformed)
	}
	firstOff, err := format.DecodeFileHeader(hdr)
	if err != nil {
		return nil, 0, err
	}
	if firstOff > size {
		return nil, 0, fmt.Errorf("%w: first-frame offset %d beyond file size %d",
			format.ErrMalformed, firstOff, size)
	}
	if _, err := r.Discard(int(firstOff) - format.FileHeaderSize); err != nil {
		return nil, 0, fmt.Errorf("failed to skip file header: %w", err)
	}

	pos := firstOff
	var lenBuf [format.FrameHeaderSize]byte
	for size-pos >= format.FrameHeaderSize {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, 0, fmt.Errorf("failed to read frame length: %w", err)
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])
		if n == 0 || size-pos-format.FrameHeaderSize < int64(n) {
			// Torn or zeroed final frame: the chunk logically ends here.
			break
		}
		if _, err := r.Discard(int(n)); err != nil {
			return nil, 0, fmt.Errorf("failed to skip frame payload: %w", err)
		}
		offsets = append(offsets, pos)
		pos += format.FramedSize(int(n))
	}

	return offsets, pos, nil
}

// StartIdx returns the index of the chunk's first entry.
func (c *File) StartIdx() uint64 { return c.startIdx }

// LastIdx returns the index of the chunk's last entry. An empty chunk
// yields startIdx-1, the index just before the chunk.
func (c *File) LastIdx() uint64 { return c.startIdx + uint64(c.count) - 1 }

// EntryCount returns the number of complete entries in the chunk.
func (c *File) EntryCount() int { return c.count }

// Size returns the chunk's on-disk length in bytes.
func (c *File) Size() int64 { return c.size }

// Path returns the chunk file's current location.
func (c *File) Path() string { return c.path }

// State returns the handle's lifecycle state.
func (c *File) State() State { return c.state }

// Covers reports whether index i falls within the chunk's entry range.
func (c *File) Covers(i uint64) bool {
	return c.count > 0 && c.startIdx <= i && i <= c.LastIdx()
}

// Append writes one framed entry at the end of the chunk and returns the
// index assigned to it.
func (c *File) Append(payload []byte) (uint64, error) {
	if c.state != Writing {
		return 0, fmt.Errorf("append to %s chunk %s", c.state, c.path)
	}

	frame := format.EncodeFrame(payload)
	if _, err := c.f.Write(frame); err != nil {
		return 0, fmt.Errorf("failed to append to chunk %s: %w", c.path, err)
	}

	c.offsets = append(c.offsets, c.size)
	c.size += int64(len(frame))
	c.end = c.size
	c.count++

	return c.LastIdx(), nil
}

// Read returns the payload of entry i.
func (c *File) Read(i uint64) ([]byte, error) {
	framed, err := c.ReadFramedRange(i, i)
	if err != nil {
		return nil, err
	}
	payload, _, err := format.DecodeFrame(framed)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// ReadFramedRange returns the raw framed bytes of entries [from, to]. The
// frames are stored back-to-back, so the range is a single contiguous read.
func (c *File) ReadFramedRange(from, to uint64) ([]byte, error) {
	if c.f == nil {
		return nil, fmt.Errorf("read from closed chunk %s", c.path)
	}
	if from > to || !c.Covers(from) || !c.Covers(to) {
		return nil, fmt.Errorf("%w: [%d, %d] not in chunk [%d, %d]",
			ErrOutOfRange, from, to, c.startIdx, c.LastIdx())
	}

	start := c.offsets[from-c.startIdx]
	end := c.end
	if next := int(to-c.startIdx) + 1; next < c.count {
		end = c.offsets[next]
	}

	buf := make([]byte, end-start)
	if _, err := c.f.ReadAt(buf, start); err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", c.path, err)
	}
	return buf, nil
}

// Seal flushes and closes the writable handle. The chunk keeps its pending
// name; its offset table is released.
func (c *File) Seal() error {
	if c.state != Writing {
		return fmt.Errorf("seal of %s chunk %s", c.state, c.path)
	}
	if err := c.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync chunk %s: %w", c.path, err)
	}
	if err := c.f.Close(); err != nil {
		return fmt.Errorf("failed to close chunk %s: %w", c.path, err)
	}
	c.f = nil
	c.offsets = nil
	c.state = SealedPending
	return nil
}

// Close releases the handle without renaming the file. A writing chunk is
// synced first. The handle transitions to the sealed state matching its
// current filename.
func (c *File) Close() error {
	if c.f == nil {
		return nil
	}
	if c.state == Writing {
		if err := c.f.Sync(); err != nil {
			return fmt.Errorf("failed to sync chunk %s: %w", c.path, err)
		}
	}
	err := c.f.Close()
	c.f = nil
	c.offsets = nil
	if IsCommittedName(filepath.Base(c.path)) {
		c.state = SealedCommitted
	} else {
		c.state = SealedPending
	}
	if err != nil {
		return fmt.Errorf("failed to close chunk %s: %w", c.path, err)
	}
	return nil
}

// TruncateAt drops every entry after index i. The chunk must be open for
// writing; truncating at the last index is a no-op.
func (c *File) TruncateAt(i uint64) error {
	if c.state != Writing {
		return fmt.Errorf("truncate of %s chunk %s", c.state, c.path)
	}
	if !c.Covers(i) {
		return fmt.Errorf("%w: truncate at %d outside chunk [%d, %d]",
			ErrOutOfRange, i, c.startIdx, c.LastIdx())
	}
	if i == c.LastIdx() {
		return nil
	}

	keep := int(i-c.startIdx) + 1
	newEnd := c.offsets[keep]
	if err := c.f.Truncate(newEnd); err != nil {
		return fmt.Errorf("failed to truncate chunk %s: %w", c.path, err)
	}
	if _, err := c.f.Seek(newEnd, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek chunk %s: %w", c.path, err)
	}

	c.offsets = c.offsets[:keep]
	c.count = keep
	c.end = newEnd
	c.size = newEnd
	return nil
}

// Delete closes the handle if necessary and removes the file.
func (c *File) Delete() error {
	if c.f != nil {
		_ = c.f.Close()
		c.f = nil
		c.offsets = nil
	}
	if err := os.Remove(c.path); err != nil {
		return fmt.Errorf("failed to delete chunk %s: %w", c.path, err)
	}
	return nil
}

// RenameCommitted atomically renames a sealed pending chunk to its
// committed name, which encodes the last index.
func (c *File) RenameCommitted() error {
	if c.state != SealedPending {
		return fmt.Errorf("commit rename of %s chunk %s", c.state, c.path)
	}
	if c.count == 0 {
		return fmt.Errorf("commit rename of empty chunk %s", c.path)
	}
	newPath := filepath.Join(filepath.Dir(c.path), CommittedName(c.startIdx, c.LastIdx()))
	if err := os.Rename(c.path, newPath); err != nil {
		return fmt.Errorf("failed to rename chunk %s: %w", c.path, err)
	}
	c.path = newPath
	c.state = SealedCommitted
	return nil
}

// RenamePending renames a committed chunk back to its pending name so it
// can become writable again.
func (c *File) RenamePending() error {
	if c.state != SealedCommitted {
		return fmt.Errorf("pending rename of %s chunk %s", c.state, c.path)
	}
	newPath := filepath.Join(filepath.Dir(c.path), PendingName(c.startIdx))
	if err := os.Rename(c.path, newPath); err != nil {
		return fmt.Errorf("failed to rename chunk %s: %w", c.path, err)
	}
	c.path = newPath
	c.state = SealedPending
	return nil
}
