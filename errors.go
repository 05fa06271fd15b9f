package chunkledger

import (
	"github.com/vnykmshr/chunkledger/internal/chunk"
	"github.com/vnykmshr/chunkledger/internal/format"
	"github.com/vnykmshr/chunkledger/internal/ledger"
	"github.com/vnykmshr/chunkledger/transport"
)

// Common errors returned by ledger operations. Match with errors.Is; most
// failures arrive wrapped with context.
var (
	// ErrConfig indicates invalid construction parameters.
	ErrConfig = ledger.ErrConfig

	// ErrClosed indicates the ledger has been closed.
	ErrClosed = ledger.ErrClosed

	// ErrEmptyEntry indicates a write of a zero-length entry.
	ErrEmptyEntry = ledger.ErrEmptyEntry

	// ErrMalformed indicates a frame or file header that cannot be decoded.
	ErrMalformed = format.ErrMalformed

	// ErrOutOfRange indicates an entry index outside the resident range.
	ErrOutOfRange = chunk.ErrOutOfRange

	// ErrPosterRequired indicates an asynchronous read on a ledger
	// constructed without a transport poster.
	ErrPosterRequired = transport.ErrPosterRequired
)
