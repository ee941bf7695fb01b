// Package contracts defines internal interfaces shared across ferry components.
// These interfaces are intentionally internal to avoid exposing implementation
// contracts as part of the public API.
package contracts

import (
	"context"
	"io"

	"github.com/meigma/ferry/core"
)

// StagedFile is a local copy of one source item, owned by a staging scope.
type StagedFile interface {
	// Path returns the local filesystem path of the staged bytes.
	Path() string
	// Release deletes the staged copy. Safe to call more than once.
	Release()
}

// StageFunc downloads one item to local storage and returns its staged copy.
// The index is the item's position within the job.
type StageFunc func(ctx context.Context, index int, item core.SourceItem) (StagedFile, error)

// AssembleResult describes a finished container.
type AssembleResult struct {
	// Size is the number of bytes written to the container.
	Size int64
	// InputBytes is the combined size of all staged inputs.
	InputBytes int64
	// Entries lists the entry names in write order.
	Entries []string
}

// Assembler folds staged items into one compressed container.
type Assembler interface {
	// Assemble stages each item through stage, writes it into dst, and releases
	// the staged copy before moving to the next item.
	Assemble(ctx context.Context, dst io.Writer, items []core.SourceItem, stage StageFunc, sink core.ProgressSink) (*AssembleResult, error)
}

// Uploader negotiates a server and performs the upload.
type Uploader interface {
	SelectServer(ctx context.Context) (string, error)
	Upload(ctx context.Context, body io.Reader, req core.UploadRequest) (*core.UploadResult, error)
}
