// Package archive folds staged source items into a single zip container.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/contracts"
	"github.com/meigma/ferry/internal/progress"
	"github.com/meigma/ferry/internal/safepath"
)

// Compile-time interface implementation check.
var _ contracts.Assembler = (*Assembler)(nil)

// AssembleResult describes a finished container.
type AssembleResult = contracts.AssembleResult

// Option configures an Assembler.
type Option func(*Assembler)

// WithCompressionLevel sets the deflate level used for every entry.
// Values outside flate.HuffmanOnly..flate.BestCompression are ignored.
func WithCompressionLevel(level int) Option {
	return func(a *Assembler) {
		if level >= flate.HuffmanOnly && level <= flate.BestCompression {
			a.level = level
		}
	}
}

// WithClock overrides the modification time stamped on entries.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// Assembler writes zip containers with one deflated entry per item.
type Assembler struct {
	logger *slog.Logger
	level  int
	now    func() time.Time
}

// NewAssembler creates an Assembler. A nil logger discards output.
func NewAssembler(logger *slog.Logger, opts ...Option) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Assembler{
		logger: logger,
		level:  flate.DefaultCompression,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble stages each item in order, appends it to the container and
// releases the staged copy before the next item is fetched. Progress is
// reported as cumulative input bytes over the sum of declared sizes.
func (a *Assembler) Assemble(
	ctx context.Context,
	dst io.Writer,
	items []core.SourceItem,
	stage contracts.StageFunc,
	sink core.ProgressSink,
) (*AssembleResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: archive needs at least one item", core.ErrInvalidJob)
	}

	counter := &countingWriter{w: dst}
	zw := zip.NewWriter(counter)
	level := a.level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	total := totalSize(items)
	namer := safepath.NewNamer()
	buf := make([]byte, copyBufferSize)
	result := &AssembleResult{Entries: make([]string, 0, len(items))}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := namer.Unique(item.Name)
		written, err := a.addEntry(ctx, zw, i, item, name, stage, buf, result.InputBytes, total, sink)
		if err != nil {
			return nil, err
		}
		result.InputBytes += written
		result.Entries = append(result.Entries, name)
		a.logger.Debug("added archive entry", "entry", name, "bytes", written)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: finish archive: %w", core.ErrTransientIO, err)
	}
	result.Size = counter.n
	return result, nil
}

// addEntry stages one item and copies it into a new deflated entry.
// The staged copy is released on every path out of the function.
func (a *Assembler) addEntry(
	ctx context.Context,
	zw *zip.Writer,
	index int,
	item core.SourceItem,
	name string,
	stage contracts.StageFunc,
	buf []byte,
	offset, total int64,
	sink core.ProgressSink,
) (int64, error) {
	staged, err := stage(ctx, index, item)
	if err != nil {
		return 0, err
	}
	defer staged.Release()

	f, err := os.Open(staged.Path())
	if err != nil {
		return 0, fmt.Errorf("%w: open staged %s: %w", core.ErrTransientIO, name, err)
	}
	defer f.Close()

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: a.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create entry %s: %w", core.ErrTransientIO, name, err)
	}

	src := progress.SinkReader(ctx, f, total, sink).StartAt(offset)
	written, err := copyEntry(ctx, entry, src, buf)
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: entry %s: %w", core.ErrTransientIO, name, err)
	}
	return written, nil
}
