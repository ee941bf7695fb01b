package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/ferry/core"
)

const copyBufferSize = 128 * 1024

// copyEntry streams src into an archive entry, checking ctx between chunks.
// It returns the number of bytes written. A canceled context is returned
// as-is so callers can tell it apart from I/O failures.
func copyEntry(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			w, writeErr := dst.Write(buf[:n])
			written += int64(w)
			if writeErr != nil {
				return written, fmt.Errorf("write: %w", writeErr)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return written, nil
			}
			return written, fmt.Errorf("read staged file: %w", readErr)
		}
	}
}

// totalSize sums declared sizes, or returns core.SizeUnknown when any is unknown.
func totalSize(items []core.SourceItem) int64 {
	var total int64
	for _, item := range items {
		if item.Size < 0 {
			return core.SizeUnknown
		}
		total += item.Size
	}
	return total
}

// countingWriter counts the compressed bytes written to the container.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
