// Package progress provides byte-count tracking for transfers and turns it
// into throttled status-message updates.
package progress

import (
	"context"
	"io"

	"github.com/meigma/ferry/core"
)

// Callback is called to report progress during I/O operations.
type Callback func(transferred, total int64)

// Reader wraps an io.Reader to track bytes read and report progress.
type Reader struct {
	reader   io.Reader
	callback Callback
	total    int64
	read     int64
}

// NewReader creates a progress-tracking reader.
// The total parameter should be the expected size (-1 if unknown).
// The callback is called after each Read with cumulative bytes and total.
func NewReader(r io.Reader, total int64, callback Callback) *Reader {
	return &Reader{
		reader:   r,
		callback: callback,
		total:    total,
	}
}

// SinkReader creates a reader that forwards progress to sink.
// A nil sink disables reporting.
func SinkReader(ctx context.Context, r io.Reader, total int64, sink core.ProgressSink) *Reader {
	if sink == nil {
		return NewReader(r, total, nil)
	}
	return NewReader(r, total, func(transferred, total int64) {
		sink.Report(ctx, transferred, total)
	})
}

// StartAt makes the reader count from offset instead of zero, so several
// sequential readers can report one cumulative figure.
func (r *Reader) StartAt(offset int64) *Reader {
	r.read = offset
	return r
}

// Transferred returns the cumulative count, including any StartAt offset.
func (r *Reader) Transferred() int64 {
	return r.read
}

// Read implements io.Reader and reports progress after each read.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		if r.callback != nil {
			r.callback(r.read, r.total)
		}
	}
	return n, err
}

// Close closes the underlying reader if it implements io.Closer.
func (r *Reader) Close() error {
	if closer, ok := r.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
