package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meigma/ferry"
)

// localSource serves local files as attachments. The ref is a file path.
type localSource struct{}

// Fetch opens the file at ref. Reads fail once ctx is canceled.
func (localSource) Fetch(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	f, err := os.Open(ref) //nolint:gosec // G304: ref is a path given on the command line
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return &ctxReader{ctx: ctx, f: f}, info.Size(), nil
}

type ctxReader struct {
	ctx context.Context
	f   *os.File
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.f.Read(p)
}

func (r *ctxReader) Close() error {
	return r.f.Close()
}

// fileMessage describes a local file the way a chat message with a document
// attachment would, so commands can reuse the dispatch helpers.
func fileMessage(id int64, path string) (*ferry.Message, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	return &ferry.Message{
		ID: id,
		Attachment: &ferry.Attachment{
			Kind:     ferry.KindDocument,
			Ref:      path,
			Size:     info.Size(),
			FileName: filepath.Base(path),
		},
	}, nil
}
