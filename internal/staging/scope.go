package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/meigma/ferry/internal/contracts"
)

// FilePrefix starts the name of every file created by Scope.Create.
const FilePrefix = "ferry-"

// Scope is the set of staged paths owned by one job.
type Scope struct {
	parent *Registry

	mu    sync.Mutex
	paths map[string]struct{}
}

// Register records path in both the scope and its parent registry.
func (s *Scope) Register(path string) {
	s.mu.Lock()
	s.paths[path] = struct{}{}
	s.mu.Unlock()

	s.parent.Register(path)
}

// Release deletes a single path owned by the scope.
func (s *Scope) Release(path string) {
	s.mu.Lock()
	delete(s.paths, path)
	s.mu.Unlock()

	s.parent.Release(path)
}

// ReleaseAll deletes every path still owned by the scope.
// It is idempotent and never fails.
func (s *Scope) ReleaseAll() {
	s.mu.Lock()
	paths := make([]string, 0, len(s.paths))
	for p := range s.paths {
		paths = append(paths, p)
	}
	s.paths = make(map[string]struct{})
	s.mu.Unlock()

	for _, p := range paths {
		s.parent.Release(p)
	}
}

// Len returns the number of paths the scope still owns.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Create makes a new file named FilePrefix+name inside dir. The path is
// registered as soon as the exclusive create succeeds, before any byte is
// written. A path that already exists belongs to someone else and is left
// untracked.
func (s *Scope) Create(dir, name string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	path := filepath.Join(dir, FilePrefix+name)

	//nolint:gosec // G304: name is sanitized by the caller and rooted to dir
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	s.Register(path)

	return &File{path: path, file: f, scope: s}, nil
}

// Compile-time interface implementation check.
var _ contracts.StagedFile = (*File)(nil)

// File is an ownership handle over one staged path.
// It is written once, closed, and released exactly once.
type File struct {
	path  string
	file  *os.File
	scope *Scope

	once sync.Once
}

// Path returns the staged file's path.
func (f *File) Path() string { return f.path }

// Write appends to the staged file.
func (f *File) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

// Sync flushes written bytes to stable storage.
func (f *File) Sync() error {
	return f.file.Sync()
}

// Close closes the write handle. The file stays on disk until Release.
func (f *File) Close() error {
	err := f.file.Close()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// Release closes the file if still open and deletes it.
func (f *File) Release() {
	f.once.Do(func() {
		_ = f.file.Close()
		f.scope.Release(f.path)
	})
}
