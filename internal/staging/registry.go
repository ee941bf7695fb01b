// Package staging tracks intermediate files created during transfers so they
// can be purged when a job finishes or the process exits.
package staging

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Registry is the process-wide set of staged paths.
// It is safe for concurrent use by multiple jobs.
type Registry struct {
	logger *slog.Logger

	mu    sync.Mutex
	paths map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		logger: logger,
		paths:  make(map[string]struct{}),
	}
}

// Register records path for later removal.
func (r *Registry) Register(path string) {
	r.mu.Lock()
	r.paths[path] = struct{}{}
	r.mu.Unlock()
}

// Release deletes path from disk and forgets it.
// Deletion errors are logged, never returned.
func (r *Registry) Release(path string) {
	r.mu.Lock()
	delete(r.paths, path)
	r.mu.Unlock()

	r.remove(path)
}

// ReleaseAll deletes every registered path. It is idempotent.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	r.paths = make(map[string]struct{})
	r.mu.Unlock()

	for _, p := range paths {
		r.remove(p)
	}
	if len(paths) > 0 {
		r.logger.Debug("released staged files", "count", len(paths))
	}
}

// Len returns the number of registered paths.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

// Paths returns the registered paths in sorted order.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	r.mu.Unlock()

	sort.Strings(paths)
	return paths
}

// Scope returns a per-job view of the registry. Paths registered through the
// scope are also registered here, so the exit-time sweep still sees them.
func (r *Registry) Scope() *Scope {
	return &Scope{
		parent: r,
		paths:  make(map[string]struct{}),
	}
}

func (r *Registry) remove(path string) {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	r.logger.Warn("failed to remove staged file", "path", path, "error", err)
}
