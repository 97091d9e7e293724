// Package staging materializes binary payloads as uniquely named temporary files.
package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Area is a directory where staged files live. It remembers every file it hands out
// so anything not released by its owner can be removed at shutdown.
type Area struct {
	dir    string
	prefix string
	suffix string

	mu   sync.Mutex
	live map[string]struct{}
}

// NewArea creates a staging area rooted at dir. Files are named prefix-<uuid>suffix.
func NewArea(dir, prefix, suffix string) *Area {
	if dir == "" {
		dir = os.TempDir()
	}
	if prefix == "" {
		prefix = "flownodes"
	}
	return &Area{
		dir:    dir,
		prefix: prefix,
		suffix: suffix,
		live:   make(map[string]struct{}),
	}
}

// Handle is a staged file owned by a single caller.
type Handle struct {
	Path string

	area *Area
	once sync.Once
}

// Acquire creates a new empty file with a unique name.
func (a *Area) Acquire() (*Handle, error) {
	path := filepath.Join(a.dir, fmt.Sprintf("%s-%s%s", a.prefix, uuid.NewString(), a.suffix))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	a.mu.Lock()
	a.live[path] = struct{}{}
	a.mu.Unlock()

	return &Handle{Path: path, area: a}, nil
}

// Write replaces the file contents and flushes them to disk before returning.
func (h *Handle) Write(data []byte) error {
	f, err := os.OpenFile(h.Path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadAll returns the file contents.
func (h *Handle) ReadAll() ([]byte, error) {
	return os.ReadFile(h.Path)
}

// Open returns a reader over the file contents. The caller closes it before Release.
func (h *Handle) Open() (io.ReadCloser, error) {
	return os.Open(h.Path)
}

// Release removes the file. It is safe to call more than once.
func (h *Handle) Release() error {
	var err error
	h.once.Do(func() {
		err = h.area.remove(h.Path)
	})
	return err
}

// remove deletes the file and forgets it. A file that could not be removed
// stays live so Cleanup can retry it.
func (a *Area) remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove staging file: %w", err)
	}

	a.mu.Lock()
	delete(a.live, path)
	a.mu.Unlock()
	return nil
}

// Live returns the number of files handed out and not yet released.
func (a *Area) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Cleanup removes every file that is still live.
func (a *Area) Cleanup() error {
	a.mu.Lock()
	paths := make([]string, 0, len(a.live))
	for p := range a.live {
		paths = append(paths, p)
	}
	a.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := a.remove(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
