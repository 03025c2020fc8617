// Package results persists finished edit images and hands them back out for
// GET /results/{filename}. Files are named after the job id so results are
// never overwritten by another job.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"editd/internal/common/fsutil"
)

// notFoundError distinguishes a missing result from an I/O failure.
type notFoundError struct{ name string }

func (e notFoundError) Error() string { return "result not found: " + e.name }

// IsNotFound reports whether err indicates a missing result file.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// Store writes and serves result images from a single directory.
type Store struct {
	dir string
}

// New creates the results directory if needed.
func New(dir string) (*Store, error) {
	expanded, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute results directory.
func (s *Store) Dir() string { return s.dir }

// Save writes the PNG bytes for a job and returns the public filename.
func (s *Store) Save(jobID string, data []byte) (string, error) {
	name := jobID + ".png"
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// Path resolves a public filename to an on-disk path. Anything that is not a
// bare file name is rejected so the handler cannot be walked out of the
// results directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", notFoundError{name: name}
	}
	p := filepath.Join(s.dir, name)
	fi, err := os.Stat(p)
	if err != nil || fi.IsDir() {
		return "", notFoundError{name: name}
	}
	return p, nil
}
