package localfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jgoldverg/splitfile/pkg/store"
)

// Store keeps every volume in its own file. Volume names are file paths.
type Store struct {
	// Perm is used for newly created volumes, 0o644 when zero.
	Perm fs.FileMode
	// MkdirAll creates missing parent directories when a volume is created.
	MkdirAll bool
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{Perm: 0o644, MkdirAll: true}
}

func (s *Store) Open(name string, flag store.OpenFlag) (store.Handle, error) {
	if name == "" {
		return nil, errors.New("localfs: volume path is required")
	}
	if flag.Has(store.FlagCreate) && s.MkdirAll {
		dir := filepath.Dir(name)
		if dir != "" && dir != "." && dir != "/" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(name, osFlag(flag), perm)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("localfs: %s is not a regular file", name)
	}
	return &fileHandle{File: f}, nil
}

func (s *Store) Stat(name string) (int64, error) {
	info, err := os.Stat(name)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("localfs: %s is not a regular file", name)
	}
	return info.Size(), nil
}

func (s *Store) Remove(name string) error {
	return os.Remove(name)
}

func osFlag(flag store.OpenFlag) int {
	var out int
	switch {
	case flag.Has(store.FlagRead | store.FlagWrite):
		out = os.O_RDWR
	case flag.Has(store.FlagWrite):
		out = os.O_WRONLY
	default:
		out = os.O_RDONLY
	}
	if flag.Has(store.FlagCreate) {
		out |= os.O_CREATE
	}
	if flag.Has(store.FlagTruncate) {
		out |= os.O_TRUNC
	}
	if flag.Has(store.FlagExclusive) {
		out |= os.O_EXCL
	}
	return out
}

// fileHandle relies on *os.File for ReadAt, WriteAt, Truncate, Sync and
// Close. Writing past the end leaves a hole the filesystem reads as zeros.
type fileHandle struct {
	*os.File
}

func (h *fileHandle) Size() (int64, error) {
	info, err := h.File.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
