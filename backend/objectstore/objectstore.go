// Package objectstore adapts whole-object backends (key/value databases,
// blob stores) to the store.Store contract. A handle loads the object on
// first use, edits it in memory and writes it back on Sync and Close, so a
// volume should comfortably fit in memory.
package objectstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/jgoldverg/splitfile/pkg/store"
)

// Backend stores named objects. Get, Size and Delete report a missing
// object with an error matching store.ErrNotExist.
type Backend interface {
	Get(name string) ([]byte, error)
	Put(name string, data []byte) error
	Size(name string) (int64, error)
	Delete(name string) error
}

type Store struct {
	backend Backend
}

var _ store.Store = (*Store)(nil)

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) Open(name string, flag store.OpenFlag) (store.Handle, error) {
	_, err := s.backend.Size(name)
	exists := err == nil
	if err != nil && !errors.Is(err, store.ErrNotExist) {
		return nil, err
	}

	switch {
	case !exists && !flag.Has(store.FlagCreate):
		return nil, fmt.Errorf("objectstore: %s: %w", name, store.ErrNotExist)
	case exists && flag.Has(store.FlagCreate|store.FlagExclusive):
		return nil, fmt.Errorf("objectstore: %s: %w", name, store.ErrExist)
	}

	h := &handle{backend: s.backend, name: name, flag: flag}
	if !exists || flag.Has(store.FlagTruncate) {
		// Publish the empty object right away so it can be probed.
		if err := s.backend.Put(name, nil); err != nil {
			return nil, err
		}
		h.loaded = true
	}
	return h, nil
}

func (s *Store) Stat(name string) (int64, error) {
	return s.backend.Size(name)
}

func (s *Store) Remove(name string) error {
	return s.backend.Delete(name)
}

type handle struct {
	backend Backend
	name    string
	flag    store.OpenFlag

	data   []byte
	loaded bool
	dirty  bool
	closed bool
}

func (h *handle) load() error {
	if h.closed {
		return fmt.Errorf("objectstore: %s: handle closed", h.name)
	}
	if h.loaded {
		return nil
	}
	data, err := h.backend.Get(h.name)
	if err != nil {
		return err
	}
	h.data = data
	h.loaded = true
	return nil
}

func (h *handle) ReadAt(p []byte, off int64) (int, error) {
	if !h.flag.Has(store.FlagRead) {
		return 0, fmt.Errorf("objectstore: %s not opened for reading: %w", h.name, store.ErrPermission)
	}
	if off < 0 {
		return 0, fmt.Errorf("objectstore: negative offset %d", off)
	}
	if err := h.load(); err != nil {
		return 0, err
	}
	if off >= int64(len(h.data)) {
		return 0, io.EOF
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (h *handle) WriteAt(p []byte, off int64) (int, error) {
	if !h.flag.Has(store.FlagWrite) {
		return 0, fmt.Errorf("objectstore: %s not opened for writing: %w", h.name, store.ErrPermission)
	}
	if off < 0 {
		return 0, fmt.Errorf("objectstore: negative offset %d", off)
	}
	if err := h.load(); err != nil {
		return 0, err
	}
	h.resize(max(int64(len(h.data)), off+int64(len(p))))
	n := copy(h.data[off:], p)
	h.dirty = true
	return n, nil
}

// resize grows with zeros or shrinks the buffer to size.
func (h *handle) resize(size int64) {
	switch {
	case size <= int64(len(h.data)):
		h.data = h.data[:size]
	case size <= int64(cap(h.data)):
		tail := h.data[len(h.data):size]
		clear(tail)
		h.data = h.data[:size]
	default:
		grown := make([]byte, size)
		copy(grown, h.data)
		h.data = grown
	}
}

func (h *handle) Size() (int64, error) {
	if h.closed {
		return 0, fmt.Errorf("objectstore: %s: handle closed", h.name)
	}
	if h.loaded {
		return int64(len(h.data)), nil
	}
	return h.backend.Size(h.name)
}

func (h *handle) Truncate(size int64) error {
	if !h.flag.Has(store.FlagWrite) {
		return fmt.Errorf("objectstore: %s not opened for writing: %w", h.name, store.ErrPermission)
	}
	if size < 0 {
		return fmt.Errorf("objectstore: negative size %d", size)
	}
	if err := h.load(); err != nil {
		return err
	}
	h.resize(size)
	h.dirty = true
	return nil
}

func (h *handle) Sync() error {
	if h.closed {
		return fmt.Errorf("objectstore: %s: handle closed", h.name)
	}
	if !h.dirty {
		return nil
	}
	if err := h.backend.Put(h.name, h.data); err != nil {
		return err
	}
	h.dirty = false
	return nil
}

func (h *handle) Close() error {
	if h.closed {
		return fmt.Errorf("objectstore: %s: handle closed", h.name)
	}
	err := h.Sync()
	h.closed = true
	h.data = nil
	return err
}
