package localfs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jgoldverg/splitfile/pkg/store"
)

func TestStoreCreateWriteRead(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "nested", "vol")
	s := NewStore()

	if _, err := s.Stat(name); !errors.Is(err, store.ErrNotExist) {
		t.Fatalf("expected not exist before create, got %v", err)
	}

	h, err := s.Open(name, store.FlagRead|store.FlagWrite|store.FlagCreate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := h.WriteAt([]byte("world"), 6); err != nil {
		t.Fatalf("write at: %v", err)
	}
	if _, err := h.WriteAt([]byte("hello"), 0); err != nil {
		t.Fatalf("write at: %v", err)
	}
	size, err := h.Size()
	if err != nil || size != 11 {
		t.Fatalf("expected size 11, got %d (%v)", size, err)
	}

	buf := make([]byte, 16)
	n, err := h.ReadAt(buf, 0)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF on short read, got %v", err)
	}
	want := "hello\x00world"
	if string(buf[:n]) != want {
		t.Fatalf("expected %q, got %q", want, buf[:n])
	}
	if err := h.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := h.Truncate(5); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if size, err := s.Stat(name); err != nil || size != 5 {
		t.Fatalf("expected stat size 5, got %d (%v)", size, err)
	}
	if err := s.Remove(name); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(name); !errors.Is(err, store.ErrNotExist) {
		t.Fatalf("expected not exist on second remove, got %v", err)
	}
}

func TestStoreExclusive(t *testing.T) {
	name := filepath.Join(t.TempDir(), "vol")
	s := NewStore()
	h, err := s.Open(name, store.FlagWrite|store.FlagCreate|store.FlagExclusive)
	if err != nil {
		t.Fatalf("first exclusive open: %v", err)
	}
	h.Close()
	if _, err := s.Open(name, store.FlagWrite|store.FlagCreate|store.FlagExclusive); !errors.Is(err, store.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
}

func TestStoreRejectsDirectories(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	if _, err := s.Stat(dir); err == nil {
		t.Fatalf("expected error for directory stat")
	}
	if err := os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := s.Open(dir, store.FlagRead); err == nil {
		t.Fatalf("expected error opening a directory")
	}
}
