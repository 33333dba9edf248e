package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jgoldverg/splitfile/backend/objectstore"
	"github.com/jgoldverg/splitfile/pkg/splitfile"
)

func TestStreamCollectorCountsSplitFileTraffic(t *testing.T) {
	st, _ := objectstore.NewMemoryStore()
	c := NewStreamCollector("", "test-instance")

	f, err := splitfile.Open(st, splitfile.Options{
		VolumeSize:       4,
		Mode:             splitfile.ModeWriteTruncate,
		Base:             "data",
		HandleCacheLimit: 1,
		Observer:         c,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.Write([]byte("0123456789")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	snap := c.Snapshot()
	if snap.BytesWritten != 10 {
		t.Fatalf("expected 10 bytes written, got %d", snap.BytesWritten)
	}
	if snap.VolumesCreated != 3 {
		t.Fatalf("expected 3 volumes created, got %d", snap.VolumesCreated)
	}
	if snap.VolumesEvicted != 2 {
		t.Fatalf("expected 2 evictions with a single handle slot, got %d", snap.VolumesEvicted)
	}
	if snap.HighestVolume != 2 || snap.VolumesTouched != 3 {
		t.Fatalf("unexpected volume coverage: highest=%d touched=%d", snap.HighestVolume, snap.VolumesTouched)
	}
}

func TestStreamCollectorTextfile(t *testing.T) {
	c := NewStreamCollector("splitfile", "abc")
	c.ObserveRead(42)
	c.ObserveVolume(splitfile.VolumeDeleted, 3)

	path := filepath.Join(t.TempDir(), "splitfile.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(raw)
	for _, want := range []string{
		`splitfile_stream_read_bytes_total{instance="abc"} 42`,
		`splitfile_stream_volumes_deleted_total{instance="abc"} 1`,
		`splitfile_stream_highest_volume_index{instance="abc"} -1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("textfile missing %q:\n%s", want, text)
		}
	}
}
