package output

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jgoldverg/splitfile/pkg/volume"
)

func geometry(t *testing.T, size int64) volume.Geometry {
	t.Helper()
	g, err := volume.NewGeometry(size)
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	return g
}

func sampleInfo(t *testing.T) StreamInfo {
	t.Helper()
	descs := []volume.Descriptor{
		{Index: 0, Name: "data", Size: 4, Known: true},
		{Index: 1, Name: "data.2", Size: 4, Known: true},
		{Index: 2, Name: "data.3", Size: 2, Known: true},
	}
	info, err := NewStreamInfo("data", "memory", geometry(t, 4), descs, []string{"aa", "bb", "cc"})
	if err != nil {
		t.Fatalf("stream info: %v", err)
	}
	info.Algorithm = "sha256"
	return info
}

func TestNewStreamInfoRejectsGaps(t *testing.T) {
	descs := []volume.Descriptor{{Index: 0, Size: 4, Known: true}, {Index: 2, Size: 1, Known: true}}
	if _, err := NewStreamInfo("data", "memory", geometry(t, 4), descs, nil); err == nil {
		t.Fatalf("expected a gap in the chain to fail")
	}
}

func TestNewStreamInfoCountsSpareVolumes(t *testing.T) {
	descs := []volume.Descriptor{
		{Index: 0, Name: "data", Size: 4, Known: true},
		{Index: 1, Name: "data.2", Size: 4, Known: true},
		{Index: 2, Name: "data.3", Size: 0, Known: true},
	}
	info, err := NewStreamInfo("data", "memory", geometry(t, 4), descs, nil)
	if err != nil {
		t.Fatalf("stream info: %v", err)
	}
	if info.Spare != 1 {
		t.Fatalf("expected 1 spare volume, got %d", info.Spare)
	}

	var buf bytes.Buffer
	if err := RenderStreamInfo(&buf, FormatTable, info); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "1 trailing volume(s) hold no data") {
		t.Fatalf("table does not report the spare volume: %q", buf.String())
	}

	if sample := sampleInfo(t); sample.Spare != 0 {
		t.Fatalf("dense chain reported %d spare volumes", sample.Spare)
	}
}

func TestRenderStreamInfoFormats(t *testing.T) {
	info := sampleInfo(t)
	if info.Length != 10 {
		t.Fatalf("expected length 10, got %d", info.Length)
	}

	var buf bytes.Buffer
	if err := RenderStreamInfo(&buf, FormatJSON, info); err != nil {
		t.Fatalf("json: %v", err)
	}
	var fromJSON StreamInfo
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if fromJSON.Length != 10 || len(fromJSON.Volumes) != 3 || fromJSON.Volumes[2].Checksum != "cc" {
		t.Fatalf("unexpected json round trip: %+v", fromJSON)
	}

	buf.Reset()
	if err := RenderStreamInfo(&buf, FormatYAML, info); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var fromYAML StreamInfo
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if fromYAML.Volumes[1].Name != "data.2" {
		t.Fatalf("unexpected yaml round trip: %+v", fromYAML)
	}

	buf.Reset()
	if err := RenderStreamInfo(&buf, FormatTOML, info); err != nil {
		t.Fatalf("toml: %v", err)
	}
	var fromTOML StreamInfo
	if _, err := toml.Decode(buf.String(), &fromTOML); err != nil {
		t.Fatalf("decode toml: %v", err)
	}
	if fromTOML.VolumeSize != 4 || len(fromTOML.Volumes) != 3 {
		t.Fatalf("unexpected toml round trip: %+v", fromTOML)
	}

	buf.Reset()
	if err := RenderStreamInfo(&buf, FormatTable, info); err != nil {
		t.Fatalf("table: %v", err)
	}
	if !strings.Contains(buf.String(), "data.3") || !strings.Contains(buf.String(), "3 volumes") {
		t.Fatalf("table output missing rows:\n%s", buf.String())
	}

	if err := RenderStreamInfo(&buf, "xml", info); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
}

func TestHumanizeSize(t *testing.T) {
	cases := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1 << 20: "1.0 MiB",
	}
	for in, want := range cases {
		if got := HumanizeSize(in); got != want {
			t.Fatalf("HumanizeSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestProgressCountsBytes(t *testing.T) {
	var p *Progress
	var buf bytes.Buffer
	if w := p.WrapWriter(&buf); w != &buf {
		t.Fatalf("nil progress must not wrap")
	}

	var counted int
	w := &countingWriter{writer: &buf, hook: func(n int) { counted += n }}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if counted != 5 {
		t.Fatalf("expected 5 bytes counted, got %d", counted)
	}
}

func TestBarStepsFitLargeStreams(t *testing.T) {
	cases := []struct {
		total int64
		scale int64
	}{
		{total: 10, scale: 1},
		{total: math.MaxInt32, scale: 1},
		{total: 3 << 30, scale: 1024},
		{total: 8 << 40, scale: 1 << 20},
	}
	for _, tc := range cases {
		scale := barScale(tc.total)
		if scale != tc.scale {
			t.Fatalf("barScale(%d) = %d, want %d", tc.total, scale, tc.scale)
		}
		steps := barSteps(tc.total, scale)
		if steps <= 0 || int64(steps) > math.MaxInt32 {
			t.Fatalf("barSteps(%d, %d) = %d does not fit the bar", tc.total, scale, steps)
		}
	}

	// A 3 GiB copy in 1 MiB chunks only completes the bar on the last chunk.
	total := int64(3 << 30)
	scale := barScale(total)
	want := barSteps(total, scale)
	var done int64
	for done < total {
		done += 1 << 20
		if got := barSteps(done, scale); done < total && got >= want {
			t.Fatalf("bar full after %d of %d bytes", done, total)
		}
	}
	if got := barSteps(done, scale); got != want {
		t.Fatalf("final steps = %d, want %d", got, want)
	}
}
