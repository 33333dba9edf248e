package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/jgoldverg/splitfile/pkg/volume"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTOML  = "toml"
)

// VolumeEntry is one row of a volume listing.
type VolumeEntry struct {
	Index    int    `json:"index" yaml:"index" toml:"index"`
	Name     string `json:"name" yaml:"name" toml:"name"`
	Size     int64  `json:"size" yaml:"size" toml:"size"`
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty" toml:"checksum,omitempty"`
}

// StreamInfo summarises a split stream for `info`.
type StreamInfo struct {
	Base       string        `json:"base" yaml:"base" toml:"base"`
	Backend    string        `json:"backend" yaml:"backend" toml:"backend"`
	VolumeSize int64         `json:"volume_size" yaml:"volume_size" toml:"volume_size"`
	Length     int64         `json:"length" yaml:"length" toml:"length"`
	// Spare counts empty volumes past the last byte of the stream.
	Spare      int           `json:"spare_volumes,omitempty" yaml:"spare_volumes,omitempty" toml:"spare_volumes,omitempty"`
	Algorithm  string        `json:"checksum_algorithm,omitempty" yaml:"checksum_algorithm,omitempty" toml:"checksum_algorithm,omitempty"`
	Volumes    []VolumeEntry `json:"volumes" yaml:"volumes" toml:"volumes"`
}

func NewStreamInfo(base, backend string, g volume.Geometry, descs []volume.Descriptor, checksums []string) (StreamInfo, error) {
	length, err := volume.LogicalLength(descs)
	if err != nil {
		return StreamInfo{}, err
	}
	info := StreamInfo{
		Base:       base,
		Backend:    backend,
		VolumeSize: g.MaxSize(),
		Length:     length,
		Volumes:    make([]VolumeEntry, 0, len(descs)),
	}
	if spare := len(descs) - g.Count(length); spare > 0 {
		info.Spare = spare
	}
	for i, d := range descs {
		entry := VolumeEntry{Index: d.Index, Name: d.Name, Size: d.Size}
		if i < len(checksums) {
			entry.Checksum = checksums[i]
		}
		info.Volumes = append(info.Volumes, entry)
	}
	return info, nil
}

func HumanizeSize(bytes int64) string {
	if bytes < 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return humanize.IBytes(uint64(bytes))
}

// RenderStreamInfo writes info to w in the requested format.
func RenderStreamInfo(w io.Writer, format string, info StreamInfo) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatTable:
		return renderTable(w, info)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(info)
	default:
		return fmt.Errorf("unsupported format %q, must be one of [%s, %s, %s, %s]", format, FormatTable, FormatJSON, FormatYAML, FormatTOML)
	}
}

func renderTable(w io.Writer, info StreamInfo) error {
	header := []string{"Index", "Name", "Size"}
	withChecksum := info.Algorithm != ""
	if withChecksum {
		header = append(header, strings.ToUpper(info.Algorithm))
	}
	tableData := pterm.TableData{header}
	for _, v := range info.Volumes {
		row := []string{fmt.Sprint(v.Index), v.Name, HumanizeSize(v.Size)}
		if withChecksum {
			row = append(row, v.Checksum)
		}
		tableData = append(tableData, row)
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s: %d volumes, %s (%s per volume, %s)\n",
		table, info.Base, len(info.Volumes),
		HumanizeSize(info.Length), HumanizeSize(info.VolumeSize), info.Backend)
	if err == nil && info.Spare > 0 {
		_, err = fmt.Fprintf(w, "%d trailing volume(s) hold no data\n", info.Spare)
	}
	return err
}

// RenderConfig writes config values to w in the requested format.
func RenderConfig(w io.Writer, format, path string, values map[string]any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatTable:
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tableData := pterm.TableData{{"Key", "Value"}}
		for _, k := range keys {
			tableData = append(tableData, []string{k, fmt.Sprint(values[k])})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Srender()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n%s\n", path, table)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(values)
	case FormatTOML:
		return toml.NewEncoder(w).Encode(values)
	default:
		return fmt.Errorf("unsupported format %q, must be one of [%s, %s, %s, %s]", format, FormatTable, FormatJSON, FormatYAML, FormatTOML)
	}
}
