package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/jgoldverg/splitfile/pkg/metrics"
)

// MetricsDisplay renders a stream collector snapshot as a table.
type MetricsDisplay struct {
	title     string
	collector *metrics.StreamCollector
}

func NewMetricsDisplay(title string, collector *metrics.StreamCollector) *MetricsDisplay {
	if strings.TrimSpace(title) == "" {
		title = "Stream Metrics"
	}
	return &MetricsDisplay{
		title:     title,
		collector: collector,
	}
}

// PrintSummary writes the final snapshot to w. No-op when nothing moved.
func (d *MetricsDisplay) PrintSummary(w io.Writer) error {
	if d == nil || d.collector == nil {
		return nil
	}
	snap := d.collector.Snapshot()
	if snap.BytesRead == 0 && snap.BytesWritten == 0 {
		return nil
	}
	table, err := tableString(snap)
	if err != nil {
		return err
	}
	header := pterm.DefaultSection.Sprint(d.title)
	_, err = fmt.Fprintf(w, "%s%s\nElapsed: %s\n", header, table, formatDuration(snap.Elapsed))
	return err
}

func tableString(snap metrics.StreamSnapshot) (string, error) {
	data := pterm.TableData{
		{"Metric", "Value"},
		{"Bytes Read", formatBytes(snap.BytesRead)},
		{"Bytes Written", formatBytes(snap.BytesWritten)},
		{"Read Rate", formatRate(snap.ReadBps)},
		{"Write Rate", formatRate(snap.WriteBps)},
		{"Volumes Touched", fmt.Sprint(snap.VolumesTouched)},
		{"Volumes Created", fmt.Sprint(snap.VolumesCreated)},
		{"Volumes Opened", fmt.Sprint(snap.VolumesOpened)},
		{"Handles Evicted", fmt.Sprint(snap.VolumesEvicted)},
		{"Volumes Deleted", fmt.Sprint(snap.VolumesDeleted)},
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func formatRate(bps float64) string {
	if bps <= 0 {
		return "--"
	}
	return HumanizeSize(int64(bps)) + "/s"
}

func formatBytes(b uint64) string {
	return HumanizeSize(int64(b))
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return d.Truncate(100 * time.Millisecond).String()
}
