package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jgoldverg/splitfile/pkg/splitfile"
)

const (
	defaultNamespace = "splitfile"
	subsystemStream  = "stream"
)

// StreamCollector counts split file traffic and volume lifecycle events and
// exposes them via Prometheus collectors in a private registry.
type StreamCollector struct {
	mu        sync.RWMutex
	namespace string
	labels    prometheus.Labels
	registry  *prometheus.Registry

	startTime      time.Time
	bytesRead      uint64
	bytesWritten   uint64
	readCalls      uint64
	writeCalls     uint64
	volumeEvents   map[splitfile.VolumeEvent]uint64
	highestVolume  int
	volumesTouched map[int]struct{}
}

var _ splitfile.Observer = (*StreamCollector)(nil)

// StreamSnapshot represents a point-in-time view of the collected metrics.
type StreamSnapshot struct {
	Elapsed        time.Duration
	BytesRead      uint64
	BytesWritten   uint64
	ReadCalls      uint64
	WriteCalls     uint64
	ReadBps        float64
	WriteBps       float64
	VolumesOpened  uint64
	VolumesCreated uint64
	VolumesEvicted uint64
	VolumesDeleted uint64
	VolumesTouched int
	HighestVolume  int
}

// NewStreamCollector creates a collector. instance, when set, is attached as
// a constant "instance" label to every metric.
func NewStreamCollector(namespace, instance string) *StreamCollector {
	if strings.TrimSpace(namespace) == "" {
		namespace = defaultNamespace
	}
	var labels prometheus.Labels
	if instance != "" {
		labels = prometheus.Labels{"instance": instance}
	}
	c := &StreamCollector{
		namespace:      namespace,
		labels:         labels,
		registry:       prometheus.NewRegistry(),
		volumeEvents:   make(map[splitfile.VolumeEvent]uint64),
		volumesTouched: make(map[int]struct{}),
		highestVolume:  -1,
	}
	c.registerMetrics()
	return c
}

func (c *StreamCollector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *StreamCollector) ObserveRead(bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureStartTimeLocked()
	c.readCalls++
	if bytes > 0 {
		c.bytesRead += uint64(bytes)
	}
}

func (c *StreamCollector) ObserveWrite(bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureStartTimeLocked()
	c.writeCalls++
	if bytes > 0 {
		c.bytesWritten += uint64(bytes)
	}
}

func (c *StreamCollector) ObserveVolume(event splitfile.VolumeEvent, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureStartTimeLocked()
	c.volumeEvents[event]++
	if event == splitfile.VolumeOpened || event == splitfile.VolumeCreated {
		c.volumesTouched[index] = struct{}{}
		if index > c.highestVolume {
			c.highestVolume = index
		}
	}
}

// Snapshot creates a read-only view of the collected metrics.
func (c *StreamCollector) Snapshot() StreamSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buildSnapshotLocked(time.Now())
}

func (c *StreamCollector) buildSnapshotLocked(now time.Time) StreamSnapshot {
	elapsed := time.Duration(0)
	if !c.startTime.IsZero() {
		elapsed = now.Sub(c.startTime)
	}
	return StreamSnapshot{
		Elapsed:        elapsed,
		BytesRead:      c.bytesRead,
		BytesWritten:   c.bytesWritten,
		ReadCalls:      c.readCalls,
		WriteCalls:     c.writeCalls,
		ReadBps:        rateFromBytes(c.bytesRead, elapsed),
		WriteBps:       rateFromBytes(c.bytesWritten, elapsed),
		VolumesOpened:  c.volumeEvents[splitfile.VolumeOpened],
		VolumesCreated: c.volumeEvents[splitfile.VolumeCreated],
		VolumesEvicted: c.volumeEvents[splitfile.VolumeEvicted],
		VolumesDeleted: c.volumeEvents[splitfile.VolumeDeleted],
		VolumesTouched: len(c.volumesTouched),
		HighestVolume:  c.highestVolume,
	}
}

// WriteTextfile writes the current metrics in the Prometheus text format,
// for pickup by a node exporter textfile collector.
func (c *StreamCollector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

func (c *StreamCollector) registerMetrics() {
	makeGauge := func(name, help string, valueFn func(StreamSnapshot) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   c.namespace,
			Subsystem:   subsystemStream,
			Name:        name,
			Help:        help,
			ConstLabels: c.labels,
		}, func() float64 {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return valueFn(c.buildSnapshotLocked(time.Now()))
		})
	}

	makeCounter := func(name, help string, valueFn func(StreamSnapshot) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   c.namespace,
			Subsystem:   subsystemStream,
			Name:        name,
			Help:        help,
			ConstLabels: c.labels,
		}, func() float64 {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return valueFn(c.buildSnapshotLocked(time.Now()))
		})
	}

	c.registry.MustRegister(makeGauge(
		"read_bytes_per_second",
		"Average logical read throughput since the first operation.",
		func(s StreamSnapshot) float64 { return s.ReadBps },
	))
	c.registry.MustRegister(makeGauge(
		"write_bytes_per_second",
		"Average logical write throughput since the first operation.",
		func(s StreamSnapshot) float64 { return s.WriteBps },
	))
	c.registry.MustRegister(makeGauge(
		"highest_volume_index",
		"Highest volume index opened or created, -1 before any.",
		func(s StreamSnapshot) float64 { return float64(s.HighestVolume) },
	))

	c.registry.MustRegister(makeCounter(
		"read_bytes_total",
		"Logical bytes returned by reads.",
		func(s StreamSnapshot) float64 { return float64(s.BytesRead) },
	))
	c.registry.MustRegister(makeCounter(
		"written_bytes_total",
		"Logical bytes accepted by writes.",
		func(s StreamSnapshot) float64 { return float64(s.BytesWritten) },
	))
	c.registry.MustRegister(makeCounter(
		"volumes_opened_total",
		"Existing volumes opened, including reopens after eviction.",
		func(s StreamSnapshot) float64 { return float64(s.VolumesOpened) },
	))
	c.registry.MustRegister(makeCounter(
		"volumes_created_total",
		"Volumes created or truncated to empty.",
		func(s StreamSnapshot) float64 { return float64(s.VolumesCreated) },
	))
	c.registry.MustRegister(makeCounter(
		"volumes_evicted_total",
		"Volume handles closed by the handle cache.",
		func(s StreamSnapshot) float64 { return float64(s.VolumesEvicted) },
	))
	c.registry.MustRegister(makeCounter(
		"volumes_deleted_total",
		"Volumes removed by truncation.",
		func(s StreamSnapshot) float64 { return float64(s.VolumesDeleted) },
	))
}

func (c *StreamCollector) ensureStartTimeLocked() {
	if c.startTime.IsZero() {
		c.startTime = time.Now()
	}
}

func rateFromBytes(bytes uint64, elapsed time.Duration) float64 {
	if bytes == 0 || elapsed <= 0 {
		return 0
	}
	return float64(bytes) / elapsed.Seconds()
}
