package cli

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoldverg/splitfile/backend"
	"github.com/jgoldverg/splitfile/backend/pool"
	"github.com/jgoldverg/splitfile/cli/output"
	"github.com/jgoldverg/splitfile/internal"
	"github.com/jgoldverg/splitfile/pkg/metrics"
	"github.com/jgoldverg/splitfile/pkg/naming"
	"github.com/jgoldverg/splitfile/pkg/splitfile"
	"github.com/jgoldverg/splitfile/pkg/store"
)

// VolumeOpts are the stream flags shared by every command that opens a
// split file. Empty values fall back to the app config.
type VolumeOpts struct {
	VolumeSize       string
	Naming           string
	HandleCacheLimit int
	ShowMetrics      bool
}

func (o *VolumeOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.VolumeSize, "volume-size", "s", "", "Maximum volume size, e.g. 64MiB or 650MB")
	cmd.Flags().StringVar(&o.Naming, "naming", "", "Volume naming scheme: suffix or padded")
	cmd.Flags().IntVar(&o.HandleCacheLimit, "handle-cache", -1, "Maximum open volumes, 0 for unbounded")
	cmd.Flags().BoolVar(&o.ShowMetrics, "metrics", false, "Print a stream metrics summary when done")
}

// session holds what a single command needs to open split files.
type session struct {
	cfg       *internal.AppConfig
	backend   backend.BackendType
	store     store.Store
	closer    io.Closer
	collector *metrics.StreamCollector
	buffers   *pool.BufferPool
	printer   *output.Printer
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg := GetAppConfig(cmd)
	if cfg == nil {
		return nil, errors.New("app config unavailable")
	}
	sc, err := backend.StoreFromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, closer, err := backend.NewStore(sc)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", sc.Type, err)
	}
	return &session{
		cfg:       cfg,
		backend:   sc.Type,
		store:     st,
		closer:    closer,
		collector: metrics.NewStreamCollector("", cfg.InstanceID),
		buffers:   pool.NewBufferPool(cfg.BufferSize),
		printer:   output.NewPrinter(),
	}, nil
}

func (s *session) options(base string, mode splitfile.Mode, opts VolumeOpts) (splitfile.Options, error) {
	sizeText := opts.VolumeSize
	if sizeText == "" {
		sizeText = s.cfg.VolumeSize
	}
	size, err := humanize.ParseBytes(sizeText)
	if err != nil {
		return splitfile.Options{}, fmt.Errorf("volume size %q: %w", sizeText, err)
	}

	kind := opts.Naming
	if kind == "" {
		kind = s.cfg.Naming
	}
	namer, err := naming.Parse(kind)
	if err != nil {
		return splitfile.Options{}, err
	}

	limit := opts.HandleCacheLimit
	if limit < 0 {
		limit = s.cfg.HandleCacheLimit
	}

	return splitfile.Options{
		VolumeSize:       int64(size),
		Mode:             mode,
		Base:             base,
		HandleCacheLimit: limit,
		Namer:            namer,
		Observer:         s.collector,
	}, nil
}

// copy streams src into dst through a pooled buffer.
func (s *session) copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := s.buffers.GetBuffer()
	defer s.buffers.PutBuffer(buf)
	return io.CopyBuffer(dst, src, buf)
}

// close releases the store and exports metrics.
func (s *session) close(showMetrics bool) error {
	var errs []error
	if s.cfg.MetricsFile != "" {
		if err := s.collector.WriteTextfile(s.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics file: %w", err))
		}
	}
	if showMetrics {
		if err := output.NewMetricsDisplay("", s.collector).PrintSummary(os.Stderr); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.closer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s store: %w", s.backend, err))
	}
	return errors.Join(errs...)
}

func humanizeInt(text string) (int, error) {
	n, err := humanize.ParseBytes(text)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", text, err)
	}
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("size %q is too large", text)
	}
	return int(n), nil
}
