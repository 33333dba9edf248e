package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jgoldverg/splitfile/cli/output"
	"github.com/jgoldverg/splitfile/internal"
	"github.com/jgoldverg/splitfile/pkg/splitfile"
)

type SplitCommandOpts struct {
	VolumeOpts
	Base      string
	Append    bool
	Exclusive bool
	Quiet     bool
}

func SplitCommand() *cobra.Command {
	opts := &SplitCommandOpts{}
	cmd := &cobra.Command{
		Use:   "split [input|-] --base <base>",
		Short: "Write a file or stdin into a chain of volumes",
		Long: `Write a file or stdin into a chain of volumes named after --base.
Existing volumes are replaced unless --append is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return runSplit(cmd, input, opts)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.Base, "base", "b", "", "Base name of the volume chain (required)")
	cmd.Flags().BoolVarP(&opts.Append, "append", "a", false, "Append to an existing chain instead of replacing it")
	cmd.Flags().BoolVar(&opts.Exclusive, "exclusive", false, "Fail if the first volume already exists")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not show progress")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}

func runSplit(cmd *cobra.Command, input string, opts *SplitCommandOpts) (err error) {
	src, total, err := openInput(input)
	if err != nil {
		return err
	}
	defer src.Close()

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(opts.ShowMetrics)) }()

	mode := splitfile.ModeWriteTruncate
	if opts.Append {
		mode = splitfile.ModeWriteAppend
	}
	fopts, err := s.options(opts.Base, mode, opts.VolumeOpts)
	if err != nil {
		return err
	}
	fopts.Exclusive = opts.Exclusive

	f, err := splitfile.Open(s.store, fopts)
	if err != nil {
		return err
	}
	start, _ := f.Seek(0, io.SeekCurrent)

	var progress *output.Progress
	if !opts.Quiet {
		progress = output.StartProgress("split "+opts.Base, total)
	}
	n, copyErr := s.copy(f, progress.WrapReader(src))
	progress.Stop()
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return fmt.Errorf("split %s: %w", input, err)
	}

	internal.Debug("split finished", internal.Fields{
		internal.FieldBase:  opts.Base,
		internal.FieldBytes: n,
	})
	s.printer.Success("volumes written", map[string]any{
		"base":    opts.Base,
		"bytes":   output.HumanizeSize(n),
		"length":  output.HumanizeSize(start + n),
		"volumes": len(f.Volumes()),
		"backend": string(s.backend),
	})
	return nil
}

// openInput returns the input stream and its size, or 0 when unknown.
func openInput(input string) (io.ReadCloser, int64, error) {
	if strings.TrimSpace(input) == "-" {
		return io.NopCloser(os.Stdin), 0, nil
	}
	file, err := os.Open(input)
	if err != nil {
		return nil, 0, err
	}
	st, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, err
	}
	if !st.Mode().IsRegular() {
		return file, 0, nil
	}
	return file, st.Size(), nil
}
