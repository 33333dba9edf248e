package cli

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoldverg/splitfile/cli/output"
	"github.com/jgoldverg/splitfile/pkg/splitfile"
)

type TruncateCommandOpts struct {
	VolumeOpts
}

func TruncateCommand() *cobra.Command {
	opts := &TruncateCommandOpts{}
	cmd := &cobra.Command{
		Use:   "truncate <base> <size>",
		Short: "Shrink or zero-extend a split file to the given logical size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := humanize.ParseBytes(args[1])
			if err != nil {
				return fmt.Errorf("size %q: %w", args[1], err)
			}
			return runTruncate(cmd, args[0], int64(size), opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runTruncate(cmd *cobra.Command, base string, size int64, opts *TruncateCommandOpts) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(opts.ShowMetrics)) }()

	fopts, err := s.options(base, splitfile.ModeReadWrite, opts.VolumeOpts)
	if err != nil {
		return err
	}
	f, err := splitfile.Open(s.store, fopts)
	if err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.printer.Success("split file resized", map[string]any{
		"base":    base,
		"length":  output.HumanizeSize(size),
		"volumes": len(f.Volumes()),
	})
	return nil
}
