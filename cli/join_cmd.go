package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoldverg/splitfile/cli/output"
	"github.com/jgoldverg/splitfile/internal"
	"github.com/jgoldverg/splitfile/pkg/splitfile"
)

type JoinCommandOpts struct {
	VolumeOpts
	Quiet bool
}

func JoinCommand() *cobra.Command {
	opts := &JoinCommandOpts{}
	cmd := &cobra.Command{
		Use:   "join <base> [output|-]",
		Short: "Concatenate a chain of volumes into a file or stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := "-"
			if len(args) == 2 {
				out = args[1]
			}
			return runJoin(cmd, args[0], out, opts)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not show progress")
	return cmd
}

func runJoin(cmd *cobra.Command, base, out string, opts *JoinCommandOpts) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(opts.ShowMetrics)) }()

	fopts, err := s.options(base, splitfile.ModeRead, opts.VolumeOpts)
	if err != nil {
		return err
	}
	f, err := splitfile.Open(s.store, fopts)
	if err != nil {
		return err
	}
	defer f.Close()

	length, err := f.Len()
	if err != nil {
		return err
	}

	var dst io.Writer = os.Stdout
	var outFile *os.File
	if out != "-" {
		outFile, err = os.Create(out)
		if err != nil {
			return err
		}
		dst = outFile
	}

	var progress *output.Progress
	if !opts.Quiet && outFile != nil {
		progress = output.StartProgress("join "+base, length)
	}
	n, copyErr := s.copy(progress.WrapWriter(dst), f)
	progress.Stop()
	if outFile != nil {
		copyErr = errors.Join(copyErr, outFile.Sync(), outFile.Close())
	}
	if copyErr != nil {
		return fmt.Errorf("join %s: %w", base, copyErr)
	}

	internal.Debug("join finished", internal.Fields{
		internal.FieldBase:  base,
		internal.FieldBytes: n,
	})
	if outFile != nil {
		s.printer.Success("volumes joined", map[string]any{
			"base":    base,
			"output":  out,
			"bytes":   output.HumanizeSize(n),
			"volumes": len(f.Volumes()),
		})
	}
	return nil
}
