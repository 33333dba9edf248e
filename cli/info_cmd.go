package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoldverg/splitfile/cli/output"
	"github.com/jgoldverg/splitfile/pkg/checksum"
	"github.com/jgoldverg/splitfile/pkg/splitfile"
	"github.com/jgoldverg/splitfile/pkg/volume"
)

type InfoCommandOpts struct {
	VolumeOpts
	Format    string
	Checksum  bool
	Algorithm string
}

func InfoCommand() *cobra.Command {
	opts := &InfoCommandOpts{}
	cmd := &cobra.Command{
		Use:     "info <base>",
		Short:   "Describe the volume chain of a split file",
		Aliases: []string{"ls"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, args[0], opts)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.Format, "format", "f", output.FormatTable, "Output format: table, json, yaml or toml")
	cmd.Flags().BoolVarP(&opts.Checksum, "checksum", "c", false, "Digest every volume")
	cmd.Flags().StringVar(&opts.Algorithm, "hash", checksum.SHA256, "Checksum algorithm: sha256 or xxhash")
	return cmd
}

func runInfo(cmd *cobra.Command, base string, opts *InfoCommandOpts) (err error) {
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
	descs := f.Volumes()
	geometry, err := volume.NewGeometry(f.VolumeSize())
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	var sums []string
	if opts.Checksum {
		sums, err = checksum.Volumes(cmd.Context(), s.store, descs, opts.Algorithm, s.cfg.ChecksumWorkers)
		if err != nil {
			return err
		}
	}

	info, err := output.NewStreamInfo(base, string(s.backend), geometry, descs, sums)
	if err != nil {
		return err
	}
	if opts.Checksum {
		info.Algorithm = opts.Algorithm
	}
	return output.RenderStreamInfo(os.Stdout, opts.Format, info)
}
