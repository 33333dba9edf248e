package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jgoldverg/splitfile/backend"
	"github.com/jgoldverg/splitfile/cli/output"
	"github.com/jgoldverg/splitfile/internal"
	"github.com/jgoldverg/splitfile/pkg/naming"
)

func ConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or update splitfile configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(configShowCommand())
	cmd.AddCommand(configSetCommand())
	return cmd
}

func configShowCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetAppConfig(cmd)
			if cfg == nil {
				return fmt.Errorf("app config unavailable")
			}
			return output.RenderConfig(os.Stdout, format, getAppConfigPath(cmd), cfg.Values())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatTable, "Output format: table, json, yaml or toml")
	return cmd
}

type ConfigSetOpts struct {
	VolumeSize       string
	Backend          string
	Naming           string
	HandleCacheLimit int
	LogLevel         string
	LevelDBPath      string
	S3Bucket         string
	S3Prefix         string
	S3Region         string
	S3Endpoint       string
	MetricsFile      string
	BufferSize       string
	ChecksumWorkers  int
}

func configSetCommand() *cobra.Command {
	opts := &ConfigSetOpts{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the persisted configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateAppConfig(cmd, cmd.Flags(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.VolumeSize, "volume-size", "", "Default maximum volume size, e.g. 64MiB")
	// --backend and --log-level are root flags; these persist them.
	cmd.Flags().StringVar(&opts.Backend, "default-backend", "", "Default volume store: localfs, leveldb, s3 or memory")
	cmd.Flags().StringVar(&opts.Naming, "naming", "", "Default naming scheme: suffix or padded")
	cmd.Flags().IntVar(&opts.HandleCacheLimit, "handle-cache", 0, "Maximum open volumes, 0 for unbounded")
	cmd.Flags().StringVar(&opts.LogLevel, "default-log-level", "", "Default log level")
	cmd.Flags().StringVar(&opts.LevelDBPath, "leveldb-path", "", "LevelDB database directory")
	cmd.Flags().StringVar(&opts.S3Bucket, "s3-bucket", "", "S3 bucket holding the volumes")
	cmd.Flags().StringVar(&opts.S3Prefix, "s3-prefix", "", "Key prefix inside the bucket")
	cmd.Flags().StringVar(&opts.S3Region, "s3-region", "", "S3 region")
	cmd.Flags().StringVar(&opts.S3Endpoint, "s3-endpoint", "", "S3 compatible endpoint URL")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Prometheus textfile to write after each command")
	cmd.Flags().StringVar(&opts.BufferSize, "buffer-size", "", "Copy buffer size, e.g. 1MiB")
	cmd.Flags().IntVar(&opts.ChecksumWorkers, "checksum-workers", 0, "Volumes digested in parallel by info --checksum")
	return cmd
}

func updateAppConfig(cmd *cobra.Command, flagSet *pflag.FlagSet, opts *ConfigSetOpts) error {
	if flagSet.NFlag() == 0 {
		return fmt.Errorf("config set: provide at least one setting")
	}

	// Reload instead of using the context config so that root flag
	// overrides do not leak into the persisted file.
	path := getAppConfigPath(cmd)
	cfg, err := internal.LoadAppConfig(path)
	if err != nil {
		return fmt.Errorf("load app config: %w", err)
	}

	if flagSet.Changed("volume-size") {
		cfg.VolumeSize = opts.VolumeSize
	}
	if flagSet.Changed("default-backend") {
		bt, err := backend.ParseBackendType(opts.Backend)
		if err != nil {
			return err
		}
		cfg.Backend = string(bt)
	}
	if flagSet.Changed("naming") {
		if _, err := naming.Parse(opts.Naming); err != nil {
			return err
		}
		cfg.Naming = opts.Naming
	}
	if flagSet.Changed("handle-cache") {
		cfg.HandleCacheLimit = opts.HandleCacheLimit
	}
	if flagSet.Changed("default-log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if flagSet.Changed("leveldb-path") {
		cfg.LevelDBPath = internal.ExpandPath(opts.LevelDBPath)
	}
	if flagSet.Changed("s3-bucket") {
		cfg.S3Bucket = opts.S3Bucket
	}
	if flagSet.Changed("s3-prefix") {
		cfg.S3Prefix = opts.S3Prefix
	}
	if flagSet.Changed("s3-region") {
		cfg.S3Region = opts.S3Region
	}
	if flagSet.Changed("s3-endpoint") {
		cfg.S3Endpoint = opts.S3Endpoint
	}
	if flagSet.Changed("metrics-file") {
		cfg.MetricsFile = internal.ExpandPath(opts.MetricsFile)
	}
	if flagSet.Changed("buffer-size") {
		size, err := humanizeInt(opts.BufferSize)
		if err != nil {
			return err
		}
		cfg.BufferSize = size
	}
	if flagSet.Changed("checksum-workers") {
		cfg.ChecksumWorkers = opts.ChecksumWorkers
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := cfg.Save(path); err != nil {
		return fmt.Errorf("saving CLI config: %w", err)
	}
	internal.Info("configuration updated", internal.Fields{
		internal.ConfigPath: path,
	})
	return nil
}
