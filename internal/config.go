package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".splitfile"
	configFileName = "config"
	configType     = "toml"
	envPrefix      = "SPLITFILE"
)

type AppConfig struct {
	// VolumeSize is human readable, e.g. "64MiB" or "650 MB".
	VolumeSize       string `mapstructure:"volume_size"`
	Backend          string `mapstructure:"backend"`
	Naming           string `mapstructure:"naming"`
	HandleCacheLimit int    `mapstructure:"handle_cache_limit"`
	LogLevel         string `mapstructure:"log_level"`
	InstanceID       string `mapstructure:"instance_id"`
	LevelDBPath      string `mapstructure:"leveldb_path"`
	S3Bucket         string `mapstructure:"s3_bucket"`
	S3Prefix         string `mapstructure:"s3_prefix"`
	S3Region         string `mapstructure:"s3_region"`
	S3Endpoint       string `mapstructure:"s3_endpoint"`
	MetricsFile      string `mapstructure:"metrics_file"`
	BufferSize       int    `mapstructure:"buffer_size"`
	ChecksumWorkers  int    `mapstructure:"checksum_workers"`
}

// ConfigKeys lists every persisted key, in file order.
var ConfigKeys = []string{
	"volume_size",
	"backend",
	"naming",
	"handle_cache_limit",
	"log_level",
	"instance_id",
	"leveldb_path",
	"s3_bucket",
	"s3_prefix",
	"s3_region",
	"s3_endpoint",
	"metrics_file",
	"buffer_size",
	"checksum_workers",
}

func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName, configFileName+"."+configType), nil
}

func LoadAppConfig(configPath string) (*AppConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	v, found, err := initViper(configPath, filepath.Join(home, configDirName), configFileName, configType, envPrefix)
	if err != nil {
		return nil, err
	}

	v.SetDefault("volume_size", "64MiB")
	v.SetDefault("backend", "localfs")
	v.SetDefault("naming", "suffix")
	v.SetDefault("handle_cache_limit", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("instance_id", uuid.New().String())
	v.SetDefault("leveldb_path", filepath.Join(home, configDirName, "volumes.ldb"))
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_prefix", "")
	v.SetDefault("s3_region", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("metrics_file", "")
	v.SetDefault("buffer_size", 1<<20)
	v.SetDefault("checksum_workers", 4)

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.LevelDBPath = ExpandPath(cfg.LevelDBPath)
	cfg.MetricsFile = ExpandPath(cfg.MetricsFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create-on-first-run only, so that instance_id stays stable.
	if !found {
		writePath := configPath
		if writePath == "" {
			writePath = filepath.Join(home, configDirName, configFileName+"."+configType)
		}
		if _, statErr := os.Stat(writePath); errors.Is(statErr, os.ErrNotExist) {
			if _, err := cfg.Save(writePath); err != nil {
				return nil, fmt.Errorf("persist default app config: %w", err)
			}
			Debug("config written", Fields{
				ConfigPath: writePath,
			})
		}
	}
	return &cfg, nil
}

// Values returns the config keyed by its persisted names.
func (cfg *AppConfig) Values() map[string]any {
	return map[string]any{
		"volume_size":        cfg.VolumeSize,
		"backend":            cfg.Backend,
		"naming":             cfg.Naming,
		"handle_cache_limit": cfg.HandleCacheLimit,
		"log_level":          cfg.LogLevel,
		"instance_id":        cfg.InstanceID,
		"leveldb_path":       cfg.LevelDBPath,
		"s3_bucket":          cfg.S3Bucket,
		"s3_prefix":          cfg.S3Prefix,
		"s3_region":          cfg.S3Region,
		"s3_endpoint":        cfg.S3Endpoint,
		"metrics_file":       cfg.MetricsFile,
		"buffer_size":        cfg.BufferSize,
		"checksum_workers":   cfg.ChecksumWorkers,
	}
}

// VolumeBytes parses VolumeSize.
func (cfg *AppConfig) VolumeBytes() (int64, error) {
	n, err := humanize.ParseBytes(cfg.VolumeSize)
	if err != nil {
		return 0, fmt.Errorf("volume_size %q: %w", cfg.VolumeSize, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("volume_size %q: must be between 1 byte and 4 EiB", cfg.VolumeSize)
	}
	return int64(n), nil
}

func (cfg *AppConfig) Validate() error {
	if _, err := cfg.VolumeBytes(); err != nil {
		return err
	}
	if cfg.HandleCacheLimit < 0 {
		return fmt.Errorf("handle_cache_limit must be >= 0, got %d", cfg.HandleCacheLimit)
	}
	if cfg.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be > 0, got %d", cfg.BufferSize)
	}
	if cfg.ChecksumWorkers <= 0 {
		return fmt.Errorf("checksum_workers must be > 0, got %d", cfg.ChecksumWorkers)
	}
	return nil
}

// initViper reports whether a config file was actually read.
func initViper(configPath, defaultDir, defaultName, defaultType, envPrefix string) (*viper.Viper, bool, error) {
	v := viper.New()
	v.SetConfigType(defaultType)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(defaultDir)
		v.AddConfigPath(".")
		v.SetConfigName(defaultName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return v, false, nil
		}
		Error("config file unreadable", Fields{
			ConfigPath: configPath,
			FieldError: err.Error(),
		})
		return nil, false, fmt.Errorf("read config: %w", err)
	}
	return v, true, nil
}

func (cfg *AppConfig) Save(path string) (string, error) {
	if path == "" {
		def, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = def
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	v := viper.New()
	v.SetConfigType(configType)
	values := cfg.Values()
	for _, key := range ConfigKeys {
		v.Set(key, values[key])
	}

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write app config: %w", err)
	}
	_ = os.Chmod(path, 0o600)
	return path, nil
}

func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
