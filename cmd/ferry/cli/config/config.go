package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the ferry CLI configuration.
// Use mapstructure tags for Viper unmarshaling.
type Config struct {
	Hosting          HostingConfig `mapstructure:"hosting"`
	Staging          StagingConfig `mapstructure:"staging"`
	Log              LogConfig     `mapstructure:"log"`
	Progress         string        `mapstructure:"progress"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	Concurrency      int           `mapstructure:"concurrency"`
}

// HostingConfig holds GoFile endpoint settings.
type HostingConfig struct {
	APIURL    string        `mapstructure:"api_url"`
	UploadURL string        `mapstructure:"upload_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// StagingConfig holds settings for the local staging directory.
type StagingConfig struct {
	Dir          string        `mapstructure:"dir"`
	PurgeOnStart bool          `mapstructure:"purge_on_start"`
	PurgeAge     time.Duration `mapstructure:"purge_age"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Defaults applied before the config file and environment are read.
const (
	DefaultAPIURL           = "https://api.gofile.io"
	DefaultUploadURL        = "https://{server}.gofile.io/uploadFile"
	DefaultTimeout          = time.Hour
	DefaultPurgeAge         = 2 * time.Hour
	DefaultProgressInterval = time.Second
	DefaultConcurrency      = 2
)

// SetDefaults registers every known key on v so environment overrides
// apply even when no config file exists.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("hosting.api_url", DefaultAPIURL)
	v.SetDefault("hosting.upload_url", DefaultUploadURL)
	v.SetDefault("hosting.timeout", DefaultTimeout)
	v.SetDefault("staging.dir", "")
	v.SetDefault("staging.purge_on_start", true)
	v.SetDefault("staging.purge_age", DefaultPurgeAge)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("progress", "auto")
	v.SetDefault("progress_interval", DefaultProgressInterval)
	v.SetDefault("concurrency", DefaultConcurrency)
}

// Load decodes v into a Config and fills in derived defaults.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Staging.Dir == "" {
		dir, err := StagingDir()
		if err != nil {
			return nil, fmt.Errorf("resolve staging directory: %w", err)
		}
		cfg.Staging.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Hosting.Timeout <= 0 {
		errs = append(errs, errors.New("hosting.timeout must be positive"))
	}
	if c.ProgressInterval < 0 {
		errs = append(errs, errors.New("progress_interval must not be negative"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
