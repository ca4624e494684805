// Package config loads tasksync settings from defaults, an optional config
// file, the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/steveyegge/tasksync/internal/calendar"
	"github.com/steveyegge/tasksync/internal/connect"
	"github.com/steveyegge/tasksync/internal/logging"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "TASKSYNC"

// Config is the validated configuration.
type Config struct {
	URI               string        `mapstructure:"uri"`
	URISecret         string        `mapstructure:"uri_secret"`
	Database          string        `mapstructure:"database"`
	StagingCollection string        `mapstructure:"staging_collection"`
	TasksCollection   string        `mapstructure:"tasks_collection"`
	Timezone          string        `mapstructure:"timezone"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ConsumeStaging    bool          `mapstructure:"consume_staging"`

	Retention Retention       `mapstructure:"retention"`
	AWS       AWS             `mapstructure:"aws"`
	Log       logging.Options `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Retention configures pruning of old active records.
type Retention struct {
	Enabled       bool   `mapstructure:"enabled"`
	Days          int    `mapstructure:"days"`
	ArchiveBucket string `mapstructure:"archive_bucket"`
	ArchivePrefix string `mapstructure:"archive_prefix"`
}

// AWS holds settings shared by the Secrets Manager and S3 clients.
type AWS struct {
	Region string `mapstructure:"region"`
}

// SetDefaults registers every key with its default value. Keys must be
// registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("uri", "")
	v.SetDefault("uri_secret", "")
	v.SetDefault("database", "")
	v.SetDefault("staging_collection", "tasks_refresh")
	v.SetDefault("tasks_collection", "tasks")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("connect_timeout", "10s")
	v.SetDefault("consume_staging", false)

	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.days", 5)
	v.SetDefault("retention.archive_bucket", "")
	v.SetDefault("retention.archive_prefix", "tasksync/archive")

	v.SetDefault("aws.region", "")

	logDefaults := logging.DefaultOptions()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.format", logDefaults.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", logDefaults.MaxSizeMB)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age_days", logDefaults.MaxAgeDays)
	v.SetDefault("log.compress", logDefaults.Compress)
}

// Load reads configuration into v and returns the validated result.
//
// If file is empty, tasksync.{yaml,toml,json} is searched for in the working
// directory, $XDG_CONFIG_HOME/tasksync and $HOME/.config/tasksync; a missing
// file is not an error. An explicit file must exist.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// MONGO_URI is the name deployments already use.
	if err := v.BindEnv("uri", EnvPrefix+"_URI", "MONGO_URI"); err != nil {
		return nil, fmt.Errorf("failed to bind uri env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("tasksync")
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func searchPaths() []string {
	paths := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "tasksync"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tasksync"))
	}
	return paths
}

// Validate checks the settings that would otherwise fail mid-run.
func (c *Config) Validate() error {
	if c.URI == "" && c.URISecret == "" {
		return connect.ErrMissingURI
	}
	if c.StagingCollection == "" || c.TasksCollection == "" {
		return fmt.Errorf("staging_collection and tasks_collection cannot be empty")
	}
	if c.StagingCollection == c.TasksCollection {
		return fmt.Errorf("staging_collection and tasks_collection must differ (both %q)", c.TasksCollection)
	}
	if _, err := calendar.LoadZone(c.Timezone); err != nil {
		return err
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("retention.days cannot be negative, got %d", c.Retention.Days)
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}

// Location returns the configured sync zone.
func (c *Config) Location() *time.Location {
	loc, err := calendar.LoadZone(c.Timezone)
	if err != nil {
		// Validate has already rejected bad zones.
		return time.UTC
	}
	return loc
}
