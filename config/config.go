// Package config loads service configuration from file, environment and
// defaults, in that order of increasing precedence for the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix namespaces the environment variables, e.g.
// COMPONENTVAULT_REPOSITORY_REMOTE_URL.
const envPrefix = "COMPONENTVAULT"

// Config is the full service configuration.
type Config struct {
	// Repository configures the git working tree.
	Repository RepositoryConfig `mapstructure:"repository"`

	// Storage configures the embedded store.
	Storage StorageConfig `mapstructure:"storage"`

	// Validation configures the pipeline.
	Validation ValidationConfig `mapstructure:"validation"`

	// Logging configures log output.
	Logging LoggingConfig `mapstructure:"logging"`
}

// RepositoryConfig configures the repository manager.
type RepositoryConfig struct {
	// RemoteURL is the git remote to clone from and sync with. Empty means
	// a purely local repository.
	RemoteURL string `mapstructure:"remote_url"`

	// Branch is the tracked branch.
	Branch string `mapstructure:"branch"`

	// Path is the local working tree directory.
	Path string `mapstructure:"path"`

	// LockPath is the advisory file lock guarding the working tree across
	// processes. Empty disables the file lock.
	LockPath string `mapstructure:"lock_path"`

	// NetworkTimeout bounds clone, fetch and push operations.
	NetworkTimeout time.Duration `mapstructure:"network_timeout"`

	// AuthorName and AuthorEmail identify service-generated commits.
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
}

// StorageConfig configures the embedded store.
type StorageConfig struct {
	// Path is the database directory.
	Path string `mapstructure:"path"`

	// SyncWrites enables durable synchronous writes.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// ValidationConfig configures the pipeline.
type ValidationConfig struct {
	// StageTimeout bounds each validation stage.
	StageTimeout time.Duration `mapstructure:"stage_timeout"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `mapstructure:"level"`

	// JSON switches output to JSON format.
	JSON bool `mapstructure:"json"`
}

// Load reads configuration from the given file path (optional, "" skips the
// file) plus COMPONENTVAULT_* environment variables, applying defaults for
// anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("repository.branch", "main")
	v.SetDefault("repository.path", "data/repo")
	v.SetDefault("repository.network_timeout", 30*time.Second)
	v.SetDefault("repository.author_name", "componentvault")
	v.SetDefault("repository.author_email", "componentvault@localhost")
	v.SetDefault("storage.path", "data/index")
	v.SetDefault("storage.sync_writes", true)
	v.SetDefault("validation.stage_timeout", 30*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
