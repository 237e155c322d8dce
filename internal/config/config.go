// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/statstream/papercrawler/internal/ingest"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig              `mapstructure:"server"`
	Logging LoggingConfig             `mapstructure:"logging"`
	HTTP    HTTPConfig                `mapstructure:"http"`
	Ingest  IngestConfig              `mapstructure:"ingest"`
	DB      DBConfig                  `mapstructure:"db"`
	Archive ArchiveConfig             `mapstructure:"archive"`
	PubSub  PubSubConfig              `mapstructure:"pubsub"`
	Sources []ingest.SourceDescriptor `mapstructure:"sources"`
	Topics  map[string][]string       `mapstructure:"topics"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig configures outbound fetch behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	DelaySeconds     int `mapstructure:"delay_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// Timeout returns the per-request timeout as a duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Delay returns the inter-request politeness delay as a duration.
func (c HTTPConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// BackoffInitial returns the first retry delay as a duration.
func (c HTTPConfig) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry delay ceiling as a duration.
func (c HTTPConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// IngestConfig governs run-level behavior.
type IngestConfig struct {
	Concurrency          int    `mapstructure:"concurrency"`
	SourceTimeoutSeconds int    `mapstructure:"source_timeout_seconds"`
	SummaryTopic         string `mapstructure:"summary_topic"`
}

// SourceTimeout returns the per-source budget as a duration.
func (c IngestConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSeconds) * time.Second
}

// DBConfig controls access to the relational database. An empty DSN
// selects the in-memory store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArchiveConfig selects where raw pages are archived.
type ArchiveConfig struct {
	// Backend is one of "none", "memory", "local" or "gcs".
	Backend string `mapstructure:"backend"`
	BaseDir string `mapstructure:"base_dir"`
	Bucket  string `mapstructure:"bucket"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment. When no sources are
// configured, the built-in descriptors are used.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAPERCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.delay_seconds", 2)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 500)
	v.SetDefault("http.backoff_max_ms", 10000)
	v.SetDefault("ingest.concurrency", 2)
	v.SetDefault("ingest.source_timeout_seconds", 300)
	v.SetDefault("db.table", "papers")
	v.SetDefault("archive.backend", "none")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("ingest.concurrency must be > 0")
	}
	switch c.Archive.Backend {
	case "", "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local backend")
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend %q is not supported", c.Archive.Backend)
	}
	if c.Ingest.SummaryTopic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when ingest.summary_topic is configured")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("every source needs a name")
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = struct{}{}
		if src.BaseURL == "" {
			return fmt.Errorf("source %s: base_url is required", src.Name)
		}
		if len(src.Strategies) == 0 {
			return fmt.Errorf("source %s: at least one extraction strategy is required", src.Name)
		}
	}
	return nil
}
