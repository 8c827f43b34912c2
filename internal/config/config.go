// Package config loads sitepilot settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "SITEPILOT"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config is the full sitepilot configuration.
type Config struct {
	DataDir string       `mapstructure:"data_dir"`
	Log     LogConfig    `mapstructure:"log"`
	Store   StoreConfig  `mapstructure:"store"`
	LLM     LLMConfig    `mapstructure:"llm"`
	Agent   AgentConfig  `mapstructure:"agent"`
	Server  ServerConfig `mapstructure:"server"`
	Media   MediaConfig  `mapstructure:"media"`
}

// LogConfig sets the slog level (debug, info, warn, error) and format (text, json).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the repository backend. DSN is a file path for sqlite,
// a connection string for postgres and a URI for mongo.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Database string `mapstructure:"database"`
}

// LLMConfig picks the provider and model used for goal runs.
type LLMConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// AgentConfig bounds the planning loop and names the agent in audit entries.
type AgentConfig struct {
	Name            string        `mapstructure:"name"`
	MaxRounds       int           `mapstructure:"max_rounds"`
	ToolConcurrency int           `mapstructure:"tool_concurrency"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	Transcripts     bool          `mapstructure:"transcripts"`
}

// ServerConfig is the HTTP listen address and allowed CORS origins.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// MediaConfig controls where uploads are written and the URL prefix they are served under.
type MediaConfig struct {
	Dir      string `mapstructure:"dir"`
	BaseURL  string `mapstructure:"base_url"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// DefaultDataDir returns ~/.sitepilot, or ./.sitepilot when the home
// directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sitepilot"
	}
	return filepath.Join(home, ".sitepilot")
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.database", "sitepilot")
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("agent.name", "sitepilot")
	v.SetDefault("agent.max_rounds", 10)
	v.SetDefault("agent.tool_concurrency", 4)
	v.SetDefault("agent.run_timeout", 2*time.Minute)
	v.SetDefault("agent.transcripts", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("media.dir", "")
	v.SetDefault("media.base_url", "/media")
	v.SetDefault("media.max_bytes", int64(10<<20))
}

// BindEnv makes every key readable from SITEPILOT_* variables, e.g.
// SITEPILOT_STORE_DRIVER for store.driver.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config, fills derived paths and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Media.Dir == "" {
		cfg.Media.Dir = filepath.Join(cfg.DataDir, "media")
	}
	if cfg.Store.Driver == DriverSQLite && cfg.Store.DSN == "" {
		cfg.Store.DSN = filepath.Join(cfg.DataDir, "sitepilot.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and driver requirements.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q", c.Log.Format)
	}

	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres, DriverMongo:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if c.Agent.MaxRounds < 1 {
		return fmt.Errorf("agent.max_rounds must be at least 1")
	}
	if c.Agent.ToolConcurrency < 1 {
		return fmt.Errorf("agent.tool_concurrency must be at least 1")
	}
	if c.Agent.RunTimeout < 0 {
		return fmt.Errorf("agent.run_timeout must not be negative")
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be at least 1")
	}
	if c.Media.MaxBytes < 1 {
		return fmt.Errorf("media.max_bytes must be at least 1")
	}
	return nil
}

// RunsDir is where run transcripts are written.
func (c *Config) RunsDir() string {
	return filepath.Join(c.DataDir, "runs")
}
