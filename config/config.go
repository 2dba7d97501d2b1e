// Package config loads the assistant's YAML configuration. Missing files
// produce defaults, and credential fields may reference environment variables
// as ${VAR_NAME} so API keys never live in the file itself.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Listen string `yaml:"listen"` // host:port
}

// ModelConfig selects and configures the text-completion provider.
type ModelConfig struct {
	Provider string `yaml:"provider"` // openai, anthropic or mock
	Name     string `yaml:"name"`     // provider-specific model identifier
	APIKey   string `yaml:"api_key"`  // supports ${ENV_VAR} expansion
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory or sqlite
	Path    string `yaml:"path"`    // sqlite database path
}

// SessionConfig tunes session lifecycle.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LoggingConfig tunes the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Config is the root configuration document.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// Defaults returns the baseline configuration: in-memory store, mock model,
// half-hour session idle eviction.
func Defaults() Config {
	return Config{
		Server:  ServerConfig{Listen: "127.0.0.1:8080"},
		Model:   ModelConfig{Provider: "mock"},
		Store:   StoreConfig{Backend: "memory", Path: "reslab.db"},
		Session: SessionConfig{IdleTTL: 30 * time.Minute, SweepInterval: time.Minute},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// Load reads the config file and returns a merged Config. A missing file
// produces defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	cfg.Model.APIKey = expandEnvVars(cfg.Model.APIKey)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults backfills zero values left by a partial config file.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = def.Server.Listen
	}
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = def.Model.Provider
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Session.IdleTTL <= 0 {
		cfg.Session.IdleTTL = def.Session.IdleTTL
	}
	if cfg.Session.SweepInterval <= 0 {
		cfg.Session.SweepInterval = def.Session.SweepInterval
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

// Validate rejects unknown provider / backend selections early, before any
// component is wired.
func (c Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	switch c.Store.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}
