// Package config loads and validates gateway configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server        ServerConfig              `mapstructure:"server"`
	Auth          AuthConfig                `mapstructure:"auth"`
	Logging       LoggingConfig             `mapstructure:"logging"`
	Search        SearchConfig              `mapstructure:"search"`
	Sites         []string                  `mapstructure:"sites"`
	WriteEndpoint string                    `mapstructure:"write_endpoint"`
	Endpoints     map[string]EndpointConfig `mapstructure:"endpoints"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SearchConfig sets result limits for federated searches.
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// EndpointConfig describes one backend endpoint.
type EndpointConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Kind         string `mapstructure:"kind"`
	APIKey       string `mapstructure:"api_key"`
	APIEndpoint  string `mapstructure:"api_endpoint"`
	DatabasePath string `mapstructure:"database_path"`
	Index        string `mapstructure:"index"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEWAY")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("search.default_limit", 50)
	v.SetDefault("search.max_limit", 200)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be > 0")
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit must be >= search.default_limit")
	}
	for name, ep := range c.Endpoints {
		if ep.Kind == "" {
			return fmt.Errorf("endpoints.%s.kind is required", name)
		}
	}
	if c.WriteEndpoint != "" {
		if _, ok := c.Endpoints[c.WriteEndpoint]; !ok {
			return fmt.Errorf("write_endpoint %q is not a configured endpoint", c.WriteEndpoint)
		}
	}
	return nil
}

// RetrievalEndpoints converts the endpoint section into retrieval entities.
func (c Config) RetrievalEndpoints() map[string]retrieval.Endpoint {
	endpoints := make(map[string]retrieval.Endpoint, len(c.Endpoints))
	for name, ep := range c.Endpoints {
		endpoints[name] = retrieval.Endpoint{
			Name:         name,
			Kind:         retrieval.BackendKind(ep.Kind),
			Enabled:      ep.Enabled,
			APIKey:       ep.APIKey,
			APIEndpoint:  ep.APIEndpoint,
			DatabasePath: ep.DatabasePath,
			Index:        ep.Index,
		}
	}
	return endpoints
}

// ClampLimit bounds a caller-supplied result limit, substituting the default
// for zero and the configured maximum for oversized requests.
func (c Config) ClampLimit(limit int) int {
	if limit <= 0 {
		return c.Search.DefaultLimit
	}
	if limit > c.Search.MaxLimit {
		return c.Search.MaxLimit
	}
	return limit
}
