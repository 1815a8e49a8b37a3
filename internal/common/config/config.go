// Package config loads process-level configuration for the amuxd binary.
//
// Only the amuxd binary calls Load. The core session-plane packages
// (internal/agent/acp, internal/agent/spawn, internal/orchestrator/dispatch)
// import this package only for the plain AgentsConfig struct; importing it
// still links viper into those packages.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoggingConfig mirrors logger.LoggingConfig without importing it, so
// this package stays independent of the logger package.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DebugHTTPConfig controls the read-only introspection server.
type DebugHTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// AgentConfig allows overriding the command/args used to spawn a given
// agent kind, so a deployment can point at a local build instead of the
// PATH-resolved binary.
type AgentConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// AgentsConfig maps an agent kind name ("claude_code", "gemini_cli") to
// its override.
type AgentsConfig struct {
	ClaudeCode AgentConfig `mapstructure:"claude_code"`
	GeminiCLI  AgentConfig `mapstructure:"gemini_cli"`
}

// SessionsConfig holds registry settings. MaxSessions is loaded but
// nothing reads it; the registry itself has no size bound.
type SessionsConfig struct {
	MaxSessions int `mapstructure:"max_sessions"`
}

// Config is the top-level process configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	DebugHTTP DebugHTTPConfig `mapstructure:"debug_http"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
}

// Load reads configuration from (in increasing precedence) built-in
// defaults, an optional config file named "amuxd" on the search path,
// and AMUXD_-prefixed environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("debug_http.enabled", true)
	v.SetDefault("debug_http.addr", ":8090")
	v.SetDefault("sessions.max_sessions", 32)

	v.SetConfigName("amuxd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/amuxd")

	v.SetEnvPrefix("AMUXD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}
