// Package config provides the on-disk configuration schema for pctxd: the
// set of MCP servers to connect to at startup, the session backend to use,
// and server-level settings such as the listen address and log level.
//
// This package defines the shape of the document, reads and decodes it from
// YAML (Load, LoadFromReader), and validates it. Any interactive prompt flow
// that produces the file lives outside this package.
package config

import "github.com/lambdamechanic/pctxgo/internal/secrets"

// Config is the root configuration document for pctxd.
type Config struct {
	Name        string        `yaml:"name"`
	Version     string        `yaml:"version"`
	Description string        `yaml:"description"`
	Server      ServerConfig  `yaml:"server"`
	Backend     BackendConfig `yaml:"backend"`
	MCP         MCPConfig     `yaml:"mcp"`
}

// ServerConfig holds network and logging settings for pctxd.
type ServerConfig struct {
	// ListenAddr is the TCP address the REST+WebSocket server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn",
	// "error".
	LogLevel string `yaml:"log_level"`

	// ShutdownTimeoutSeconds bounds how long graceful shutdown waits for
	// in-flight requests to drain.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
}

// BackendConfig selects and configures the session.Backend implementation.
type BackendConfig struct {
	// Kind is "local" (default, in-memory) or "postgres".
	Kind string `yaml:"kind"`

	// PostgresDSN is the connection string used when Kind is "postgres".
	PostgresDSN string `yaml:"postgres_dsn"`
}

// MCPConfig holds the list of MCP servers to register at startup.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes how to connect to a single MCP tool server.
type MCPServerConfig struct {
	// Name is a unique human-readable identifier for this server.
	Name string `yaml:"name"`

	// Transport specifies the connection mechanism: "stdio" or
	// "streamable-http".
	Transport string `yaml:"transport"`

	// Command is the executable (with optional arguments) launched when
	// Transport is "stdio".
	Command string `yaml:"command"`

	// URL is the endpoint address used when Transport is
	// "streamable-http".
	URL string `yaml:"url"`

	// Env holds additional environment variables injected into the
	// subprocess when Transport is "stdio". Values may themselves be
	// secret references (see Auth) resolved by the caller.
	Env map[string]string `yaml:"env"`

	// Auth, if set, is resolved via internal/secrets into
	// mcpclient.ServerConfig.AuthHeader; mcpclient.Connect does not send
	// that value to the server.
	Auth *secrets.Ref `yaml:"auth,omitempty"`
}
