// file: internal/config/config.go

// Package config handles loading, parsing, and validating application configuration.
// It defines the structure for configuration settings, provides default values,
// loads settings from YAML files, and applies overrides from environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/logging"
	"gopkg.in/yaml.v3"
)

// TransportKind selects how a peer is reached or how the server is exposed.
type TransportKind string

const (
	// TransportStdio is newline-delimited JSON over a subprocess's pipes, or over the
	// server process's own stdin/stdout.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP is one JSON-RPC envelope per HTTP POST.
	TransportHTTP TransportKind = "http"
	// TransportInProcess connects a client to a server in the same process. It needs a
	// transport factory supplied by the caller.
	TransportInProcess TransportKind = "inprocess"
)

// Defaults.
const (
	DefaultRequestTimeout    = 30 * time.Second
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
	DefaultReconnectMaxDelay = 30 * time.Second
)

// ServerConfig contains settings for the MCP server exposed by this process.
type ServerConfig struct {
	// Name and Version are reported as serverInfo during initialize.
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// Transport selects stdio or http serving.
	Transport TransportKind `yaml:"transport"`
	// Host and Port are used by the http transport only.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RequestTimeout bounds a single tool execution.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Instructions is optional text returned during initialize.
	Instructions string `yaml:"instructions,omitempty"`
}

// Addr returns host:port for the http transport.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// StoreConfig selects the resource store backing resources/list and resources/read.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver"`
	// Path is the sqlite database file. Supports '~' expansion.
	Path string `yaml:"path"`
}

// LoggingConfig controls the default logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ReconnectConfig is the client backoff policy.
type ReconnectConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// RemoteServer describes an MCP server this process connects to as a client.
type RemoteServer struct {
	Name      string        `yaml:"name"`
	Transport TransportKind `yaml:"transport"`

	// Subprocess settings.
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	WorkDir string            `yaml:"workdir"`

	// HTTP settings.
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`

	RequestTimeout time.Duration   `yaml:"request_timeout"`
	Reconnect      ReconnectConfig `yaml:"reconnect"`
}

// WithDefaults returns a copy with zero-valued policy fields filled in.
func (r RemoteServer) WithDefaults() RemoteServer {
	if r.Transport == "" {
		if r.URL != "" {
			r.Transport = TransportHTTP
		} else {
			r.Transport = TransportStdio
		}
	}
	if r.RequestTimeout <= 0 {
		r.RequestTimeout = DefaultRequestTimeout
	}
	if r.Reconnect.MaxAttempts <= 0 {
		r.Reconnect.MaxAttempts = DefaultReconnectAttempts
	}
	if r.Reconnect.BaseDelay <= 0 {
		r.Reconnect.BaseDelay = DefaultReconnectDelay
	}
	if r.Reconnect.MaxDelay < r.Reconnect.BaseDelay {
		r.Reconnect.MaxDelay = DefaultReconnectMaxDelay
		if r.Reconnect.MaxDelay < r.Reconnect.BaseDelay {
			r.Reconnect.MaxDelay = r.Reconnect.BaseDelay
		}
	}
	return r
}

// Validate checks that the transport-specific fields are present.
func (r RemoteServer) Validate() error {
	if r.Name == "" {
		return errors.New("remote server name is required")
	}
	switch r.WithDefaults().Transport {
	case TransportStdio:
		if r.Command == "" {
			return errors.Newf("remote %q: command is required for stdio transport", r.Name)
		}
	case TransportHTTP:
		if r.URL == "" {
			return errors.Newf("remote %q: url is required for http transport", r.Name)
		}
	case TransportInProcess:
	default:
		return errors.Newf("remote %q: unknown transport %q", r.Name, r.Transport)
	}
	return nil
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Store   StoreConfig    `yaml:"store"`
	Logging LoggingConfig  `yaml:"logging"`
	Remotes []RemoteServer `yaml:"remotes"`
}

// DefaultConfig returns a configuration populated with default values, with
// environment overrides applied.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Name:           "toolwire",
			Version:        "dev",
			Transport:      TransportStdio,
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: DefaultRequestTimeout,
		},
		Store:   StoreConfig{Driver: "memory"},
		Logging: LoggingConfig{Level: "info"},
	}
	applyEnvironmentOverrides(cfg, logging.GetLogger("config_default"))
	return cfg
}

// LoadFromFile loads configuration from the specified YAML file path.
// It starts with default values, merges the values from the file,
// and finally applies any environment variable overrides.
// Supports '~' expansion in the file path.
func LoadFromFile(path string) (*Config, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path comes from a command-line flag, considered trusted input.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file YAML: %s", path)
	}

	applyEnvironmentOverrides(config, logging.GetLogger("config_load"))
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file: %s", path)
	}
	return config, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return errors.Newf("server.transport must be stdio or http, got %q", c.Server.Transport)
	}
	if c.Server.Transport == TransportHTTP && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return errors.Newf("server.port %d is out of range", c.Server.Port)
	}
	switch c.Store.Driver {
	case "", "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	default:
		return errors.Newf("unknown store driver %q", c.Store.Driver)
	}

	seen := make(map[string]struct{}, len(c.Remotes))
	for _, r := range c.Remotes {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.Name]; dup {
			return errors.Newf("duplicate remote name %q", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// Remote returns the named remote with defaults applied.
func (c *Config) Remote(name string) (RemoteServer, error) {
	for _, r := range c.Remotes {
		if r.Name == name {
			return r.WithDefaults(), nil
		}
	}
	return RemoteServer{}, errors.Newf("no remote server named %q", name)
}

// ExpandHome replaces a leading '~' with the user's home directory.
func ExpandHome(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory to expand path")
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// applyEnvironmentOverrides applies configuration overrides from environment variables.
// Environment variables take precedence over values set in configuration files or defaults.
func applyEnvironmentOverrides(config *Config, logger logging.Logger) {
	if v := os.Getenv("TOOLWIRE_SERVER_NAME"); v != "" {
		config.Server.Name = v
		logger.Debug("Server name overridden from environment.", "name", v)
	}
	if v := os.Getenv("TOOLWIRE_SERVER_TRANSPORT"); v != "" {
		config.Server.Transport = TransportKind(v)
		logger.Debug("Server transport overridden from environment.", "transport", v)
	}
	if v := os.Getenv("TOOLWIRE_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			logger.Warn("Ignoring invalid TOOLWIRE_SERVER_PORT.", "value", v, "error", err)
		} else {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("TOOLWIRE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("TOOLWIRE_STORE_PATH"); v != "" {
		config.Store.Path = v
		if config.Store.Driver == "" || config.Store.Driver == "memory" {
			config.Store.Driver = "sqlite"
		}
	}
}
