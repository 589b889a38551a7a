// Package config loads the server configuration from YAML with defaults,
// environment overrides and validation.
package config

import "time"

// Config is the root configuration for the webserve binary.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Paths  PathsConfig  `yaml:"paths"`
	Log    LogConfig    `yaml:"log"`
	Proxy  ProxyConfig  `yaml:"proxy"`
}

// ServerConfig controls the listener and per-request limits.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `yaml:"addr"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	// HandlerTimeout bounds handler execution; expiry answers 408.
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// PathsConfig names the served tree and the compressed-artifact directory.
type PathsConfig struct {
	Home        string `yaml:"home"`
	Compression string `yaml:"compression"`
}

// LogConfig controls the slog sink.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
}

// ProxyConfig names an optional upstream; when set, /proxy/ routes forward
// to it.
type ProxyConfig struct {
	UpstreamHost string `yaml:"upstream_host"`
	UpstreamPort int    `yaml:"upstream_port"`
}
