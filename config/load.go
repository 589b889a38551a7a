package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults and env
// overrides (WEBSERVE_*), and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse configuration file %q: %w", path, err)
		}
	}
	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Env overrides follow WEBSERVE_SECTION_FIELD and always win over the file.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Addr, "WEBSERVE_SERVER_ADDR")
	setDuration(&cfg.Server.ReadHeaderTimeout, "WEBSERVE_SERVER_READ_HEADER_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "WEBSERVE_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "WEBSERVE_SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.HandlerTimeout, "WEBSERVE_SERVER_HANDLER_TIMEOUT")
	setInt(&cfg.Server.MaxHeaderBytes, "WEBSERVE_SERVER_MAX_HEADER_BYTES")
	setString(&cfg.Paths.Home, "WEBSERVE_PATHS_HOME")
	setString(&cfg.Paths.Compression, "WEBSERVE_PATHS_COMPRESSION")
	setString(&cfg.Log.Level, "WEBSERVE_LOG_LEVEL")
	setString(&cfg.Log.Format, "WEBSERVE_LOG_FORMAT")
	setString(&cfg.Proxy.UpstreamHost, "WEBSERVE_PROXY_UPSTREAM_HOST")
	setInt(&cfg.Proxy.UpstreamPort, "WEBSERVE_PROXY_UPSTREAM_PORT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
