package config

import (
	"fmt"
	"net"
)

// Validate rejects configurations that cannot produce a working server.
func Validate(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		return fmt.Errorf("server.addr %q is not host:port: %w", cfg.Server.Addr, err)
	}
	if cfg.Server.MaxHeaderBytes < 1024 {
		return fmt.Errorf("server.max_header_bytes %d is below the 1024 minimum", cfg.Server.MaxHeaderBytes)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not json or text", cfg.Log.Format)
	}
	if cfg.Proxy.UpstreamHost != "" && (cfg.Proxy.UpstreamPort <= 0 || cfg.Proxy.UpstreamPort > 65535) {
		return fmt.Errorf("proxy.upstream_port %d is out of range", cfg.Proxy.UpstreamPort)
	}
	return nil
}
