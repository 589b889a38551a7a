package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webserve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 8<<10, cfg.Server.MaxHeaderBytes)
	assert.Equal(t, "./public", cfg.Paths.Home)
	assert.Equal(t, "./.compressed", cfg.Paths.Compression)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Proxy.UpstreamHost)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: "0.0.0.0:9000"
  handler_timeout: 2s
  max_header_bytes: 16384
paths:
  home: /srv/www
log:
  level: debug
  format: json
proxy:
  upstream_host: backend.internal
  upstream_port: 8081
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.HandlerTimeout)
	assert.Equal(t, 16384, cfg.Server.MaxHeaderBytes)
	assert.Equal(t, "/srv/www", cfg.Paths.Home)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "backend.internal", cfg.Proxy.UpstreamHost)
	assert.Equal(t, 8081, cfg.Proxy.UpstreamPort)

	// Fields the file leaves out still get defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: "127.0.0.1:3000"
log:
  level: warn
`)
	t.Setenv("WEBSERVE_SERVER_ADDR", "127.0.0.1:4000")
	t.Setenv("WEBSERVE_LOG_LEVEL", "error")
	t.Setenv("WEBSERVE_SERVER_HANDLER_TIMEOUT", "750ms")
	t.Setenv("WEBSERVE_PROXY_UPSTREAM_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4000", cfg.Server.Addr)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 750*time.Millisecond, cfg.Server.HandlerTimeout)
	assert.Equal(t, 9100, cfg.Proxy.UpstreamPort)
}

func TestLoad_MissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAMLIsAnError(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "addr without port",
			mutate:  func(c *Config) { c.Server.Addr = "localhost" },
			wantErr: "server.addr",
		},
		{
			name:    "header limit too small",
			mutate:  func(c *Config) { c.Server.MaxHeaderBytes = 100 },
			wantErr: "max_header_bytes",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
		{
			name: "upstream port out of range",
			mutate: func(c *Config) {
				c.Proxy.UpstreamHost = "backend"
				c.Proxy.UpstreamPort = 70000
			},
			wantErr: "upstream_port",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			ApplyDefaults(&cfg)
			tt.mutate(&cfg)
			err := Validate(&cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
