// FILE: lixenwraith/treeconf/decode_test.go
package treeconf

import (
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScanWithComplexTypes tests scanning with various complex types
func TestScanWithComplexTypes(t *testing.T) {
	type NetworkConfig struct {
		IP      net.IP        `toml:"ip"`
		IPNet   *net.IPNet    `toml:"subnet"`
		URL     *url.URL      `toml:"endpoint"`
		Timeout time.Duration `toml:"timeout"`
		Zones   []string      `toml:"zones"`
		Retry   struct {
			Count    int           `toml:"count"`
			Interval time.Duration `toml:"interval"`
		} `toml:"retry"`
	}

	type AppConfig struct {
		Network NetworkConfig     `toml:"network"`
		Tags    []string          `toml:"tags"`
		Ports   []int             `toml:"ports"`
		Labels  map[string]string `toml:"labels"`
	}

	defaults := &AppConfig{
		Network: NetworkConfig{
			IP:      net.ParseIP("127.0.0.1"),
			Timeout: 30 * time.Second,
		},
		Tags:   []string{"default"},
		Ports:  []int{8080},
		Labels: map[string]string{"env": "dev", "team": "core"},
	}

	file := writeFile(t, "app.toml", `
tags = ["prod", "staging", "test"]
ports = [80, 443]

[network]
timeout = "2m30s"

[network.retry]
count = 5
interval = "10s"

[labels]
env = "production"
version = "1.2.3"
`)

	cfg := loaded(t,
		NewStructSource("", defaults),
		NewFileSource(file),
		NewMapSource("env", map[string]string{
			"network.ip":       "192.168.1.100",
			"network.subnet":   "192.168.1.0/24",
			"network.endpoint": "https://api.example.com:8443/v1",
			"network.zones":    "eu,us",
		}),
	)

	var result AppConfig
	require.NoError(t, cfg.Scan("", &result))

	assert.Equal(t, "192.168.1.100", result.Network.IP.String())
	assert.Equal(t, "192.168.1.0/24", result.Network.IPNet.String())
	assert.Equal(t, "https://api.example.com:8443/v1", result.Network.URL.String())
	assert.Equal(t, 150*time.Second, result.Network.Timeout)
	assert.Equal(t, []string{"eu", "us"}, result.Network.Zones)
	assert.Equal(t, 5, result.Network.Retry.Count)
	assert.Equal(t, 10*time.Second, result.Network.Retry.Interval)
	assert.Equal(t, []string{"prod", "staging", "test"}, result.Tags)
	assert.Equal(t, []int{80, 443}, result.Ports)
	assert.Equal(t, map[string]string{"env": "production", "team": "core", "version": "1.2.3"}, result.Labels)
}

func TestScan(t *testing.T) {
	type Server struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	}

	cfg := loaded(t, NewMapSource("values", map[string]string{
		"server.host": "localhost",
		"server.port": "8080",
		"server.ip":   "not-an-ip",
	}))

	t.Run("Section", func(t *testing.T) {
		var server Server
		require.NoError(t, cfg.Scan("server", &server))
		assert.Equal(t, Server{Host: "localhost", Port: 8080}, server)
	})

	t.Run("IntoMap", func(t *testing.T) {
		var section map[string]any
		require.NoError(t, cfg.Scan("server", &section))
		assert.Equal(t, "8080", section["port"])
	})

	t.Run("CustomTagName", func(t *testing.T) {
		type tagged struct {
			Address string `config:"host"`
		}
		opts := DefaultOptions()
		opts.TagName = "config"
		custom := NewWithOptions(opts)
		require.NoError(t, custom.AddSource(NewMapSource("values", map[string]string{"server.host": "db"})))
		require.NoError(t, custom.Load())

		var out tagged
		require.NoError(t, custom.Scan("server", &out))
		assert.Equal(t, "db", out.Address)
	})

	t.Run("BadHookInput", func(t *testing.T) {
		var out struct {
			IP net.IP `toml:"ip"`
		}
		err := cfg.Scan("server", &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid IP address")
	})

	t.Run("NonPointerTarget", func(t *testing.T) {
		var server Server
		assert.Error(t, cfg.Scan("server", server))
		var nilTarget *Server
		assert.Error(t, cfg.Scan("server", nilTarget))
	})

	t.Run("LeafPath", func(t *testing.T) {
		var server Server
		err := cfg.Scan("server.port", &server)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not refer to a scannable section")
	})

	t.Run("MissingPath", func(t *testing.T) {
		var server Server
		var diagErr *DiagnosticsError
		assert.ErrorAs(t, cfg.Scan("client", &server), &diagErr)
	})

	t.Run("NotLoaded", func(t *testing.T) {
		var server Server
		assert.ErrorIs(t, New().Scan("", &server), ErrNotLoaded)
	})
}
