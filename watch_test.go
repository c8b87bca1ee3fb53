// FILE: lixenwraith/treeconf/watch_test.go
package treeconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:      50 * time.Millisecond,
		MaxWatchers:   10,
		ReloadTimeout: time.Second,
	}
}

func waitForEvent(t *testing.T, ch <-chan string, want string) string {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				t.Fatalf("watch channel closed while waiting for %q", want)
			}
			if event == want || strings.HasPrefix(event, want+":") {
				return event
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestWatchFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[server]\nport = 8080\nhost = \"localhost\"\n"), 0644))

	type testConfig struct {
		Server struct {
			Port int    `toml:"port"`
			Host string `toml:"host"`
		} `toml:"server"`
	}
	defaults := &testConfig{}
	defaults.Server.Port = 3000
	defaults.Server.Host = "0.0.0.0"

	cfg, err := NewBuilder().
		WithDefaults(defaults).
		WithFile(configPath).
		WithArgs(nil).
		WithWatch(fastWatchOptions()).
		Build()
	require.NoError(t, err)
	defer cfg.StopWatching()

	require.True(t, cfg.IsWatching())
	assert.Equal(t, 8080, GetOr(cfg, "server.port", 0))

	changes := cfg.Watch()
	assert.Equal(t, 1, cfg.WatcherCount())

	t.Run("Reload", func(t *testing.T) {
		require.NoError(t, os.WriteFile(configPath, []byte("[server]\nport = 9090\n"), 0644))
		waitForEvent(t, changes, EventReload)

		assert.Equal(t, 9090, GetOr(cfg, "server.port", 0))
		assert.Equal(t, "0.0.0.0", GetOr(cfg, "server.host", ""), "keys removed from the file fall back to defaults")
	})

	t.Run("ReloadError", func(t *testing.T) {
		require.NoError(t, os.WriteFile(configPath, []byte("[server\nport ="), 0644))
		event := waitForEvent(t, changes, EventReloadError)
		assert.Contains(t, event, "TOML")
		assert.Equal(t, 9090, GetOr(cfg, "server.port", 0), "previous tree is kept")
	})

	t.Run("Deleted", func(t *testing.T) {
		require.NoError(t, os.Remove(configPath))
		waitForEvent(t, changes, EventDeleted)
	})

	t.Run("Stop", func(t *testing.T) {
		cfg.StopWatching()
		assert.False(t, cfg.IsWatching())
		assert.Equal(t, 0, cfg.WatcherCount())

		select {
		case _, ok := <-changes:
			for ok {
				_, ok = <-changes
			}
		case <-time.After(time.Second):
			t.Fatal("watch channel not closed after StopWatching")
		}
	})
}

func TestWatchWithoutWatcher(t *testing.T) {
	cfg := New()
	assert.False(t, cfg.IsWatching())

	_, ok := <-cfg.Watch()
	assert.False(t, ok, "channel is closed when nothing is watched")
	cfg.StopWatching()
}

func TestWatchFileErrors(t *testing.T) {
	cfg := New()
	assert.ErrorIs(t, cfg.WatchFile(nil, fastWatchOptions()), ErrNilSource)

	src := NewFileSource(writeFile(t, "app.toml", "a = 1\n"))
	assert.ErrorIs(t, cfg.WatchFile(src, fastWatchOptions()), ErrSourceNotFound)
}

func TestWatchMaxWatchers(t *testing.T) {
	src := NewFileSource(writeFile(t, "app.toml", "a = 1\n"))
	cfg := loaded(t, src)

	opts := fastWatchOptions()
	opts.MaxWatchers = 2
	require.NoError(t, cfg.WatchFile(src, opts))
	defer cfg.StopWatching()

	cfg.Watch()
	cfg.Watch()
	_, ok := <-cfg.Watch()
	assert.False(t, ok, "subscriptions beyond MaxWatchers get a closed channel")
	assert.Equal(t, 2, cfg.WatcherCount())
}
