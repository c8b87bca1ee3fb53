// FILE: lixenwraith/treeconf/config_test.go
package treeconf

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mutableSource serves pairs that tests can replace between reloads
type mutableSource struct {
	sourceID
	mu    sync.Mutex
	pairs []Pair
	err   error
}

func newMutableSource(name string, pairs ...Pair) *mutableSource {
	return &mutableSource{sourceID: newSourceID(name), pairs: pairs}
}

func (s *mutableSource) set(pairs ...Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = pairs
	s.err = nil
}

func (s *mutableSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *mutableSource) Load() (SourceData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return SourceData{}, s.err
	}
	return SourceData{Pairs: append([]Pair(nil), s.pairs...)}, nil
}

func loaded(t *testing.T, sources ...Source) *Config {
	t.Helper()
	cfg := New()
	require.NoError(t, cfg.AddSource(sources...))
	require.NoError(t, cfg.Load())
	return cfg
}

func TestConfigPrecedence(t *testing.T) {
	defaults := NewMapSource("defaults", map[string]string{"db.port": "5432", "db.name": "orders", "db.user": "app"})
	file := writeFile(t, "app.toml", "[db]\nport = 5433\n")
	overrides := NewMapSource("overrides", map[string]string{"db.user": "admin"})

	cfg := loaded(t, defaults, NewFileSource(file), overrides)

	port, err := cfg.Int("db.port")
	require.NoError(t, err)
	assert.Equal(t, 5433, port)

	name, err := cfg.String("db.name")
	require.NoError(t, err)
	assert.Equal(t, "orders", name)

	user, err := cfg.String("db.user")
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	assert.Empty(t, cfg.Diagnostics())
	assert.Len(t, cfg.Sources(), 3)
}

func TestConfigLoad(t *testing.T) {
	t.Run("NotLoaded", func(t *testing.T) {
		cfg := New()
		assert.False(t, cfg.IsLoaded())
		_, err := cfg.Int("db.port")
		assert.ErrorIs(t, err, ErrNotLoaded)
		_, ok := cfg.Root()
		assert.False(t, ok)
		assert.False(t, cfg.Node("db").HasResults())
	})

	t.Run("NilSource", func(t *testing.T) {
		assert.ErrorIs(t, New().AddSource(nil), ErrNilSource)
	})

	t.Run("MissingFileIsNotFatal", func(t *testing.T) {
		cfg := New()
		require.NoError(t, cfg.AddSource(
			NewMapSource("defaults", map[string]string{"db.port": "5432"}),
			NewFileSource(filepath.Join(t.TempDir(), "absent.toml")),
		))
		err := cfg.Load()
		assert.ErrorIs(t, err, ErrConfigNotFound)
		assert.True(t, cfg.IsLoaded())
		assert.Equal(t, 5432, GetOr(cfg, "db.port", 0))
	})

	t.Run("SourceFailure", func(t *testing.T) {
		src := newMutableSource("broken")
		src.fail(errors.New("boom"))
		cfg := New()
		require.NoError(t, cfg.AddSource(src))
		err := cfg.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.False(t, cfg.IsLoaded())
	})

	t.Run("CompileDiagnosticsKept", func(t *testing.T) {
		cfg := loaded(t, NewPairSource("pairs", []Pair{{"a..b", "1"}, {"c", "2"}}))
		diags := cfg.Diagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, LevelError, diags[0].Level())
		assert.Equal(t, "2", GetOr(cfg, "c", ""))
	})

	t.Run("SourceAddedAfterLoad", func(t *testing.T) {
		cfg := loaded(t, NewMapSource("a", map[string]string{"x": "1"}))
		require.NoError(t, cfg.AddSource(NewMapSource("b", map[string]string{"x": "2"})))
		assert.Equal(t, 1, GetOr(cfg, "x", 0))
		require.NoError(t, cfg.Load())
		assert.Equal(t, 2, GetOr(cfg, "x", 0))
	})
}

func TestConfigGet(t *testing.T) {
	cfg := loaded(t, NewMapSource("values", map[string]string{
		"db.name":     "orders",
		"db.port":     "5432",
		"db.enabled":  "yes",
		"db.timeout":  "1500",
		"db.hosts":    "a, b ,c",
		"db.ratio":    "0.25",
		"server.port": "not-a-number",
	}))

	t.Run("Typed", func(t *testing.T) {
		enabled, err := cfg.Bool("db.enabled")
		require.NoError(t, err)
		assert.True(t, enabled)

		timeout, err := cfg.Duration("db.timeout")
		require.NoError(t, err)
		assert.Equal(t, 1500*time.Millisecond, timeout)

		hosts, err := cfg.Strings("db.hosts")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, hosts)

		ratio, err := cfg.Float64("db.ratio")
		require.NoError(t, err)
		assert.InDelta(t, 0.25, ratio, 1e-9)

		port, err := cfg.Int64("db.port")
		require.NoError(t, err)
		assert.Equal(t, int64(5432), port)
	})

	t.Run("ParseFailure", func(t *testing.T) {
		_, err := cfg.Int("server.port")
		var diagErr *DiagnosticsError
		require.ErrorAs(t, err, &diagErr)
		assert.Equal(t, "server.port", diagErr.Path)
		require.NotEmpty(t, diagErr.Diagnostics)
		assert.Equal(t, LevelError, diagErr.Diagnostics[0].Level())
	})

	t.Run("MissingPath", func(t *testing.T) {
		_, err := cfg.String("db.password")
		var notFound *NoResultsFound
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("InvalidPath", func(t *testing.T) {
		_, err := cfg.String("db..name")
		var invalid *InvalidPath
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("GetOr", func(t *testing.T) {
		assert.Equal(t, 8080, GetOr(cfg, "server.port", 8080))
		assert.Equal(t, 5432, GetOr(cfg, "db.port", 1))
		assert.Equal(t, "fallback", cfg.GetOr("db.password", StringType(), "fallback"))
	})

	t.Run("Lookup", func(t *testing.T) {
		result := cfg.Lookup("server.port", IntType())
		assert.False(t, result.HasResults())
		assert.True(t, result.HasErrorsAtLevel(LevelError))

		result = cfg.Lookup("db.port", Uint64Type())
		value, ok := result.Results()
		require.True(t, ok)
		assert.Equal(t, uint64(5432), value)
	})

	t.Run("Node", func(t *testing.T) {
		db, ok := cfg.Node("db").Results()
		require.True(t, ok)
		assert.Equal(t, MapType, db.Type())
		assert.Equal(t, 6, db.Size())
	})
}

func TestConfigWarnings(t *testing.T) {
	pairs := []Pair{{"hosts[0]", "a"}, {"hosts[2]", "c"}}

	t.Run("WarningsPassByDefault", func(t *testing.T) {
		cfg := loaded(t, NewPairSource("pairs", pairs))
		hosts, err := cfg.Strings("hosts")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, hosts)

		result := cfg.Lookup("hosts", ListOf(StringType()))
		assert.True(t, result.HasErrorsAtLevel(LevelWarn))
		assert.NoError(t, cfg.Validate("hosts"))
	})

	t.Run("TreatWarningsAsErrors", func(t *testing.T) {
		opts := DefaultOptions()
		opts.TreatWarningsAsErrors = true
		cfg := NewWithOptions(opts)
		require.NoError(t, cfg.AddSource(NewPairSource("pairs", pairs)))
		require.NoError(t, cfg.Load())

		_, err := cfg.Strings("hosts")
		var missing *ArrayMissingIndex
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, 1, missing.Index)

		assert.Equal(t, []string{"x"}, GetOr(cfg, "hosts", []string{"x"}))
		assert.Error(t, cfg.Validate())
	})
}

func TestConfigOptions(t *testing.T) {
	t.Run("NormalizeKeys", func(t *testing.T) {
		opts := DefaultOptions()
		opts.NormalizeKeys = true
		cfg := NewWithOptions(opts)
		require.NoError(t, cfg.AddSource(NewMapSource("mixed", map[string]string{"Server.Port": "80"})))
		require.NoError(t, cfg.Load())

		assert.Equal(t, 80, GetOr(cfg, "server.port", 0))
		assert.Equal(t, 80, GetOr(cfg, "SERVER.PORT", 0))
	})

	t.Run("NormalizeKeysFileAndPairs", func(t *testing.T) {
		file := writeFile(t, "app.toml", "[Server]\nPort = 8080\n\n[Limits]\nMax = 1\nmax = 2\n")
		opts := DefaultOptions()
		opts.NormalizeKeys = true
		cfg := NewWithOptions(opts)
		require.NoError(t, cfg.AddSource(
			NewFileSource(file),
			NewMapSource("values", map[string]string{"Server.Host": "h"}),
		))
		require.NoError(t, cfg.Load())

		assert.Equal(t, 8080, GetOr(cfg, "server.port", 0))
		assert.Equal(t, 8080, GetOr(cfg, "Server.Port", 0))
		assert.Equal(t, "h", GetOr(cfg, "server.host", ""))
		assert.Equal(t, 2, GetOr(cfg, "limits.max", 0))

		root, ok := cfg.Root()
		require.True(t, ok)
		assert.Equal(t, []string{"limits", "server"}, root.(*MapNode).Keys())
	})

	t.Run("CustomDelimiters", func(t *testing.T) {
		cfg := NewWithOptions(Options{PathDelimiter: "/", ListDelimiter: ";"})
		require.NoError(t, cfg.AddSource(NewMapSource("values", map[string]string{"db/hosts": "a;b"})))
		require.NoError(t, cfg.Load())

		hosts, err := cfg.Strings("db/hosts")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, hosts)
		assert.Equal(t, "/", cfg.Options().PathDelimiter)
		assert.Equal(t, DefaultTimeLayout, cfg.Options().TimeLayout)
	})
}

func TestConfigTransformers(t *testing.T) {
	t.Setenv("TREECONF_TEST_HOME", "/srv/app")

	cfg := New()
	cfg.AddTransformer(NewMapTransformer(map[string]string{"secret": "s3cr3t"}))
	require.NoError(t, cfg.AddSource(NewMapSource("values", map[string]string{
		"db.password": "${map:secret}",
		"paths.data":  "${env:TREECONF_TEST_HOME}/data",
		"paths.cache": "${vault:cache}",
	})))
	require.NoError(t, cfg.Load())

	assert.Equal(t, "s3cr3t", GetOr(cfg, "db.password", ""))
	assert.Equal(t, "/srv/app/data", GetOr(cfg, "paths.data", ""))
	assert.Equal(t, "${vault:cache}", GetOr(cfg, "paths.cache", ""))

	diags := cfg.Diagnostics()
	require.Len(t, diags, 1)
	var unknown *UnknownTransformer
	require.ErrorAs(t, diags[0], &unknown)
	assert.Equal(t, "vault", unknown.Transformer)
}

func TestConfigPostProcessors(t *testing.T) {
	upper := PostProcessorFunc(func(path string, node Node) ValidateOf[Node] {
		if value, ok := node.Value(); ok && path == "mode" {
			return Valid[Node](NewLeaf(value + "!"))
		}
		return Valid(node)
	})

	cfg := New()
	cfg.AddPostProcessor(upper)
	require.NoError(t, cfg.AddSource(NewMapSource("values", map[string]string{"mode": "fast"})))
	require.NoError(t, cfg.Load())
	assert.Equal(t, "fast!", GetOr(cfg, "mode", ""))
}

func TestConfigReload(t *testing.T) {
	t.Run("ReplacesSourceAndNotifies", func(t *testing.T) {
		base := NewMapSource("defaults", map[string]string{"db.port": "5432", "db.name": "orders"})
		src := newMutableSource("dynamic", Pair{"db.port", "5433"}, Pair{"db.pool", "4"})
		cfg := loaded(t, base, src)

		var notified atomic.Int32
		cfg.AddReloadListener(ReloadListenerFunc(func() { notified.Add(1) }))
		cfg.AddReloadListener(nil)

		src.set(Pair{"db.port", "6000"})
		require.NoError(t, cfg.Reload(src))

		assert.Equal(t, int32(1), notified.Load())
		assert.Equal(t, 6000, GetOr(cfg, "db.port", 0))
		assert.Equal(t, "orders", GetOr(cfg, "db.name", ""))
		assert.False(t, cfg.Node("db.pool").HasResults(), "keys dropped by the source disappear")
	})

	t.Run("FailureKeepsPreviousTree", func(t *testing.T) {
		src := newMutableSource("dynamic", Pair{"db.port", "5433"})
		cfg := loaded(t, src)

		var notified atomic.Int32
		cfg.AddReloadListener(ReloadListenerFunc(func() { notified.Add(1) }))

		src.fail(errors.New("unavailable"))
		require.Error(t, cfg.Reload(src))
		assert.Equal(t, int32(0), notified.Load())
		assert.Equal(t, 5433, GetOr(cfg, "db.port", 0))
	})

	t.Run("UnregisteredSource", func(t *testing.T) {
		cfg := loaded(t, NewMapSource("a", nil))
		err := cfg.Reload(NewMapSource("b", nil))
		assert.ErrorIs(t, err, ErrSourceNotFound)
		assert.ErrorIs(t, cfg.Reload(nil), ErrNilSource)
	})

	t.Run("BeforeLoad", func(t *testing.T) {
		src := newMutableSource("dynamic")
		cfg := New()
		require.NoError(t, cfg.AddSource(src))
		assert.ErrorIs(t, cfg.Reload(src), ErrNotLoaded)
	})

	t.Run("SourceMissingAtLoad", func(t *testing.T) {
		src := newMutableSource("late")
		src.fail(fmt.Errorf("%w: late", ErrConfigNotFound))
		cfg := New()
		require.NoError(t, cfg.AddSource(NewMapSource("base", map[string]string{"x": "1"}), src))
		assert.ErrorIs(t, cfg.Load(), ErrConfigNotFound)

		src.set(Pair{"x", "2"})
		require.NoError(t, cfg.Reload(src))
		assert.Equal(t, 2, GetOr(cfg, "x", 0))
	})

	t.Run("ReloadAll", func(t *testing.T) {
		file := writeFile(t, "app.toml", "[db]\nport = 5433\n")
		cfg := loaded(t, NewFileSource(file))

		var notified atomic.Int32
		cfg.AddReloadListener(ReloadListenerFunc(func() { notified.Add(1) }))

		require.NoError(t, writeFileAt(file, "[db]\nport = 7000\n"))
		require.NoError(t, cfg.ReloadAll())
		assert.Equal(t, 7000, GetOr(cfg, "db.port", 0))
		assert.Equal(t, int32(1), notified.Load())
	})

	t.Run("ReadersSeeWholeSnapshots", func(t *testing.T) {
		src := newMutableSource("dynamic", Pair{"a", "0"}, Pair{"b", "0"})
		cfg := loaded(t, src)

		stop := make(chan struct{})
		var wg sync.WaitGroup
		var torn atomic.Int32
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					root, ok := cfg.Root()
					if !ok {
						continue
					}
					a, _ := root.Key("a")
					b, _ := root.Key("b")
					av, _ := a.Value()
					bv, _ := b.Value()
					if av != bv {
						torn.Add(1)
					}
				}
			}()
		}

		for i := 1; i <= 50; i++ {
			v := fmt.Sprint(i)
			src.set(Pair{"a", v}, Pair{"b", v})
			require.NoError(t, cfg.Reload(src))
		}
		close(stop)
		wg.Wait()

		assert.Zero(t, torn.Load())
		assert.Equal(t, 50, GetOr(cfg, "a", 0))
	})
}
