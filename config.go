// FILE: lixenwraith/treeconf/config.go
package treeconf

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Options configures how paths are read and values decoded
type Options struct {
	// PathDelimiter separates path segments, "." by default
	PathDelimiter string

	// ListDelimiter splits a single value into list elements, "," by default
	ListDelimiter string

	// TimeLayout is the first layout tried when decoding times
	TimeLayout string

	// TreatWarningsAsErrors makes strict queries fail on warnings too
	TreatWarningsAsErrors bool

	// NormalizeKeys lower-cases every path segment, in sources and queries
	NormalizeKeys bool

	// TagName is the struct tag Scan reads field names from
	TagName string
}

// DefaultOptions returns the standard options
func DefaultOptions() Options {
	return Options{
		PathDelimiter: DefaultPathDelimiter,
		ListDelimiter: DefaultListDelimiter,
		TimeLayout:    DefaultTimeLayout,
		TagName:       "toml",
	}
}

// ReloadListener is notified after a reload publishes a new tree
type ReloadListener interface {
	Reload()
}

// ReloadListenerFunc adapts a function to the ReloadListener interface
type ReloadListenerFunc func()

func (f ReloadListenerFunc) Reload() { f() }

// Config merges configuration sources into one tree and decodes typed values
// out of it. Queries read a published snapshot and never block on a load or
// reload in progress.
type Config struct {
	opts     Options
	lexer    *PathLexer
	decoders *DecoderRegistry
	logger   atomic.Pointer[slog.Logger]

	mu           sync.Mutex // serializes load and reload, guards the fields below
	sources      []Source
	transformers []Transformer
	processors   []PostProcessor
	listeners    []ReloadListener
	compileDiags map[uuid.UUID][]ValidationError

	manager     atomic.Pointer[NodeManager]
	diagnostics atomic.Pointer[[]ValidationError]

	watchMu sync.Mutex
	watcher *watcher
}

// New creates a Config with DefaultOptions, the built-in decoders and the
// environment variable transformer
func New() *Config {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a Config with opts
func NewWithOptions(opts Options) *Config {
	defaults := DefaultOptions()
	if opts.PathDelimiter == "" {
		opts.PathDelimiter = defaults.PathDelimiter
	}
	if opts.ListDelimiter == "" {
		opts.ListDelimiter = defaults.ListDelimiter
	}
	if opts.TimeLayout == "" {
		opts.TimeLayout = defaults.TimeLayout
	}
	if opts.TagName == "" {
		opts.TagName = defaults.TagName
	}

	c := &Config{
		opts:  opts,
		lexer: NewPathLexer(opts.PathDelimiter).WithNormalize(opts.NormalizeKeys),
		decoders: NewDefaultDecoderRegistry().
			WithListDelimiter(opts.ListDelimiter).
			WithTimeLayout(opts.TimeLayout),
		transformers: []Transformer{NewEnvTransformer()},
		compileDiags: make(map[uuid.UUID][]ValidationError),
	}
	c.SetLogger(nil)
	return c
}

// Options returns the options the Config was created with
func (c *Config) Options() Options {
	return c.opts
}

// SetLogger replaces the logger; nil restores the discarding default
func (c *Config) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c.logger.Store(logger)
}

// Logger returns the logger
func (c *Config) Logger() *slog.Logger {
	return c.logger.Load()
}

// AddSource appends sources. Later sources override earlier ones. Sources
// added after Load take effect on the next Load.
func (c *Config) AddSource(sources ...Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, src := range sources {
		if src == nil {
			return ErrNilSource
		}
		c.sources = append(c.sources, src)
	}
	return nil
}

// AddDecoder registers additional decoders
func (c *Config) AddDecoder(decoders ...Decoder) {
	c.decoders.Register(decoders...)
}

// AddTransformer registers transformers for ${name:key} substitution. A
// transformer replaces an earlier one with the same name.
func (c *Config) AddTransformer(transformers ...Transformer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transformers = append(c.transformers, transformers...)
}

// AddPostProcessor registers passes run over the merged tree after the
// transformer pass, in registration order
func (c *Config) AddPostProcessor(processors ...PostProcessor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = append(c.processors, processors...)
}

// AddReloadListener registers a listener called after every reload
func (c *Config) AddReloadListener(listener ReloadListener) {
	if listener == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// Sources returns the registered sources in precedence order, lowest first
func (c *Config) Sources() []Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sources)
}

// Decoders returns the decoder registry
func (c *Config) Decoders() *DecoderRegistry {
	return c.decoders
}

// pipeline returns the post-processing passes; callers hold c.mu
func (c *Config) pipeline() []PostProcessor {
	passes := make([]PostProcessor, 0, len(c.processors)+1)
	if len(c.transformers) > 0 {
		passes = append(passes, NewTransformerPostProcessor(c.transformers...))
	}
	return append(passes, c.processors...)
}

// Load reads every source, merges them in order, validates and post-processes
// the result and publishes it. A missing file is not fatal: the remaining
// sources are still loaded and ErrConfigNotFound is returned alongside.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *Config) loadLocked() error {
	mgr := NewNodeManager()
	compileDiags := make(map[uuid.UUID][]ValidationError, len(c.sources))
	var loadErrs []error

	for _, src := range c.sources {
		container, compiled, err := compileSource(src, c.lexer)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				c.Logger().Warn("configuration source not found", slog.String("source", src.Name()))
				loadErrs = append(loadErrs, err)
				continue
			}
			return fmt.Errorf("failed to load source %s: %w", src.Name(), err)
		}
		compileDiags[src.ID()] = compiled.Errors()
		if container.Node == nil {
			continue
		}
		if _, err := mgr.AddNode(container); err != nil {
			return fmt.Errorf("failed to add source %s: %w", src.Name(), err)
		}
		c.Logger().Debug("configuration source loaded",
			slog.String("source", src.Name()),
			slog.Int("diagnostics", len(compiled.Errors())))
	}

	var diags []ValidationError
	for _, src := range c.sources {
		diags = append(diags, compileDiags[src.ID()]...)
	}
	if len(mgr.Containers()) > 0 {
		rebuilt, err := mgr.Rebuild(c.pipeline()...)
		if err != nil {
			return fmt.Errorf("failed to merge sources: %w", err)
		}
		diags = append(diags, rebuilt.Errors()...)
	}
	diags = dedupe(diags)

	c.compileDiags = compileDiags
	c.manager.Store(mgr)
	c.diagnostics.Store(&diags)
	c.logDiagnostics("load", diags)

	return errors.Join(loadErrs...)
}

// Reload re-reads src and rebuilds the tree from every source, then notifies
// the reload listeners. The previous tree stays published until the new one is
// complete; when src fails to load the previous tree is kept.
func (c *Config) Reload(src Source) error {
	if src == nil {
		return ErrNilSource
	}

	c.mu.Lock()
	if err := c.reloadLocked(src); err != nil {
		c.mu.Unlock()
		return err
	}
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.Reload()
	}
	return nil
}

func (c *Config) reloadLocked(src Source) error {
	registered := slices.ContainsFunc(c.sources, func(s Source) bool { return s.ID() == src.ID() })
	if !registered {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, src.Name())
	}

	mgr := c.manager.Load()
	if mgr == nil {
		return ErrNotLoaded
	}

	container, compiled, err := compileSource(src, c.lexer)
	if err != nil {
		c.Logger().Error("configuration reload failed", slog.String("source", src.Name()), slog.Any("error", err))
		return fmt.Errorf("failed to reload source %s: %w", src.Name(), err)
	}

	result, err := mgr.Reload(container, c.pipeline()...)
	if errors.Is(err, ErrSourceNotFound) {
		// source was unavailable at load time
		return c.loadLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to reload source %s: %w", src.Name(), err)
	}

	c.compileDiags[src.ID()] = compiled.Errors()
	var diags []ValidationError
	for _, s := range c.sources {
		diags = append(diags, c.compileDiags[s.ID()]...)
	}
	diags = dedupe(append(diags, result.Errors()...))
	c.diagnostics.Store(&diags)

	c.Logger().Info("configuration reloaded", slog.String("source", src.Name()), slog.Int("diagnostics", len(diags)))
	c.logDiagnostics("reload", diags)
	return nil
}

// ReloadAll re-reads every source, then notifies the reload listeners
func (c *Config) ReloadAll() error {
	c.mu.Lock()
	if err := c.loadLocked(); err != nil && !errors.Is(err, ErrConfigNotFound) {
		c.mu.Unlock()
		return err
	}
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.Reload()
	}
	return nil
}

func (c *Config) logDiagnostics(op string, diags []ValidationError) {
	for _, d := range diags {
		attrs := []any{slog.String("op", op), slog.String("path", d.Path()), slog.String("diagnostic", d.Error())}
		if d.Level() == LevelWarn {
			c.Logger().Warn("configuration diagnostic", attrs...)
		} else {
			c.Logger().Error("configuration diagnostic", attrs...)
		}
	}
}

// IsLoaded reports whether Load has completed
func (c *Config) IsLoaded() bool {
	return c.manager.Load() != nil
}

// Root returns the published tree
func (c *Config) Root() (Node, bool) {
	mgr := c.manager.Load()
	if mgr == nil {
		return nil, false
	}
	return mgr.Root()
}

// Diagnostics returns the diagnostics of the last load or reload
func (c *Config) Diagnostics() []ValidationError {
	diags := c.diagnostics.Load()
	if diags == nil {
		return nil
	}
	return slices.Clone(*diags)
}

// Node returns the subtree at path
func (c *Config) Node(path string) ValidateOf[Node] {
	scanned := c.lexer.Scan(path)
	tokens, ok := scanned.Results()
	if !ok {
		return Invalid[Node](scanned.Errors()...)
	}
	mgr := c.manager.Load()
	if mgr == nil {
		return Invalid[Node](&NoResultsFound{At: path, Context: "reading an unloaded configuration"})
	}
	return mgr.NavigateToNode(path, tokens)
}

// Lookup decodes the value at path as t and returns it with every diagnostic
// produced. It never fails outright; see Get for the strict form.
func (c *Config) Lookup(path string, t *Type) ValidateOf[any] {
	located := c.Node(path)
	node, ok := located.Results()
	if !ok {
		return Invalid[any](located.Errors()...)
	}
	return c.decoders.Decode(path, node, t)
}

// Get decodes the value at path as t. It fails when no value could be
// produced or when any error diagnostic was raised, and on warnings too
// when TreatWarningsAsErrors is set.
func (c *Config) Get(path string, t *Type) (any, error) {
	if !c.IsLoaded() {
		return nil, ErrNotLoaded
	}
	result := c.Lookup(path, t)
	value, ok := result.Results()
	if !ok || c.blocking(result) {
		return nil, &DiagnosticsError{Path: path, Diagnostics: result.Errors()}
	}
	return value, nil
}

// GetOr decodes the value at path as t, returning def on any failure
func (c *Config) GetOr(path string, t *Type, def any) any {
	value, err := c.Get(path, t)
	if err != nil {
		return def
	}
	return value
}

func (c *Config) blocking(result ValidateOf[any]) bool {
	if result.HasErrorsAtLevel(LevelError) {
		return true
	}
	return c.opts.TreatWarningsAsErrors && result.HasErrorsAtLevel(LevelWarn)
}

// Get decodes the value at path into T
func Get[T any](c *Config, path string) (T, error) {
	var zero T
	value, err := c.Get(path, TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("decoded value at path %q has type %T, not %T", path, value, zero)
	}
	return typed, nil
}

// GetOr decodes the value at path into T, returning def on any failure
func GetOr[T any](c *Config, path string, def T) T {
	value, err := Get[T](c, path)
	if err != nil {
		return def
	}
	return value
}
