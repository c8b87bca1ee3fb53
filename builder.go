// File: lixenwraith/treeconf/builder.go
package treeconf

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ValidatorFunc defines the signature for a function that can validate a Config instance.
// It receives the fully loaded *Config object and should return an error if validation fails.
type ValidatorFunc func(c *Config) error

// Builder provides a fluent interface for building configurations
type Builder struct {
	opts         Options
	logger       *slog.Logger
	defaults     any
	prefix       string
	file         string
	fileFormat   string
	envPrefix    string
	useEnv       bool
	args         []string
	sources      []Source
	decoders     []Decoder
	transformers []Transformer
	processors   []PostProcessor
	listeners    []ReloadListener
	watch        *WatchOptions
	err          error
	validators   []ValidatorFunc
}

// NewBuilder creates a new configuration builder
func NewBuilder() *Builder {
	return &Builder{
		opts:       DefaultOptions(),
		args:       os.Args[1:],
		validators: make([]ValidatorFunc, 0),
	}
}

// WithOptions replaces the engine options
func (b *Builder) WithOptions(opts Options) *Builder {
	b.opts = opts
	return b
}

// WithLogger sets the logger used for load and reload records
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithDefaults sets the struct containing default values, added as the
// lowest precedence source
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = defaults
	return b
}

// WithPrefix sets the path prefix for the defaults struct, also used as the
// base path by BuildAndScan
func (b *Builder) WithPrefix(prefix string) *Builder {
	b.prefix = prefix
	return b
}

// WithFile sets the configuration file path
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithFileFormat forces the configuration file format
func (b *Builder) WithFileFormat(format string) *Builder {
	switch format {
	case FormatTOML, FormatJSON, FormatYAML, FormatProperties, FormatAuto:
		b.fileFormat = format
	default:
		b.err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return b
}

// WithEnvPrefix enables the environment variable source for prefix
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.envPrefix = prefix
	b.useEnv = true
	return b
}

// WithArgs sets the command-line arguments; nil disables the CLI source
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// AddSource appends a source above the file and below environment and CLI
func (b *Builder) AddSource(sources ...Source) *Builder {
	for _, src := range sources {
		if src == nil {
			b.err = ErrNilSource
			continue
		}
		b.sources = append(b.sources, src)
	}
	return b
}

// AddDecoder registers custom decoders
func (b *Builder) AddDecoder(decoders ...Decoder) *Builder {
	b.decoders = append(b.decoders, decoders...)
	return b
}

// AddTransformer registers transformers for ${name:key} substitution
func (b *Builder) AddTransformer(transformers ...Transformer) *Builder {
	b.transformers = append(b.transformers, transformers...)
	return b
}

// AddPostProcessor registers post-processing passes
func (b *Builder) AddPostProcessor(processors ...PostProcessor) *Builder {
	b.processors = append(b.processors, processors...)
	return b
}

// AddReloadListener registers a reload listener
func (b *Builder) AddReloadListener(listener ReloadListener) *Builder {
	b.listeners = append(b.listeners, listener)
	return b
}

// WithWatch starts watching the configuration file once built
func (b *Builder) WithWatch(opts WatchOptions) *Builder {
	b.watch = &opts
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the Config instance with all specified options. Sources are
// layered lowest precedence first: defaults, file, added sources, environment,
// command line.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}

	cfg := NewWithOptions(b.opts)
	if b.logger != nil {
		cfg.SetLogger(b.logger)
	}
	cfg.AddDecoder(b.decoders...)
	cfg.AddTransformer(b.transformers...)
	cfg.AddPostProcessor(b.processors...)
	for _, l := range b.listeners {
		cfg.AddReloadListener(l)
	}

	var sources []Source
	if b.defaults != nil {
		sources = append(sources, NewStructSource(b.prefix, b.defaults))
	}
	var fileSource *FileSource
	if b.file != "" {
		fileSource = NewFileSource(b.file)
		if b.fileFormat != "" {
			fileSource.WithFormat(b.fileFormat)
		}
		sources = append(sources, fileSource)
	}
	sources = append(sources, b.sources...)
	if b.useEnv {
		sources = append(sources, NewEnvSource(b.envPrefix))
	}
	if len(b.args) > 0 {
		sources = append(sources, NewCLISource(b.args))
	}
	if err := cfg.AddSource(sources...); err != nil {
		return nil, err
	}

	// ErrConfigNotFound is not fatal
	loadErr := cfg.Load()
	if loadErr != nil && !errors.Is(loadErr, ErrConfigNotFound) {
		return nil, loadErr
	}

	for _, validator := range b.validators {
		if err := validator(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	if b.watch != nil && fileSource != nil && loadErr == nil {
		if err := cfg.WatchFile(fileSource, *b.watch); err != nil {
			return nil, fmt.Errorf("failed to watch config file: %w", err)
		}
	}

	// ErrConfigNotFound or nil
	return cfg, loadErr
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Config {
	cfg, err := b.Build()
	if err != nil {
		// Ignore ErrConfigNotFound as it is not a fatal error for MustBuild.
		// The application can proceed with defaults/env vars.
		if !errors.Is(err, ErrConfigNotFound) {
			panic(fmt.Sprintf("config build failed: %v", err))
		}
	}
	return cfg
}

// BuildAndScan builds and unmarshals the final configuration into the provided target struct pointer
func (b *Builder) BuildAndScan(target any) error {
	cfg, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return err
	}

	// The prefix used for defaults is the base path for scanning.
	if err := cfg.Scan(b.prefix, target); err != nil {
		return fmt.Errorf("failed to scan final config into target: %w", err)
	}

	// ErrConfigNotFound or nil
	return err
}
