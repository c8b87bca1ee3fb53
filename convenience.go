// File: lixenwraith/treeconf/convenience.go
package treeconf

import (
	"fmt"
	"os"
	"strings"
)

// Quick creates a fully configured Config instance with a single call.
// Precedence, highest first: command line, environment, files in the given
// order (later wins), struct defaults. Missing files are reported as
// ErrConfigNotFound alongside a usable Config.
func Quick(structDefaults any, envPrefix string, configFiles ...string) (*Config, error) {
	return QuickCustom(structDefaults, DefaultOptions(), envPrefix, configFiles...)
}

// QuickCustom creates a Config with custom options
func QuickCustom(structDefaults any, opts Options, envPrefix string, configFiles ...string) (*Config, error) {
	cfg := NewWithOptions(opts)

	var sources []Source
	if structDefaults != nil {
		sources = append(sources, NewStructSource("", structDefaults))
	}
	for _, file := range configFiles {
		if file != "" {
			sources = append(sources, NewFileSource(file))
		}
	}
	sources = append(sources, NewEnvSource(envPrefix), NewCLISource(os.Args[1:]))

	if err := cfg.AddSource(sources...); err != nil {
		return nil, fmt.Errorf("failed to register sources: %w", err)
	}

	err := cfg.Load()
	return cfg, err
}

// MustQuick is like Quick but panics on error
func MustQuick(structDefaults any, envPrefix string, configFiles ...string) *Config {
	cfg, err := Quick(structDefaults, envPrefix, configFiles...)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return cfg
}

// Validate checks that every required path resolves to a node holding a
// value, and that the last load produced no ERROR diagnostics
func (c *Config) Validate(required ...string) error {
	if !c.IsLoaded() {
		return ErrNotLoaded
	}

	var missing []string
	for _, path := range required {
		node, ok := c.Node(path).Results()
		if !ok {
			missing = append(missing, path)
			continue
		}
		if node.Type() == LeafType {
			if _, hasValue := node.Value(); !hasValue {
				missing = append(missing, path)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	var blocking []ValidationError
	for _, d := range c.Diagnostics() {
		if d.Level() == LevelError || c.opts.TreatWarningsAsErrors {
			blocking = append(blocking, d)
		}
	}
	if len(blocking) > 0 {
		return &DiagnosticsError{Diagnostics: blocking}
	}
	return nil
}
