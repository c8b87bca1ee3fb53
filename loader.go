// FILE: lixenwraith/treeconf/loader.go
package treeconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// Supported file formats
const (
	FormatTOML       = "toml"
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatProperties = "properties"
	FormatAuto       = "auto"
)

// DefaultMaxFileSize bounds configuration files read by FileSource
const DefaultMaxFileSize int64 = 10 << 20

// FileSource reads a TOML, JSON, YAML or .properties file. The format is
// taken from the extension, then detected from content.
type FileSource struct {
	sourceID
	path    string
	format  string
	maxSize int64
}

// NewFileSource creates a source reading path
func NewFileSource(path string) *FileSource {
	return &FileSource{
		sourceID: newSourceID("file:" + path),
		path:     path,
		format:   FormatAuto,
		maxSize:  DefaultMaxFileSize,
	}
}

// WithFormat forces the file format instead of detecting it
func (s *FileSource) WithFormat(format string) *FileSource {
	s.format = strings.ToLower(format)
	return s
}

// WithMaxSize sets the largest file accepted, in bytes
func (s *FileSource) WithMaxSize(size int64) *FileSource {
	if size > 0 {
		s.maxSize = size
	}
	return s
}

// Path returns the file path
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Load() (SourceData, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SourceData{}, fmt.Errorf("%w: %s", ErrConfigNotFound, s.path)
		}
		return SourceData{}, fmt.Errorf("failed to stat config file '%s': %w", s.path, err)
	}
	if info.Size() > s.maxSize {
		return SourceData{}, fmt.Errorf("config file '%s' exceeds maximum size %d bytes", s.path, s.maxSize)
	}

	file, err := os.Open(s.path)
	if err != nil {
		return SourceData{}, fmt.Errorf("failed to open config file '%s': %w", s.path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxSize))
	if err != nil {
		return SourceData{}, fmt.Errorf("failed to read config file '%s': %w", s.path, err)
	}

	format := s.format
	if format == "" || format == FormatAuto {
		format = detectFileFormat(s.path)
		if format == "" {
			format = detectFormatFromContent(data)
		}
	}

	return parseDocument(s.path, format, data)
}

// parseDocument parses file data in the given format
func parseDocument(path, format string, data []byte) (SourceData, error) {
	switch format {
	case FormatTOML:
		doc := make(map[string]any)
		if err := toml.Unmarshal(data, &doc); err != nil {
			return SourceData{}, fmt.Errorf("failed to parse TOML config file '%s': %w", path, err)
		}
		return SourceData{Node: TreeFromValue(doc)}, nil

	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		doc := make(map[string]any)
		if err := decoder.Decode(&doc); err != nil {
			return SourceData{}, fmt.Errorf("failed to parse JSON config file '%s': %w", path, err)
		}
		return SourceData{Node: TreeFromValue(doc)}, nil

	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return SourceData{}, fmt.Errorf("failed to parse YAML config file '%s': %w", path, err)
		}
		node, err := treeFromYAML(&doc)
		if err != nil {
			return SourceData{}, fmt.Errorf("failed to convert YAML config file '%s': %w", path, err)
		}
		return SourceData{Node: node}, nil

	case FormatProperties:
		loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
		props, err := loader.LoadBytes(data)
		if err != nil {
			return SourceData{}, fmt.Errorf("failed to parse properties config file '%s': %w", path, err)
		}
		pairs := make([]Pair, 0, props.Len())
		for _, key := range props.Keys() {
			value, _ := props.Get(key)
			pairs = append(pairs, Pair{Path: key, Value: value})
		}
		return SourceData{Pairs: pairs}, nil

	default:
		return SourceData{}, fmt.Errorf("%w for file '%s'", ErrUnknownFormat, path)
	}
}

// TreeFromValue converts a decoded document into a configuration tree. Maps
// become map nodes, slices become array nodes and everything else becomes a
// leaf holding its string form. A nil value becomes a leaf without a value.
func TreeFromValue(v any) Node {
	switch val := v.(type) {
	case nil:
		return EmptyLeaf()
	case Node:
		return val
	case map[string]any:
		children := make(map[string]Node, len(val))
		for key, child := range val {
			children[key] = TreeFromValue(child)
		}
		return NewMapNode(children)
	case []any:
		items := make([]Node, len(val))
		for i, item := range val {
			items[i] = TreeFromValue(item)
		}
		return NewArrayNode(items)
	case []map[string]any:
		items := make([]Node, len(val))
		for i, item := range val {
			items[i] = TreeFromValue(item)
		}
		return NewArrayNode(items)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		children := make(map[string]Node, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			children[iter.Key().String()] = TreeFromValue(iter.Value().Interface())
		}
		return NewMapNode(children)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		items := make([]Node, rv.Len())
		for i := range items {
			items[i] = TreeFromValue(rv.Index(i).Interface())
		}
		return NewArrayNode(items)
	case reflect.Pointer:
		if rv.IsNil() {
			return EmptyLeaf()
		}
		return TreeFromValue(rv.Elem().Interface())
	}

	return NewLeaf(scalarString(v))
}

// scalarString formats a parsed scalar the way it would be written in a file
func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case time.Duration:
		return val.String()
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// treeFromYAML converts a YAML node graph, keeping scalars as written
func treeFromYAML(n *yaml.Node) (Node, error) {
	switch n.Kind {
	case 0:
		return NewMapNode(nil), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return NewMapNode(nil), nil
		}
		return treeFromYAML(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: unresolved alias %q", n.Line, n.Value)
		}
		return treeFromYAML(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return EmptyLeaf(), nil
		}
		return NewLeaf(n.Value), nil
	case yaml.SequenceNode:
		items := make([]Node, len(n.Content))
		for i, item := range n.Content {
			child, err := treeFromYAML(item)
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		return NewArrayNode(items), nil
	case yaml.MappingNode:
		children := make(map[string]Node, len(n.Content)/2)
		merged := make(map[string]Node)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			child, err := treeFromYAML(value)
			if err != nil {
				return nil, err
			}
			if key.Value == "<<" && key.Tag == "!!merge" {
				if m, ok := child.(*MapNode); ok {
					for _, k := range m.Keys() {
						merged[k] = m.entry(k)
					}
					continue
				}
				return nil, fmt.Errorf("line %d: merge key requires a mapping", key.Line)
			}
			children[key.Value] = child
		}
		for k, v := range merged {
			if _, exists := children[k]; !exists {
				children[k] = v
			}
		}
		return NewMapNode(children), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

// EnvSource reads environment variables starting with a prefix. The rest of
// the name is lower-cased with underscores read as path delimiters, so
// APP_DB_PORT becomes db.port for the prefix "APP_".
type EnvSource struct {
	sourceID
	prefix    string
	transform func(name string) (string, bool)
}

// NewEnvSource creates an environment source for prefix
func NewEnvSource(prefix string) *EnvSource {
	s := &EnvSource{sourceID: newSourceID("env:" + prefix), prefix: prefix}
	s.transform = defaultEnvTransform(prefix)
	return s
}

// WithTransform replaces the variable name to path mapping; returning false skips the variable
func (s *EnvSource) WithTransform(transform func(name string) (string, bool)) *EnvSource {
	if transform != nil {
		s.transform = transform
	}
	return s
}

func (s *EnvSource) Load() (SourceData, error) {
	found := make(map[string]string)
	for _, entry := range os.Environ() {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		path, ok := s.transform(name)
		if !ok {
			continue
		}
		if len(value) > MaxValueSize {
			return SourceData{}, fmt.Errorf("%w: environment variable %s", ErrValueSize, name)
		}
		found[path] = value
	}

	pairs := make([]Pair, 0, len(found))
	for _, path := range slices.Sorted(maps.Keys(found)) {
		pairs = append(pairs, Pair{Path: path, Value: found[path]})
	}
	return SourceData{Pairs: pairs}, nil
}

// defaultEnvTransform maps PREFIX_SERVER_PORT to server.port
func defaultEnvTransform(prefix string) func(name string) (string, bool) {
	return func(name string) (string, bool) {
		if !strings.HasPrefix(name, prefix) {
			return "", false
		}
		rest := strings.Trim(strings.TrimPrefix(name, prefix), "_")
		if rest == "" {
			return "", false
		}
		return strings.ToLower(strings.ReplaceAll(rest, "_", ".")), true
	}
}

// CLISource reads --key value, --key=value and bare --flag arguments.
// A bare flag is read as "true".
type CLISource struct {
	sourceID
	args []string
}

// NewCLISource creates a source over a copy of args
func NewCLISource(args []string) *CLISource {
	return &CLISource{sourceID: newSourceID("cli"), args: slices.Clone(args)}
}

func (s *CLISource) Load() (SourceData, error) {
	pairs, err := parseArgs(s.args)
	if err != nil {
		return SourceData{}, fmt.Errorf("%w: %w", ErrCLIParse, err)
	}
	return SourceData{Pairs: pairs}, nil
}

// parseArgs turns command-line flags into pairs in argument order
func parseArgs(args []string) ([]Pair, error) {
	var pairs []Pair
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			i++
			continue
		}

		content := strings.TrimPrefix(arg, "--")
		if content == "" {
			i++
			continue
		}

		var key, value string
		if k, v, ok := strings.Cut(content, "="); ok {
			key, value = k, v
			i++
		} else {
			key = content
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				value = "true"
				i++
			} else {
				value = args[i+1]
				i += 2
			}
		}

		if key == "" {
			continue
		}
		for _, segment := range strings.Split(key, ".") {
			name, _, _ := strings.Cut(segment, "[")
			if name != "" && !isValidKeySegment(name) {
				return nil, fmt.Errorf("invalid command-line key segment %q in path %q", segment, key)
			}
		}
		pairs = append(pairs, Pair{Path: key, Value: unquote(value)})
	}
	return pairs, nil
}

// unquote strips one pair of surrounding double quotes
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".properties", ".props":
		return FormatProperties
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	var jsonTest map[string]any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	// YAML accepts most plain text as a scalar, so require a mapping
	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil && len(yamlTest) > 0 {
		return FormatYAML
	}

	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	return ""
}
