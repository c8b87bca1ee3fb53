// FILE: lixenwraith/treeconf/transform.go
package treeconf

import (
	"maps"
	"os"
	"path/filepath"
	"strings"
)

// Transformer resolves the key of a ${name:key} token
type Transformer interface {
	Name() string
	Process(path, key string) ValidateOf[string]
}

// MapTransformer resolves keys from a fixed map. Its token name is "map".
type MapTransformer struct {
	values map[string]string
}

// NewMapTransformer creates a map transformer over a copy of values
func NewMapTransformer(values map[string]string) *MapTransformer {
	t := &MapTransformer{values: make(map[string]string, len(values))}
	maps.Copy(t.values, values)
	return t
}

func (t *MapTransformer) Name() string { return "map" }

func (t *MapTransformer) Process(path, key string) ValidateOf[string] {
	value, ok := t.values[key]
	if !ok {
		return Invalid[string](&UnresolvedToken{At: path, Transformer: t.Name(), Key: key})
	}
	return Valid(value)
}

// EnvTransformer resolves keys from environment variables. Its token name is "env".
type EnvTransformer struct{}

// NewEnvTransformer creates an environment variable transformer
func NewEnvTransformer() *EnvTransformer {
	return &EnvTransformer{}
}

func (t *EnvTransformer) Name() string { return "env" }

func (t *EnvTransformer) Process(path, key string) ValidateOf[string] {
	value, ok := os.LookupEnv(key)
	if !ok {
		return Invalid[string](&UnresolvedToken{At: path, Transformer: t.Name(), Key: key})
	}
	return Valid(value)
}

// FileTransformer resolves a key naming a file to that file's trimmed
// contents, optionally relative to a base directory. Its token name is "file".
type FileTransformer struct {
	baseDir string
}

// NewFileTransformer creates a file transformer; an empty baseDir resolves
// relative keys against the working directory
func NewFileTransformer(baseDir string) *FileTransformer {
	return &FileTransformer{baseDir: baseDir}
}

func (t *FileTransformer) Name() string { return "file" }

func (t *FileTransformer) Process(path, key string) ValidateOf[string] {
	file := filepath.Clean(key)
	if t.baseDir != "" && !filepath.IsAbs(file) {
		file = filepath.Join(t.baseDir, file)
	}

	info, err := os.Stat(file)
	if err != nil || info.IsDir() || info.Size() > MaxValueSize {
		return Invalid[string](&UnresolvedToken{At: path, Transformer: t.Name(), Key: key})
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return Invalid[string](&UnresolvedToken{At: path, Transformer: t.Name(), Key: key})
	}
	return Valid(strings.TrimSpace(string(data)))
}
