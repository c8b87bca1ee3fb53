// FILE: lixenwraith/treeconf/io.go
package treeconf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Dump writes the published tree to w in TOML format. Leaf values are written
// as strings; array holes and valueless leaves are left out.
func (c *Config) Dump(w io.Writer) error {
	root, ok := c.Root()
	if !ok {
		return ErrNotLoaded
	}

	doc, ok := dumpValue(root).(map[string]any)
	if !ok {
		return fmt.Errorf("root node is a %s, not a map", root.Type())
	}

	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("failed to marshal config data to TOML: %w", err)
	}
	return nil
}

// Save writes the published tree to a TOML file atomically
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := c.Dump(&buf); err != nil {
		return err
	}
	return atomicWriteFile(path, buf.Bytes())
}

// dumpValue converts a subtree for the TOML encoder, dropping holes
func dumpValue(node Node) any {
	switch node.Type() {
	case LeafType:
		value, ok := node.Value()
		if !ok {
			return nil
		}
		return value
	case MapType:
		m, ok := node.(*MapNode)
		if !ok {
			return nil
		}
		out := make(map[string]any, m.Size())
		for _, key := range m.Keys() {
			child, present := m.Key(key)
			if !present || key == "" {
				continue
			}
			if v := dumpValue(child); v != nil {
				out[key] = v
			}
		}
		return out
	case ArrayType:
		out := make([]any, 0, node.Size())
		for i := 0; i < node.Size(); i++ {
			child, present := node.Index(i)
			if !present {
				continue
			}
			if v := dumpValue(child); v != nil {
				out = append(out, v)
			}
		}
		return out
	default:
		return nil
	}
}

// Debug returns a formatted string showing the sources, the merged tree and
// the diagnostics of the last load or reload
func (c *Config) Debug() string {
	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")

	b.WriteString("Sources (lowest precedence first):\n")
	for i, src := range c.Sources() {
		b.WriteString(fmt.Sprintf("  %d. %s (%s)\n", i+1, src.Name(), src.ID()))
	}

	if root, ok := c.Root(); ok {
		b.WriteString(fmt.Sprintf("Tree: %s\n", root))
	} else {
		b.WriteString("Tree: <not loaded>\n")
	}

	diags := c.Diagnostics()
	errCount, warnCount := countLevels(diags)
	b.WriteString(fmt.Sprintf("Diagnostics: %d error(s), %d warning(s)\n", errCount, warnCount))
	for _, d := range diags {
		b.WriteString(fmt.Sprintf("  %s: %s\n", d.Level(), d.Error()))
	}

	return b.String()
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
