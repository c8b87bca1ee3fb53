// FILE: lixenwraith/treeconf/postprocess_test.go
package treeconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcessNode(t *testing.T) {
	root, _ := compilePairs(t,
		Pair{"db.name", "orders"},
		Pair{"db.hosts[0]", "a"},
		Pair{"db.hosts[2]", "c"},
	)

	var visited []string
	record := PostProcessorFunc(func(path string, node Node) ValidateOf[Node] {
		visited = append(visited, path)
		return Valid(node)
	})
	upper := PostProcessorFunc(func(path string, node Node) ValidateOf[Node] {
		if v, ok := node.Value(); ok {
			return Valid[Node](NewLeaf(strings.ToUpper(v)))
		}
		return Valid(node)
	})

	result := postProcessNode("", root, []PostProcessor{record, upper})
	out, ok := result.Results()
	require.True(t, ok)
	assert.Empty(t, result.Errors())

	assert.Equal(t, "ORDERS", leafAt(t, out, "db.name"))
	assert.Equal(t, "C", leafAt(t, out, "db.hosts[2]"))
	hosts, _ := out.(*MapNode).children["db"].Key("hosts")
	assert.Equal(t, 3, hosts.Size(), "holes are preserved")

	assert.Equal(t, []string{"", "db", "db.hosts", "db.hosts[0]", "db.hosts[2]", "db.name"}, visited)

	// The input tree is never rewritten
	assert.Equal(t, "orders", leafAt(t, root, "db.name"))
}

func TestPostProcessorWithoutResult(t *testing.T) {
	fail := PostProcessorFunc(func(path string, node Node) ValidateOf[Node] {
		if node.Type() == LeafType {
			return Invalid[Node](&NoResultsFound{At: path, Context: "test"})
		}
		return Valid(node)
	})

	root, _ := compilePairs(t, Pair{"a", "1"})
	result := postProcessNode("", root, []PostProcessor{fail})
	out, ok := result.Results()
	require.True(t, ok)
	assert.Equal(t, "1", leafAt(t, out, "a"), "previous node is kept")
	assert.NotEmpty(t, result.Errors())
}

func TestTransformerPostProcessor(t *testing.T) {
	processor := NewTransformerPostProcessor(
		NewMapTransformer(map[string]string{"host": "db.internal", "port": "5432"}),
		NewEnvTransformer(),
	)

	process := func(value string) (string, []ValidationError) {
		result := processor.Process("db.url", NewLeaf(value))
		node, ok := result.Results()
		require.True(t, ok)
		v, _ := node.Value()
		return v, result.Errors()
	}

	t.Run("Substitutes", func(t *testing.T) {
		v, errs := process("postgres://${map:host}:${map:port}/orders")
		assert.Empty(t, errs)
		assert.Equal(t, "postgres://db.internal:5432/orders", v)
	})

	t.Run("Env", func(t *testing.T) {
		t.Setenv("TREECONF_TEST_PASSWORD", "s3cret")
		v, errs := process("${env:TREECONF_TEST_PASSWORD}")
		assert.Empty(t, errs)
		assert.Equal(t, "s3cret", v)
	})

	t.Run("UnresolvedKeyLeftInPlace", func(t *testing.T) {
		v, errs := process("${map:host}/${map:missing}")
		assert.Equal(t, "db.internal/${map:missing}", v)
		require.Len(t, errs, 1)
		var unresolved *UnresolvedToken
		require.ErrorAs(t, errs[0], &unresolved)
		assert.Equal(t, "missing", unresolved.Key)
		assert.Equal(t, "db.url", unresolved.At)
	})

	t.Run("UnknownTransformer", func(t *testing.T) {
		v, errs := process("${vault:secret}")
		assert.Equal(t, "${vault:secret}", v)
		require.Len(t, errs, 1)
		assert.IsType(t, &UnknownTransformer{}, errs[0])
	})

	t.Run("PlainValueUntouched", func(t *testing.T) {
		leaf := NewLeaf("plain $value")
		result := processor.Process("x", leaf)
		node, _ := result.Results()
		assert.Same(t, leaf, node)
	})

	t.Run("NonLeafUntouched", func(t *testing.T) {
		m := NewMapNode(nil)
		node, _ := processor.Process("x", m).Results()
		assert.Same(t, m, node)
	})
}

func TestTransformers(t *testing.T) {
	t.Run("FileTransformer", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "password"), []byte("hunter2\n"), 0600))

		ft := NewFileTransformer(dir)
		assert.Equal(t, "file", ft.Name())

		v, ok := ft.Process("db.password", "password").Results()
		require.True(t, ok)
		assert.Equal(t, "hunter2", v)

		result := ft.Process("db.password", "absent")
		assert.False(t, result.HasResults())
		assert.IsType(t, &UnresolvedToken{}, result.Errors()[0])

		// Directories are not read
		assert.False(t, ft.Process("x", ".").HasResults())
	})

	t.Run("MapTransformerCopiesInput", func(t *testing.T) {
		values := map[string]string{"a": "1"}
		mt := NewMapTransformer(values)
		values["a"] = "2"
		v, _ := mt.Process("x", "a").Results()
		assert.Equal(t, "1", v)
	})

	t.Run("EnvTransformerMissing", func(t *testing.T) {
		result := NewEnvTransformer().Process("x", "TREECONF_TEST_DEFINITELY_UNSET")
		assert.False(t, result.HasResults())
	})
}
