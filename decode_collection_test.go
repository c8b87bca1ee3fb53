// FILE: lixenwraith/treeconf/decode_collection_test.go
package treeconf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaves(values ...string) []Node {
	nodes := make([]Node, len(values))
	for i, v := range values {
		nodes[i] = NewLeaf(v)
	}
	return nodes
}

func TestListDecoder(t *testing.T) {
	reg := NewDefaultDecoderRegistry()

	t.Run("LeafAndArrayAreEquivalent", func(t *testing.T) {
		fromLeaf, ok := reg.Decode("ports", NewLeaf("1, 2 ,3"), ListOf(IntType())).Results()
		require.True(t, ok)
		fromArray, ok := reg.Decode("ports", NewArrayNode(leaves("1", "2", "3")), ListOf(IntType())).Results()
		require.True(t, ok)

		assert.Equal(t, []int{1, 2, 3}, fromLeaf)
		if diff := cmp.Diff(fromArray, fromLeaf); diff != "" {
			t.Errorf("leaf and array decode differ (-array +leaf):\n%s", diff)
		}
	})

	t.Run("HoleIsSkippedWithWarning", func(t *testing.T) {
		hosts := NewArrayNode([]Node{NewLeaf("a"), nil, NewLeaf("c")})
		result := reg.Decode("db.hosts", hosts, ListOf(StringType()))

		got, ok := result.Results()
		require.True(t, ok)
		assert.Equal(t, []string{"a", "c"}, got)

		require.Len(t, result.Errors(), 1)
		var missing *ArrayMissingIndex
		require.ErrorAs(t, result.Errors()[0], &missing)
		assert.Equal(t, 1, missing.Index)
		assert.Equal(t, LevelWarn, missing.Level())
	})

	t.Run("EmptyLeafValueIsEmptyList", func(t *testing.T) {
		got, ok := reg.Decode("x", NewLeaf(""), ListOf(StringType())).Results()
		require.True(t, ok)
		assert.Equal(t, []string{}, got)
	})

	t.Run("LeafWithoutValue", func(t *testing.T) {
		result := reg.Decode("x", EmptyLeaf(), ListOf(StringType()))
		assert.False(t, result.HasResults())
		assert.IsType(t, &LeafMissingValue{}, result.Errors()[0])
	})

	t.Run("MapIsRejected", func(t *testing.T) {
		result := reg.Decode("x", NewMapNode(map[string]Node{"a": NewLeaf("1")}), ListOf(StringType()))
		assert.False(t, result.HasResults())
		assert.IsType(t, &MismatchedObjectNode{}, result.Errors()[0])
	})

	t.Run("BadElementKeepsRest", func(t *testing.T) {
		result := reg.Decode("ports", NewLeaf("1,x,3"), ListOf(IntType()))
		got, ok := result.Results()
		require.True(t, ok)
		assert.Equal(t, []int{1, 3}, got)

		var parsing *NumberParsing
		require.ErrorAs(t, result.Errors()[0], &parsing)
		assert.Equal(t, "ports[1]", parsing.At)
	})

	t.Run("CustomDelimiter", func(t *testing.T) {
		custom := NewDefaultDecoderRegistry().WithListDelimiter(";")
		got, ok := custom.Decode("x", NewLeaf("a,b;c"), ListOf(StringType())).Results()
		require.True(t, ok)
		assert.Equal(t, []string{"a,b", "c"}, got)
	})

	t.Run("Nested", func(t *testing.T) {
		node := NewArrayNode([]Node{
			NewArrayNode(leaves("1", "2")),
			NewLeaf("3,4"),
		})
		got, ok := reg.Decode("matrix", node, ListOf(ListOf(IntType()))).Results()
		require.True(t, ok)
		assert.Equal(t, [][]int{{1, 2}, {3, 4}}, got)
	})
}

func TestSetDecoder(t *testing.T) {
	reg := NewDefaultDecoderRegistry()

	got, ok := reg.Decode("tags", NewLeaf("a,b,a"), SetOf(StringType())).Results()
	require.True(t, ok)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, got)

	described := TypeFor[map[int]struct{}]()
	assert.Equal(t, KindSet, described.Kind)
	got, ok = reg.Decode("ids", NewArrayNode(leaves("3", "1")), described).Results()
	require.True(t, ok)
	assert.Equal(t, map[int]struct{}{1: {}, 3: {}}, got)
}

func TestArrayDecoder(t *testing.T) {
	reg := NewDefaultDecoderRegistry()

	t.Run("ExactSize", func(t *testing.T) {
		got, ok := reg.Decode("rgb", NewLeaf("255,128,0"), ArrayOf(3, IntType())).Results()
		require.True(t, ok)
		assert.Equal(t, [3]int{255, 128, 0}, got)
	})

	t.Run("WrongSize", func(t *testing.T) {
		result := reg.Decode("rgb", NewLeaf("255,128"), ArrayOf(3, IntType()))
		assert.False(t, result.HasResults())
		var wrong *WrongSize
		require.ErrorAs(t, result.Errors()[0], &wrong)
		assert.Equal(t, 3, wrong.Expected)
		assert.Equal(t, 2, wrong.Actual)
	})

	t.Run("HoleShrinksCount", func(t *testing.T) {
		node := NewArrayNode([]Node{NewLeaf("1"), nil, NewLeaf("3")})
		result := reg.Decode("rgb", node, ArrayOf(3, IntType()))
		assert.False(t, result.HasResults())
		assert.IsType(t, &ArrayMissingIndex{}, result.Errors()[0])
		assert.IsType(t, &WrongSize{}, result.Errors()[1])
	})
}

func TestMapDecoder(t *testing.T) {
	reg := NewDefaultDecoderRegistry()
	node := NewMapNode(map[string]Node{
		"read":  NewLeaf("5s"),
		"write": NewLeaf("10s"),
	})

	t.Run("StringKeys", func(t *testing.T) {
		got, ok := reg.Decode("timeouts", node, TypeFor[map[string]string]()).Results()
		require.True(t, ok)
		assert.Equal(t, map[string]string{"read": "5s", "write": "10s"}, got)
	})

	t.Run("DecodedKeys", func(t *testing.T) {
		weights := NewMapNode(map[string]Node{"1": NewLeaf("0.5"), "2": NewLeaf("1.5")})
		got, ok := reg.Decode("weights", weights, MapOf(IntType(), Float64Type())).Results()
		require.True(t, ok)
		assert.Equal(t, map[int]float64{1: 0.5, 2: 1.5}, got)
	})

	t.Run("BadKeySkipped", func(t *testing.T) {
		weights := NewMapNode(map[string]Node{"1": NewLeaf("0.5"), "x": NewLeaf("1.5")})
		result := reg.Decode("weights", weights, MapOf(IntType(), Float64Type()))
		got, ok := result.Results()
		require.True(t, ok)
		assert.Equal(t, map[int]float64{1: 0.5}, got)
		assert.IsType(t, &NumberParsing{}, result.Errors()[0])
	})

	t.Run("LeafIsRejected", func(t *testing.T) {
		result := reg.Decode("x", NewLeaf("a=b"), MapOf(StringType(), StringType()))
		assert.False(t, result.HasResults())
		assert.IsType(t, &MismatchedObjectNode{}, result.Errors()[0])
	})
}

func TestPointerDecoder(t *testing.T) {
	reg := NewDefaultDecoderRegistry()

	got, ok := reg.Decode("port", NewLeaf("8080"), PointerTo(IntType())).Results()
	require.True(t, ok)
	ptr, isPtr := got.(*int)
	require.True(t, isPtr)
	assert.Equal(t, 8080, *ptr)

	result := reg.Decode("port", NewLeaf("x"), PointerTo(IntType()))
	assert.False(t, result.HasResults())
}

func TestAnyDecoder(t *testing.T) {
	root, _ := compilePairs(t,
		Pair{"db.name", "orders"},
		Pair{"db.hosts[0]", "a"},
		Pair{"db.hosts[1]", "b"},
	)

	got, ok := NewDefaultDecoderRegistry().Decode("", root, AnyType()).Results()
	require.True(t, ok)
	want := map[string]any{
		"db": map[string]any{
			"name":  "orders",
			"hosts": []any{"a", "b"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("any decode mismatch (-want +got):\n%s", diff)
	}
}
