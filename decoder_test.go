// FILE: lixenwraith/treeconf/decoder_test.go
package treeconf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantDecoder(name string, priority Priority, kind Kind) *LeafDecoderFunc {
	return NewLeafDecoder(name, priority,
		func(t *Type) bool { return t.Kind == kind },
		func(value string, _ *Type) (any, error) { return name, nil },
	)
}

func TestDecoderRegistrySelect(t *testing.T) {
	t.Run("HighestPriorityWins", func(t *testing.T) {
		reg := NewDecoderRegistry(
			constantDecoder("low", PriorityLow, KindString),
			constantDecoder("high", PriorityHigh, KindString),
			constantDecoder("medium", PriorityMedium, KindString),
		)
		d, ok := reg.Select(StringType())
		require.True(t, ok)
		assert.Equal(t, "high", d.Name())

		v, _ := reg.Decode("x", NewLeaf("input"), StringType()).Results()
		assert.Equal(t, "high", v)
	})

	t.Run("TieGoesToFirstRegistered", func(t *testing.T) {
		reg := NewDecoderRegistry(
			constantDecoder("first", PriorityMedium, KindString),
			constantDecoder("second", PriorityMedium, KindString),
		)
		d, ok := reg.Select(StringType())
		require.True(t, ok)
		assert.Equal(t, "first", d.Name())
	})

	t.Run("RegisteredOverridesBuiltIn", func(t *testing.T) {
		reg := NewDefaultDecoderRegistry()
		reg.Register(NewLeafDecoder("upper", PriorityHigh,
			func(t *Type) bool { return t.Kind == KindString },
			func(value string, _ *Type) (any, error) { return strings.ToUpper(value), nil },
		))
		v, ok := reg.Decode("x", NewLeaf("abc"), StringType()).Results()
		require.True(t, ok)
		assert.Equal(t, "ABC", v)

		// Collections pick up the override for their elements
		list, ok := reg.Decode("x", NewLeaf("a,b"), ListOf(StringType())).Results()
		require.True(t, ok)
		assert.Equal(t, []string{"A", "B"}, list)
	})

	t.Run("NoDecoder", func(t *testing.T) {
		result := NewDecoderRegistry().Decode("db.port", NewLeaf("1"), IntType())
		assert.False(t, result.HasResults())
		var noDecoder *NoDecoderFound
		require.ErrorAs(t, result.Errors()[0], &noDecoder)
		assert.Equal(t, "db.port", noDecoder.At)
		assert.Equal(t, "int", noDecoder.Type)
	})

	t.Run("NilType", func(t *testing.T) {
		result := NewDefaultDecoderRegistry().Decode("x", NewLeaf("1"), nil)
		assert.False(t, result.HasResults())
		assert.IsType(t, &NoDecoderFound{}, result.Errors()[0])
	})

	t.Run("NilNode", func(t *testing.T) {
		result := NewDefaultDecoderRegistry().Decode("x", nil, IntType())
		assert.False(t, result.HasResults())
		assert.IsType(t, &NoResultsFound{}, result.Errors()[0])
	})

	t.Run("Options", func(t *testing.T) {
		reg := NewDefaultDecoderRegistry().WithListDelimiter(";").WithTimeLayout("2006/01/02")
		assert.Equal(t, ";", reg.ListDelimiter())
		assert.Equal(t, "2006/01/02", reg.TimeLayout())

		// Empty values keep the current setting
		reg.WithListDelimiter("")
		assert.Equal(t, ";", reg.ListDelimiter())
		assert.Len(t, reg.Decoders(), len(DefaultDecoders()))
	})

	t.Run("PriorityString", func(t *testing.T) {
		assert.Equal(t, "low", PriorityLow.String())
		assert.Equal(t, "medium", PriorityMedium.String())
		assert.Equal(t, "high", PriorityHigh.String())
	})
}

func TestLeafDecoderParseError(t *testing.T) {
	reg := NewDecoderRegistry(NewLeafDecoder("fail", PriorityMedium,
		func(t *Type) bool { return true },
		func(value string, _ *Type) (any, error) { return nil, assert.AnError },
	))

	result := reg.Decode("x", NewLeaf("v"), StringType())
	assert.False(t, result.HasResults())
	var format *DecodingFormat
	require.ErrorAs(t, result.Errors()[0], &format)
	assert.ErrorIs(t, format, assert.AnError)
}
