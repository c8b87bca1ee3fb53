// FILE: lixenwraith/treeconf/decode_leaf.go
package treeconf

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Input limits for network values
const (
	maxIPLength   = 45 // IPv6 with zone
	maxCIDRLength = 49
	maxURLLength  = 2048
)

// leafValue extracts the value of a leaf node for a leaf decoder
func leafValue(path string, node Node, decoder string) (string, ValidationError) {
	if node.Type() != LeafType {
		return "", &MismatchedObjectNode{At: path, Expected: LeafType, Actual: node.Type()}
	}
	value, ok := node.Value()
	if !ok {
		return "", &LeafMissingValue{At: path, Decoder: decoder}
	}
	return value, nil
}

// leafDecode runs fn on the value of a leaf node
func leafDecode(path string, node Node, decoder string, fn func(value string) ValidateOf[any]) ValidateOf[any] {
	value, err := leafValue(path, node, decoder)
	if err != nil {
		return Invalid[any](err)
	}
	return fn(value)
}

// StringDecoder decodes a leaf value as is
type StringDecoder struct{}

func (d *StringDecoder) Name() string         { return "string" }
func (d *StringDecoder) Priority() Priority   { return PriorityMedium }
func (d *StringDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindString }
func (d *StringDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		rv := reflect.New(goTypeOr(t, reflect.TypeFor[string]())).Elem()
		rv.SetString(value)
		return Valid(rv.Interface())
	})
}

// BoolDecoder accepts strconv.ParseBool input as well as yes/no and on/off
type BoolDecoder struct{}

func (d *BoolDecoder) Name() string         { return "bool" }
func (d *BoolDecoder) Priority() Priority   { return PriorityMedium }
func (d *BoolDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindBool }
func (d *BoolDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		b, err := parseBool(value)
		if err != nil {
			return Invalid[any](&DecodingFormat{At: path, Value: value, Decoder: d.Name(), Err: err})
		}
		rv := reflect.New(goTypeOr(t, reflect.TypeFor[bool]())).Elem()
		rv.SetBool(b)
		return Valid(rv.Interface())
	})
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(value))
}

// numberError maps a strconv failure to the matching diagnostic
func numberError(path, value, decoder string, err error) ValidationError {
	if errors.Is(err, strconv.ErrRange) {
		return &NumberFormat{At: path, Value: value, Decoder: decoder}
	}
	return &NumberParsing{At: path, Value: value, Decoder: decoder}
}

// IntDecoder decodes signed integers of any width, checking the range of the
// target type
type IntDecoder struct{}

func (d *IntDecoder) Name() string         { return "int" }
func (d *IntDecoder) Priority() Priority   { return PriorityMedium }
func (d *IntDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindInt }
func (d *IntDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		rt := goTypeOr(t, reflect.TypeFor[int]())
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, rt.Bits())
		if err != nil {
			return Invalid[any](numberError(path, value, rt.String(), err))
		}
		rv := reflect.New(rt).Elem()
		rv.SetInt(n)
		return Valid(rv.Interface())
	})
}

// UintDecoder decodes unsigned integers of any width
type UintDecoder struct{}

func (d *UintDecoder) Name() string         { return "uint" }
func (d *UintDecoder) Priority() Priority   { return PriorityMedium }
func (d *UintDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindUint }
func (d *UintDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		rt := goTypeOr(t, reflect.TypeFor[uint]())
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, rt.Bits())
		if err != nil {
			return Invalid[any](numberError(path, value, rt.String(), err))
		}
		rv := reflect.New(rt).Elem()
		rv.SetUint(n)
		return Valid(rv.Interface())
	})
}

// FloatDecoder decodes float32 and float64 values
type FloatDecoder struct{}

func (d *FloatDecoder) Name() string         { return "float" }
func (d *FloatDecoder) Priority() Priority   { return PriorityMedium }
func (d *FloatDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindFloat }
func (d *FloatDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		rt := goTypeOr(t, reflect.TypeFor[float64]())
		f, err := strconv.ParseFloat(strings.TrimSpace(value), rt.Bits())
		if err != nil {
			return Invalid[any](numberError(path, value, rt.String(), err))
		}
		rv := reflect.New(rt).Elem()
		rv.SetFloat(f)
		return Valid(rv.Interface())
	})
}

// ByteDecoder decodes a value of exactly one byte
type ByteDecoder struct{}

func (d *ByteDecoder) Name() string         { return "byte" }
func (d *ByteDecoder) Priority() Priority   { return PriorityMedium }
func (d *ByteDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindByte }
func (d *ByteDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		if len(value) != 1 {
			return Invalid[any](&WrongSize{At: path, Value: value, Decoder: d.Name(), Expected: 1, Actual: len(value)})
		}
		rv := reflect.New(goTypeOr(t, reflect.TypeFor[byte]())).Elem()
		rv.SetUint(uint64(value[0]))
		return Valid(rv.Interface())
	})
}

// RuneDecoder decodes a value of exactly one character
type RuneDecoder struct{}

func (d *RuneDecoder) Name() string         { return "rune" }
func (d *RuneDecoder) Priority() Priority   { return PriorityMedium }
func (d *RuneDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindRune }
func (d *RuneDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		count := utf8.RuneCountInString(value)
		if count != 1 {
			return Invalid[any](&WrongSize{At: path, Value: value, Decoder: d.Name(), Expected: 1, Actual: count})
		}
		r, _ := utf8.DecodeRuneInString(value)
		rv := reflect.New(goTypeOr(t, reflect.TypeFor[rune]())).Elem()
		rv.SetInt(int64(r))
		return Valid(rv.Interface())
	})
}

// maxDurationMillis is the largest bare millisecond count a Duration holds
const maxDurationMillis = int64(math.MaxInt64 / time.Millisecond)

// DurationDecoder accepts time.ParseDuration input; a bare integer is a
// number of milliseconds
type DurationDecoder struct{}

func (d *DurationDecoder) Name() string         { return "duration" }
func (d *DurationDecoder) Priority() Priority   { return PriorityMedium }
func (d *DurationDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindDuration }
func (d *DurationDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		trimmed := strings.TrimSpace(value)
		var dur time.Duration
		if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			if ms > maxDurationMillis || ms < -maxDurationMillis {
				return Invalid[any](&NumberFormat{At: path, Value: value, Decoder: d.Name()})
			}
			dur = time.Duration(ms) * time.Millisecond
		} else if errors.Is(err, strconv.ErrRange) {
			return Invalid[any](&NumberFormat{At: path, Value: value, Decoder: d.Name()})
		} else {
			parsed, err := time.ParseDuration(trimmed)
			if err != nil {
				return Invalid[any](&DecodingFormat{At: path, Value: value, Decoder: d.Name(), Err: err})
			}
			dur = parsed
		}
		rv := reflect.New(goTypeOr(t, reflect.TypeFor[time.Duration]())).Elem()
		rv.SetInt(int64(dur))
		return Valid(rv.Interface())
	})
}

// fallbackTimeLayouts are tried after the registry's layout
var fallbackTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
}

// TimeDecoder parses times with the registry layout, then common ISO-8601 forms
type TimeDecoder struct{}

func (d *TimeDecoder) Name() string         { return "time" }
func (d *TimeDecoder) Priority() Priority   { return PriorityMedium }
func (d *TimeDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindTime }
func (d *TimeDecoder) Decode(path string, node Node, _ *Type, reg *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		trimmed := strings.TrimSpace(value)
		layout := DefaultTimeLayout
		if reg != nil {
			layout = reg.TimeLayout()
		}

		tm, err := time.Parse(layout, trimmed)
		if err == nil {
			return Valid[any](tm)
		}
		for _, fallback := range fallbackTimeLayouts {
			if tm, ferr := time.Parse(fallback, trimmed); ferr == nil {
				return Valid[any](tm)
			}
		}
		return Invalid[any](&DecodingFormat{At: path, Value: value, Decoder: d.Name(), Err: err})
	})
}

// PathDecoder decodes a file system path, cleaned of redundant separators
type PathDecoder struct{}

func (d *PathDecoder) Name() string         { return "path" }
func (d *PathDecoder) Priority() Priority   { return PriorityMedium }
func (d *PathDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindPath }
func (d *PathDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return Invalid[any](&DecodingFormat{At: path, Value: value, Decoder: d.Name(), Err: errors.New("empty path")})
		}
		rv := reflect.New(goTypeOr(t, reflect.TypeFor[string]())).Elem()
		rv.SetString(filepath.Clean(trimmed))
		return Valid(rv.Interface())
	})
}

// URLDecoder decodes *url.URL or url.URL
type URLDecoder struct{}

func (d *URLDecoder) Name() string         { return "url" }
func (d *URLDecoder) Priority() Priority   { return PriorityMedium }
func (d *URLDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindURL }
func (d *URLDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		if len(value) > maxURLLength {
			return Invalid[any](&DecodingFormat{At: path, Value: value[:32] + "...", Decoder: d.Name(),
				Err: fmt.Errorf("URL too long: %d bytes", len(value))})
		}
		u, err := url.Parse(strings.TrimSpace(value))
		if err != nil {
			return Invalid[any](&DecodingFormat{At: path, Value: value, Decoder: d.Name(), Err: err})
		}
		if goTypeOr(t, reflect.TypeFor[*url.URL]()).Kind() == reflect.Pointer {
			return Valid[any](u)
		}
		return Valid[any](*u)
	})
}

// IPDecoder decodes net.IP
type IPDecoder struct{}

func (d *IPDecoder) Name() string         { return "ip" }
func (d *IPDecoder) Priority() Priority   { return PriorityMedium }
func (d *IPDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindIP }
func (d *IPDecoder) Decode(path string, node Node, _ *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		trimmed := strings.TrimSpace(value)
		if len(trimmed) > maxIPLength {
			return Invalid[any](&WrongSize{At: path, Value: value, Decoder: d.Name(), Expected: maxIPLength, Actual: len(trimmed)})
		}
		ip := net.ParseIP(trimmed)
		if ip == nil {
			return Invalid[any](&DecodingFormat{At: path, Value: value, Decoder: d.Name()})
		}
		return Valid[any](ip)
	})
}

// IPNetDecoder decodes CIDR notation into *net.IPNet or net.IPNet
type IPNetDecoder struct{}

func (d *IPNetDecoder) Name() string         { return "ipnet" }
func (d *IPNetDecoder) Priority() Priority   { return PriorityMedium }
func (d *IPNetDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindIPNet }
func (d *IPNetDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		trimmed := strings.TrimSpace(value)
		if len(trimmed) > maxCIDRLength {
			return Invalid[any](&WrongSize{At: path, Value: value, Decoder: d.Name(), Expected: maxCIDRLength, Actual: len(trimmed)})
		}
		_, ipnet, err := net.ParseCIDR(trimmed)
		if err != nil {
			return Invalid[any](&DecodingFormat{At: path, Value: value, Decoder: d.Name(), Err: err})
		}
		if goTypeOr(t, reflect.TypeFor[*net.IPNet]()).Kind() == reflect.Pointer {
			return Valid[any](ipnet)
		}
		return Valid[any](*ipnet)
	})
}

// TextDecoder decodes any type implementing encoding.TextUnmarshaler.
// It runs at low priority so dedicated decoders win for types that also
// implement the interface.
type TextDecoder struct{}

func (d *TextDecoder) Name() string       { return "text" }
func (d *TextDecoder) Priority() Priority { return PriorityLow }
func (d *TextDecoder) Matches(t *Type) bool {
	return t != nil && t.Kind == KindText && t.GoType != nil &&
		reflect.PointerTo(t.GoType).Implements(textUnmarshalerType)
}
func (d *TextDecoder) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.Name(), func(value string) ValidateOf[any] {
		ptr := reflect.New(t.GoType)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value)); err != nil {
			return Invalid[any](&DecodingFormat{At: path, Value: value, Decoder: t.String(), Err: err})
		}
		return Valid(ptr.Elem().Interface())
	})
}

// LeafDecoderFunc adapts a parse function into a leaf decoder for custom types
type LeafDecoderFunc struct {
	name     string
	priority Priority
	matches  func(t *Type) bool
	parse    func(value string, t *Type) (any, error)
}

// NewLeafDecoder creates a decoder that parses leaf values with parse.
// A parse error is reported as a DecodingFormat diagnostic.
func NewLeafDecoder(name string, priority Priority, matches func(t *Type) bool, parse func(value string, t *Type) (any, error)) *LeafDecoderFunc {
	return &LeafDecoderFunc{name: name, priority: priority, matches: matches, parse: parse}
}

func (d *LeafDecoderFunc) Name() string         { return d.name }
func (d *LeafDecoderFunc) Priority() Priority   { return d.priority }
func (d *LeafDecoderFunc) Matches(t *Type) bool { return t != nil && d.matches(t) }
func (d *LeafDecoderFunc) Decode(path string, node Node, t *Type, _ *DecoderRegistry) ValidateOf[any] {
	return leafDecode(path, node, d.name, func(value string) ValidateOf[any] {
		v, err := d.parse(value, t)
		if err != nil {
			return Invalid[any](&DecodingFormat{At: path, Value: value, Decoder: d.name, Err: err})
		}
		return Valid(v)
	})
}
