// FILE: lixenwraith/treeconf/decoder.go
package treeconf

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"
)

// Priority orders decoders that match the same type
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Decoder turns a node into a value of a requested type. Composite decoders
// call back into the registry to decode their elements.
type Decoder interface {
	Name() string
	Priority() Priority
	Matches(t *Type) bool
	Decode(path string, node Node, t *Type, reg *DecoderRegistry) ValidateOf[any]
}

const (
	DefaultListDelimiter = ","
	DefaultTimeLayout    = time.RFC3339
)

// DecoderRegistry holds decoders in registration order and picks one per
// request: the highest priority match wins and ties go to the decoder
// registered first.
type DecoderRegistry struct {
	mu            sync.RWMutex
	decoders      []Decoder
	listDelimiter string
	timeLayout    string
}

// NewDecoderRegistry creates a registry holding decoders
func NewDecoderRegistry(decoders ...Decoder) *DecoderRegistry {
	r := &DecoderRegistry{
		listDelimiter: DefaultListDelimiter,
		timeLayout:    DefaultTimeLayout,
	}
	for _, d := range decoders {
		if d != nil {
			r.decoders = append(r.decoders, d)
		}
	}
	return r
}

// NewDefaultDecoderRegistry creates a registry holding DefaultDecoders
func NewDefaultDecoderRegistry() *DecoderRegistry {
	return NewDecoderRegistry(DefaultDecoders()...)
}

// DefaultDecoders returns a fresh set of the built-in decoders
func DefaultDecoders() []Decoder {
	return []Decoder{
		&StringDecoder{},
		&BoolDecoder{},
		&IntDecoder{},
		&UintDecoder{},
		&FloatDecoder{},
		&ByteDecoder{},
		&RuneDecoder{},
		&DurationDecoder{},
		&TimeDecoder{},
		&PathDecoder{},
		&URLDecoder{},
		&IPDecoder{},
		&IPNetDecoder{},
		&TextDecoder{},
		&ListDecoder{},
		&SetDecoder{},
		&ArrayDecoder{},
		&MapDecoder{},
		&PointerDecoder{},
		&ObjectDecoder{},
		&AnyDecoder{},
	}
}

// WithListDelimiter sets the delimiter used to split a leaf into list elements
func (r *DecoderRegistry) WithListDelimiter(delimiter string) *DecoderRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if delimiter != "" {
		r.listDelimiter = delimiter
	}
	return r
}

// WithTimeLayout sets the layout tried first when decoding times
func (r *DecoderRegistry) WithTimeLayout(layout string) *DecoderRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if layout != "" {
		r.timeLayout = layout
	}
	return r
}

// ListDelimiter returns the leaf list delimiter
func (r *DecoderRegistry) ListDelimiter() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listDelimiter
}

// TimeLayout returns the primary time layout
func (r *DecoderRegistry) TimeLayout() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timeLayout
}

// Register appends decoders to the registry
func (r *DecoderRegistry) Register(decoders ...Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range decoders {
		if d != nil {
			r.decoders = append(r.decoders, d)
		}
	}
}

// Decoders returns the registered decoders in registration order
func (r *DecoderRegistry) Decoders() []Decoder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.decoders)
}

// Select returns the decoder that would handle t
func (r *DecoderRegistry) Select(t *Type) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Decoder
	for _, d := range r.decoders {
		if !d.Matches(t) {
			continue
		}
		if best == nil || d.Priority() > best.Priority() {
			best = d
		}
	}
	return best, best != nil
}

// Decode decodes node as t using the selected decoder
func (r *DecoderRegistry) Decode(path string, node Node, t *Type) ValidateOf[any] {
	if t == nil {
		return Invalid[any](&NoDecoderFound{At: path, Type: "<nil>"})
	}
	if node == nil {
		return Invalid[any](&NoResultsFound{At: path, Context: "decoding " + t.String()})
	}

	d, ok := r.Select(t)
	if !ok {
		return Invalid[any](&NoDecoderFound{At: path, Type: t.String()})
	}
	return d.Decode(path, node, t, r)
}

// goTypeOr returns the Go type of t, or fallback when t has none
func goTypeOr(t *Type, fallback reflect.Type) reflect.Type {
	if t != nil && t.GoType != nil {
		return t.GoType
	}
	return fallback
}

// assignTo converts a decoded value for storage in a slot of type rt
func assignTo(v any, rt reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(rt), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(rt) {
		return rv, nil
	}
	if rv.Kind() == rt.Kind() && rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %s to %s", rv.Type(), rt)
}
