// FILE: lixenwraith/treeconf/decode_collection.go
package treeconf

import (
	"fmt"
	"reflect"
	"strings"
)

// collectionItem is one element of a collection with its sub-path
type collectionItem struct {
	path string
	node Node
}

// collectionItems lists the elements of an array node, or of a leaf split on
// the registry's list delimiter. Holes are reported and skipped.
func collectionItems(path string, node Node, reg *DecoderRegistry) ([]collectionItem, []ValidationError) {
	switch node.Type() {
	case ArrayType:
		var errs []ValidationError
		items := make([]collectionItem, 0, node.Size())
		for i := 0; i < node.Size(); i++ {
			child, ok := node.Index(i)
			if !ok {
				errs = append(errs, &ArrayMissingIndex{At: path, Index: i})
				continue
			}
			items = append(items, collectionItem{path: pathForIndex(path, i), node: child})
		}
		return items, errs

	case LeafType:
		value, ok := node.Value()
		if !ok {
			return nil, []ValidationError{&LeafMissingValue{At: path, Decoder: "list"}}
		}
		if strings.TrimSpace(value) == "" {
			return []collectionItem{}, nil
		}
		delimiter := DefaultListDelimiter
		if reg != nil {
			delimiter = reg.ListDelimiter()
		}
		parts := strings.Split(value, delimiter)
		items := make([]collectionItem, len(parts))
		for i, part := range parts {
			items[i] = collectionItem{path: pathForIndex(path, i), node: NewLeaf(strings.TrimSpace(part))}
		}
		return items, nil

	default:
		return nil, []ValidationError{&MismatchedObjectNode{At: path, Expected: ArrayType, Actual: node.Type()}}
	}
}

// decodeItems decodes every element as elem, keeping the ones that produced a value
func decodeItems(items []collectionItem, elem *Type, reg *DecoderRegistry) ([]any, []ValidationError) {
	var errs []ValidationError
	values := make([]any, 0, len(items))
	for _, item := range items {
		result := reg.Decode(item.path, item.node, elem)
		errs = append(errs, result.Errors()...)
		if v, ok := result.Results(); ok {
			values = append(values, v)
		}
	}
	return values, errs
}

func typeArgs(t *Type, n int) bool {
	if t == nil || len(t.Args) != n {
		return false
	}
	for _, arg := range t.Args {
		if arg == nil {
			return false
		}
	}
	return true
}

// ListDecoder decodes slices
type ListDecoder struct{}

func (d *ListDecoder) Name() string         { return "list" }
func (d *ListDecoder) Priority() Priority   { return PriorityMedium }
func (d *ListDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindList && typeArgs(t, 1) }
func (d *ListDecoder) Decode(path string, node Node, t *Type, reg *DecoderRegistry) ValidateOf[any] {
	items, errs := collectionItems(path, node, reg)
	if items == nil {
		return Invalid[any](errs...)
	}
	values, decodeErrs := decodeItems(items, t.Elem(), reg)
	errs = append(errs, decodeErrs...)

	rt := goTypeOr(t, reflect.TypeFor[[]any]())
	out := reflect.MakeSlice(rt, 0, len(values))
	for _, v := range values {
		rv, err := assignTo(v, rt.Elem())
		if err != nil {
			errs = append(errs, &DecodingFormat{At: path, Value: fmt.Sprint(v), Decoder: d.Name(), Err: err})
			continue
		}
		out = reflect.Append(out, rv)
	}
	return ValidateOfValue(out.Interface(), true, errs)
}

// SetDecoder decodes map[E]struct{} sets; duplicate elements collapse
type SetDecoder struct{}

func (d *SetDecoder) Name() string         { return "set" }
func (d *SetDecoder) Priority() Priority   { return PriorityMedium }
func (d *SetDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindSet && typeArgs(t, 1) }
func (d *SetDecoder) Decode(path string, node Node, t *Type, reg *DecoderRegistry) ValidateOf[any] {
	items, errs := collectionItems(path, node, reg)
	if items == nil {
		return Invalid[any](errs...)
	}
	values, decodeErrs := decodeItems(items, t.Elem(), reg)
	errs = append(errs, decodeErrs...)

	rt := goTypeOr(t, reflect.TypeFor[map[any]struct{}]())
	out := reflect.MakeMapWithSize(rt, len(values))
	member := reflect.Zero(rt.Elem())
	for _, v := range values {
		rv, err := assignTo(v, rt.Key())
		if err != nil || !rv.Type().Comparable() {
			errs = append(errs, &DecodingFormat{At: path, Value: fmt.Sprint(v), Decoder: d.Name(), Err: err})
			continue
		}
		out.SetMapIndex(rv, member)
	}
	return ValidateOfValue(out.Interface(), true, errs)
}

// ArrayDecoder decodes fixed-size arrays; the element count must match exactly
type ArrayDecoder struct{}

func (d *ArrayDecoder) Name() string       { return "array" }
func (d *ArrayDecoder) Priority() Priority { return PriorityMedium }
func (d *ArrayDecoder) Matches(t *Type) bool {
	return t != nil && t.Kind == KindArray && typeArgs(t, 1)
}
func (d *ArrayDecoder) Decode(path string, node Node, t *Type, reg *DecoderRegistry) ValidateOf[any] {
	items, errs := collectionItems(path, node, reg)
	if items == nil {
		return Invalid[any](errs...)
	}
	values, decodeErrs := decodeItems(items, t.Elem(), reg)
	errs = append(errs, decodeErrs...)

	if len(values) != t.Len {
		return Invalid[any](append(errs, &WrongSize{
			At: path, Value: node.String(), Decoder: t.String(), Expected: t.Len, Actual: len(values),
		})...)
	}

	rt := goTypeOr(t, reflect.ArrayOf(t.Len, reflect.TypeFor[any]()))
	out := reflect.New(rt).Elem()
	for i, v := range values {
		rv, err := assignTo(v, rt.Elem())
		if err != nil {
			return Invalid[any](append(errs, &DecodingFormat{At: pathForIndex(path, i), Value: fmt.Sprint(v), Decoder: d.Name(), Err: err})...)
		}
		out.Index(i).Set(rv)
	}
	return ValidateOfValue(out.Interface(), true, errs)
}

// MapDecoder decodes map[K]V from a map node, decoding each key as a leaf
type MapDecoder struct{}

func (d *MapDecoder) Name() string         { return "map" }
func (d *MapDecoder) Priority() Priority   { return PriorityMedium }
func (d *MapDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindMap && typeArgs(t, 2) }
func (d *MapDecoder) Decode(path string, node Node, t *Type, reg *DecoderRegistry) ValidateOf[any] {
	m, ok := node.(*MapNode)
	if !ok {
		return Invalid[any](&MismatchedObjectNode{At: path, Expected: MapType, Actual: node.Type()})
	}

	var errs []ValidationError
	rt := goTypeOr(t, reflect.TypeFor[map[string]any]())
	out := reflect.MakeMapWithSize(rt, m.Size())

	for _, key := range m.Keys() {
		child, present := m.Key(key)
		if !present {
			errs = append(errs, &EmptyNodeValue{At: path, Key: key})
			continue
		}
		childPath := pathForKey(path, key)

		keyResult := reg.Decode(childPath, NewLeaf(key), t.Elem())
		errs = append(errs, keyResult.Errors()...)
		k, kok := keyResult.Results()
		if !kok {
			continue
		}

		valueResult := reg.Decode(childPath, child, t.ValueType())
		errs = append(errs, valueResult.Errors()...)
		v, vok := valueResult.Results()
		if !vok {
			continue
		}

		kv, err := assignTo(k, rt.Key())
		if err != nil {
			errs = append(errs, &DecodingFormat{At: childPath, Value: key, Decoder: d.Name(), Err: err})
			continue
		}
		vv, err := assignTo(v, rt.Elem())
		if err != nil {
			errs = append(errs, &DecodingFormat{At: childPath, Value: fmt.Sprint(v), Decoder: d.Name(), Err: err})
			continue
		}
		out.SetMapIndex(kv, vv)
	}
	return ValidateOfValue(out.Interface(), true, errs)
}

// PointerDecoder decodes the element type and returns a pointer to it
type PointerDecoder struct{}

func (d *PointerDecoder) Name() string       { return "pointer" }
func (d *PointerDecoder) Priority() Priority { return PriorityMedium }
func (d *PointerDecoder) Matches(t *Type) bool {
	return t != nil && t.Kind == KindPointer && typeArgs(t, 1)
}
func (d *PointerDecoder) Decode(path string, node Node, t *Type, reg *DecoderRegistry) ValidateOf[any] {
	result := reg.Decode(path, node, t.Elem())
	v, ok := result.Results()
	if !ok {
		return result
	}

	rt := t.GoType
	if rt == nil {
		if v == nil {
			return Invalid[any](append(result.Errors(), &NoResultsFound{At: path, Context: "decoding " + t.String()})...)
		}
		rt = reflect.PointerTo(reflect.TypeOf(v))
	}
	rv, err := assignTo(v, rt.Elem())
	if err != nil {
		return Invalid[any](append(result.Errors(), &DecodingFormat{At: path, Value: fmt.Sprint(v), Decoder: d.Name(), Err: err})...)
	}
	ptr := reflect.New(rt.Elem())
	ptr.Elem().Set(rv)
	return ValidateOfValue(ptr.Interface(), true, result.Errors())
}

// AnyDecoder decodes a subtree into plain Go values: strings for leaves,
// []any for arrays and map[string]any for maps
type AnyDecoder struct{}

func (d *AnyDecoder) Name() string         { return "any" }
func (d *AnyDecoder) Priority() Priority   { return PriorityLow }
func (d *AnyDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindAny }
func (d *AnyDecoder) Decode(path string, node Node, _ *Type, _ *DecoderRegistry) ValidateOf[any] {
	var errs []ValidationError
	v, ok := nodeToAny(path, node, &errs)
	return ValidateOfValue(v, ok, errs)
}

// nodeToAny converts a subtree to plain Go values, recording diagnostics in errs
func nodeToAny(path string, node Node, errs *[]ValidationError) (any, bool) {
	switch node.Type() {
	case LeafType:
		value, ok := node.Value()
		if !ok {
			*errs = append(*errs, &LeafMissingValue{At: path, Decoder: "any"})
			return nil, false
		}
		return value, true

	case MapType:
		m, ok := node.(*MapNode)
		if !ok {
			*errs = append(*errs, &UnknownNodeType{At: path, Node: fmt.Sprintf("%T", node)})
			return nil, false
		}
		out := make(map[string]any, m.Size())
		for _, key := range m.Keys() {
			child, present := m.Key(key)
			if !present {
				*errs = append(*errs, &EmptyNodeValue{At: path, Key: key})
				continue
			}
			if v, ok := nodeToAny(pathForKey(path, key), child, errs); ok {
				out[key] = v
			}
		}
		return out, true

	case ArrayType:
		out := make([]any, node.Size())
		for i := range out {
			child, present := node.Index(i)
			if !present {
				*errs = append(*errs, &ArrayMissingIndex{At: path, Index: i})
				continue
			}
			if v, ok := nodeToAny(pathForIndex(path, i), child, errs); ok {
				out[i] = v
			}
		}
		return out, true

	default:
		*errs = append(*errs, &UnknownNodeType{At: path, Node: fmt.Sprintf("%T", node)})
		return nil, false
	}
}
