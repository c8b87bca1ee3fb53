// FILE: lixenwraith/treeconf/decode_object.go
package treeconf

import (
	"fmt"
	"reflect"
	"strings"
)

// ObjectDecoder decodes structs and other records from a map node. Each field
// is decoded from the child named by its key. A missing field takes its
// default if it has one, is left zero if optional, and otherwise fails the
// whole object.
type ObjectDecoder struct{}

func (d *ObjectDecoder) Name() string         { return "object" }
func (d *ObjectDecoder) Priority() Priority   { return PriorityMedium }
func (d *ObjectDecoder) Matches(t *Type) bool { return t != nil && t.Kind == KindObject }

func (d *ObjectDecoder) Decode(path string, node Node, t *Type, reg *DecoderRegistry) ValidateOf[any] {
	m, ok := node.(*MapNode)
	if !ok {
		return Invalid[any](&MismatchedObjectNode{At: path, Expected: MapType, Actual: node.Type()})
	}

	var errs []ValidationError
	values := make(map[string]any, len(t.Fields))
	failed := false

	for _, field := range t.Fields {
		fieldPath := pathForKey(path, field.Key)
		child, found := lookupField(m, field.Key)

		if !found {
			switch {
			case field.Default != nil:
				errs = append(errs, &MissingFieldDefault{At: fieldPath, Field: field.Name, Default: *field.Default})
				result := reg.Decode(fieldPath, NewLeaf(*field.Default), field.Type)
				errs = append(errs, result.Errors()...)
				if v, ok := result.Results(); ok {
					values[field.Name] = v
				} else {
					failed = true
				}
			case field.Optional:
			default:
				errs = append(errs, &NoResultsFound{At: fieldPath, Context: "decoding required field " + field.Name})
				failed = true
			}
			continue
		}

		result := reg.Decode(fieldPath, child, field.Type)
		errs = append(errs, result.Errors()...)
		if v, ok := result.Results(); ok {
			values[field.Name] = v
		} else if !field.Optional {
			failed = true
		}
	}

	if failed {
		return Invalid[any](errs...)
	}

	obj, err := construct(t, values)
	if err != nil {
		return Invalid[any](append(errs, &DecodingFormat{At: path, Value: node.String(), Decoder: t.String(), Err: err})...)
	}
	return ValidateOfValue(obj, true, errs)
}

// lookupField finds the child for key, falling back to a case-insensitive match
func lookupField(m *MapNode, key string) (Node, bool) {
	if child, ok := m.Key(key); ok {
		return child, true
	}
	for _, k := range m.keys {
		if strings.EqualFold(k, key) {
			return m.Key(k)
		}
	}
	return nil, false
}

// construct builds the object from decoded field values, through the
// descriptor's constructor when present and by struct field assignment otherwise
func construct(t *Type, values map[string]any) (any, error) {
	if t.New != nil {
		return t.New(values)
	}
	if t.GoType == nil {
		return values, nil
	}

	rt := t.GoType
	isPtr := rt.Kind() == reflect.Pointer
	if isPtr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot assign fields to %s without a constructor", t.GoType)
	}

	out := reflect.New(rt)
	for _, field := range t.Fields {
		v, ok := values[field.Name]
		if !ok {
			continue
		}
		if field.index == nil {
			return nil, fmt.Errorf("%s has no field %s", rt, field.Name)
		}
		slot := out.Elem().FieldByIndex(field.index)
		rv, err := assignTo(v, slot.Type())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		slot.Set(rv)
	}

	if isPtr {
		return out.Interface(), nil
	}
	return out.Elem().Interface(), nil
}
