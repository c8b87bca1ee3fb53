// FILE: lixenwraith/treeconf/register.go
package treeconf

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// StructSource serves the fields of a struct as pairs. It is normally added
// first so that every other source overrides the defaults it carries.
// Paths are read from the "config" tag, then "toml", then the field name.
type StructSource struct {
	sourceID
	prefix string
	value  any
}

// NewStructSource creates a source over defaults, a struct or struct pointer.
// The prefix is prepended to every path; an empty prefix is allowed.
func NewStructSource(prefix string, defaults any) *StructSource {
	return &StructSource{
		sourceID: newSourceID("struct:" + strings.TrimSuffix(prefix, ".")),
		prefix:   strings.TrimSuffix(prefix, "."),
		value:    defaults,
	}
}

func (s *StructSource) Load() (SourceData, error) {
	v := reflect.ValueOf(s.value)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return SourceData{}, fmt.Errorf("struct source requires a non-nil struct pointer or value")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return SourceData{}, fmt.Errorf("struct source requires a struct or struct pointer, got %T", s.value)
	}

	var pairs []Pair
	var errs []string
	flattenStruct(v, s.prefix, &pairs, &errs)
	if len(errs) > 0 {
		return SourceData{}, fmt.Errorf("failed to read %d field(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return SourceData{Pairs: pairs}, nil
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

func flattenStruct(v reflect.Value, prefix string, pairs *[]Pair, errs *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)

		tag, tagged := field.Tag.Lookup("config")
		if !tagged {
			tag, tagged = field.Tag.Lookup("toml")
		}
		if tag == "-" {
			continue
		}

		if field.Anonymous && !tagged && field.Type.Kind() == reflect.Struct {
			flattenStruct(v.Field(i), prefix, pairs, errs)
			continue
		}
		if !field.IsExported() {
			continue
		}

		key := field.Name
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}
		if !isValidKeySegment(key) {
			*errs = append(*errs, fmt.Sprintf("field %s: invalid key %q", field.Name, key))
			continue
		}
		flattenValue(v.Field(i), pathForKey(prefix, key), pairs, errs)
	}
}

func flattenValue(v reflect.Value, path string, pairs *[]Pair, errs *[]string) {
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		flattenValue(v.Elem(), path, pairs, errs)
		return
	}

	switch {
	case v.Type() == reflect.TypeFor[time.Duration]():
		*pairs = append(*pairs, Pair{Path: path, Value: time.Duration(v.Int()).String()})
		return
	case v.Type() == reflect.TypeFor[time.Time]():
		*pairs = append(*pairs, Pair{Path: path, Value: v.Interface().(time.Time).Format(time.RFC3339Nano)})
		return
	case v.Type().Implements(textMarshalerType):
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			*errs = append(*errs, fmt.Sprintf("path %s: %v", path, err))
			return
		}
		*pairs = append(*pairs, Pair{Path: path, Value: string(text)})
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		flattenStruct(v, path, pairs, errs)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			*pairs = append(*pairs, Pair{Path: path, Value: string(v.Bytes())})
			return
		}
		for i := 0; i < v.Len(); i++ {
			flattenValue(v.Index(i), pathForIndex(path, i), pairs, errs)
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			*errs = append(*errs, fmt.Sprintf("path %s: map keys must be strings", path))
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			flattenValue(iter.Value(), pathForKey(path, iter.Key().String()), pairs, errs)
		}
	default:
		*pairs = append(*pairs, Pair{Path: path, Value: scalarString(v.Interface())})
	}
}
