// FILE: lixenwraith/treeconf/types.go
package treeconf

import (
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Kind is the shape of a requested type
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindBool
	KindInt
	KindUint
	KindFloat
	KindByte
	KindRune
	KindDuration
	KindTime
	KindPath
	KindURL
	KindIP
	KindIPNet
	KindText
	KindList
	KindSet
	KindArray
	KindMap
	KindPointer
	KindObject
	KindAny
)

var kindNames = map[Kind]string{
	KindInvalid:  "invalid",
	KindString:   "string",
	KindBool:     "bool",
	KindInt:      "int",
	KindUint:     "uint",
	KindFloat:    "float",
	KindByte:     "byte",
	KindRune:     "rune",
	KindDuration: "duration",
	KindTime:     "time",
	KindPath:     "path",
	KindURL:      "url",
	KindIP:       "ip",
	KindIPNet:    "ipnet",
	KindText:     "text",
	KindList:     "list",
	KindSet:      "set",
	KindArray:    "array",
	KindMap:      "map",
	KindPointer:  "pointer",
	KindObject:   "object",
	KindAny:      "any",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Type describes a value a caller wants decoded. Descriptors are built once,
// either with the constructor functions below or with Describe, and are then
// treated as read-only. Decoders match on Kind and the shape of Args rather
// than on identity, so one decoder can serve every width of integer or every
// element type of a list.
type Type struct {
	Kind Kind
	Name string

	// Args holds type arguments: the element of a list, set, array or
	// pointer, and the key and value of a map.
	Args []*Type

	// Len is the length of a fixed-size array
	Len int

	// Fields lists the fields of an object
	Fields []Field

	// GoType is the Go type of decoded values
	GoType reflect.Type

	// New constructs an object from decoded field values keyed by Field.Name.
	// When nil, objects are built by assigning struct fields of GoType.
	New func(fields map[string]any) (any, error)
}

// Field describes one field of an object type
type Field struct {
	// Name is the Go field name, used as the key passed to Type.New
	Name string
	// Key is the configuration key the field is read from
	Key  string
	Type *Type
	// Optional fields that are absent decode to their zero value silently
	Optional bool
	// Default is decoded in place of an absent field
	Default *string

	index []int
}

// Elem returns the first type argument, or nil
func (t *Type) Elem() *Type {
	if len(t.Args) == 0 {
		return nil
	}
	return t.Args[0]
}

// ValueType returns the value type of a map, or nil
func (t *Type) ValueType() *Type {
	if len(t.Args) < 2 {
		return nil
	}
	return t.Args[1]
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	switch t.Kind {
	case KindList, KindSet, KindPointer:
		return t.Kind.String() + "[" + t.Elem().String() + "]"
	case KindArray:
		return fmt.Sprintf("array[%d]%s", t.Len, t.Elem().String())
	case KindMap:
		return "map[" + t.Elem().String() + "]" + t.ValueType().String()
	}
	if t.GoType != nil {
		return t.GoType.String()
	}
	return t.Kind.String()
}

func scalar(kind Kind, goType reflect.Type) *Type {
	return &Type{Kind: kind, GoType: goType}
}

func StringType() *Type  { return scalar(KindString, reflect.TypeFor[string]()) }
func BoolType() *Type    { return scalar(KindBool, reflect.TypeFor[bool]()) }
func IntType() *Type     { return scalar(KindInt, reflect.TypeFor[int]()) }
func Int32Type() *Type   { return scalar(KindInt, reflect.TypeFor[int32]()) }
func Int64Type() *Type   { return scalar(KindInt, reflect.TypeFor[int64]()) }
func UintType() *Type    { return scalar(KindUint, reflect.TypeFor[uint]()) }
func Uint64Type() *Type  { return scalar(KindUint, reflect.TypeFor[uint64]()) }
func Float32Type() *Type { return scalar(KindFloat, reflect.TypeFor[float32]()) }
func Float64Type() *Type { return scalar(KindFloat, reflect.TypeFor[float64]()) }

// ByteType describes a single byte given as a one-character value. byte is
// uint8 to reflection, so TypeFor[byte] describes a number instead.
func ByteType() *Type { return scalar(KindByte, reflect.TypeFor[byte]()) }

// RuneType describes a single character. rune is int32 to reflection, so
// TypeFor[rune] describes a number instead.
func RuneType() *Type { return scalar(KindRune, reflect.TypeFor[rune]()) }

func DurationType() *Type { return scalar(KindDuration, reflect.TypeFor[time.Duration]()) }
func TimeType() *Type     { return scalar(KindTime, reflect.TypeFor[time.Time]()) }
func URLType() *Type      { return scalar(KindURL, reflect.TypeFor[*url.URL]()) }
func IPType() *Type       { return scalar(KindIP, reflect.TypeFor[net.IP]()) }
func IPNetType() *Type    { return scalar(KindIPNet, reflect.TypeFor[*net.IPNet]()) }
func AnyType() *Type      { return scalar(KindAny, reflect.TypeFor[any]()) }

// PathType describes a file system path, decoded as a cleaned string
func PathType() *Type { return &Type{Kind: KindPath, Name: "path", GoType: reflect.TypeFor[string]()} }

// ListOf describes a slice of elem
func ListOf(elem *Type) *Type {
	return &Type{Kind: KindList, Args: []*Type{elem}, GoType: reflect.SliceOf(elem.GoType)}
}

// SetOf describes a set of elem, decoded as map[elem]struct{}
func SetOf(elem *Type) *Type {
	return &Type{Kind: KindSet, Args: []*Type{elem}, GoType: reflect.MapOf(elem.GoType, emptyStructType)}
}

// ArrayOf describes a fixed-size array of elem
func ArrayOf(n int, elem *Type) *Type {
	return &Type{Kind: KindArray, Args: []*Type{elem}, Len: n, GoType: reflect.ArrayOf(n, elem.GoType)}
}

// MapOf describes a map from key to value
func MapOf(key, value *Type) *Type {
	return &Type{Kind: KindMap, Args: []*Type{key, value}, GoType: reflect.MapOf(key.GoType, value.GoType)}
}

// PointerTo describes a pointer to elem; absent values decode to nil
func PointerTo(elem *Type) *Type {
	return &Type{Kind: KindPointer, Args: []*Type{elem}, GoType: reflect.PointerTo(elem.GoType)}
}

// ObjectFor describes T as an object with the given fields. Fields are
// assigned by name unless a constructor is set with WithConstructor.
func ObjectFor[T any](fields ...Field) *Type {
	goType := reflect.TypeFor[T]()
	t := &Type{Kind: KindObject, Name: goType.String(), GoType: goType, Fields: fields}
	if goType.Kind() == reflect.Struct {
		for i := range t.Fields {
			if sf, ok := goType.FieldByName(t.Fields[i].Name); ok {
				t.Fields[i].index = sf.Index
			}
		}
	}
	return t
}

// WithConstructor sets the function used to build object values
func (t *Type) WithConstructor(fn func(fields map[string]any) (any, error)) *Type {
	t.New = fn
	return t
}

// NewField creates a required field read from key
func NewField(name, key string, typ *Type) Field {
	return Field{Name: name, Key: key, Type: typ}
}

// OptionalField creates a field that may be absent
func OptionalField(name, key string, typ *Type) Field {
	return Field{Name: name, Key: key, Type: typ, Optional: true}
}

// DefaultField creates a field decoded from def when absent
func DefaultField(name, key string, typ *Type, def string) Field {
	return Field{Name: name, Key: key, Type: typ, Default: &def}
}

var (
	emptyStructType     = reflect.TypeFor[struct{}]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	describeCache       sync.Map // reflect.Type -> *Type
)

// TypeFor describes the Go type T
func TypeFor[T any]() *Type {
	return Describe(reflect.TypeFor[T]())
}

// Describe builds a descriptor for a Go type. Struct fields are read from the
// "config" tag, falling back to "toml", then to the field name; a tag option
// "optional" or a pointer field type marks the field optional and a
// `default:"..."` tag supplies a default. Results are cached per type.
// byte and rune describe as KindUint and KindInt; use ByteType and RuneType
// to decode them from a single character.
func Describe(rt reflect.Type) *Type {
	if cached, ok := describeCache.Load(rt); ok {
		return cached.(*Type)
	}
	t := describe(rt, make(map[reflect.Type]*Type))
	describeCache.Store(rt, t)
	return t
}

func describe(rt reflect.Type, seen map[reflect.Type]*Type) *Type {
	if rt == nil {
		return &Type{Kind: KindInvalid}
	}
	if t, ok := seen[rt]; ok {
		return t
	}

	switch rt {
	case reflect.TypeFor[time.Duration]():
		return scalar(KindDuration, rt)
	case reflect.TypeFor[time.Time]():
		return scalar(KindTime, rt)
	case reflect.TypeFor[net.IP]():
		return scalar(KindIP, rt)
	case reflect.TypeFor[net.IPNet](), reflect.TypeFor[*net.IPNet]():
		return scalar(KindIPNet, rt)
	case reflect.TypeFor[url.URL](), reflect.TypeFor[*url.URL]():
		return scalar(KindURL, rt)
	}

	if rt.Kind() != reflect.Pointer && rt.Kind() != reflect.Interface &&
		reflect.PointerTo(rt).Implements(textUnmarshalerType) {
		return scalar(KindText, rt)
	}

	switch rt.Kind() {
	case reflect.String:
		return scalar(KindString, rt)
	case reflect.Bool:
		return scalar(KindBool, rt)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar(KindInt, rt)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return scalar(KindUint, rt)
	case reflect.Float32, reflect.Float64:
		return scalar(KindFloat, rt)
	case reflect.Interface:
		if rt.NumMethod() == 0 {
			return scalar(KindAny, rt)
		}
		return &Type{Kind: KindInvalid, GoType: rt}
	}

	t := &Type{GoType: rt}
	seen[rt] = t

	switch rt.Kind() {
	case reflect.Slice:
		t.Kind = KindList
		t.Args = []*Type{describe(rt.Elem(), seen)}
	case reflect.Array:
		t.Kind = KindArray
		t.Len = rt.Len()
		t.Args = []*Type{describe(rt.Elem(), seen)}
	case reflect.Map:
		if rt.Elem() == emptyStructType {
			t.Kind = KindSet
			t.Args = []*Type{describe(rt.Key(), seen)}
		} else {
			t.Kind = KindMap
			t.Args = []*Type{describe(rt.Key(), seen), describe(rt.Elem(), seen)}
		}
	case reflect.Pointer:
		t.Kind = KindPointer
		t.Args = []*Type{describe(rt.Elem(), seen)}
	case reflect.Struct:
		t.Kind = KindObject
		t.Name = rt.String()
		t.Fields = describeFields(rt, nil, seen)
	default:
		t.Kind = KindInvalid
	}
	return t
}

func describeFields(rt reflect.Type, parent []int, seen map[reflect.Type]*Type) []Field {
	var fields []Field
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		index := append(append([]int{}, parent...), i)

		tag, tagged := sf.Tag.Lookup("config")
		if !tagged {
			tag, tagged = sf.Tag.Lookup("toml")
		}
		if tag == "-" {
			continue
		}

		if sf.Anonymous && !tagged && sf.Type.Kind() == reflect.Struct {
			fields = append(fields, describeFields(sf.Type, index, seen)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		parts := strings.Split(tag, ",")
		key := sf.Name
		if parts[0] != "" {
			key = parts[0]
		}

		field := Field{
			Name:     sf.Name,
			Key:      key,
			Type:     describe(sf.Type, seen),
			Optional: sf.Type.Kind() == reflect.Pointer,
			index:    index,
		}
		for _, opt := range parts[1:] {
			if strings.TrimSpace(opt) == "optional" {
				field.Optional = true
			}
		}
		if def, ok := sf.Tag.Lookup("default"); ok {
			field.Default = &def
		}
		fields = append(fields, field)
	}
	return fields
}
