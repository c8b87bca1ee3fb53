// FILE: lixenwraith/treeconf/node.go
package treeconf

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// NodeType identifies the variant of a configuration node
type NodeType int

const (
	// LeafType is a node holding an optional string value
	LeafType NodeType = iota
	// MapType is a node holding named children
	MapType
	// ArrayType is a node holding positional children
	ArrayType
)

// String returns the node type name
func (t NodeType) String() string {
	switch t {
	case LeafType:
		return "leaf"
	case MapType:
		return "map"
	case ArrayType:
		return "array"
	default:
		return "unknown"
	}
}

// Node is an immutable element of a configuration tree.
// Accessors are absent-safe: a missing value or child is reported through the
// boolean result, never through a nil Node.
type Node interface {
	Type() NodeType
	Value() (string, bool)
	Size() int
	Index(i int) (Node, bool)
	Key(key string) (Node, bool)
	String() string
}

// Leaf holds a single optional string value.
type Leaf struct {
	value    string
	hasValue bool
}

// NewLeaf creates a leaf holding value
func NewLeaf(value string) *Leaf {
	return &Leaf{value: value, hasValue: true}
}

// EmptyLeaf creates a leaf without a value
func EmptyLeaf() *Leaf {
	return &Leaf{}
}

func (l *Leaf) Type() NodeType { return LeafType }

func (l *Leaf) Value() (string, bool) { return l.value, l.hasValue }

func (l *Leaf) Size() int {
	if l.hasValue {
		return 1
	}
	return 0
}

func (l *Leaf) Index(int) (Node, bool) { return nil, false }

func (l *Leaf) Key(string) (Node, bool) { return nil, false }

func (l *Leaf) String() string {
	if !l.hasValue {
		return "Leaf{}"
	}
	return "Leaf{" + strconv.Quote(l.value) + "}"
}

// MapNode holds named children. Keys iterate in sorted order.
// An empty key or a nil child is representable so that merge and validation
// can report it; neither is ever produced by the compiler.
type MapNode struct {
	children map[string]Node
	keys     []string
}

// NewMapNode creates a map node from children. The input map is copied.
func NewMapNode(children map[string]Node) *MapNode {
	m := &MapNode{children: make(map[string]Node, len(children))}
	maps.Copy(m.children, children)
	m.keys = slices.Sorted(maps.Keys(m.children))
	return m
}

func (m *MapNode) Type() NodeType { return MapType }

func (m *MapNode) Value() (string, bool) { return "", false }

func (m *MapNode) Size() int { return len(m.children) }

func (m *MapNode) Index(int) (Node, bool) { return nil, false }

func (m *MapNode) Key(key string) (Node, bool) {
	child, ok := m.children[key]
	if !ok || child == nil {
		return nil, false
	}
	return child, true
}

// Keys returns the sorted keys of the map, including keys with nil children
func (m *MapNode) Keys() []string {
	return slices.Clone(m.keys)
}

// entry returns the raw child for key, which may be nil
func (m *MapNode) entry(key string) Node {
	return m.children[key]
}

func (m *MapNode) String() string {
	var b strings.Builder
	b.WriteString("MapNode{")
	for i, key := range m.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(key))
		b.WriteString(": ")
		writeNode(&b, m.children[key])
	}
	b.WriteString("}")
	return b.String()
}

// ArrayNode holds positional children. A nil element is a hole.
type ArrayNode struct {
	items []Node
}

// NewArrayNode creates an array node from items. The input slice is copied.
func NewArrayNode(items []Node) *ArrayNode {
	return &ArrayNode{items: slices.Clone(items)}
}

func (a *ArrayNode) Type() NodeType { return ArrayType }

func (a *ArrayNode) Value() (string, bool) { return "", false }

// Size returns the reported length of the array, holes included
func (a *ArrayNode) Size() int { return len(a.items) }

func (a *ArrayNode) Index(i int) (Node, bool) {
	if i < 0 || i >= len(a.items) || a.items[i] == nil {
		return nil, false
	}
	return a.items[i], true
}

func (a *ArrayNode) Key(string) (Node, bool) { return nil, false }

func (a *ArrayNode) String() string {
	var b strings.Builder
	b.WriteString("ArrayNode[")
	for i, item := range a.items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeNode(&b, item)
	}
	b.WriteString("]")
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	b.WriteString(n.String())
}

// Equal reports whether two trees are structurally identical
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}

	switch a.Type() {
	case LeafType:
		av, aok := a.Value()
		bv, bok := b.Value()
		return aok == bok && av == bv

	case MapType:
		am, aok := a.(*MapNode)
		bm, bok := b.(*MapNode)
		if !aok || !bok {
			return a.String() == b.String()
		}
		if len(am.keys) != len(bm.keys) {
			return false
		}
		for _, key := range am.keys {
			other, exists := bm.children[key]
			if !exists || !Equal(am.children[key], other) {
				return false
			}
		}
		return true

	case ArrayType:
		if a.Size() != b.Size() {
			return false
		}
		for i := 0; i < a.Size(); i++ {
			an, aok := a.Index(i)
			bn, bok := b.Index(i)
			if aok != bok || (aok && !Equal(an, bn)) {
				return false
			}
		}
		return true
	}

	return false
}
