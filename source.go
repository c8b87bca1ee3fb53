// FILE: lixenwraith/treeconf/source.go
package treeconf

import (
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// SourceData is what a source produces: either flat path/value pairs, which
// are compiled into a tree, or a tree built directly.
type SourceData struct {
	Pairs []Pair
	Node  Node
}

// Source provides one configuration fragment. Sources added later take
// precedence over sources added earlier. The ID identifies the source when it
// is reloaded.
type Source interface {
	ID() uuid.UUID
	Name() string
	Load() (SourceData, error)
}

// sourceID is embedded by the built-in sources
type sourceID struct {
	id   uuid.UUID
	name string
}

func newSourceID(name string) sourceID {
	return sourceID{id: uuid.New(), name: name}
}

func (s sourceID) ID() uuid.UUID { return s.id }
func (s sourceID) Name() string  { return s.name }

// MapSource serves path/value pairs from a map, in sorted key order
type MapSource struct {
	sourceID
	values map[string]string
}

// NewMapSource creates a source over a copy of values
func NewMapSource(name string, values map[string]string) *MapSource {
	s := &MapSource{sourceID: newSourceID(name), values: make(map[string]string, len(values))}
	maps.Copy(s.values, values)
	return s
}

func (s *MapSource) Load() (SourceData, error) {
	pairs := make([]Pair, 0, len(s.values))
	for _, key := range slices.Sorted(maps.Keys(s.values)) {
		pairs = append(pairs, Pair{Path: key, Value: s.values[key]})
	}
	return SourceData{Pairs: pairs}, nil
}

// PairSource serves an ordered list of pairs; for a repeated path the last pair wins
type PairSource struct {
	sourceID
	pairs []Pair
}

// NewPairSource creates a source over a copy of pairs
func NewPairSource(name string, pairs []Pair) *PairSource {
	return &PairSource{sourceID: newSourceID(name), pairs: slices.Clone(pairs)}
}

func (s *PairSource) Load() (SourceData, error) {
	return SourceData{Pairs: slices.Clone(s.pairs)}, nil
}

// NodeSource serves a pre-built tree
type NodeSource struct {
	sourceID
	node Node
}

// NewNodeSource creates a source serving node
func NewNodeSource(name string, node Node) *NodeSource {
	return &NodeSource{sourceID: newSourceID(name), node: node}
}

func (s *NodeSource) Load() (SourceData, error) {
	if s.node == nil {
		return SourceData{}, ErrNilSource
	}
	return SourceData{Node: s.node}, nil
}

// compileSource loads src and turns its data into a tree
func compileSource(src Source, lexer Lexer) (NodeContainer, ValidateOf[Node], error) {
	if src == nil {
		return NodeContainer{}, ValidateOf[Node]{}, ErrNilSource
	}
	data, err := src.Load()
	if err != nil {
		return NodeContainer{}, ValidateOf[Node]{}, err
	}

	var result ValidateOf[Node]
	if data.Node != nil {
		result = Valid(data.Node)
		if pl, ok := lexer.(*PathLexer); ok && pl.Normalize() {
			result = normalizeKeys("", data.Node)
		}
	} else {
		result = Compile(lexer, data.Pairs)
	}

	node, _ := result.Results()
	return NodeContainer{ID: src.ID(), Name: src.Name(), Node: node}, result, nil
}

// normalizeKeys lower-cases every map key in node. Keys equal once
// lower-cased are merged in sorted key order, so the lower-case spelling wins.
func normalizeKeys(path string, node Node) ValidateOf[Node] {
	var errs []ValidationError

	switch n := node.(type) {
	case *MapNode:
		children := make(map[string]Node, n.Size())
		for _, key := range n.keys {
			lower := strings.ToLower(key)
			child := n.entry(key)
			if child == nil {
				if _, exists := children[lower]; !exists {
					children[lower] = nil
				}
				continue
			}

			normalized := normalizeKeys(pathForKey(path, lower), child)
			errs = append(errs, normalized.Errors()...)
			next, ok := normalized.Results()
			if !ok {
				continue
			}
			if prev := children[lower]; prev != nil {
				merged := MergeNodes(pathForKey(path, lower), prev, next)
				errs = append(errs, merged.Errors()...)
				if next, ok = merged.Results(); !ok {
					delete(children, lower)
					continue
				}
			}
			children[lower] = next
		}
		return ValidateOfValue[Node](NewMapNode(children), true, errs)

	case *ArrayNode:
		items := make([]Node, n.Size())
		for i := range items {
			child, ok := n.Index(i)
			if !ok {
				continue
			}
			normalized := normalizeKeys(pathForIndex(path, i), child)
			errs = append(errs, normalized.Errors()...)
			items[i], _ = normalized.Results()
		}
		return ValidateOfValue[Node](NewArrayNode(items), true, errs)

	default:
		return Valid(node)
	}
}
