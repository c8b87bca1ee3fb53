// FILE: lixenwraith/treeconf/merge.go
package treeconf

import (
	"fmt"
)

// MergeNodes merges b over a. For leaves the later value wins, maps are merged
// key by key and arrays index by index. Nodes of different variants cannot be
// merged; such a conflict fails only its own path, siblings are still merged.
// Neither input is modified.
func MergeNodes(path string, a, b Node) ValidateOf[Node] {
	if a == nil || b == nil {
		return Invalid[Node](&NoResultsFound{At: path, Context: "merging a missing node"})
	}
	if a.Type() != b.Type() {
		return Invalid[Node](&MismatchedNode{At: path, First: a.Type(), Second: b.Type()})
	}

	switch a.Type() {
	case LeafType:
		return mergeLeaves(path, a, b)
	case MapType:
		am, aok := a.(*MapNode)
		bm, bok := b.(*MapNode)
		if !aok || !bok {
			return Invalid[Node](&UnknownNodeType{At: path, Node: fmt.Sprintf("%T", a)})
		}
		return mergeMaps(path, am, bm)
	case ArrayType:
		return mergeArrays(path, a, b)
	default:
		return Invalid[Node](&UnknownNodeType{At: path, Node: fmt.Sprintf("%T", a)})
	}
}

func mergeLeaves(path string, a, b Node) ValidateOf[Node] {
	if _, ok := b.Value(); ok {
		return Valid(b)
	}
	if _, ok := a.Value(); ok {
		return Valid(a)
	}
	return Invalid[Node](&LeafHasNoValue{At: path})
}

func mergeMaps(path string, a, b *MapNode) ValidateOf[Node] {
	var errs []ValidationError
	merged := make(map[string]Node, a.Size()+b.Size())

	for _, key := range a.keys {
		child := a.entry(key)
		switch {
		case key == "":
			errs = append(errs, &EmptyNodeName{At: path})
		case child == nil:
			errs = append(errs, &EmptyNodeValue{At: path, Key: key})
		default:
			other, inBoth := b.children[key]
			if !inBoth || other == nil {
				merged[key] = child
				continue
			}
			result := MergeNodes(pathForKey(path, key), child, other)
			errs = append(errs, result.Errors()...)
			if node, ok := result.Results(); ok {
				merged[key] = node
			} else {
				errs = append(errs, &NoResultsFound{At: pathForKey(path, key), Context: "merging maps"})
			}
		}
	}

	for _, key := range b.keys {
		child := b.entry(key)
		switch {
		case key == "":
			errs = append(errs, &EmptyNodeName{At: path})
		case child == nil:
			errs = append(errs, &EmptyNodeValue{At: path, Key: key})
		default:
			if _, done := a.children[key]; !done {
				merged[key] = child
			} else if a.entry(key) == nil {
				// a held a nil child for key, take b's
				merged[key] = child
			}
		}
	}

	return ValidateOfValue[Node](NewMapNode(merged), true, errs)
}

func mergeArrays(path string, a, b Node) ValidateOf[Node] {
	var errs []ValidationError
	size := max(a.Size(), b.Size())
	items := make([]Node, size)

	for i := 0; i < size; i++ {
		first, inFirst := a.Index(i)
		second, inSecond := b.Index(i)

		switch {
		case inFirst && inSecond:
			result := MergeNodes(pathForIndex(path, i), first, second)
			errs = append(errs, result.Errors()...)
			if node, ok := result.Results(); ok {
				items[i] = node
			} else {
				errs = append(errs, &NoResultsFound{At: pathForIndex(path, i), Context: "merging arrays"})
			}
		case inFirst:
			items[i] = first
		case inSecond:
			items[i] = second
		default:
			errs = append(errs, &ArrayMissingIndex{At: path, Index: i})
		}
	}

	return ValidateOfValue[Node](NewArrayNode(items), true, errs)
}

// ValidateTree walks node and reports missing array indices, empty map keys,
// nil map children and leaves without values.
func ValidateTree(node Node) []ValidationError {
	return validateNode("", node)
}

func validateNode(path string, node Node) []ValidationError {
	if node == nil {
		return []ValidationError{&NoResultsFound{At: path, Context: "validating a missing node"}}
	}

	switch node.Type() {
	case LeafType:
		if _, ok := node.Value(); !ok {
			return []ValidationError{&LeafHasNoValue{At: path}}
		}
		return nil

	case MapType:
		m, ok := node.(*MapNode)
		if !ok {
			return []ValidationError{&UnknownNodeType{At: path, Node: fmt.Sprintf("%T", node)}}
		}
		var errs []ValidationError
		for _, key := range m.keys {
			child := m.entry(key)
			switch {
			case key == "":
				errs = append(errs, &EmptyNodeName{At: path})
			case child == nil:
				errs = append(errs, &EmptyNodeValue{At: path, Key: key})
			default:
				errs = append(errs, validateNode(pathForKey(path, key), child)...)
			}
		}
		return errs

	case ArrayType:
		var errs []ValidationError
		for i := 0; i < node.Size(); i++ {
			child, ok := node.Index(i)
			if !ok {
				errs = append(errs, &ArrayMissingIndex{At: path, Index: i})
				continue
			}
			errs = append(errs, validateNode(pathForIndex(path, i), child)...)
		}
		return errs

	default:
		return []ValidationError{&UnknownNodeType{At: path, Node: fmt.Sprintf("%T", node)}}
	}
}
