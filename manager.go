// FILE: lixenwraith/treeconf/manager.go
package treeconf

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// NodeContainer pairs a compiled tree with the identifier of the source it came from
type NodeContainer struct {
	ID   uuid.UUID
	Name string
	Node Node
}

// NodeManager owns the ordered list of source trees and the merged root.
// The root is published as an immutable snapshot: readers load it once per
// call and writers replace it wholesale, never mutating a published tree.
type NodeManager struct {
	mu         sync.Mutex
	containers []NodeContainer
	root       atomic.Pointer[rootSnapshot]
}

type rootSnapshot struct {
	node Node
}

// NewNodeManager creates an empty node manager
func NewNodeManager() *NodeManager {
	return &NodeManager{}
}

// Root returns the current merged root, if any source has been added
func (m *NodeManager) Root() (Node, bool) {
	snap := m.root.Load()
	if snap == nil || snap.node == nil {
		return nil, false
	}
	return snap.node, true
}

// Containers returns a copy of the registered source trees in merge order
func (m *NodeManager) Containers() []NodeContainer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NodeContainer, len(m.containers))
	copy(out, m.containers)
	return out
}

// AddNode merges a new source tree over the current root and validates the result
func (m *NodeManager) AddNode(container NodeContainer) (ValidateOf[Node], error) {
	if container.Node == nil {
		return ValidateOf[Node]{}, ErrNilSource
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []ValidationError
	m.containers = append(m.containers, container)

	root, hasRoot := m.Root()
	if !hasRoot {
		root = container.Node
	} else {
		merged := MergeNodes("", root, container.Node)
		errs = append(errs, merged.Errors()...)
		if node, ok := merged.Results(); ok {
			root = node
		}
	}

	errs = append(errs, ValidateTree(root)...)
	m.root.Store(&rootSnapshot{node: root})
	return ValidateOfValue(root, true, dedupe(errs)), nil
}

// Reload replaces the source tree with the same ID and re-merges every source
// from scratch, in registration order. The new root is validated and run
// through processors before it is published, so readers never observe an
// intermediate tree.
func (m *NodeManager) Reload(container NodeContainer, processors ...PostProcessor) (ValidateOf[Node], error) {
	if container.Node == nil {
		return ValidateOf[Node]{}, ErrNilSource
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	next := make([]NodeContainer, len(m.containers))
	for i, c := range m.containers {
		if c.ID == container.ID {
			next[i] = container
			found = true
		} else {
			next[i] = c
		}
	}
	if !found {
		return ValidateOf[Node]{}, fmt.Errorf("%w: %s", ErrSourceNotFound, container.ID)
	}

	root, errs := m.rebuild(next, processors)
	m.containers = next
	return ValidateOfValue(root, true, dedupe(errs)), nil
}

// Rebuild re-merges and post-processes every registered source without
// replacing any of them.
func (m *NodeManager) Rebuild(processors ...PostProcessor) (ValidateOf[Node], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.containers) == 0 {
		return ValidateOf[Node]{}, ErrNotLoaded
	}

	root, errs := m.rebuild(m.containers, processors)
	return ValidateOfValue(root, true, dedupe(errs)), nil
}

// rebuild merges, validates and post-processes containers, then publishes
// the result. Callers hold m.mu.
func (m *NodeManager) rebuild(containers []NodeContainer, processors []PostProcessor) (Node, []ValidationError) {
	root, errs := mergeAll(containers)
	errs = append(errs, ValidateTree(root)...)

	if len(processors) > 0 {
		processed := postProcessNode("", root, processors)
		errs = append(errs, processed.Errors()...)
		if node, ok := processed.Results(); ok {
			root = node
		}
	}

	m.root.Store(&rootSnapshot{node: root})
	return root, errs
}

func mergeAll(containers []NodeContainer) (Node, []ValidationError) {
	var root Node
	var errs []ValidationError
	for _, c := range containers {
		if root == nil {
			root = c.Node
			continue
		}
		merged := MergeNodes("", root, c.Node)
		errs = append(errs, merged.Errors()...)
		if node, ok := merged.Results(); ok {
			root = node
		} else {
			errs = append(errs, &NoResultsFound{At: "", Context: "reloading source " + c.Name})
		}
	}
	return root, errs
}

// PostProcess runs processors over the current root and publishes the rewritten tree
func (m *NodeManager) PostProcess(processors []PostProcessor) (ValidateOf[Node], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	root, ok := m.Root()
	if !ok {
		return ValidateOf[Node]{}, ErrNotLoaded
	}
	if len(processors) == 0 {
		return Valid(root), nil
	}

	result := postProcessNode("", root, processors)
	if node, ok := result.Results(); ok {
		m.root.Store(&rootSnapshot{node: node})
	}
	return result, nil
}

// NavigateToNode walks the current root along tokens
func (m *NodeManager) NavigateToNode(path string, tokens []Token) ValidateOf[Node] {
	root, ok := m.Root()
	if !ok {
		return Invalid[Node](&NoResultsFound{At: path, Context: "navigating an empty configuration"})
	}
	return Navigate(path, root, tokens)
}

// Navigate walks node one token at a time. The walk stops at the first token
// that cannot be resolved.
func Navigate(path string, node Node, tokens []Token) ValidateOf[Node] {
	current := node
	for _, token := range tokens {
		next := navigateToNextNode(path, token, current)
		n, ok := next.Results()
		if !ok {
			return next
		}
		current = n
	}
	return Valid(current)
}

func navigateToNextNode(path string, token Token, node Node) ValidateOf[Node] {
	if node == nil {
		return Invalid[Node](&NoResultsFound{At: path, Context: "navigating from a missing node"})
	}

	switch t := token.(type) {
	case FieldToken:
		if node.Type() != MapType {
			return Invalid[Node](&MismatchedObjectNode{At: path, Expected: MapType, Actual: node.Type()})
		}
		child, ok := node.Key(t.Name)
		if !ok {
			return Invalid[Node](&NoResultsFound{At: path, Context: "navigating to key " + t.Name})
		}
		return Valid(child)

	case IndexToken:
		if node.Type() != ArrayType {
			return Invalid[Node](&MismatchedObjectNode{At: path, Expected: ArrayType, Actual: node.Type()})
		}
		child, ok := node.Index(t.Index)
		if !ok {
			return Invalid[Node](&NoResultsFound{At: path, Context: "navigating to index " + t.String()})
		}
		return Valid(child)

	default:
		return Invalid[Node](&InvalidPath{At: path, Segment: fmt.Sprintf("%v", token), Reason: "unsupported token"})
	}
}
