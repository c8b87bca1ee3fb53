// FILE: lixenwraith/treeconf/postprocess.go
package treeconf

import (
	"fmt"
	"regexp"
	"strings"
)

// PostProcessor rewrites a single node of the merged tree. The pipeline
// handles recursion, so implementations only look at the node they are given.
type PostProcessor interface {
	Process(path string, node Node) ValidateOf[Node]
}

// PostProcessorFunc adapts a function to the PostProcessor interface
type PostProcessorFunc func(path string, node Node) ValidateOf[Node]

func (f PostProcessorFunc) Process(path string, node Node) ValidateOf[Node] {
	return f(path, node)
}

// postProcessNode applies every processor to node in order, each one seeing
// the previous one's output, then descends into the rewritten node's children.
func postProcessNode(path string, node Node, processors []PostProcessor) ValidateOf[Node] {
	current := node
	var errs []ValidationError

	for _, p := range processors {
		result := p.Process(path, current)
		errs = append(errs, result.Errors()...)
		if next, ok := result.Results(); ok && next != nil {
			current = next
		} else {
			errs = append(errs, &NoResultsFound{At: path, Context: "post processing"})
		}
	}

	switch current.Type() {
	case LeafType:
		return ValidateOfValue(current, true, errs)

	case MapType:
		m, ok := current.(*MapNode)
		if !ok {
			return Invalid[Node](append(errs, &UnknownNodeType{At: path, Node: fmt.Sprintf("%T", current)})...)
		}
		children := make(map[string]Node, m.Size())
		for _, key := range m.keys {
			child := m.entry(key)
			if child == nil {
				continue
			}
			result := postProcessNode(pathForKey(path, key), child, processors)
			errs = append(errs, result.Errors()...)
			if n, ok := result.Results(); ok {
				children[key] = n
			} else {
				errs = append(errs, &NoResultsFound{At: pathForKey(path, key), Context: "post processing"})
			}
		}
		return ValidateOfValue[Node](NewMapNode(children), true, errs)

	case ArrayType:
		items := make([]Node, current.Size())
		for i := range items {
			child, ok := current.Index(i)
			if !ok {
				continue
			}
			result := postProcessNode(pathForIndex(path, i), child, processors)
			errs = append(errs, result.Errors()...)
			if n, ok := result.Results(); ok {
				items[i] = n
			} else {
				errs = append(errs, &NoResultsFound{At: pathForIndex(path, i), Context: "post processing"})
			}
		}
		return ValidateOfValue[Node](NewArrayNode(items), true, errs)

	default:
		return Invalid[Node](append(errs, &UnknownNodeType{At: path, Node: fmt.Sprintf("%T", current)})...)
	}
}

var transformTokenPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_-]+):([^{}]+)\}`)

// TransformerPostProcessor substitutes ${transformer:key} tokens in leaf values
// with the value the named transformer resolves for key. Tokens that cannot be
// resolved are reported and left in place; the rest of the leaf is still rewritten.
type TransformerPostProcessor struct {
	transformers map[string]Transformer
}

// NewTransformerPostProcessor creates the pass; a later transformer with the
// same name replaces an earlier one.
func NewTransformerPostProcessor(transformers ...Transformer) *TransformerPostProcessor {
	p := &TransformerPostProcessor{transformers: make(map[string]Transformer, len(transformers))}
	for _, t := range transformers {
		if t != nil {
			p.transformers[t.Name()] = t
		}
	}
	return p
}

func (p *TransformerPostProcessor) Process(path string, node Node) ValidateOf[Node] {
	if node.Type() != LeafType {
		return Valid(node)
	}
	value, ok := node.Value()
	if !ok || !strings.Contains(value, "${") {
		return Valid(node)
	}

	var errs []ValidationError
	var b strings.Builder
	last := 0
	changed := false

	for _, m := range transformTokenPattern.FindAllStringSubmatchIndex(value, -1) {
		b.WriteString(value[last:m[0]])
		last = m[1]

		name := value[m[2]:m[3]]
		key := strings.TrimSpace(value[m[4]:m[5]])

		transformer, exists := p.transformers[name]
		if !exists {
			errs = append(errs, &UnknownTransformer{At: path, Transformer: name})
			b.WriteString(value[m[0]:m[1]])
			continue
		}

		resolved := transformer.Process(path, key)
		replacement, found := resolved.Results()
		if !found {
			errs = append(errs, resolved.Errors()...)
			if !resolved.HasErrors() {
				errs = append(errs, &UnresolvedToken{At: path, Transformer: name, Key: key})
			}
			b.WriteString(value[m[0]:m[1]])
			continue
		}
		errs = append(errs, resolved.Errors()...)
		b.WriteString(replacement)
		changed = true
	}

	if !changed {
		return ValidateOfValue(node, true, errs)
	}
	b.WriteString(value[last:])
	return ValidateOfValue[Node](NewLeaf(b.String()), true, errs)
}
