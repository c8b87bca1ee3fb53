// FILE: lixenwraith/treeconf/compile.go
package treeconf

import (
	"slices"
)

// Pair is a single path/value entry produced by a flat source
type Pair struct {
	Path  string
	Value string
}

// MaxCompileIndex bounds array indices accepted from flat sources
const MaxCompileIndex = 1 << 16

type compileEntry struct {
	tokens []Token
	value  string
}

// Compile builds a configuration tree from flat path/value pairs.
// Later pairs override earlier ones for the same path. Paths that cannot be
// tokenized are reported and skipped; the rest of the tree is still built.
func Compile(lexer Lexer, pairs []Pair) ValidateOf[Node] {
	var errs []ValidationError
	entries := make([]compileEntry, 0, len(pairs))

	for _, pair := range pairs {
		scanned := lexer.Scan(pair.Path)
		tokens, ok := scanned.Results()
		if !ok {
			errs = append(errs, scanned.Errors()...)
			continue
		}
		if len(tokens) == 0 {
			errs = append(errs, &InvalidPath{At: pair.Path, Segment: pair.Path, Reason: "empty path"})
			continue
		}
		if _, isField := tokens[0].(FieldToken); !isField {
			errs = append(errs, &InvalidPath{At: pair.Path, Segment: tokens[0].String(), Reason: "path must start with a field name"})
			continue
		}
		if idx, tooLarge := oversizedIndex(tokens); tooLarge {
			errs = append(errs, &InvalidPath{At: pair.Path, Segment: idx.String(), Reason: "array index too large"})
			continue
		}
		entries = append(entries, compileEntry{tokens: tokens, value: pair.Value})
	}

	if len(entries) == 0 {
		return ValidateOfValue[Node](NewMapNode(nil), true, errs)
	}

	root, buildErrs := buildNode("", entries)
	errs = append(errs, buildErrs...)
	return ValidateOfValue(root, true, errs)
}

func oversizedIndex(tokens []Token) (IndexToken, bool) {
	for _, t := range tokens {
		if idx, ok := t.(IndexToken); ok && idx.Index > MaxCompileIndex {
			return idx, true
		}
	}
	return IndexToken{}, false
}

func buildNode(path string, entries []compileEntry) (Node, []ValidationError) {
	var errs []ValidationError
	var leaves, nested []compileEntry
	for _, e := range entries {
		if len(e.tokens) == 0 {
			leaves = append(leaves, e)
		} else {
			nested = append(nested, e)
		}
	}

	if len(nested) == 0 {
		return NewLeaf(leaves[len(leaves)-1].value), nil
	}
	if len(leaves) > 0 {
		errs = append(errs, &CompileConflict{At: path, Reason: "path holds a value and nested keys"})
	}

	_, byField := nested[0].tokens[0].(FieldToken)
	kept := nested[:0:0]
	for _, e := range nested {
		if _, isField := e.tokens[0].(FieldToken); isField == byField {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(nested) {
		errs = append(errs, &CompileConflict{At: path, Reason: "path holds both map keys and array indices"})
	}

	if byField {
		node, childErrs := buildMap(path, kept)
		return node, append(errs, childErrs...)
	}
	node, childErrs := buildArray(path, kept)
	return node, append(errs, childErrs...)
}

func buildMap(path string, entries []compileEntry) (Node, []ValidationError) {
	var errs []ValidationError
	var order []string
	groups := make(map[string][]compileEntry)

	for _, e := range entries {
		name := e.tokens[0].(FieldToken).Name
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], compileEntry{tokens: e.tokens[1:], value: e.value})
	}

	children := make(map[string]Node, len(order))
	for _, name := range order {
		child, childErrs := buildNode(pathForKey(path, name), groups[name])
		errs = append(errs, childErrs...)
		children[name] = child
	}
	return NewMapNode(children), errs
}

func buildArray(path string, entries []compileEntry) (Node, []ValidationError) {
	var errs []ValidationError
	groups := make(map[int][]compileEntry)

	for _, e := range entries {
		index := e.tokens[0].(IndexToken).Index
		groups[index] = append(groups[index], compileEntry{tokens: e.tokens[1:], value: e.value})
	}

	indices := make([]int, 0, len(groups))
	for index := range groups {
		indices = append(indices, index)
	}
	slices.Sort(indices)

	items := make([]Node, indices[len(indices)-1]+1)
	for _, index := range indices {
		child, childErrs := buildNode(pathForIndex(path, index), groups[index])
		errs = append(errs, childErrs...)
		items[index] = child
	}
	return NewArrayNode(items), errs
}
