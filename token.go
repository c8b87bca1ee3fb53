// FILE: lixenwraith/treeconf/token.go
package treeconf

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultPathDelimiter separates field segments in a path
const DefaultPathDelimiter = "."

// Token is one navigation step of a parsed path
type Token interface {
	String() string
	isToken()
}

// FieldToken selects a named child of a map node
type FieldToken struct {
	Name string
}

func (t FieldToken) String() string { return t.Name }
func (FieldToken) isToken()         {}

// IndexToken selects a positional child of an array node
type IndexToken struct {
	Index int
}

func (t IndexToken) String() string { return "[" + strconv.Itoa(t.Index) + "]" }
func (IndexToken) isToken()         {}

// Lexer turns a path string into tokens
type Lexer interface {
	Scan(path string) ValidateOf[[]Token]
}

var (
	segmentPattern = regexp.MustCompile(`^([^\[\]]*)((?:\[[^\[\]]*\])*)$`)
	indexPattern   = regexp.MustCompile(`\[([^\[\]]*)\]`)
)

// PathLexer splits paths on a delimiter and peels "[n]" suffixes off each
// segment, so "a.b[2][0].c" yields a, b, [2], [0], c.
type PathLexer struct {
	delimiter string
	normalize bool
}

// NewPathLexer creates a lexer splitting on delimiter; empty means DefaultPathDelimiter
func NewPathLexer(delimiter string) *PathLexer {
	if delimiter == "" {
		delimiter = DefaultPathDelimiter
	}
	return &PathLexer{delimiter: delimiter}
}

// WithNormalize makes the lexer lower-case field names
func (l *PathLexer) WithNormalize(normalize bool) *PathLexer {
	l.normalize = normalize
	return l
}

// Normalize reports whether field names are lower-cased
func (l *PathLexer) Normalize() bool {
	return l.normalize
}

// Delimiter returns the segment delimiter
func (l *PathLexer) Delimiter() string {
	return l.delimiter
}

// Scan tokenizes path. An empty path yields no tokens and addresses the root.
func (l *PathLexer) Scan(path string) ValidateOf[[]Token] {
	if path == "" {
		return Valid([]Token{})
	}

	var tokens []Token
	var errs []ValidationError

	for _, segment := range strings.Split(path, l.delimiter) {
		segTokens, err := l.scanSegment(path, segment)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tokens = append(tokens, segTokens...)
	}

	if len(errs) > 0 {
		return Invalid[[]Token](errs...)
	}
	return Valid(tokens)
}

func (l *PathLexer) scanSegment(path, segment string) ([]Token, ValidationError) {
	if strings.TrimSpace(segment) == "" {
		return nil, &InvalidPath{At: path, Segment: segment, Reason: "empty segment"}
	}

	match := segmentPattern.FindStringSubmatch(segment)
	if match == nil {
		return nil, &InvalidPath{At: path, Segment: segment, Reason: "malformed index brackets"}
	}

	var tokens []Token
	if name := strings.TrimSpace(match[1]); name != "" {
		if l.normalize {
			name = strings.ToLower(name)
		}
		tokens = append(tokens, FieldToken{Name: name})
	}

	for _, idx := range indexPattern.FindAllStringSubmatch(match[2], -1) {
		digits := idx[1]
		if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
			return nil, &InvalidPath{At: path, Segment: segment, Reason: "index must be a non-negative integer"}
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil, &InvalidPath{At: path, Segment: segment, Reason: "index out of range"}
		}
		tokens = append(tokens, IndexToken{Index: n})
	}

	return tokens, nil
}

// pathForKey extends path with a map key
func pathForKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// pathForIndex extends path with an array index
func pathForIndex(path string, index int) string {
	return path + "[" + strconv.Itoa(index) + "]"
}
