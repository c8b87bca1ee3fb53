// FILE: lixenwraith/treeconf/errors.go
package treeconf

import (
	"errors"
	"fmt"
	"strings"
)

// MaxValueSize limits the length of a single value read from the environment
const MaxValueSize = 1 << 20

// Setup and source errors. These are ordinary Go errors; diagnostics about the
// content of a tree are reported as ValidationError values instead.
var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrNilSource      = errors.New("no source provided")
	ErrSourceNotFound = errors.New("source not registered")
	ErrNotLoaded      = errors.New("configuration not loaded")
	ErrCLIParse       = errors.New("failed to parse command-line arguments")
	ErrValueSize      = errors.New("value exceeds maximum size")
	ErrUnknownFormat  = errors.New("unable to determine configuration format")
)

// DiagnosticsError is returned by strict queries that produced no result or
// produced blocking diagnostics.
type DiagnosticsError struct {
	Path        string
	Diagnostics []ValidationError
}

func (e *DiagnosticsError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("no result for path %q", e.Path)
	}
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Level().String() + ": " + d.Error()
	}
	return fmt.Sprintf("failed getting config path %q: %s", e.Path, strings.Join(msgs, "; "))
}

// Unwrap exposes each diagnostic to errors.Is and errors.As
func (e *DiagnosticsError) Unwrap() []error {
	errs := make([]error, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		errs[i] = d
	}
	return errs
}

// ArrayMissingIndex reports a hole in an array node
type ArrayMissingIndex struct {
	At    string
	Index int
}

func (e *ArrayMissingIndex) Error() string {
	return fmt.Sprintf("missing array index %d for path %q", e.Index, e.At)
}
func (e *ArrayMissingIndex) Level() Level { return LevelWarn }
func (e *ArrayMissingIndex) Path() string { return e.At }

// MismatchedNode reports an attempt to merge nodes of different variants
type MismatchedNode struct {
	At     string
	First  NodeType
	Second NodeType
}

func (e *MismatchedNode) Error() string {
	return fmt.Sprintf("unable to merge different node types %s and %s on path %q", e.First, e.Second, e.At)
}
func (e *MismatchedNode) Level() Level { return LevelError }
func (e *MismatchedNode) Path() string { return e.At }

// MismatchedObjectNode reports a node of an unexpected variant at a path
type MismatchedObjectNode struct {
	At       string
	Expected NodeType
	Actual   NodeType
}

func (e *MismatchedObjectNode) Error() string {
	return fmt.Sprintf("mismatched node on path %q: expected %s, received %s", e.At, e.Expected, e.Actual)
}
func (e *MismatchedObjectNode) Level() Level { return LevelError }
func (e *MismatchedObjectNode) Path() string { return e.At }

// LeafHasNoValue reports a leaf without a value found in a tree
type LeafHasNoValue struct {
	At string
}

func (e *LeafHasNoValue) Error() string {
	return fmt.Sprintf("leaf node has no value on path %q", e.At)
}
func (e *LeafHasNoValue) Level() Level { return LevelError }
func (e *LeafHasNoValue) Path() string { return e.At }

// LeafMissingValue reports a decoder given a leaf without a value
type LeafMissingValue struct {
	At      string
	Decoder string
}

func (e *LeafMissingValue) Error() string {
	return fmt.Sprintf("leaf on path %q has no value to decode as %s", e.At, e.Decoder)
}
func (e *LeafMissingValue) Level() Level { return LevelError }
func (e *LeafMissingValue) Path() string { return e.At }

// EmptyNodeName reports a map entry with an empty key
type EmptyNodeName struct {
	At string
}

func (e *EmptyNodeName) Error() string {
	return fmt.Sprintf("empty node name provided for path %q", e.At)
}
func (e *EmptyNodeName) Level() Level { return LevelError }
func (e *EmptyNodeName) Path() string { return e.At }

// EmptyNodeValue reports a map entry without a child node
type EmptyNodeValue struct {
	At  string
	Key string
}

func (e *EmptyNodeValue) Error() string {
	return fmt.Sprintf("empty node value provided for path %q, key %q", e.At, e.Key)
}
func (e *EmptyNodeValue) Level() Level { return LevelError }
func (e *EmptyNodeValue) Path() string { return e.At }

// NoResultsFound reports an operation that could not produce a node or value
type NoResultsFound struct {
	At      string
	Context string
}

func (e *NoResultsFound) Error() string {
	return fmt.Sprintf("no results found for path %q while %s", e.At, e.Context)
}
func (e *NoResultsFound) Level() Level { return LevelError }
func (e *NoResultsFound) Path() string { return e.At }

// MissingFieldDefault reports an object field filled from its default value
type MissingFieldDefault struct {
	At      string
	Field   string
	Default string
}

func (e *MissingFieldDefault) Error() string {
	return fmt.Sprintf("missing field %s on path %q, using default %q", e.Field, e.At, e.Default)
}
func (e *MissingFieldDefault) Level() Level { return LevelWarn }
func (e *MissingFieldDefault) Path() string { return e.At }

// NoDecoderFound reports a type descriptor no registered decoder matches
type NoDecoderFound struct {
	At   string
	Type string
}

func (e *NoDecoderFound) Error() string {
	return fmt.Sprintf("no decoder found for type %s on path %q", e.Type, e.At)
}
func (e *NoDecoderFound) Level() Level { return LevelError }
func (e *NoDecoderFound) Path() string { return e.At }

// NumberFormat reports numeric input outside the representable range
type NumberFormat struct {
	At      string
	Value   string
	Decoder string
}

func (e *NumberFormat) Error() string {
	return fmt.Sprintf("unable to decode %s on path %q: value %q is out of range", e.Decoder, e.At, e.Value)
}
func (e *NumberFormat) Level() Level { return LevelError }
func (e *NumberFormat) Path() string { return e.At }

// NumberParsing reports non-numeric input for a numeric decoder
type NumberParsing struct {
	At      string
	Value   string
	Decoder string
}

func (e *NumberParsing) Error() string {
	return fmt.Sprintf("unable to parse a number on path %q from %q for %s", e.At, e.Value, e.Decoder)
}
func (e *NumberParsing) Level() Level { return LevelError }
func (e *NumberParsing) Path() string { return e.At }

// DecodingFormat reports input in the wrong format for a decoder
type DecodingFormat struct {
	At      string
	Value   string
	Decoder string
	Err     error
}

func (e *DecodingFormat) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to decode %s on path %q from %q: %v", e.Decoder, e.At, e.Value, e.Err)
	}
	return fmt.Sprintf("unable to decode %s on path %q from %q", e.Decoder, e.At, e.Value)
}
func (e *DecodingFormat) Level() Level  { return LevelError }
func (e *DecodingFormat) Path() string  { return e.At }
func (e *DecodingFormat) Unwrap() error { return e.Err }

// WrongSize reports input whose length does not fit the target
type WrongSize struct {
	At       string
	Value    string
	Decoder  string
	Expected int
	Actual   int
}

func (e *WrongSize) Error() string {
	return fmt.Sprintf("expected %s of size %d on path %q, received %q of size %d",
		e.Decoder, e.Expected, e.At, e.Value, e.Actual)
}
func (e *WrongSize) Level() Level { return LevelError }
func (e *WrongSize) Path() string { return e.At }

// UnknownNodeType reports a Node implementation the engine does not handle
type UnknownNodeType struct {
	At   string
	Node string
}

func (e *UnknownNodeType) Error() string {
	return fmt.Sprintf("unknown node type %s on path %q", e.Node, e.At)
}
func (e *UnknownNodeType) Level() Level { return LevelError }
func (e *UnknownNodeType) Path() string { return e.At }

// InvalidPath reports a path string the lexer could not tokenize
type InvalidPath struct {
	At      string
	Segment string
	Reason  string
}

func (e *InvalidPath) Error() string {
	return fmt.Sprintf("invalid path %q at segment %q: %s", e.At, e.Segment, e.Reason)
}
func (e *InvalidPath) Level() Level { return LevelError }
func (e *InvalidPath) Path() string { return e.At }

// CompileConflict reports a source path defined both as a value and as a container
type CompileConflict struct {
	At     string
	Reason string
}

func (e *CompileConflict) Error() string {
	return fmt.Sprintf("conflicting definitions on path %q: %s", e.At, e.Reason)
}
func (e *CompileConflict) Level() Level { return LevelError }
func (e *CompileConflict) Path() string { return e.At }

// UnresolvedToken reports a ${transformer:key} token whose key has no value
type UnresolvedToken struct {
	At          string
	Transformer string
	Key         string
}

func (e *UnresolvedToken) Error() string {
	return fmt.Sprintf("unable to resolve %s key %q on path %q", e.Transformer, e.Key, e.At)
}
func (e *UnresolvedToken) Level() Level { return LevelError }
func (e *UnresolvedToken) Path() string { return e.At }

// UnknownTransformer reports a token naming an unregistered transformer
type UnknownTransformer struct {
	At          string
	Transformer string
}

func (e *UnknownTransformer) Error() string {
	return fmt.Sprintf("no transformer named %q found for path %q", e.Transformer, e.At)
}
func (e *UnknownTransformer) Level() Level { return LevelError }
func (e *UnknownTransformer) Path() string { return e.At }
