// FILE: lixenwraith/treeconf/validate.go
package treeconf

// Level is the severity of a diagnostic
type Level int

const (
	// LevelError blocks result production for the affected path
	LevelError Level = iota
	// LevelWarn is informational
	LevelWarn
)

// String returns the level name
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	default:
		return "UNKNOWN"
	}
}

// ValidationError is a single diagnostic produced while compiling, merging,
// post-processing, navigating or decoding a configuration tree.
type ValidationError interface {
	error
	Level() Level
	Path() string
}

// ValidateOf carries an optional result together with the diagnostics that
// were produced computing it. A result and diagnostics may both be present.
type ValidateOf[T any] struct {
	value  T
	ok     bool
	errors []ValidationError
}

// Valid wraps a result without diagnostics
func Valid[T any](value T) ValidateOf[T] {
	return ValidateOf[T]{value: value, ok: true}
}

// Invalid returns a result-less ValidateOf carrying errs
func Invalid[T any](errs ...ValidationError) ValidateOf[T] {
	return ValidateOf[T]{errors: errs}
}

// ValidateOfValue builds a ValidateOf from an optional result and diagnostics
func ValidateOfValue[T any](value T, ok bool, errs []ValidationError) ValidateOf[T] {
	v := ValidateOf[T]{ok: ok, errors: errs}
	if ok {
		v.value = value
	}
	return v
}

// Results returns the result and whether it is present
func (v ValidateOf[T]) Results() (T, bool) {
	return v.value, v.ok
}

// HasResults reports whether a result is present
func (v ValidateOf[T]) HasResults() bool {
	return v.ok
}

// HasErrors reports whether any diagnostic was produced
func (v ValidateOf[T]) HasErrors() bool {
	return len(v.errors) > 0
}

// HasErrorsAtLevel reports whether a diagnostic of the given level was produced
func (v ValidateOf[T]) HasErrorsAtLevel(level Level) bool {
	for _, err := range v.errors {
		if err.Level() == level {
			return true
		}
	}
	return false
}

// Errors returns the diagnostics in the order they were produced
func (v ValidateOf[T]) Errors() []ValidationError {
	return v.errors
}

// mapResult converts the result type while keeping the diagnostics
func mapResult[T, U any](v ValidateOf[T], fn func(T) U) ValidateOf[U] {
	out := ValidateOf[U]{ok: v.ok, errors: v.errors}
	if v.ok {
		out.value = fn(v.value)
	}
	return out
}

// dedupe removes diagnostics with a description already seen, keeping order
func dedupe(errs []ValidationError) []ValidationError {
	if len(errs) < 2 {
		return errs
	}
	seen := make(map[string]struct{}, len(errs))
	out := make([]ValidationError, 0, len(errs))
	for _, err := range errs {
		desc := err.Error()
		if _, dup := seen[desc]; dup {
			continue
		}
		seen[desc] = struct{}{}
		out = append(out, err)
	}
	return out
}

// countLevels returns the number of error and warning diagnostics
func countLevels(errs []ValidationError) (errCount, warnCount int) {
	for _, err := range errs {
		if err.Level() == LevelError {
			errCount++
		} else {
			warnCount++
		}
	}
	return errCount, warnCount
}
