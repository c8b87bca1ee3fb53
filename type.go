// FILE: lixenwraith/treeconf/type.go
package treeconf

import (
	"time"
)

// String retrieves a string value using the path.
func (c *Config) String(path string) (string, error) {
	return Get[string](c, path)
}

// Int64 retrieves an int64 value using the path.
// Values beyond the int64 range fail with a NumberFormat diagnostic.
func (c *Config) Int64(path string) (int64, error) {
	return Get[int64](c, path)
}

// Int retrieves an int value using the path.
func (c *Config) Int(path string) (int, error) {
	return Get[int](c, path)
}

// Bool retrieves a boolean value using the path.
// Accepts true/false, 1/0, yes/no and on/off.
func (c *Config) Bool(path string) (bool, error) {
	return Get[bool](c, path)
}

// Float64 retrieves a float64 value using the path.
func (c *Config) Float64(path string) (float64, error) {
	return Get[float64](c, path)
}

// Duration retrieves a duration using the path. A bare integer is read as milliseconds.
func (c *Config) Duration(path string) (time.Duration, error) {
	return Get[time.Duration](c, path)
}

// Strings retrieves a list of strings using the path, from either an array
// or a single delimited value.
func (c *Config) Strings(path string) ([]string, error) {
	return Get[[]string](c, path)
}
