// File: lixenwraith/treeconf/doc.go

// Package treeconf provides layered, tree-based configuration for Go applications.
//
// Every source (struct defaults, TOML, JSON, YAML and properties files,
// environment variables, command-line arguments, in-memory maps) is compiled
// into an immutable tree of leaf, map and array nodes. The trees are merged
// in registration order, later sources overriding earlier ones, and the
// result is published atomically so readers never observe a partial reload.
//
// Values are decoded on read. A Type descriptor names the target type and a
// DecoderRegistry picks the highest-priority decoder that matches it. Decoding
// never panics: each result carries diagnostics at ERROR or WARN level next
// to an optional value, so a list with a hole still decodes with a warning.
//
// Features:
//   - Dotted paths with array indices (db.hosts[1])
//   - Leaf strings split into lists, sets and fixed arrays ("1,2,3")
//   - Struct decoding with defaults, optional fields and custom constructors
//   - ${env:NAME} and ${map:key} substitution through transformers
//   - Per-source reload with listeners and fsnotify file watching
//   - mapstructure-based Scan into tagged structs
//
// Quick Start:
//
//	type Config struct {
//	    Server struct {
//	        Host string `toml:"host"`
//	        Port int    `toml:"port"`
//	    } `toml:"server"`
//	}
//
//	defaults := Config{}
//	defaults.Server.Host = "localhost"
//	defaults.Server.Port = 8080
//
//	cfg, err := treeconf.Quick(defaults, "MYAPP_", "config.toml")
//	if err != nil && !errors.Is(err, treeconf.ErrConfigNotFound) {
//	    log.Fatal(err)
//	}
//
//	host, _ := cfg.String("server.host")
//	port, _ := treeconf.Get[int](cfg, "server.port")
//
// Precedence follows source order. Quick and Builder register, lowest first:
//  1. Struct defaults
//  2. Configuration files
//  3. Additional sources
//  4. Environment variables (MYAPP_SERVER_PORT=9090)
//  5. Command-line arguments (--server.port=9090)
//
// Thread Safety:
// Reads go through an atomically published tree and never block. Loads and
// reloads are serialized by a mutex.
package treeconf
