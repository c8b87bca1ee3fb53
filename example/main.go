// FILE: lixenwraith/treeconf/example/main.go
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/lixenwraith/treeconf"
)

// AppConfig defines the configuration structure used for defaults and Scan.
type AppConfig struct {
	Server struct {
		Host     string        `toml:"host"`
		Port     int64         `toml:"port"`
		Timeout  time.Duration `toml:"timeout"`
		LogLevel string        `toml:"log_level"`
	} `toml:"server"`
	Database struct {
		Name  string   `toml:"name"`
		Hosts []string `toml:"hosts"`
	} `toml:"database"`
}

// Database is decoded through a type descriptor instead of Scan.
type Database struct {
	Name  string   `config:"name"`
	Port  int      `config:"port" default:"5432"`
	Hosts []string `config:"hosts"`
}

const initialTOML = `
[server]
host = "0.0.0.0"
port = 8080
timeout = "15s"

[database]
name = "orders"
hosts = ["db-1", "db-2"]
`

func main() {
	dir, err := os.MkdirTemp("", "treeconf-example")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(initialTOML), 0644); err != nil {
		log.Fatalf("failed to write config: %v", err)
	}

	os.Setenv("APP_SERVER_PORT", "8888")
	defer os.Unsetenv("APP_SERVER_PORT")

	defaults := AppConfig{}
	defaults.Server.Host = "localhost"
	defaults.Server.Port = 80
	defaults.Server.Timeout = 30 * time.Second
	defaults.Server.LogLevel = "info"

	file := treeconf.NewFileSource(path)
	cfg, err := treeconf.NewBuilder().
		WithLogger(treeconf.NewLogger(treeconf.LoggerConfig{Level: "info"}, os.Stderr)).
		WithDefaults(defaults).
		AddSource(file).
		WithEnvPrefix("APP_").
		WithArgs(nil).
		AddReloadListener(treeconf.ReloadListenerFunc(func() {
			log.Println("configuration reloaded")
		})).
		WithValidator(func(c *treeconf.Config) error {
			port, err := c.Int64("server.port")
			if err != nil {
				return err
			}
			if port < 1 || port > 65535 {
				return fmt.Errorf("port %d out of range", port)
			}
			return nil
		}).
		Build()
	if err != nil && !errors.Is(err, treeconf.ErrConfigNotFound) {
		log.Fatalf("failed to build config: %v", err)
	}

	// Environment overrides the file, the file overrides defaults
	port, _ := cfg.Int64("server.port")
	host, _ := cfg.String("server.host")
	level, _ := cfg.String("server.log_level")
	timeout, _ := cfg.Duration("server.timeout")
	log.Printf("server %s:%d timeout=%s log_level=%s", host, port, timeout, level)

	db, err := treeconf.Get[Database](cfg, "database")
	if err != nil {
		log.Fatalf("failed to decode database: %v", err)
	}
	log.Printf("database %+v", db)
	for _, d := range cfg.Lookup("database", treeconf.TypeFor[Database]()).Errors() {
		log.Printf("  %s: %s", d.Level(), d.Error())
	}

	var app AppConfig
	if err := cfg.Scan("", &app); err != nil {
		log.Fatalf("failed to scan: %v", err)
	}
	log.Printf("scanned hosts: %v", app.Database.Hosts)

	// Rewrite the file and reload only that source
	updated := initialTOML + "\n[database.extra]\nport = 6543\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		log.Fatalf("failed to update config: %v", err)
	}
	if err := cfg.Reload(file); err != nil {
		log.Fatalf("failed to reload: %v", err)
	}
	extra := treeconf.GetOr(cfg, "database.extra.port", 0)
	log.Printf("database.extra.port after reload: %d", extra)

	fmt.Println(cfg.Debug())
	if err := cfg.Dump(os.Stdout); err != nil {
		log.Fatalf("failed to dump: %v", err)
	}
}
