// Package config provides configuration management for the polysql CLI.
//
// Settings are layered from defaults, polysql.yaml, POLYSQL_ environment
// variables and explicitly set flags. The verify section reuses the
// backend configuration of pkg/adapter.
package config

import (
	"github.com/leapstack-labs/polysql/pkg/adapter"
)

// ServerConfig holds configuration for the HTTP API server.
type ServerConfig struct {
	Port      int    `koanf:"port"`
	TablesDir string `koanf:"tables_dir"`
	Watch     bool   `koanf:"watch"`
}

// Config holds all CLI configuration options.
type Config struct {
	// Dialect is the read dialect. Empty means auto-detect.
	Dialect string `koanf:"dialect"`
	// WriteDialect is the output dialect of transpile. Empty keeps Dialect.
	WriteDialect string `koanf:"write_dialect"`
	Pretty       bool   `koanf:"pretty"`
	Identify     bool   `koanf:"identify"`
	Normalize    bool   `koanf:"normalize"`
	OutputFormat string `koanf:"output"`
	Verbose      bool   `koanf:"verbose"`
	LogLevel     string `koanf:"log_level"`

	// Tables is a JSON/YAML table file or a directory of them.
	Tables string `koanf:"tables"`
	// UDFs are Starlark files defining scalar functions.
	UDFs         []string `koanf:"udfs"`
	MaxRecursion int      `koanf:"max_recursion"`

	Server ServerConfig    `koanf:"server"`
	Verify *adapter.Config `koanf:"verify"`

	// ConfigDir is the directory of the loaded config file, used to
	// resolve relative paths found in it.
	ConfigDir string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel   = "warn"
	DefaultServerPort = 8080
	ConfigFileName    = "polysql.yaml"
	EnvPrefix         = "POLYSQL_"
)

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	return &Config{
		Pretty:       true,
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		Server:       ServerConfig{Port: DefaultServerPort},
	}
}
