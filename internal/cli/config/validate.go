package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/adapter"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	_ "github.com/leapstack-labs/polysql/pkg/dialects/all" // register every dialect
)

var outputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid. Backends are looked up
// in the adapter registry, so callers must import the adapters they allow.
func (c *Config) Validate() error {
	for key, name := range map[string]string{"dialect": c.Dialect, "write_dialect": c.WriteDialect} {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, err := dialect.Resolve(name); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	if c.OutputFormat != "" && !slices.Contains(outputModes, c.OutputFormat) {
		return fmt.Errorf("invalid output %q (want one of %s)", c.OutputFormat, strings.Join(outputModes, ", "))
	}
	if c.LogLevel != "" {
		if _, err := parseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.MaxRecursion < 0 {
		return fmt.Errorf("max_recursion must not be negative")
	}
	return ValidateVerify(c.Verify)
}

// ValidateVerify checks the reference backend configuration. A nil
// configuration disables verification.
func ValidateVerify(v *adapter.Config) error {
	if v == nil {
		return nil
	}
	if v.Type == "" {
		return fmt.Errorf("verify.type is required when a verify section is present")
	}
	if _, ok := adapter.Get(v.Type); !ok {
		return &adapter.UnknownAdapterError{Type: v.Type, Available: adapter.ListAdapters()}
	}
	return nil
}
