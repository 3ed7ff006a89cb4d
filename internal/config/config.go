package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/internal/logging"
	"github.com/systmms/secretctl/internal/term"
)

// DefaultPath is where secretctl looks for its configuration file when
// --config is not given.
const DefaultPath = "secretctl.yaml"

// CurrentVersion is the configuration format version this build understands.
const CurrentVersion = 1

// Config holds the runtime configuration for secretctl commands.
type Config struct {
	// Path to the configuration file
	Path string

	// Logger for output
	Logger *logging.Logger

	// NonInteractive disables prompts
	NonInteractive bool

	// NoColor disables ANSI colors on command output
	NoColor bool

	// StoreOverride is the value of the global --store flag
	StoreOverride string

	// Printer overrides the console printer in tests
	Printer term.Printer

	// Definition is the parsed configuration
	Definition Definition
}

// Definition is the parsed secretctl.yaml document.
type Definition struct {
	Version  int                    `yaml:"version"`
	Defaults Defaults               `yaml:"defaults,omitempty"`
	Metrics  MetricsConfig          `yaml:"metrics,omitempty"`
	Stores   map[string]StoreConfig `yaml:"stores"`
}

// Defaults supplies values for flags the user did not pass.
type Defaults struct {
	Store     string `yaml:"store,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

// MetricsConfig controls the optional Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

// StoreConfig configures one named secret store entry. Keys other than
// type and timeout_ms are backend-specific and collected into Config.
type StoreConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"` // Timeout in milliseconds (default: 30000)
	Config    map[string]interface{} `yaml:",inline"`
}

// Load reads and validates the configuration file at c.Path.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.ConfigError{
				Field:      "config",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Run 'secretctl init' to create a new configuration file",
			}
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.ConfigError{
			Field:      "config",
			Value:      c.Path,
			Message:    fmt.Sprintf("invalid YAML: %v", err),
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if err := validateDefinition(raw); err != nil {
		return errors.ConfigError{
			Field:      "config",
			Value:      c.Path,
			Message:    err.Error(),
			Suggestion: "Compare your file against the layout 'secretctl init' generates",
		}
	}

	if err := yaml.Unmarshal(data, &c.Definition); err != nil {
		return errors.ConfigError{
			Field:      "config",
			Value:      c.Path,
			Message:    fmt.Sprintf("invalid configuration: %v", err),
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if c.Definition.Version != CurrentVersion {
		return errors.ConfigError{
			Field:      "version",
			Value:      c.Definition.Version,
			Message:    fmt.Sprintf("unsupported configuration version (this build supports version %d)", CurrentVersion),
			Suggestion: "Update the version field, or upgrade secretctl",
		}
	}

	if name := c.Definition.Defaults.Store; name != "" {
		if _, ok := c.Definition.Stores[name]; !ok {
			return errors.ConfigError{
				Field:      "defaults.store",
				Value:      name,
				Message:    "default store is not defined under stores",
				Suggestion: fmt.Sprintf("Available stores: %s", strings.Join(c.StoreNames(), ", ")),
			}
		}
	}

	return nil
}

// GetStore returns the configuration for a named store entry.
func (c *Config) GetStore(name string) (StoreConfig, error) {
	store, ok := c.Definition.Stores[name]
	if !ok {
		return StoreConfig{}, errors.ConfigError{
			Field:      "stores",
			Value:      name,
			Message:    "store is not defined in the configuration",
			Suggestion: fmt.Sprintf("Available stores: %s", strings.Join(c.StoreNames(), ", ")),
		}
	}
	return store, nil
}

// StoreNames returns the configured store names in sorted order.
func (c *Config) StoreNames() []string {
	names := make([]string, 0, len(c.Definition.Stores))
	for name := range c.Definition.Stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultStore returns the store a command should use when --store is not
// passed. It prefers defaults.store, falls back to the sole configured
// entry, and returns "" when the choice is ambiguous.
func (c *Config) DefaultStore() string {
	if c.Definition.Defaults.Store != "" {
		return c.Definition.Defaults.Store
	}
	if len(c.Definition.Stores) == 1 {
		for name := range c.Definition.Stores {
			return name
		}
	}
	return ""
}

// DefaultNamespace returns defaults.namespace, or "" when unset.
func (c *Config) DefaultNamespace() string {
	return c.Definition.Defaults.Namespace
}

// GetStoreTimeout returns the per-operation timeout for a store entry,
// defaulting to 30 seconds.
func (c *Config) GetStoreTimeout(name string) time.Duration {
	if store, ok := c.Definition.Stores[name]; ok && store.TimeoutMs > 0 {
		return time.Duration(store.TimeoutMs) * time.Millisecond
	}
	return 30 * time.Second
}
