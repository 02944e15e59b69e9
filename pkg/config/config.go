package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the optional config file looked up in the working directory
const DefaultFile = "vitals-analyzer.toml"

// Config holds all configuration for the application
type Config struct {
	Findings          string `koanf:"findings"` // File or directory of agent outputs
	Metrics           string `koanf:"metrics"`  // Metric values file
	Format            string `koanf:"format"`   // markdown, console, json, suggestions
	Output            string `koanf:"output"`   // Report file; empty means stdout
	SkipDedup         bool   `koanf:"skip-dedup"`
	MaxPathExpansions int    `koanf:"max-path-expansions"`
	Watch             bool   `koanf:"watch"`
	WebMode           bool   `koanf:"web"`
	Port              int    `koanf:"port"`
	Verbosity         string `koanf:"verbosity"`
	VerboseCnt        int    `koanf:"verbose"`
	JSONLogs          bool   `koanf:"json-logs"`
}

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"findings":            "findings",
		"metrics":             "",
		"format":              "markdown",
		"output":              "",
		"skip-dedup":          false,
		"max-path-expansions": 100000,
		"watch":               false,
		"web":                 false,
		"port":                8080,
		"verbosity":           "",
		"verbose":             0,
		"json-logs":           false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(DefaultFile, f)
}

// LoadFile is Load with an explicit config file path
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// We ignore errors here as the file might not exist
	if path != "" {
		_ = k.Load(file.Provider(path), toml.Parser())
	}

	// 3. Environment Variables
	// Prefix: VITALS_ANALYZER_ (e.g., VITALS_ANALYZER_PORT=9090, VITALS_ANALYZER_SKIP_DEDUP=true)
	if err := k.Load(env.Provider("VITALS_ANALYZER_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "VITALS_ANALYZER_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks option combinations that cannot work together
func (c *Config) Validate() error {
	switch c.Format {
	case "markdown", "md", "console", "json", "suggestions":
	default:
		return fmt.Errorf("invalid format %q (want markdown, console, json or suggestions)", c.Format)
	}
	if c.WebMode && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if !c.WebMode && c.Findings == "" {
		return fmt.Errorf("findings path is required")
	}
	if c.MaxPathExpansions < 0 {
		return fmt.Errorf("max-path-expansions must not be negative")
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
