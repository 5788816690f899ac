// Package config loads docgraph settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"docgraph/internal/annotation"
	"docgraph/internal/cache"
	"docgraph/internal/graph"
	"docgraph/internal/imports"
	"docgraph/internal/logging"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "docgraph.yaml"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

var kindNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Config is the complete set of options.
type Config struct {
	Workers     int               `yaml:"workers"`
	AutoImports bool              `yaml:"auto_imports"`
	Resolvers   []string          `yaml:"resolvers"`
	Ignore      []string          `yaml:"ignore"`
	Include     []string          `yaml:"include"`
	Cache       CacheConfig       `yaml:"cache"`
	Output      OutputConfig      `yaml:"output"`
	EdgeKinds   []EdgeKindConfig  `yaml:"edge_kinds"`
	Styles      map[string]string `yaml:"styles"`
	Log         LogConfig         `yaml:"log"`
}

// CacheConfig controls the parse cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// OutputConfig controls the written document.
type OutputConfig struct {
	Indent   int `yaml:"indent"`
	NodeSize int `yaml:"node_size"`
	EdgeSize int `yaml:"edge_size"`
}

// EdgeKindConfig declares an extra annotation kind and its edge style.
type EdgeKindConfig struct {
	Name  string `yaml:"name"`
	Style string `yaml:"style"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workers:     runtime.NumCPU(),
		AutoImports: true,
		Resolvers:   imports.BuiltinNames(),
		Cache: CacheConfig{
			Dir: cache.DefaultDir,
		},
		Output: OutputConfig{
			Indent:   4,
			NodeSize: 10,
			EdgeSize: 3,
		},
		Styles: map[string]string{},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Parse reads YAML from r over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Styles == nil {
		cfg.Styles = map[string]string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault reads path if it exists and returns Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks every option, wrapping failures in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return invalid("workers must be positive, got %d", c.Workers)
	}

	for _, name := range c.Resolvers {
		if _, err := imports.Builtin(name); err != nil {
			return invalid("resolvers: %v", err)
		}
	}

	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) == "" {
		return invalid("cache.dir is required when the cache is enabled")
	}

	if c.Output.Indent < 0 {
		return invalid("output.indent must not be negative")
	}
	if c.Output.NodeSize < 0 || c.Output.EdgeSize < 0 {
		return invalid("output sizes must not be negative")
	}

	if err := c.validateKinds(); err != nil {
		return err
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	if !logging.ValidFormat(c.Log.Format) {
		return invalid("log.format: unknown format %q", c.Log.Format)
	}

	return nil
}

// validateKinds checks extra kinds and styles. Tags match singular and
// plural forms case-insensitively, so kinds are compared on that basis.
func (c *Config) validateKinds() error {
	taken := map[string]string{
		tagStem("name"): "name",
		tagStem("note"): "note",
	}
	for _, k := range graph.BuiltinKinds {
		taken[tagStem(string(k))] = string(k)
	}

	for i, k := range c.EdgeKinds {
		if !kindNamePattern.MatchString(k.Name) {
			return invalid("edge_kinds[%d]: invalid name %q", i, k.Name)
		}
		if other, ok := taken[tagStem(k.Name)]; ok {
			return invalid("edge_kinds[%d]: %q collides with %q", i, k.Name, other)
		}
		taken[tagStem(k.Name)] = k.Name
	}

	known := make(map[string]bool)
	for _, k := range graph.BuiltinKinds {
		known[string(k)] = true
	}
	for _, k := range c.EdgeKinds {
		known[k.Name] = true
	}

	styles := c.StyleOverrides()
	for kind, style := range c.Styles {
		if !known[kind] {
			return invalid("styles: unknown edge kind %q", kind)
		}
		if strings.TrimSpace(style) == "" {
			return invalid("styles: empty style for %q", kind)
		}
	}
	for _, k := range c.EdgeKinds {
		if strings.TrimSpace(styles[graph.EdgeKind(k.Name)]) == "" {
			return invalid("edge kind %q has no style", k.Name)
		}
	}
	return nil
}

func tagStem(s string) string {
	return annotation.TagStem(graph.EdgeKind(s))
}

// ExtraKinds returns the configured annotation kinds beyond the built-ins.
func (c *Config) ExtraKinds() []graph.EdgeKind {
	kinds := make([]graph.EdgeKind, 0, len(c.EdgeKinds))
	for _, k := range c.EdgeKinds {
		kinds = append(kinds, graph.EdgeKind(k.Name))
	}
	return kinds
}

// StyleOverrides merges extra kind styles with the styles map; the styles
// map wins when both name a kind.
func (c *Config) StyleOverrides() map[graph.EdgeKind]string {
	out := make(map[graph.EdgeKind]string, len(c.EdgeKinds)+len(c.Styles))
	for _, k := range c.EdgeKinds {
		if k.Style != "" {
			out[graph.EdgeKind(k.Name)] = k.Style
		}
	}
	for kind, style := range c.Styles {
		out[graph.EdgeKind(kind)] = style
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
