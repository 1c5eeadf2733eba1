package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "minimap-render.yaml"

// DefaultPlatform is the program table key used when the running
// platform has no entry of its own.
const DefaultPlatform = "default"

// Config holds all minimap-render configuration.
type Config struct {
	// ProjectRootName is the required name of the working directory's parent.
	ProjectRootName string `yaml:"project_root_name"`

	// Directory layout relative to the project root
	Layout LayoutConfig `yaml:"layout"`

	// Rendering parameters
	Render RenderConfig `yaml:"render"`

	// External program names keyed by platform (runtime.GOOS or "default")
	Programs map[string]ProgramsConfig `yaml:"programs"`

	// Subprocess settings
	Execution ExecutionConfig `yaml:"execution"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LayoutConfig locates maps and minimaps inside the project root.
type LayoutConfig struct {
	MapsDir     string `yaml:"maps_dir"`
	MinimapsDir string `yaml:"minimaps_dir"`
}

// RenderConfig configures the rendering pipeline.
type RenderConfig struct {
	// Scale is output pixels per map unit (1/32 renders 1px per 32px tile).
	Scale float64 `yaml:"scale"`

	// EdgeThresholdPercent is the threshold applied to the edge map.
	EdgeThresholdPercent float64 `yaml:"edge_threshold_percent"`

	// DissolvePercent is the opacity of the edge map in the final composite.
	DissolvePercent float64 `yaml:"dissolve_percent"`

	// TempDir holds intermediate images. Empty means os.TempDir().
	TempDir string `yaml:"temp_dir"`
}

// ProgramsConfig names the external executables for one platform.
type ProgramsConfig struct {
	Rasterizer string `yaml:"rasterizer"`
	Convert    string `yaml:"convert"`
}

// ExecutionConfig configures the tactile executor.
type ExecutionConfig struct {
	// Timeout per subprocess; "0" or empty disables it.
	Timeout string `yaml:"timeout"`

	// Restricts the environment passed to the external programs.
	// Empty passes the whole environment through.
	AllowedEnvVars []string `yaml:"allowed_env_vars,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ProjectRootName: "client-data",

		Layout: LayoutConfig{
			MapsDir:     "maps",
			MinimapsDir: filepath.Join("graphics", "minimaps"),
		},

		Render: RenderConfig{
			Scale:                0.03125,
			EdgeThresholdPercent: 2.8,
			DissolvePercent:      35,
		},

		Programs: map[string]ProgramsConfig{
			DefaultPlatform: {
				Rasterizer: "tmxrasterizer",
				Convert:    "convert",
			},
			"windows": {
				Rasterizer: "tmxrasterizer.exe",
				Convert:    "convert.exe",
			},
		},

		Execution: ExecutionConfig{
			Timeout: "0",
		},

		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if config file doesn't exist
	} else {
		// yaml.v3 replaces whole map values, so program entries are
		// decoded on their own and merged field by field.
		defaults := cfg.Programs
		cfg.Programs = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.Programs = mergePrograms(defaults, cfg.Programs)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// mergePrograms overlays the non-empty fields of each file entry onto the
// default entry of the same platform.
func mergePrograms(defaults, file map[string]ProgramsConfig) map[string]ProgramsConfig {
	merged := make(map[string]ProgramsConfig, len(defaults)+len(file))
	for key, p := range defaults {
		merged[key] = p
	}
	for key, p := range file {
		base := merged[key]
		if p.Rasterizer != "" {
			base.Rasterizer = p.Rasterizer
		}
		if p.Convert != "" {
			base.Convert = p.Convert
		}
		merged[key] = base
	}
	return merged
}

// applyEnvOverrides applies environment variable overrides.
// Program overrides land on the entry the running platform resolves to.
func (c *Config) applyEnvOverrides() {
	rasterizer := os.Getenv("MINIMAP_RASTERIZER")
	convert := os.Getenv("MINIMAP_CONVERT")
	if rasterizer != "" || convert != "" {
		key := c.PlatformKey(runtime.GOOS)
		if c.Programs == nil {
			c.Programs = make(map[string]ProgramsConfig)
		}
		p := c.Programs[key]
		if rasterizer != "" {
			p.Rasterizer = rasterizer
		}
		if convert != "" {
			p.Convert = convert
		}
		c.Programs[key] = p
	}

	if dir := os.Getenv("MINIMAP_TEMP_DIR"); dir != "" {
		c.Render.TempDir = dir
	}
	if level := os.Getenv("MINIMAP_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// PlatformKey returns goos if the program table has an entry for it,
// otherwise DefaultPlatform.
func (c *Config) PlatformKey(goos string) string {
	if _, ok := c.Programs[goos]; ok {
		return goos
	}
	return DefaultPlatform
}

// ProgramsFor returns the program names for goos, filling blanks from the
// default entry.
func (c *Config) ProgramsFor(goos string) ProgramsConfig {
	p := c.Programs[c.PlatformKey(goos)]
	def := c.Programs[DefaultPlatform]
	if p.Rasterizer == "" {
		p.Rasterizer = def.Rasterizer
	}
	if p.Convert == "" {
		p.Convert = def.Convert
	}
	return p
}

// GetTimeout returns the subprocess timeout; zero means none.
func (c *Config) GetTimeout() time.Duration {
	if c.Execution.Timeout == "" || c.Execution.Timeout == "0" {
		return 0
	}
	d, err := time.ParseDuration(c.Execution.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ProjectRootName == "" {
		return fmt.Errorf("project_root_name must not be empty")
	}
	if c.Layout.MapsDir == "" || c.Layout.MinimapsDir == "" {
		return fmt.Errorf("layout.maps_dir and layout.minimaps_dir are required")
	}
	if c.Render.Scale <= 0 {
		return fmt.Errorf("render.scale must be positive, got %v", c.Render.Scale)
	}
	if c.Render.EdgeThresholdPercent < 0 || c.Render.EdgeThresholdPercent > 100 {
		return fmt.Errorf("render.edge_threshold_percent out of range: %v", c.Render.EdgeThresholdPercent)
	}
	if c.Render.DissolvePercent < 0 || c.Render.DissolvePercent > 100 {
		return fmt.Errorf("render.dissolve_percent out of range: %v", c.Render.DissolvePercent)
	}
	def, ok := c.Programs[DefaultPlatform]
	if !ok || def.Rasterizer == "" || def.Convert == "" {
		return fmt.Errorf("programs.%s must name both rasterizer and convert", DefaultPlatform)
	}
	if c.Execution.Timeout != "" && c.Execution.Timeout != "0" {
		if _, err := time.ParseDuration(c.Execution.Timeout); err != nil {
			return fmt.Errorf("invalid execution.timeout %q: %w", c.Execution.Timeout, err)
		}
	}
	return nil
}
