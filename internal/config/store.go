package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultProjectExtension = "bproj"
	defaultTempDir          = "temp"
	defaultHeaderLines      = 12
	defaultSpeedOfLight     = 299702547.0 // m/s in air
	defaultPlotWidthInches  = 8.0
	defaultPlotHeightInches = 5.0
)

// StoreConfig holds the tunable settings of the project store and its CLI.
// Fields omitted from a config file fall back to the defaults returned by
// the Get* accessors, so partial files are safe.
type StoreConfig struct {
	// Staging
	ProjectExtension *string `json:"project_extension,omitempty" yaml:"project_extension,omitempty"`
	TempDir          *string `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty"`

	// Ingest
	HeaderLines *int `json:"header_lines,omitempty" yaml:"header_lines,omitempty"`

	// Derived fields
	SpeedOfLight *float64 `json:"speed_of_light,omitempty" yaml:"speed_of_light,omitempty"`

	// Plot export
	PlotWidthInches  *float64 `json:"plot_width_inches,omitempty" yaml:"plot_width_inches,omitempty"`
	PlotHeightInches *float64 `json:"plot_height_inches,omitempty" yaml:"plot_height_inches,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyStoreConfig returns a StoreConfig with all fields set to nil.
func EmptyStoreConfig() *StoreConfig {
	return &StoreConfig{}
}

// DefaultStoreConfig returns a StoreConfig with every field populated.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		ProjectExtension: ptrString(defaultProjectExtension),
		TempDir:          ptrString(defaultTempDir),
		HeaderLines:      ptrInt(defaultHeaderLines),
		SpeedOfLight:     ptrFloat64(defaultSpeedOfLight),
		PlotWidthInches:  ptrFloat64(defaultPlotWidthInches),
		PlotHeightInches: ptrFloat64(defaultPlotHeightInches),
	}
}

// LoadStoreConfig loads a StoreConfig from a .json, .yaml or .yml file no
// larger than 1MB.
func LoadStoreConfig(path string) (*StoreConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyStoreConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *StoreConfig) Validate() error {
	if c.ProjectExtension != nil {
		ext := *c.ProjectExtension
		if ext == "" || strings.ContainsAny(ext, `./\`) {
			return fmt.Errorf("project_extension must be a bare extension without dots or separators, got %q", ext)
		}
	}
	if c.TempDir != nil {
		dir := *c.TempDir
		if dir == "" || dir == "." || dir == ".." || strings.ContainsAny(dir, `/\`) {
			return fmt.Errorf("temp_dir must be a single directory name, got %q", dir)
		}
	}
	if c.HeaderLines != nil && *c.HeaderLines < 0 {
		return fmt.Errorf("header_lines must be non-negative, got %d", *c.HeaderLines)
	}
	if c.SpeedOfLight != nil && !(*c.SpeedOfLight > 0) {
		return fmt.Errorf("speed_of_light must be positive, got %f", *c.SpeedOfLight)
	}
	if c.PlotWidthInches != nil && !(*c.PlotWidthInches > 0) {
		return fmt.Errorf("plot_width_inches must be positive, got %f", *c.PlotWidthInches)
	}
	if c.PlotHeightInches != nil && !(*c.PlotHeightInches > 0) {
		return fmt.Errorf("plot_height_inches must be positive, got %f", *c.PlotHeightInches)
	}
	return nil
}

// GetProjectExtension returns the committed file extension, without a dot.
func (c *StoreConfig) GetProjectExtension() string {
	if c.ProjectExtension == nil || *c.ProjectExtension == "" {
		return defaultProjectExtension
	}
	return *c.ProjectExtension
}

// GetTempDir returns the working-copy directory name under the project location.
func (c *StoreConfig) GetTempDir() string {
	if c.TempDir == nil || *c.TempDir == "" {
		return defaultTempDir
	}
	return *c.TempDir
}

// GetHeaderLines returns the number of header lines skipped by the .DAT reader.
func (c *StoreConfig) GetHeaderLines() int {
	if c.HeaderLines == nil {
		return defaultHeaderLines
	}
	return *c.HeaderLines
}

// GetSpeedOfLight returns c in m/s used for GHz-per-channel.
func (c *StoreConfig) GetSpeedOfLight() float64 {
	if c.SpeedOfLight == nil {
		return defaultSpeedOfLight
	}
	return *c.SpeedOfLight
}

func (c *StoreConfig) GetPlotWidthInches() float64 {
	if c.PlotWidthInches == nil {
		return defaultPlotWidthInches
	}
	return *c.PlotWidthInches
}

func (c *StoreConfig) GetPlotHeightInches() float64 {
	if c.PlotHeightInches == nil {
		return defaultPlotHeightInches
	}
	return *c.PlotHeightInches
}
