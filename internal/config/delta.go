package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/lapdelta/internal/delta"
	"github.com/banshee-data/lapdelta/internal/units"
)

// DefaultConfigPath is the path to the canonical engine defaults file.
const DefaultConfigPath = "config/lapdelta.defaults.json"

// DeltaConfig is the on-disk engine configuration. Every field is optional;
// the Get* accessors fall back to the engine defaults.
type DeltaConfig struct {
	// Alignment
	NumWindows *int     `json:"num_windows,omitempty"`
	OffsetMin  *float64 `json:"offset_min_m,omitempty"`
	OffsetMax  *float64 `json:"offset_max_m,omitempty"`
	OffsetStep *float64 `json:"offset_step_m,omitempty"`
	Workers    *int     `json:"workers,omitempty"`

	// Grid and integration
	GridStep    *float64 `json:"grid_step_m,omitempty"`
	Integration *string  `json:"integration,omitempty"` // "time" or "speed"

	// Input
	SpeedUnits *string `json:"speed_units,omitempty"` // units of CSV speed columns
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyDeltaConfig returns a DeltaConfig with all fields set to nil.
func EmptyDeltaConfig() *DeltaConfig {
	return &DeltaConfig{}
}

// DefaultDeltaConfig returns a DeltaConfig with every field populated from
// the engine defaults.
func DefaultDeltaConfig() *DeltaConfig {
	d := delta.DefaultConfig()
	return &DeltaConfig{
		NumWindows:  ptrInt(d.NumWindows),
		OffsetMin:   ptrFloat64(d.OffsetMin),
		OffsetMax:   ptrFloat64(d.OffsetMax),
		OffsetStep:  ptrFloat64(d.OffsetStep),
		Workers:     ptrInt(d.Workers),
		GridStep:    ptrFloat64(d.GridStep),
		Integration: ptrString(string(d.Integration)),
		SpeedUnits:  ptrString(units.MPS),
	}
}

// LoadDeltaConfig loads a DeltaConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadDeltaConfig(path string) (*DeltaConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
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

	cfg := EmptyDeltaConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration. Engine-level rules are delegated to
// delta.Config.Validate so the file and the engine agree.
func (c *DeltaConfig) Validate() error {
	if c.SpeedUnits != nil && !units.IsValid(units.Normalize(*c.SpeedUnits)) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}
	return c.EngineConfig().Validate()
}

// EngineConfig resolves the file into engine options.
func (c *DeltaConfig) EngineConfig() delta.Config {
	return delta.Config{
		NumWindows:  c.GetNumWindows(),
		OffsetMin:   c.GetOffsetMin(),
		OffsetMax:   c.GetOffsetMax(),
		OffsetStep:  c.GetOffsetStep(),
		GridStep:    c.GetGridStep(),
		Workers:     c.GetWorkers(),
		Integration: delta.IntegrationMethod(c.GetIntegration()),
	}
}

// ApplyOffsetRange overrides the offset search from a "min:max:step" spec.
func (c *DeltaConfig) ApplyOffsetRange(spec string) error {
	r, err := ParseRangeSpec(spec)
	if err != nil {
		return fmt.Errorf("offset range: %w", err)
	}
	c.OffsetMin, c.OffsetMax, c.OffsetStep = ptrFloat64(r.Min), ptrFloat64(r.Max), ptrFloat64(r.Step)
	return nil
}

// GetNumWindows returns the num_windows value or the default.
func (c *DeltaConfig) GetNumWindows() int {
	if c.NumWindows == nil {
		return 4
	}
	return *c.NumWindows
}

// GetOffsetMin returns the offset_min_m value or the default.
func (c *DeltaConfig) GetOffsetMin() float64 {
	if c.OffsetMin == nil {
		return -15
	}
	return *c.OffsetMin
}

// GetOffsetMax returns the offset_max_m value or the default.
func (c *DeltaConfig) GetOffsetMax() float64 {
	if c.OffsetMax == nil {
		return 15
	}
	return *c.OffsetMax
}

// GetOffsetStep returns the offset_step_m value or the default.
func (c *DeltaConfig) GetOffsetStep() float64 {
	if c.OffsetStep == nil {
		return 0.5
	}
	return *c.OffsetStep
}

// GetWorkers returns the workers value or 0 (one per CPU).
func (c *DeltaConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetGridStep returns the grid_step_m value or the default.
func (c *DeltaConfig) GetGridStep() float64 {
	if c.GridStep == nil {
		return 5
	}
	return *c.GridStep
}

// GetIntegration returns the integration value or the default.
func (c *DeltaConfig) GetIntegration() string {
	if c.Integration == nil || *c.Integration == "" {
		return string(delta.IntegrateTime)
	}
	return *c.Integration
}

// GetSpeedUnits returns the normalised speed_units value or the default.
func (c *DeltaConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil || *c.SpeedUnits == "" {
		return units.MPS
	}
	return units.Normalize(*c.SpeedUnits)
}
