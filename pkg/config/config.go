package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PresetsConfig represents the operational preset configuration
type PresetsConfig struct {
	Version     string   `yaml:"version" json:"version"`
	ConfigID    string   `yaml:"config_id" json:"config_id"`
	LastUpdated string   `yaml:"lastUpdated" json:"lastUpdated"`
	RobotID     string   `yaml:"robot_id" json:"robot_id"`
	Presets     []Preset `yaml:"presets" json:"presets"`
}

// Preset is a named set of target angles. Nil fields leave the joint unchanged.
type Preset struct {
	Name    string   `yaml:"name" json:"name"`
	Motor1  *float64 `yaml:"motor1,omitempty" json:"motor1,omitempty"`
	Motor2  *float64 `yaml:"motor2,omitempty" json:"motor2,omitempty"`
	Motor3  *float64 `yaml:"motor3,omitempty" json:"motor3,omitempty"`
	Gripper *float64 `yaml:"gripper,omitempty" json:"gripper,omitempty"`
}

// Errors wrapped by ParseConfig and Validate so callers can tell bad input
// from I/O failures.
var (
	ErrInvalidYAML = errors.New("invalid YAML format")
	ErrValidation  = errors.New("validation failed")
)

// ReservedActions cannot be used as preset names.
var ReservedActions = []string{"custom", "stop", "position"}

func angle(v float64) *float64 { return &v }

// DefaultPresetsConfig returns the built-in presets used when no presets file exists.
func DefaultPresetsConfig() *PresetsConfig {
	return &PresetsConfig{
		Version:  "1.0",
		ConfigID: "builtin-presets",
		RobotID:  "arm",
		Presets: []Preset{
			{Name: "home", Motor1: angle(0.0), Motor2: angle(0.0), Motor3: angle(0.0), Gripper: angle(0.0)},
			{Name: "up", Motor1: angle(0.0), Motor2: angle(-1.57), Motor3: angle(-1.57), Gripper: angle(0.0)},
			{Name: "down", Motor1: angle(0.0), Motor2: angle(1.57), Motor3: angle(1.57), Gripper: angle(0.0)},
			{Name: "left", Motor1: angle(1.57), Motor2: angle(0.0), Motor3: angle(0.0), Gripper: angle(0.0)},
			{Name: "right", Motor1: angle(-1.57), Motor2: angle(0.0), Motor3: angle(0.0), Gripper: angle(0.0)},
			{Name: "open", Gripper: angle(0.5)},
			{Name: "close", Gripper: angle(0.0)},
		},
	}
}

// LoadConfig loads the presets configuration from the specified file path
func LoadConfig(path string) (*PresetsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// ParseConfig parses and validates presets YAML.
func ParseConfig(data []byte) (*PresetsConfig, error) {
	var cfg PresetsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required metadata and preset names.
// Preset names are lower-cased because actions are matched case-insensitively.
func (c *PresetsConfig) Validate() error {
	if c.ConfigID == "" || c.Version == "" || c.RobotID == "" {
		return fmt.Errorf("%w: missing required fields (ConfigID, Version, RobotID)", ErrValidation)
	}

	seen := make(map[string]bool, len(c.Presets))
	for i := range c.Presets {
		name := strings.ToLower(strings.TrimSpace(c.Presets[i].Name))
		if name == "" {
			return fmt.Errorf("%w: preset #%d has no name", ErrValidation, i)
		}
		for _, reserved := range ReservedActions {
			if name == reserved {
				return fmt.Errorf("%w: preset name '%s' is reserved", ErrValidation, name)
			}
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate preset '%s'", ErrValidation, name)
		}
		seen[name] = true
		c.Presets[i].Name = name
	}
	return nil
}

// GetPreset returns the preset with the given (lower-case) name
func (c *PresetsConfig) GetPreset(name string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetNames returns preset names in file order
func (c *PresetsConfig) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for _, p := range c.Presets {
		names = append(names, p.Name)
	}
	return names
}

// ToYAML renders the config back to YAML.
func (c *PresetsConfig) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
