package building

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the pipeline configuration. Lengths are in meters unless noted.
type Config struct {
	Units    UnitsConfig    `yaml:"units" json:"units"`
	Levels   LevelsConfig   `yaml:"levels" json:"levels"`
	Walls    WallsConfig    `yaml:"walls" json:"walls"`
	Floors   FloorsConfig   `yaml:"floors" json:"floors"`
	Openings OpeningsConfig `yaml:"openings" json:"openings"`
	Catalog  []ElementType  `yaml:"catalog,omitempty" json:"catalog,omitempty"`
	MQTT     MQTTConfig     `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
}

// UnitsConfig selects the document's internal length unit.
type UnitsConfig struct {
	Internal string `yaml:"internal" json:"internal"`
}

// LevelsConfig controls level naming and how elements bind to levels.
type LevelsConfig struct {
	NamePattern string `yaml:"namePattern" json:"namePattern"`
	// LegacyNameLookup binds floor i to the level named NamePattern(i)
	// instead of the level created from floor i.
	LegacyNameLookup bool `yaml:"legacyNameLookup" json:"legacyNameLookup"`
}

type WallsConfig struct {
	TypeName     string  `yaml:"typeName" json:"typeName"`
	Height       float64 `yaml:"height" json:"height"`
	KeyReference int     `yaml:"keyReference" json:"keyReference"`
	Structural   bool    `yaml:"structural" json:"structural"`
}

type FloorsConfig struct {
	BoundaryOffset float64 `yaml:"boundaryOffset" json:"boundaryOffset"`
}

type OpeningsConfig struct {
	// HostOffset is applied in internal units, unconverted.
	HostOffset float64 `yaml:"hostOffset" json:"hostOffset"`
}

// MQTTConfig configures the report publisher.
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Units:    UnitsConfig{Internal: UnitFeet},
		Levels:   LevelsConfig{NamePattern: "Level %d"},
		Walls:    WallsConfig{TypeName: "Wall 200mm", Height: 2.7, KeyReference: 2},
		Floors:   FloorsConfig{BoundaryOffset: 0.1},
		Openings: OpeningsConfig{HostOffset: 0.5},
		Catalog:  DefaultCatalog(),
		MQTT:     MQTTConfig{PublishPrefix: "mind-to-model", ClientID: "mind-to-model"},
	}
}

// DefaultCatalog is the set of element types a fresh document starts with.
// The column family ships inactive, as a freshly loaded family would.
func DefaultCatalog() []ElementType {
	return []ElementType{
		{Name: "Generic - 200mm", Category: CategoryWallType},
		{Name: "Wall 200mm", Category: CategoryWallType},
		{Name: "Generic 300mm", Category: CategoryFloorType},
		{Name: "Concrete-Rectangular-Column 300x300", Category: CategoryStructuralColumn},
		{Name: "W-Wide Flange W12x26", Category: CategoryStructuralFrame, Active: true},
		{Name: "Fixed 0915x1220", Category: CategoryWindow, Active: true},
		{Name: "Single-Flush 0915x2134", Category: CategoryDoor, Active: true},
	}
}

// LoadConfig loads a YAML configuration over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if _, err := NewUnitConverter(c.Units.Internal); err != nil {
		return fmt.Errorf("units.internal: %w", err)
	}
	if c.Levels.NamePattern == "" {
		return fmt.Errorf("levels.namePattern is required")
	}
	if c.Walls.Height <= 0 {
		return fmt.Errorf("walls.height must be positive, got %g", c.Walls.Height)
	}
	if c.Floors.BoundaryOffset < 0 {
		return fmt.Errorf("floors.boundaryOffset must not be negative, got %g", c.Floors.BoundaryOffset)
	}
	for i, t := range c.Catalog {
		if t.Name == "" {
			return fmt.Errorf("catalog[%d].name is required", i)
		}
		switch t.Category {
		case CategoryWallType, CategoryFloorType, CategoryStructuralColumn,
			CategoryStructuralFrame, CategoryWindow, CategoryDoor:
		default:
			return fmt.Errorf("catalog[%d].category %q is not a known category", i, t.Category)
		}
	}
	return nil
}

// LevelName formats the name of the level created for the n-th floor (1-based).
func (c *Config) LevelName(n int) string {
	return fmt.Sprintf(c.Levels.NamePattern, n)
}

// Converter returns the unit converter for the configured internal unit.
func (c *Config) Converter() (UnitConverter, error) {
	return NewUnitConverter(c.Units.Internal)
}
