// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/flock/geom"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Flock       FlockConfig       `yaml:"flock" json:"flock"`
	Steering    SteeringConfig    `yaml:"steering" json:"steering"`
	Parallel    ParallelConfig    `yaml:"parallel" json:"parallel"`
	Physics     PhysicsConfig     `yaml:"physics" json:"physics"`
	Destination DestinationConfig `yaml:"destination" json:"destination"`
	Camera      CameraConfig      `yaml:"camera" json:"camera"`
	Render      RenderConfig      `yaml:"render" json:"render"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" json:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-" json:"-"`
}

// Vec3 is a YAML-friendly 3D vector.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// V returns v as a float32 geometry vector.
func (v Vec3) V() geom.Vec3 {
	return geom.V3(float32(v.X), float32(v.Y), float32(v.Z))
}

// FlockConfig holds spawn parameters.
type FlockConfig struct {
	Count       int     `yaml:"count" json:"count"`
	Seed        int64   `yaml:"seed" json:"seed"`             // spawn RNG seed (0 = time-based)
	NoiseSeed   int64   `yaml:"noise_seed" json:"noise_seed"` // speed-jitter noise field seed
	SpawnCenter Vec3    `yaml:"spawn_center" json:"spawn_center"`
	SpawnRadius float64 `yaml:"spawn_radius" json:"spawn_radius"`
}

// SteeringConfig holds the steering weights and limits.
type SteeringConfig struct {
	SeparationWeight float64 `yaml:"separation_weight" json:"separation_weight"`
	AlignmentWeight  float64 `yaml:"alignment_weight" json:"alignment_weight"`
	CohesionWeight   float64 `yaml:"cohesion_weight" json:"cohesion_weight"`
	TendencyWeight   float64 `yaml:"tendency_weight" json:"tendency_weight"` // pull towards the destination
	NoiseWeight      float64 `yaml:"noise_weight" json:"noise_weight"`       // speed jitter amplitude
	MaxSpeed         float64 `yaml:"max_speed" json:"max_speed"`
	RotationSpeed    float64 `yaml:"rotation_speed" json:"rotation_speed"`
	SeparationRadius float64 `yaml:"separation_radius" json:"separation_radius"`
}

// ParallelConfig holds worker pool settings.
type ParallelConfig struct {
	Workers   int `yaml:"workers" json:"workers"`       // 0 = GOMAXPROCS
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"` // agents per kernel task
	Threshold int `yaml:"threshold" json:"threshold"`   // below this the step runs single-threaded
}

// PhysicsConfig holds the fixed step.
type PhysicsConfig struct {
	DT float64 `yaml:"dt" json:"dt"`
}

// DestinationConfig describes the orbit of the shared goal point.
type DestinationConfig struct {
	Center          Vec3    `yaml:"center" json:"center"`
	Radius          float64 `yaml:"radius" json:"radius"`
	AngularSpeed    float64 `yaml:"angular_speed" json:"angular_speed"`       // radians per second
	HeightAmplitude float64 `yaml:"height_amplitude" json:"height_amplitude"` // vertical bob
}

// CameraConfig holds follow camera settings.
type CameraConfig struct {
	Offset    Vec3    `yaml:"offset" json:"offset"`
	Smoothing float64 `yaml:"smoothing" json:"smoothing"` // approach rate per second
}

// RenderConfig selects the publishing backend.
type RenderConfig struct {
	Backend       string `yaml:"backend" json:"backend"`               // matrices, packed or entities
	InstanceBatch int    `yaml:"instance_batch" json:"instance_batch"` // max instances per instanced draw
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window" json:"stats_window"` // seconds
	PerfWindow  int     `yaml:"perf_window" json:"perf_window"`   // ticks
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32              float32   // Physics.DT as float32
	SpawnCenter       geom.Vec3 // Flock.SpawnCenter as float32
	DestinationCenter geom.Vec3 // Destination.Center as float32
	CameraOffset      geom.Vec3 // Camera.Offset as float32
	StatsWindowTicks  int       // Telemetry.StatsWindow in ticks
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns the embedded default configuration.
func Defaults() *Config {
	cfg, err := parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return parse(data)
}

// Parse merges YAML data over the embedded defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Unmarshal into same struct - only overwrites fields present in data
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.SpawnCenter = c.Flock.SpawnCenter.V()
	c.Derived.DestinationCenter = c.Destination.Center.V()
	c.Derived.CameraOffset = c.Camera.Offset.V()

	ticks := int(c.Telemetry.StatsWindow/c.Physics.DT + 0.5)
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.StatsWindowTicks = ticks
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
