package main

import (
	"github.com/pthm-cable/flock/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the steering parameter set. max_speed stays
// fixed so runs stay comparable.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "separation_weight", Path: "steering.separation_weight", Min: 0, Max: 4, Default: 1},
			{Name: "alignment_weight", Path: "steering.alignment_weight", Min: 0, Max: 4, Default: 1},
			{Name: "cohesion_weight", Path: "steering.cohesion_weight", Min: 0, Max: 4, Default: 1},
			{Name: "tendency_weight", Path: "steering.tendency_weight", Min: 0, Max: 4, Default: 1},
			{Name: "noise_weight", Path: "steering.noise_weight", Min: 0, Max: 1, Default: 0.5},
			{Name: "rotation_speed", Path: "steering.rotation_speed", Min: 0.5, Max: 10, Default: 4},
			{Name: "separation_radius", Path: "steering.separation_radius", Min: 0.5, Max: 10, Default: 3},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// fields returns pointers to the config values in Specs order.
func fields(cfg *config.Config) []*float64 {
	s := &cfg.Steering
	return []*float64{
		&s.SeparationWeight,
		&s.AlignmentWeight,
		&s.CohesionWeight,
		&s.TendencyWeight,
		&s.NoiseWeight,
		&s.RotationSpeed,
		&s.SeparationRadius,
	}
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	for i, p := range fields(cfg) {
		*p = clamped[i]
	}
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	fs := fields(cfg)
	out := make([]float64, len(fs))
	for i, p := range fs {
		out[i] = *p
	}
	return out
}
