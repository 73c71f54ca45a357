// Package dist provides the distributions selection coefficients are drawn from.
package dist

import (
	"fmt"
	"math"
)

// DefaultDominance is the dominance coefficient used when none is configured.
const DefaultDominance = 0.5

// GammaSource draws gamma variates. *sim.Stream satisfies it.
type GammaSource interface {
	Gamma(shape, scale float64) float64
}

// CoefficientSampler generates (s, h) selection coefficient pairs.
type CoefficientSampler interface {
	// Sample returns a selection coefficient s and a dominance coefficient h.
	Sample(rng GammaSource) (s, h float64)
}

// DistSpec parameterizes a selection coefficient distribution.
type DistSpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// ConstantSampler always returns the same pair and consumes no draws.
type ConstantSampler struct {
	s, h float64
}

func (c *ConstantSampler) Sample(_ GammaSource) (float64, float64) {
	return c.s, c.h
}

// GammaSampler draws s from Gamma(shape, scale) with a fixed h.
type GammaSampler struct {
	shape, scale float64
	h            float64
}

func (g *GammaSampler) Sample(rng GammaSource) (float64, float64) {
	return rng.Gamma(g.shape, g.scale), g.h
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

// dominance returns params["h"], or DefaultDominance when absent.
func dominance(params map[string]float64) float64 {
	if h, ok := params["h"]; ok {
		return h
	}
	return DefaultDominance
}

// NewCoefficientSampler creates a CoefficientSampler from a DistSpec.
func NewCoefficientSampler(spec DistSpec) (CoefficientSampler, error) {
	for k, v := range spec.Params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("distribution parameter %q is not finite", k)
		}
	}
	switch spec.Type {
	case "constant":
		if err := requireParam(spec.Params, "s"); err != nil {
			return nil, err
		}
		return &ConstantSampler{s: spec.Params["s"], h: dominance(spec.Params)}, nil

	case "gamma":
		if err := requireParam(spec.Params, "shape", "scale"); err != nil {
			return nil, err
		}
		shape, scale := spec.Params["shape"], spec.Params["scale"]
		if shape <= 0 || scale <= 0 {
			return nil, fmt.Errorf("gamma distribution requires positive shape and scale, got %v and %v", shape, scale)
		}
		return &GammaSampler{shape: shape, scale: scale, h: dominance(spec.Params)}, nil

	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}
