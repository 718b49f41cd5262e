package core

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMaxReflections is the image-method depth used when the
// configured value is out of range.
const DefaultMaxReflections = 3

// maxReflectionsLimit caps the image-method recursion depth. Values
// above it fall back to the default.
const maxReflectionsLimit = 99

// SimulationConfig gathers the process-wide simulation parameters. The
// configuration is read-only during a run.
type SimulationConfig struct {
	// MaxReflections caps the image-method recursion depth.
	MaxReflections int

	// NLOSReflectionsEnabled computes reflections even when the direct
	// line between transmitter and receiver is blocked.
	NLOSReflectionsEnabled bool

	// RelativePermittivity is the wall material ε_r.
	RelativePermittivity float64

	// SimulationHeight is the TX/RX height above ground in metres. It
	// only affects the ground bounce.
	SimulationHeight float64

	// Bandwidth, Temperature and NoiseFigure fix the receiver noise
	// floor: 10·log10(k_B·T·B / 1 mW) + NF.
	Bandwidth   float64 // Hz
	Temperature float64 // K
	NoiseFigure float64 // dB

	// TargetSNR is the coverage threshold in dB.
	TargetSNR float64

	// MinValidRadius is the distance below which a receiver is in the
	// transmitter's near field and out of the model, in metres.
	MinValidRadius float64

	// PruningRadius is the TX-RX distance beyond which no path is
	// computed, in metres. +Inf disables pruning.
	PruningRadius float64

	// Workers bounds the orchestrator pool. Zero means one worker per
	// hardware thread.
	Workers int
}

// DefaultConfig returns the documented parameter defaults.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		MaxReflections:         DefaultMaxReflections,
		NLOSReflectionsEnabled: false,
		RelativePermittivity:   5.0,
		SimulationHeight:       2.0,
		Bandwidth:              200e6,
		Temperature:            293.15,
		NoiseFigure:            10,
		TargetSNR:              2,
		MinValidRadius:         10,
		PruningRadius:          math.Inf(1),
	}
}

// SetMaxReflections clamps out-of-range depths back to the default, the
// way the editor dialog does.
func (c *SimulationConfig) SetMaxReflections(n int) {
	if n < 0 || n > maxReflectionsLimit {
		n = DefaultMaxReflections
	}
	c.MaxReflections = n
}

// Validate rejects configurations the engine must refuse to run with.
func (c SimulationConfig) Validate() error {
	var errs []error

	if c.MaxReflections < 0 || c.MaxReflections > maxReflectionsLimit {
		errs = append(errs, fmt.Errorf("max reflections %d outside [0, %d]", c.MaxReflections, maxReflectionsLimit))
	}
	if c.RelativePermittivity <= 1 {
		errs = append(errs, fmt.Errorf("relative permittivity %g must be > 1", c.RelativePermittivity))
	}
	if c.SimulationHeight <= 0 {
		errs = append(errs, fmt.Errorf("simulation height %g must be positive", c.SimulationHeight))
	}
	if c.Bandwidth <= 0 {
		errs = append(errs, fmt.Errorf("bandwidth %g must be positive", c.Bandwidth))
	}
	if c.Temperature <= 0 {
		errs = append(errs, fmt.Errorf("temperature %g must be positive", c.Temperature))
	}
	if math.IsNaN(c.TargetSNR) || math.Abs(c.TargetSNR) > 200 {
		errs = append(errs, fmt.Errorf("target SNR %g dB is not plausible", c.TargetSNR))
	}
	if c.MinValidRadius < 0 {
		errs = append(errs, fmt.Errorf("minimum valid radius %g must not be negative", c.MinValidRadius))
	}
	if c.PruningRadius <= 0 {
		errs = append(errs, fmt.Errorf("pruning radius %g must be positive", c.PruningRadius))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("worker count %d must not be negative", c.Workers))
	}

	return errors.Join(errs...)
}

// NoiseFloorDBm returns the thermal noise floor in dBm, noise figure
// included.
func (c SimulationConfig) NoiseFloorDBm() float64 {
	return 10*math.Log10(Boltzmann*c.Temperature*c.Bandwidth/0.001) + c.NoiseFigure
}
