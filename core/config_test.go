package core

import (
	"math"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default configuration rejected: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SimulationConfig)
	}{
		{"negative reflections", func(c *SimulationConfig) { c.MaxReflections = -1 }},
		{"permittivity at 1", func(c *SimulationConfig) { c.RelativePermittivity = 1 }},
		{"zero height", func(c *SimulationConfig) { c.SimulationHeight = 0 }},
		{"zero bandwidth", func(c *SimulationConfig) { c.Bandwidth = 0 }},
		{"absurd target SNR", func(c *SimulationConfig) { c.TargetSNR = 1e6 }},
		{"negative min radius", func(c *SimulationConfig) { c.MinValidRadius = -1 }},
		{"zero pruning radius", func(c *SimulationConfig) { c.PruningRadius = 0 }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tc.name)
		}
	}
}

func TestSetMaxReflectionsClamps(t *testing.T) {
	var cfg SimulationConfig

	cfg.SetMaxReflections(5)
	if cfg.MaxReflections != 5 {
		t.Errorf("in-range value rewritten to %d", cfg.MaxReflections)
	}

	cfg.SetMaxReflections(-1)
	if cfg.MaxReflections != DefaultMaxReflections {
		t.Errorf("negative value clamped to %d, want default %d", cfg.MaxReflections, DefaultMaxReflections)
	}

	cfg.SetMaxReflections(100)
	if cfg.MaxReflections != DefaultMaxReflections {
		t.Errorf("oversized value clamped to %d, want default %d", cfg.MaxReflections, DefaultMaxReflections)
	}
}

func TestNoiseFloor(t *testing.T) {
	cfg := DefaultConfig()

	// k_B·T·B at the defaults is about 8.1e-13 W; in dBm that is
	// roughly -90.9, plus the 10 dB noise figure.
	want := 10*math.Log10(Boltzmann*293.15*200e6/0.001) + 10
	if got := cfg.NoiseFloorDBm(); math.Abs(got-want) > 1e-12 {
		t.Errorf("noise floor %g dBm, want %g", got, want)
	}
	if got := cfg.NoiseFloorDBm(); got > -75 || got < -90 {
		t.Errorf("noise floor %g dBm outside the plausible default range", got)
	}
}
