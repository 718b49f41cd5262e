package core

import "math"

// Emitter is a transmitter: a position, a carrier frequency, an EIRP
// and an antenna. Scene entities; read-only during a run.
type Emitter struct {
	position  Point
	frequency float64
	eirp      float64
	antenna   Antenna
}

// NewEmitter builds an emitter around an existing antenna.
func NewEmitter(frequency, eirp float64, antenna Antenna) *Emitter {
	return &Emitter{
		frequency: frequency,
		eirp:      eirp,
		antenna:   antenna,
	}
}

// NewEmitterWithAntenna builds the antenna of the requested type first.
func NewEmitterWithAntenna(frequency, eirp, efficiency float64, antennaType AntennaType) *Emitter {
	return NewEmitter(frequency, eirp, NewAntenna(antennaType, efficiency))
}

// Clone returns a new emitter with the same RF properties and an
// antenna of the same type. The position is copied too.
func (e *Emitter) Clone() *Emitter {
	c := NewEmitterWithAntenna(e.frequency, e.eirp, e.Efficiency(), e.antenna.Type())
	c.antenna.SetRotation(e.Rotation())
	c.position = e.position
	return c
}

// Position returns the emitter position in metres.
func (e *Emitter) Position() Point { return e.position }

// SetPosition moves the emitter.
func (e *Emitter) SetPosition(p Point) { e.position = p }

// Frequency returns the carrier frequency in Hz.
func (e *Emitter) Frequency() float64 { return e.frequency }

// SetFrequency sets the carrier frequency in Hz.
func (e *Emitter) SetFrequency(f float64) { e.frequency = f }

// EIRP returns the effective isotropic radiated power in watts.
func (e *Emitter) EIRP() float64 { return e.eirp }

// SetEIRP sets the effective isotropic radiated power in watts.
func (e *Emitter) SetEIRP(eirp float64) { e.eirp = eirp }

// Power returns the power fed to the antenna, assuming lossless wiring:
// P = EIRP / G_max.
func (e *Emitter) Power() float64 {
	return e.eirp / MaxGain(e.antenna)
}

// SetPower sets the EIRP from a transmit power: EIRP = P · G_max.
func (e *Emitter) SetPower(p float64) {
	e.eirp = p * MaxGain(e.antenna)
}

// Omega returns the angular frequency ω = 2πf.
func (e *Emitter) Omega() float64 {
	return 2 * math.Pi * e.frequency
}

// Antenna returns the emitter's antenna.
func (e *Emitter) Antenna() Antenna { return e.antenna }

// Efficiency returns the antenna efficiency.
func (e *Emitter) Efficiency() float64 { return e.antenna.Efficiency() }

// Rotation returns the antenna rotation angle in radians.
func (e *Emitter) Rotation() float64 { return e.antenna.Rotation() }

// SetRotation rotates the antenna.
func (e *Emitter) SetRotation(angle float64) { e.antenna.SetRotation(angle) }

// DepartureAngle returns the azimuth of a ray leaving the emitter,
// relative to the antenna rotation. The ray is assumed to point away
// from the emitter.
func (e *Emitter) DepartureAngle(ray Line) float64 {
	return ray.Angle() - e.Rotation()
}

// Gain returns the antenna gain in the scene plane (θ = π/2) toward
// the azimuth phi.
func (e *Emitter) Gain(phi float64) float64 {
	return e.antenna.Gain(math.Pi/2, phi)
}

// Polarization returns the antenna's (parallel, orthogonal)
// polarization components.
func (e *Emitter) Polarization() (complex128, complex128) {
	return e.antenna.Polarization()
}
