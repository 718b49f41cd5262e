package core

import (
	"math"
	"sync"
)

// Receiver is a measurement point: a position, an antenna and the list
// of ray paths the enumerator produced for it. Appends are serialized
// by a per-receiver mutex so work units on different threads can feed
// the same receiver; the received power is cached lazily and
// invalidated whenever the contribution list changes.
type Receiver struct {
	position Point
	antenna  Antenna

	mu         sync.Mutex
	paths      []*RayPath
	outOfModel bool

	// cachedPower < 0 means not computed yet.
	cachedPower float64
}

// NewReceiver builds a receiver with an antenna of the given type.
func NewReceiver(antennaType AntennaType, efficiency float64) *Receiver {
	return NewReceiverWithAntenna(NewAntenna(antennaType, efficiency))
}

// NewReceiverWithAntenna builds a receiver around an existing antenna.
func NewReceiverWithAntenna(antenna Antenna) *Receiver {
	return &Receiver{
		antenna:     antenna,
		cachedPower: -1,
	}
}

// Clone returns a receiver with the same antenna type, efficiency and
// position, without any computed state.
func (r *Receiver) Clone() *Receiver {
	c := NewReceiver(r.antenna.Type(), r.antenna.Efficiency())
	c.position = r.position
	return c
}

// Position returns the receiver position in metres.
func (r *Receiver) Position() Point { return r.position }

// SetPosition moves the receiver.
func (r *Receiver) SetPosition(p Point) { r.position = p }

// Antenna returns the receiver's antenna.
func (r *Receiver) Antenna() Antenna { return r.antenna }

// Rotation returns the antenna rotation angle in radians.
func (r *Receiver) Rotation() float64 { return r.antenna.Rotation() }

// SetRotation rotates the antenna.
func (r *Receiver) SetRotation(angle float64) { r.antenna.SetRotation(angle) }

// Resistance returns the antenna resistance R_a.
func (r *Receiver) Resistance() float64 { return r.antenna.Resistance() }

// IncidentRayAngle returns the azimuth of an incoming ray relative to
// the antenna rotation. The ray is assumed to point into the receiver.
func (r *Receiver) IncidentRayAngle(ray Line) float64 {
	return ray.Angle() - math.Pi - r.Rotation()
}

// Reset discards all ray paths and computed state. Ray paths are owned
// by their receiver, so this is where they die.
func (r *Receiver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paths = nil
	r.outOfModel = false
	r.cachedPower = -1
}

// AddRayPath appends a contribution. Safe to call from several work
// units at once; invalidates the cached observables.
func (r *Receiver) AddRayPath(rp *RayPath) {
	if rp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.paths = append(r.paths, rp)
	r.cachedPower = -1
}

// DiscardEmitter removes every contribution sourced from the given
// emitter, filtering the list in place. The optimizer uses this to back
// out a rejected candidate transmitter.
func (r *Receiver) DiscardEmitter(e *Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.paths[:0]
	for _, rp := range r.paths {
		if rp.Emitter != e {
			kept = append(kept, rp)
		}
	}
	// Release the tail so discarded paths can be collected.
	for i := len(kept); i < len(r.paths); i++ {
		r.paths[i] = nil
	}
	r.paths = kept
	r.cachedPower = -1
}

// RayPaths returns a snapshot of the contribution list.
func (r *Receiver) RayPaths() []*RayPath {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*RayPath, len(r.paths))
	copy(out, r.paths)
	return out
}

// PathCount returns the number of recorded contributions.
func (r *Receiver) PathCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

// MarkOutOfModel flags the receiver as inside a transmitter's near
// field, where the far-field model does not hold.
func (r *Receiver) MarkOutOfModel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outOfModel = true
}

// IsOutOfModel reports the near-field flag.
func (r *Receiver) IsOutOfModel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outOfModel
}

// voltageTerm returns ⟨h_e, E⟩ for one contribution.
func (r *Receiver) voltageTerm(rp *RayPath) complex128 {
	phi := r.IncidentRayAngle(rp.ArrivalRay())
	he := r.antenna.EffectiveHeight(rp.Theta, phi, rp.Emitter.Frequency())
	return he.Dot(rp.Field)
}

// ReceivedPower returns the coherently summed received power in watts:
//
//	P = |Σ_i ⟨h_e(θ_i, φ_i, f_i), E_i⟩|² / (8·R_a)
//
// The result is cached until the contribution list changes.
func (r *Receiver) ReceivedPower() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cachedPower >= 0 {
		return r.cachedPower
	}

	var sum complex128
	for _, rp := range r.paths {
		sum += r.voltageTerm(rp)
	}

	ra := r.antenna.Resistance()
	mag := real(sum)*real(sum) + imag(sum)*imag(sum)
	r.cachedPower = mag / (8 * ra)
	return r.cachedPower
}

// UserEndSNR returns the SNR at the receiver in dB against the
// configured noise floor.
func (r *Receiver) UserEndSNR(cfg SimulationConfig) float64 {
	return ConvertPowerToDBm(r.ReceivedPower()) - cfg.NoiseFloorDBm()
}

// DelaySpread returns the RMS delay spread: the maximum pairwise delay
// difference over all contributions. It is only defined when exactly
// one transmitter contributes; ok reports whether it is.
func (r *Receiver) DelaySpread() (spread float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.paths) == 0 || r.emitterCountLocked() != 1 {
		return 0, false
	}

	minDelay := math.Inf(1)
	maxDelay := math.Inf(-1)
	for _, rp := range r.paths {
		d := rp.Delay()
		minDelay = math.Min(minDelay, d)
		maxDelay = math.Max(maxDelay, d)
	}
	return maxDelay - minDelay, true
}

// RiceFactor returns the Rice factor in dB: the power of the
// line-of-sight contribution over the summed power of all others. It
// is only defined when exactly one transmitter contributes and a
// line-of-sight path exists; ok reports whether it is.
func (r *Receiver) RiceFactor() (factor float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.paths) == 0 || r.emitterCountLocked() != 1 {
		return 0, false
	}

	ra := r.antenna.Resistance()
	losPower := 0.0
	otherPower := 0.0
	hasLOS := false

	for _, rp := range r.paths {
		v := r.voltageTerm(rp)
		a2 := (real(v)*real(v) + imag(v)*imag(v)) / (8 * ra)
		if rp.IsLOS && !rp.IsGround {
			hasLOS = true
			losPower = a2
		} else {
			otherPower += a2
		}
	}
	if !hasLOS {
		return 0, false
	}

	return 10 * math.Log10(losPower/otherPower), true
}

// IsCovered reports whether the receiver meets the target SNR after
// subtracting the fade margin. Out-of-model receivers sit in a
// transmitter's near field and count as covered.
func (r *Receiver) IsCovered(cfg SimulationConfig, fadeMargin float64) bool {
	if r.IsOutOfModel() {
		return true
	}
	return r.UserEndSNR(cfg)-fadeMargin >= cfg.TargetSNR
}

// emitterCountLocked counts the distinct emitters across the
// contribution list. Callers must hold the mutex.
func (r *Receiver) emitterCountLocked() int {
	seen := make(map[*Emitter]struct{}, 2)
	for _, rp := range r.paths {
		seen[rp.Emitter] = struct{}{}
	}
	return len(seen)
}
