package core

// RayPath records one geometric propagation path between an emitter and
// a receiver, with everything needed to summarize its contribution: the
// polyline of ray segments from TX to RX, the total complex electric
// field at the receiver, the vertical arrival angle (π/2 for all
// in-plane paths, different only for the ground bounce) and the total
// unfolded path length.
type RayPath struct {
	Emitter  *Emitter
	Receiver *Receiver

	// Rays is the TX-to-RX polyline. One segment for line-of-sight and
	// ground paths, reflections+1 segments for specular paths, two for
	// a diffraction.
	Rays []Line

	// Field is the complex electric field vector at the receiver.
	Field Vec3C

	// Theta is the vertical arrival angle at the receiver.
	Theta float64

	// TotalLength is the unfolded path length in metres.
	TotalLength float64

	IsLOS    bool
	IsGround bool
}

// Delay returns the propagation delay τ = d/c in seconds.
func (rp *RayPath) Delay() float64 {
	return rp.TotalLength / LightSpeed
}

// DepartureRay returns the segment leaving the emitter.
func (rp *RayPath) DepartureRay() Line {
	return rp.Rays[0]
}

// ArrivalRay returns the segment entering the receiver.
func (rp *RayPath) ArrivalRay() Line {
	return rp.Rays[len(rp.Rays)-1]
}
