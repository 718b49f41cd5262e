package core

import "math"

// PathStats counts the contributions one tracing pass produced, by
// path kind.
type PathStats struct {
	LOS         int
	Reflections int
	Ground      int
	Diffraction int
}

// Add accumulates other into s.
func (s *PathStats) Add(other PathStats) {
	s.LOS += other.LOS
	s.Reflections += other.Reflections
	s.Ground += other.Ground
	s.Diffraction += other.Diffraction
}

// Total returns the number of contributions across all kinds.
func (s PathStats) Total() int {
	return s.LOS + s.Reflections + s.Ground + s.Diffraction
}

// Tracer enumerates the geometric propagation paths between emitters
// and receivers over a frozen wall/corner set. It is stateless apart
// from that read-only geometry, so a single tracer is shared by every
// worker of a run.
type Tracer struct {
	cfg     SimulationConfig
	walls   []*Wall
	corners []*Corner
}

// NewTracer builds a tracer over frozen geometry.
func NewTracer(cfg SimulationConfig, walls []*Wall, corners []*Corner) *Tracer {
	return &Tracer{cfg: cfg, walls: walls, corners: corners}
}

// Walls returns the frozen wall list the tracer works on.
func (t *Tracer) Walls() []*Wall { return t.walls }

// Corners returns the frozen corner list the tracer works on.
func (t *Tracer) Corners() []*Corner { return t.corners }

// ComputeReceiver produces every path from the given emitters to one
// receiver and appends them to it: line-of-sight, the ground bounce,
// specular reflections up to the configured order, and single-edge
// diffractions when the direct line is blocked.
func (t *Tracer) ComputeReceiver(rcv *Receiver, emitters []*Emitter) PathStats {
	var stats PathStats

	// Scratch buffers for the image-method recursion, preallocated to
	// the maximum depth so candidate extension never reallocates.
	images := make([]Point, 0, t.cfg.MaxReflections)
	wallSeq := make([]*Wall, 0, t.cfg.MaxReflections)

	for _, em := range emitters {
		dist := em.Position().DistanceTo(rcv.Position())
		if dist > t.cfg.PruningRadius {
			continue
		}
		if dist < t.cfg.MinValidRadius {
			// Near field: the far-field model does not apply.
			rcv.MarkOutOfModel()
			continue
		}

		los := t.losPath(em, rcv)
		if los != nil {
			rcv.AddRayPath(los)
			stats.LOS++

			if ground := t.groundPath(em, rcv, los.Rays[0]); ground != nil {
				rcv.AddRayPath(ground)
				stats.Ground++
			}
		}

		if (los != nil || t.cfg.NLOSReflectionsEnabled) && t.cfg.MaxReflections > 0 {
			for _, w := range t.walls {
				t.recursiveReflection(em, rcv, w, images, wallSeq, 1, func(rp *RayPath) {
					rcv.AddRayPath(rp)
					stats.Reflections++
				})
			}
		}

		if los == nil {
			for _, c := range t.corners {
				if rp := t.computeDiffraction(em, rcv, c); rp != nil {
					rcv.AddRayPath(rp)
					stats.Diffraction++
				}
			}
		}
	}
	return stats
}

// losPath returns the direct contribution, or nil when a wall blocks
// the straight line.
func (t *Tracer) losPath(em *Emitter, rcv *Receiver) *RayPath {
	return t.computeRayPath(em, rcv, nil, nil)
}

// recursiveReflection extends the candidate reflection sequence with
// one more wall, validates the resulting path, and recurses up to the
// configured order. The image and wall buffers are shared down the
// recursion: each level writes its own index, so siblings reuse the
// same backing storage without allocating.
func (t *Tracer) recursiveReflection(em *Emitter, rcv *Receiver, wall *Wall, images []Point, wallSeq []*Wall, level int, emit func(*RayPath)) {
	// Cumulative image: mirror the previous image (or the emitter
	// itself at depth one) across the new wall.
	src := em.Position()
	if len(images) > 0 {
		src = images[len(images)-1]
	}
	images = append(images, Mirror(src, wall.Line))
	wallSeq = append(wallSeq, wall)

	if rp := t.computeRayPath(em, rcv, images, wallSeq); rp != nil {
		emit(rp)
	}

	if level >= t.cfg.MaxReflections {
		return
	}
	for _, w := range t.walls {
		// Reflecting twice in a row on the same wall is degenerate.
		if w == wall {
			continue
		}
		t.recursiveReflection(em, rcv, w, images, wallSeq, level+1, emit)
	}
}

// computeRayPath validates one candidate reflection sequence by
// back-projecting from the receiver through the image chain, and
// returns the finished contribution or nil. An empty sequence is the
// line-of-sight candidate.
func (t *Tracer) computeRayPath(em *Emitter, rcv *Receiver, images []Point, wallSeq []*Wall) *RayPath {
	k := len(wallSeq)

	target := rcv.Position()
	coeff := Vec3C{1, 1, 1}
	rays := make([]Line, 0, k+1)

	// Walk the chain backward: each virtual ray runs from the i-th
	// cumulative image to the current target and must hit the i-th
	// wall inside its segment.
	var prevWall *Wall
	for i := k - 1; i >= 0; i-- {
		virtual := Line{P1: images[i], P2: target}

		pt, kind := virtual.Intersect(wallSeq[i].Line)
		if kind != BoundedIntersection {
			return nil
		}
		if pt == target {
			// Zero-length ray.
			return nil
		}

		ray := Line{P1: pt, P2: target}
		coeff = coeff.MulComponents(t.wallReflection(wallSeq[i], ray))

		if IsObstructed(ray, t.walls, wallSeq[i], prevWall) {
			return nil
		}

		prevWall = wallSeq[i]
		rays = append(rays, ray)
		target = pt
	}

	// Last leg: emitter to the first reflection point (or straight to
	// the receiver for the line-of-sight candidate).
	final := Line{P1: em.Position(), P2: target}
	if final.Length() == 0 {
		return nil
	}
	var firstWall *Wall
	if k > 0 {
		firstWall = wallSeq[0]
	}
	if IsObstructed(final, t.walls, nil, firstWall) {
		return nil
	}
	rays = append(rays, final)

	// The rays were collected receiver-first; flip so the first
	// segment is the one leaving the emitter.
	for i, j := 0, len(rays)-1; i < j; i, j = i+1, j-1 {
		rays[i], rays[j] = rays[j], rays[i]
	}

	// Unfolded length: the straight line from the deepest image to the
	// receiver.
	d := final.Length()
	if k > 0 {
		d = images[k-1].DistanceTo(rcv.Position())
	}

	field := t.pathField(em, rays[0], rays[len(rays)-1], d, math.Pi/2).MulComponents(coeff)

	return &RayPath{
		Emitter:     em,
		Receiver:    rcv,
		Rays:        rays,
		Field:       field,
		Theta:       math.Pi / 2,
		TotalLength: d,
		IsLOS:       k == 0,
	}
}

// groundPath builds the single ground-bounce contribution for a pair
// with line-of-sight. Transmitter and receiver sit at the configured
// simulation height; the bounce unfolds to a path of length
// 2·√((d/2)² + h²) arriving below the horizontal plane.
func (t *Tracer) groundPath(em *Emitter, rcv *Receiver, losLine Line) *RayPath {
	dLOS := losLine.Length()
	if dLOS == 0 {
		return nil
	}

	h := t.cfg.SimulationHeight
	half := dLOS / 2
	d := 2 * math.Sqrt(half*half+h*h)

	// Vertical arrival angle and incidence on the ground plane.
	thetaER := math.Pi/2 + math.Atan(h/half)
	thetaI := math.Pi - thetaER

	coeff := ReflectionCoefficient(thetaI, t.cfg.RelativePermittivity)
	field := t.pathField(em, losLine, losLine, d, thetaER).MulComponents(coeff)

	return &RayPath{
		Emitter:  em,
		Receiver: rcv,
		// The in-plane line stands in for the folded ground geometry.
		Rays:        []Line{losLine},
		Field:       field,
		Theta:       thetaER,
		TotalLength: d,
		IsGround:    true,
	}
}

// computeDiffraction builds the knife-edge contribution around one
// corner, or nil when the geometry is not a valid diffraction.
func (t *Tracer) computeDiffraction(em *Emitter, rcv *Receiver, c *Corner) *RayPath {
	cr := Line{P1: em.Position(), P2: c.Position}
	cs := Line{P1: c.Position, P2: rcv.Position()}
	if cr.Length() == 0 || cs.Length() == 0 {
		return nil
	}

	// The wall adjacent to the transmitter side is the one whose far
	// endpoint is closer to the transmitter.
	txIdx := 0
	if em.Position().DistanceTo(c.FarEnds[1]) < em.Position().DistanceTo(c.FarEnds[0]) {
		txIdx = 1
	}
	adj := c.AdjacentLines()
	txWall := adj[txIdx]
	rxWall := adj[1-txIdx]

	// Both rays, taken from the corner outward, must hug their
	// adjacent wall: neither may open more than 90° from it, nor may
	// the two openings sum past 90° (grazing geometries only).
	angTx := angleBetween(Line{P1: c.Position, P2: em.Position()}, txWall)
	angRx := angleBetween(cs, rxWall)
	if angTx > math.Pi/2 || angRx > math.Pi/2 || angTx+angRx > math.Pi/2 {
		return nil
	}

	if IsObstructed(cr, t.walls, c.Walls[0], c.Walls[1]) {
		return nil
	}
	if IsObstructed(cs, t.walls, c.Walls[0], c.Walls[1]) {
		return nil
	}

	dTotal := cr.Length() + cs.Length()
	dDirect := em.Position().DistanceTo(rcv.Position())
	beta := em.Omega() / LightSpeed

	ke := KnifeEdgeCoefficient(dTotal-dDirect, beta)
	field := t.pathField(em, cr, cs, dTotal, math.Pi/2).Scale(ke)

	return &RayPath{
		Emitter:     em,
		Receiver:    rcv,
		Rays:        []Line{cr, cs},
		Field:       field,
		Theta:       math.Pi / 2,
		TotalLength: dTotal,
	}
}

// pathField evaluates the nominal field for a path: emitter gain along
// the departing segment, free-space decay over the unfolded length,
// polarization projected on the arriving direction.
func (t *Tracer) pathField(em *Emitter, departure, arrival Line, d, theta float64) Vec3C {
	phi := em.DepartureAngle(departure)
	gain := em.Antenna().Gain(theta, phi)
	par, ortho := em.Polarization()

	return NominalField(gain, em.Power(), em.Omega(), d, par, ortho, arrival.UnitVector())
}

// wallReflection returns the Fresnel coefficient vector for a ray
// hitting the wall.
func (t *Tracer) wallReflection(w *Wall, ray Line) Vec3C {
	return ReflectionCoefficient(w.NormalAngleTo(ray), w.Permittivity)
}

// angleBetween returns the angle between the directions of two
// segments, in [0, π].
func angleBetween(a, b Line) float64 {
	ua := a.UnitVector()
	ub := b.UnitVector()
	dot := ua.X*ub.X + ua.Y*ub.Y
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot)
}
