// Package optimizer places transmitters greedily on building corners
// until a target fraction of the receivers is covered. Each candidate
// is evaluated with an incremental simulation run and kept only if it
// strictly improves coverage.
package optimizer

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/radioplanner/core"
	"github.com/signalsfoundry/radioplanner/engine"
	"github.com/signalsfoundry/radioplanner/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"
)

// cornerOffsetMeters moves a candidate transmitter outward from its
// corner along the bisector of the two wall directions, so it stands
// clear of the building.
const cornerOffsetMeters = 2.0

// minEmitterSpacingMeters skips corners that sit too close to an
// already placed transmitter.
const minEmitterSpacingMeters = 20.0

// losWeight is the score weight of a candidate that sees a receiver
// directly; obstructed receivers weigh 1.
const losWeight = 100.0

// Template describes the transmitter the optimizer may place.
type Template struct {
	Frequency  float64
	EIRP       float64
	Efficiency float64
	Antenna    core.AntennaType
}

// NewEmitter instantiates the template at a position.
func (t Template) NewEmitter(pos core.Point) *core.Emitter {
	e := core.NewEmitterWithAntenna(t.Frequency, t.EIRP, t.Efficiency, t.Antenna)
	e.SetPosition(pos)
	return e
}

// Result is the outcome of a placement run.
type Result struct {
	// Placed holds the transmitters that survived their acceptance
	// test, in placement order.
	Placed []*core.Emitter

	// Coverage is the final covered fraction of the receiver set.
	Coverage float64

	Iterations int

	// Feasible is false when the target could not be reached with the
	// available corners.
	Feasible bool

	// Cancelled is true when a simulation cancellation propagated up.
	Cancelled bool
}

// CoverageOptimizer drives the engine in a greedy placement loop.
type CoverageOptimizer struct {
	handler *engine.Handler
	log     logging.Logger

	receivers []*core.Receiver
	area      core.Rect
	template  Template

	// threshold is the target coverage ratio ρ*.
	threshold float64
	// fadeMargin is subtracted from each receiver's SNR before the
	// coverage test, in dB.
	fadeMargin float64
}

// New builds an optimizer over the handler's scene.
func New(h *engine.Handler, receivers []*core.Receiver, area core.Rect, template Template, threshold, fadeMargin float64, log logging.Logger) *CoverageOptimizer {
	if log == nil {
		log = logging.Noop()
	}
	return &CoverageOptimizer{
		handler:    h,
		log:        log,
		receivers:  receivers,
		area:       area,
		template:   template,
		threshold:  threshold,
		fadeMargin: fadeMargin,
	}
}

// Optimize runs placement iterations until the coverage target is met,
// every corner is spent, or no remaining corner scores above zero.
func (o *CoverageOptimizer) Optimize(ctx context.Context) (Result, error) {
	if o.template.Frequency <= 0 {
		return Result{}, fmt.Errorf("template frequency %g Hz must be positive", o.template.Frequency)
	}
	if o.threshold <= 0 || o.threshold > 1 {
		return Result{}, fmt.Errorf("coverage threshold %g outside (0, 1]", o.threshold)
	}
	if len(o.receivers) == 0 {
		return Result{}, fmt.Errorf("no receivers to cover")
	}

	walls := o.handler.Scene().WallsFiltered(o.area)
	available := core.WallsCorners(walls)

	cancelled := false
	o.handler.AddListener(engine.ListenerFuncs{
		Cancelled: func() { cancelled = true },
	})

	res := Result{Coverage: o.coverageRatio()}
	tracer := otel.Tracer("radioplanner/optimizer")

	for res.Coverage < o.threshold {
		if len(available) == 0 {
			o.log.Info(ctx, "optimizer out of corners", logging.Float64("coverage", res.Coverage))
			return res, nil
		}

		best, bestScore := o.bestCorner(available, walls, res.Placed)
		if best < 0 || bestScore == 0 {
			// Every remaining corner is worthless: infeasible.
			o.log.Info(ctx, "optimizer infeasible", logging.Float64("coverage", res.Coverage))
			return res, nil
		}

		corner := available[best]
		available = append(available[:best], available[best+1:]...)

		pos := placementPosition(corner)
		candidate := o.template.NewEmitter(pos)

		_, span := tracer.Start(ctx, "optimizer.iteration",
			trace.WithAttributes(
				attribute.Int("iteration", res.Iterations),
				attribute.Float64("score", bestScore),
			))

		o.log.Info(ctx, "optimizer trying corner",
			logging.Float64("x", pos.X),
			logging.Float64("y", pos.Y),
			logging.Float64("score", bestScore),
			logging.Float64("coverage", res.Coverage),
		)

		if err := o.handler.StartSimulation(ctx, o.receivers, o.area, false, []*core.Emitter{candidate}); err != nil {
			span.End()
			return res, fmt.Errorf("incremental run: %w", err)
		}

		select {
		case <-o.handler.Done():
		case <-ctx.Done():
			o.handler.CancelSimulation()
			<-o.handler.Done()
			span.End()
			res.Cancelled = true
			return res, ctx.Err()
		}
		if cancelled {
			span.End()
			res.Cancelled = true
			return res, nil
		}

		res.Iterations++

		newCoverage := o.coverageRatio()
		accepted := newCoverage > res.Coverage
		if accepted {
			res.Coverage = newCoverage
			res.Placed = append(res.Placed, candidate)
			o.handler.Scene().AttachEmitter(candidate)
		} else {
			// No improvement: back the candidate out entirely.
			for _, rcv := range o.receivers {
				rcv.DiscardEmitter(candidate)
			}
		}

		span.SetAttributes(
			attribute.Bool("accepted", accepted),
			attribute.Float64("coverage", res.Coverage),
		)
		span.End()
	}

	res.Feasible = true
	o.log.Info(ctx, "optimizer done",
		logging.Int("placed", len(res.Placed)),
		logging.Int("iterations", res.Iterations),
		logging.Float64("coverage", res.Coverage),
	)
	return res, nil
}

// coverageRatio returns the covered fraction of the receiver set at
// the configured fade margin.
func (o *CoverageOptimizer) coverageRatio() float64 {
	cfg := o.handler.Scene().Config
	covered := 0
	for _, rcv := range o.receivers {
		if rcv.IsCovered(cfg, o.fadeMargin) {
			covered++
		}
	}
	return float64(covered) / float64(len(o.receivers))
}

// bestCorner scores every available corner and returns the index and
// score of the best one. Corners within the minimum spacing of a
// placed transmitter score zero.
func (o *CoverageOptimizer) bestCorner(available []*core.Corner, walls []*core.Wall, placed []*core.Emitter) (int, float64) {
	cfg := o.handler.Scene().Config

	var uncovered []*core.Receiver
	for _, rcv := range o.receivers {
		if !rcv.IsCovered(cfg, o.fadeMargin) {
			uncovered = append(uncovered, rcv)
		}
	}

	bestIdx := -1
	bestScore := 0.0
	terms := make([]float64, 0, len(uncovered))

	for i, c := range available {
		pos := placementPosition(c)

		if tooCloseToPlaced(pos, placed) {
			continue
		}

		terms = terms[:0]
		for _, rcv := range uncovered {
			gamma := 1.0
			sight := core.Line{P1: pos, P2: rcv.Position()}
			if !core.IsObstructed(sight, walls, nil, nil) {
				gamma = losWeight
			}
			terms = append(terms, gamma/(1+pos.DistanceTo(rcv.Position())))
		}

		if score := floats.Sum(terms); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx, bestScore
}

func tooCloseToPlaced(pos core.Point, placed []*core.Emitter) bool {
	for _, e := range placed {
		if pos.DistanceTo(e.Position()) < minEmitterSpacingMeters {
			return true
		}
	}
	return false
}

// placementPosition offsets a corner outward along the bisector of its
// two wall directions, so the transmitter stands outside the building.
func placementPosition(c *core.Corner) core.Point {
	lines := c.AdjacentLines()
	u1 := lines[0].UnitVector()
	u2 := lines[1].UnitVector()

	bis := core.Point{X: u1.X + u2.X, Y: u1.Y + u2.Y}
	norm := math.Hypot(bis.X, bis.Y)
	if norm == 0 {
		return c.Position
	}

	// Walls keep the covered side on their left, so the left normal of
	// the first wall points into the building. At a reflex corner of a
	// merged footprint the bisector already points away from it.
	d := c.Walls[0].Line
	if bis.X*(-d.Dy())+bis.Y*d.Dx() < 0 {
		return c.Position.Add(bis.Mul(cornerOffsetMeters / norm))
	}
	return c.Position.Sub(bis.Mul(cornerOffsetMeters / norm))
}
