// Package scene holds the editable scene model the engine runs
// against: buildings, emitters, receivers and the simulation
// configuration, plus the binary persistence for all of it. Scene
// entities persist across runs; walls, corners and ray paths are
// derived per run and never stored here.
package scene

import (
	"math"

	"github.com/signalsfoundry/radioplanner/core"
)

// Building is an axis-aligned rectangular obstacle. Created by the
// editor, read-only during a run.
type Building struct {
	Rect core.Rect
}

// NewBuilding builds a building from its origin and size in metres.
func NewBuilding(x, y, width, height float64) *Building {
	return &Building{Rect: core.Rect{X: x, Y: y, Width: width, Height: height}}
}

// Scene owns the persistent entities and the process-wide
// configuration.
type Scene struct {
	Config core.SimulationConfig

	buildings []*Building
	emitters  []*core.Emitter
	receivers []*core.Receiver
}

// New returns an empty scene with the default configuration.
func New() *Scene {
	return &Scene{Config: core.DefaultConfig()}
}

// AttachBuilding adds a building to the scene.
func (s *Scene) AttachBuilding(b *Building) {
	s.buildings = append(s.buildings, b)
}

// AttachEmitter adds an emitter to the scene.
func (s *Scene) AttachEmitter(e *core.Emitter) {
	s.emitters = append(s.emitters, e)
}

// AttachReceiver adds a receiver to the scene.
func (s *Scene) AttachReceiver(r *core.Receiver) {
	s.receivers = append(s.receivers, r)
}

// DetachBuilding removes a building from the scene.
func (s *Scene) DetachBuilding(b *Building) {
	s.buildings = removeAll(s.buildings, b)
}

// DetachEmitter removes an emitter from the scene.
func (s *Scene) DetachEmitter(e *core.Emitter) {
	s.emitters = removeAll(s.emitters, e)
}

// DetachReceiver removes a receiver from the scene.
func (s *Scene) DetachReceiver(r *core.Receiver) {
	s.receivers = removeAll(s.receivers, r)
}

// Buildings returns the building list.
func (s *Scene) Buildings() []*Building { return s.buildings }

// Emitters returns the emitter list.
func (s *Scene) Emitters() []*core.Emitter { return s.emitters }

// Receivers returns the point receiver list.
func (s *Scene) Receivers() []*core.Receiver { return s.receivers }

// Reset empties the entity lists. The configuration is kept.
func (s *Scene) Reset() {
	s.buildings = nil
	s.emitters = nil
	s.receivers = nil
}

// Walls derives the deduplicated wall list from the building union.
func (s *Scene) Walls() []*core.Wall {
	rects := make([]core.Rect, len(s.buildings))
	for i, b := range s.buildings {
		rects[i] = b.Rect
	}
	return core.BuildingWalls(rects, s.Config.RelativePermittivity)
}

// WallsFiltered derives the wall list for a bounded simulation area,
// dropping walls lying exactly on the area boundary.
func (s *Scene) WallsFiltered(area core.Rect) []*core.Wall {
	return core.FilterAreaWalls(s.Walls(), area)
}

// ContainsBuilding reports whether the point lies inside any building.
func (s *Scene) ContainsBuilding(p core.Point) bool {
	for _, b := range s.buildings {
		if b.Rect.ContainsClosed(p) {
			return true
		}
	}
	return false
}

// GridReceivers lays a receiver grid over the area, one receiver per
// square metre: the area is snapped to whole metres and a receiver is
// centred in every cell whose centre lies outside all buildings.
func (s *Scene) GridReceivers(area core.Rect, antennaType core.AntennaType, efficiency float64) []*core.Receiver {
	nx := int(math.Round(area.Width))
	ny := int(math.Round(area.Height))
	if nx <= 0 || ny <= 0 {
		return nil
	}

	// Centre the snapped grid in the requested area.
	x0 := area.Left() + (area.Width-float64(nx))/2
	y0 := area.Top() + (area.Height-float64(ny))/2

	var out []*core.Receiver
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			pos := core.Point{
				X: x0 + float64(ix) + 0.5,
				Y: y0 + float64(iy) + 0.5,
			}
			if s.ContainsBuilding(pos) {
				continue
			}
			rcv := core.NewReceiver(antennaType, efficiency)
			rcv.SetPosition(pos)
			out = append(out, rcv)
		}
	}
	return out
}

func removeAll[T comparable](list []T, v T) []T {
	kept := list[:0]
	for _, item := range list {
		if item != v {
			kept = append(kept, item)
		}
	}
	return kept
}
