package scene

import (
	"testing"

	"github.com/signalsfoundry/radioplanner/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridReceivers(t *testing.T) {
	sc := New()

	area := core.Rect{X: 0, Y: 0, Width: 10, Height: 5}
	receivers := sc.GridReceivers(area, core.HalfWaveDipoleVert, 1.0)
	require.Len(t, receivers, 50, "one receiver per square metre")

	for _, rcv := range receivers {
		assert.True(t, area.Contains(rcv.Position()), "receiver %v outside the area", rcv.Position())
	}
}

func TestGridReceivers_SkipBuildings(t *testing.T) {
	sc := New()
	sc.AttachBuilding(NewBuilding(0, 0, 4, 5))

	area := core.Rect{X: 0, Y: 0, Width: 10, Height: 5}
	receivers := sc.GridReceivers(area, core.HalfWaveDipoleVert, 1.0)

	assert.Len(t, receivers, 30, "building cells must stay empty")
	for _, rcv := range receivers {
		assert.False(t, sc.ContainsBuilding(rcv.Position()))
	}
}

func TestAttachDetach(t *testing.T) {
	sc := New()

	b := NewBuilding(0, 0, 5, 5)
	em := core.NewEmitterWithAntenna(2.4e9, 1.0, 1.0, core.HalfWaveDipoleVert)
	rcv := core.NewReceiver(core.HalfWaveDipoleVert, 1.0)

	sc.AttachBuilding(b)
	sc.AttachEmitter(em)
	sc.AttachReceiver(rcv)
	require.Len(t, sc.Buildings(), 1)
	require.Len(t, sc.Emitters(), 1)
	require.Len(t, sc.Receivers(), 1)

	sc.DetachBuilding(b)
	sc.DetachEmitter(em)
	sc.DetachReceiver(rcv)
	assert.Empty(t, sc.Buildings())
	assert.Empty(t, sc.Emitters())
	assert.Empty(t, sc.Receivers())
}

func TestWallsFiltered(t *testing.T) {
	sc := New()
	// A building flush against the left edge of the area: its wall on
	// x=0 coincides with the area boundary and must be dropped.
	sc.AttachBuilding(NewBuilding(0, 10, 10, 10))

	area := core.Rect{X: 0, Y: 0, Width: 40, Height: 40}
	all := sc.Walls()
	filtered := sc.WallsFiltered(area)

	require.Len(t, all, 4)
	assert.Len(t, filtered, 3)
	for _, w := range filtered {
		onBoundary := w.Line.Dx() == 0 && w.Line.P1.X == 0
		assert.False(t, onBoundary, "area-boundary wall %v survived", w.Line)
	}
}
