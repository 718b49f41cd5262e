package scene

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signalsfoundry/radioplanner/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleScene() *Scene {
	sc := New()
	sc.Config.MaxReflections = 4
	sc.Config.NLOSReflectionsEnabled = true
	sc.Config.TargetSNR = 5
	sc.Config.PruningRadius = 500

	sc.AttachBuilding(NewBuilding(10, 10, 20, 15))
	sc.AttachBuilding(NewBuilding(45.5, 10.25, 20, 15))

	tx := core.NewEmitterWithAntenna(2.4e9, 2.0, 0.9, core.HalfWaveDipoleVert)
	tx.SetPosition(core.Point{X: 37.5, Y: 5})
	tx.SetRotation(1.25)
	sc.AttachEmitter(tx)

	tx2 := core.NewEmitterWithAntenna(60e9, 0.5, 1.0, core.HalfWaveDipoleHoriz)
	tx2.SetPosition(core.Point{X: -3, Y: 42})
	sc.AttachEmitter(tx2)

	rx := core.NewReceiver(core.HalfWaveDipoleHoriz, 0.8)
	rx.SetPosition(core.Point{X: 12, Y: 33})
	sc.AttachReceiver(rx)

	return sc
}

func TestSceneRoundTrip(t *testing.T) {
	original := sampleScene()

	var first bytes.Buffer
	require.NoError(t, Save(&first, original))

	loaded, err := Load(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)

	// Re-serialization of the loaded scene is byte-identical.
	var second bytes.Buffer
	require.NoError(t, Save(&second, loaded))
	assert.True(t, bytes.Equal(first.Bytes(), second.Bytes()), "round trip is not byte-identical")

	if diff := cmp.Diff(original.Config, loaded.Config); diff != "" {
		t.Errorf("config changed through the round trip (-want +got):\n%s", diff)
	}

	require.Len(t, loaded.Buildings(), len(original.Buildings()))
	for i, b := range loaded.Buildings() {
		assert.Equal(t, original.Buildings()[i].Rect, b.Rect)
	}

	require.Len(t, loaded.Emitters(), len(original.Emitters()))
	for i, e := range loaded.Emitters() {
		want := original.Emitters()[i]
		assert.Equal(t, want.Antenna().Type(), e.Antenna().Type())
		assert.Equal(t, want.Efficiency(), e.Efficiency())
		assert.Equal(t, want.EIRP(), e.EIRP())
		assert.Equal(t, want.Frequency(), e.Frequency())
		assert.Equal(t, want.Rotation(), e.Rotation())
		assert.Equal(t, want.Position(), e.Position())
	}

	require.Len(t, loaded.Receivers(), len(original.Receivers()))
	for i, r := range loaded.Receivers() {
		want := original.Receivers()[i]
		assert.Equal(t, want.Antenna().Type(), r.Antenna().Type())
		assert.Equal(t, want.Antenna().Efficiency(), r.Antenna().Efficiency())
		assert.Equal(t, want.Position(), r.Position())
	}
}

func TestSceneRoundTrip_InfinitePruningRadius(t *testing.T) {
	sc := New()
	require.True(t, math.IsInf(sc.Config.PruningRadius, 1))

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sc))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, math.IsInf(loaded.Config.PruningRadius, 1), "infinity lost in serialization")
}

func TestLoad_RejectsGarbage(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("not a scene file at all")))
	assert.Error(t, err)

	_, err = Load(bytes.NewReader(nil))
	assert.Error(t, err)
}
