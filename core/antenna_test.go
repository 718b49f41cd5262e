package core

import (
	"math"
	"testing"
)

func TestDipoleGain_Broadside(t *testing.T) {
	for _, eta := range []float64{1.0, 0.8, 0.5} {
		a := NewAntenna(HalfWaveDipoleVert, eta)
		want := eta * 16.0 / (3 * math.Pi)
		if got := a.Gain(math.Pi/2, 0); math.Abs(got-want) > 1e-12 {
			t.Errorf("eta=%g: broadside gain %g, want %g", eta, got, want)
		}
	}
}

func TestDipoleGain_AxialSingularity(t *testing.T) {
	vert := NewAntenna(HalfWaveDipoleVert, 1.0)
	if got := vert.Gain(0, 1.0); got != 0 {
		t.Errorf("vertical dipole gain at theta=0 is %g, want 0", got)
	}

	horiz := NewAntenna(HalfWaveDipoleHoriz, 1.0)
	if got := horiz.Gain(1.0, 0); got != 0 {
		t.Errorf("horizontal dipole gain at phi=0 is %g, want 0", got)
	}
}

func TestDipoleResistance(t *testing.T) {
	cases := []struct {
		eta  float64
		want float64
	}{
		{1.0, 73},
		{0.5, 146},
	}
	for _, tc := range cases {
		a := NewAntenna(HalfWaveDipoleVert, tc.eta)
		if got := a.Resistance(); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("eta=%g: resistance %g, want %g", tc.eta, got, tc.want)
		}
	}
}

func TestEffectiveHeight_VerticalBroadside(t *testing.T) {
	const f = 2.4e9
	lambda := LightSpeed / f

	a := NewAntenna(HalfWaveDipoleVert, 1.0)
	he := a.EffectiveHeight(math.Pi/2, 1.23, f)

	if he[0] != 0 || he[1] != 0 {
		t.Errorf("vertical dipole effective height has in-plane components: %v", he)
	}
	if got := real(he[2]); math.Abs(got+lambda/math.Pi) > 1e-12 {
		t.Errorf("vertical dipole |h_e| z component %g, want %g", got, -lambda/math.Pi)
	}
}

func TestEffectiveHeight_HorizontalRotates(t *testing.T) {
	const f = 2.4e9
	lambda := LightSpeed / f

	a := NewAntenna(HalfWaveDipoleHoriz, 1.0)
	a.SetRotation(0)
	he := a.EffectiveHeight(0, math.Pi/2, f)

	if he[2] != 0 {
		t.Errorf("horizontal dipole effective height has an out-of-plane component: %v", he)
	}
	if got := real(he[0]); math.Abs(got+lambda/math.Pi) > 1e-12 {
		t.Errorf("x component %g, want %g", got, -lambda/math.Pi)
	}
	if got := real(he[1]); math.Abs(got) > 1e-12 {
		t.Errorf("y component %g, want 0 at rotation 0", got)
	}

	a.SetRotation(math.Pi / 2)
	he = a.EffectiveHeight(0, math.Pi/2, f)
	if got := real(he[0]); math.Abs(got) > 1e-12 {
		t.Errorf("x component %g after rotation, want 0", got)
	}
	if got := real(he[1]); math.Abs(got-lambda/math.Pi) > 1e-12 {
		t.Errorf("y component %g after rotation, want %g", got, lambda/math.Pi)
	}
}

func TestPolarization(t *testing.T) {
	par, ortho := NewAntenna(HalfWaveDipoleVert, 1.0).Polarization()
	if par != 0 || ortho != 1 {
		t.Errorf("vertical dipole polarization (%v, %v), want (0, 1)", par, ortho)
	}

	par, ortho = NewAntenna(HalfWaveDipoleHoriz, 1.0).Polarization()
	if par != 1 || ortho != 0 {
		t.Errorf("horizontal dipole polarization (%v, %v), want (1, 0)", par, ortho)
	}
}

func TestMaxGain(t *testing.T) {
	a := NewAntenna(HalfWaveDipoleVert, 1.0)
	want := 16.0 / (3 * math.Pi)
	if got := MaxGain(a); math.Abs(got-want) > 1e-6 {
		t.Errorf("max gain %g, want %g", got, want)
	}
}

func TestEmitterPowerFromEIRP(t *testing.T) {
	em := NewEmitterWithAntenna(2.4e9, 1.0, 1.0, HalfWaveDipoleVert)
	want := 1.0 / (16.0 / (3 * math.Pi))
	if got := em.Power(); math.Abs(got-want) > 1e-6 {
		t.Errorf("transmit power %g, want %g", got, want)
	}
}
