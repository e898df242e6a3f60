package orbits

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestEccentricAnomalyVallado(t *testing.T) {
	// Vallado example 2-1
	E, err := EccentricAnomaly(0.4, Deg2rad(235.4))
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(Rad2deg(E), 220.512074767522, 1e-6) {
		t.Fatalf("E=%f", Rad2deg(E))
	}
}

func TestEccentricAnomalyRoundTrip(t *testing.T) {
	for e := 0.0; e < 0.96; e += 0.05 {
		for M := 0.005; M < twoPi; M += 0.01 {
			E, err := EccentricAnomaly(e, M)
			if err != nil {
				t.Fatalf("e=%f M=%f: %s", e, M, err)
			}
			if !anglesEqual(E-e*math.Sin(E), M, 1e-10) {
				t.Fatalf("e=%f M=%f: E-e*sin(E)=%f", e, M, E-e*math.Sin(E))
			}
			if (M < math.Pi) != (E < math.Pi) {
				t.Fatalf("e=%f M=%f: E=%f in the wrong half", e, M, E)
			}
			ν := TrueAnomaly(e, E)
			if !anglesEqual(MeanAnomalyFromTrue(e, ν), M, 1e-9) {
				t.Fatalf("e=%f M=%f: M(ν(E))=%f", e, M, MeanAnomalyFromTrue(e, ν))
			}
			if !anglesEqual(EccentricFromTrue(e, ν), E, 1e-9) {
				t.Fatalf("e=%f M=%f: E(ν)=%f expected %f", e, M, EccentricFromTrue(e, ν), E)
			}
		}
	}
}

func TestEccentricAnomalyCircular(t *testing.T) {
	for _, M := range []float64{-1, 0, 1, 7} {
		E, err := EccentricAnomaly(0, M)
		if err != nil {
			t.Fatal(err)
		}
		if E != wrapAngle(M) {
			t.Fatalf("M=%f: E=%f", M, E)
		}
		if !anglesEqual(TrueAnomaly(0, E), E, 1e-12) {
			t.Fatalf("circular true anomaly %f", TrueAnomaly(0, E))
		}
	}
}

func TestEccentricAnomalyApses(t *testing.T) {
	for _, e := range []float64{0.1, 0.5, 0.99} {
		if E, err := EccentricAnomaly(e, 0); err != nil || !anglesEqual(E, 0, 1e-12) {
			t.Fatalf("e=%f: periapsis E=%f (%v)", e, E, err)
		}
		if E, err := EccentricAnomaly(e, math.Pi); err != nil || !scalar.EqualWithinAbs(E, math.Pi, 1e-12) {
			t.Fatalf("e=%f: apoapsis E=%f (%v)", e, E, err)
		}
		if ν := TrueAnomaly(e, math.Pi); !scalar.EqualWithinAbs(ν, math.Pi, 1e-12) {
			t.Fatalf("e=%f: apoapsis ν=%f", e, ν)
		}
	}
}

func TestEccentricAnomalyInvalid(t *testing.T) {
	for _, e := range []float64{-0.1, 1, 1.5, math.NaN(), math.Inf(1)} {
		if _, err := EccentricAnomaly(e, 1); !errors.Is(err, ErrInvalidOrbit) {
			t.Fatalf("e=%f: expected an invalid orbit, got %v", e, err)
		}
	}
	if _, err := EccentricAnomaly(0.1, math.NaN()); !errors.Is(err, ErrInvalidOrbit) {
		t.Fatalf("NaN mean anomaly: expected an invalid orbit, got %v", err)
	}
}
