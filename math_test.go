package orbits

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// vectorsEqual returns whether both vectors are equal within an absolute or relative tolerance.
func vectorsEqual(a, b []float64) bool {
	return len(a) == len(b) && floats.EqualApprox(a, b, 1e-9)
}

func TestAngles(t *testing.T) {
	for i := -720.0; i <= 720; i += 0.5 {
		a := Deg2rad(i)
		if a < 0 || a >= twoPi {
			t.Fatalf("Deg2rad(%f)=%f not in [0, 2π)", i, a)
		}
		exp := math.Mod(i, 360)
		if exp < 0 {
			exp += 360
		}
		if !anglesEqual(Rad2deg(a)*deg2rad, exp*deg2rad, 1e-9) {
			t.Fatalf("Rad2deg(Deg2rad(%f))=%f expected %f", i, Rad2deg(a), exp)
		}
	}
	if wrapAngle(twoPi) != 0 {
		t.Fatal("2π not wrapped to 0")
	}
	if a := wrapAngle(-1e-17); a < 0 || a >= twoPi {
		t.Fatalf("tiny negative angle wrapped to %f", a)
	}
	if !scalar.EqualWithinAbs(wrapAngle(-math.Pi/2), 3*math.Pi/2, 1e-14) {
		t.Fatal("-π/2 not wrapped to 3π/2")
	}
}

func TestAnglesEqual(t *testing.T) {
	if !anglesEqual(0, twoPi-1e-12, 1e-9) {
		t.Fatal("0 and 2π-ε should be equal")
	}
	if !anglesEqual(-math.Pi, math.Pi, 1e-9) {
		t.Fatal("-π and π should be equal")
	}
	if anglesEqual(0, 0.1, 1e-9) {
		t.Fatal("0 and 0.1 should differ")
	}
}

func TestMisc(t *testing.T) {
	if !scalar.EqualWithinAbs(norm([]float64{3, 4, 12}), 13, 1e-15) {
		t.Fatal("norm failed")
	}
	if !vectorsEqual(add([]float64{1, 2, 3}, []float64{3, 2, 1}), []float64{4, 4, 4}) {
		t.Fatal("add failed")
	}
	if !vectorsEqual(sub([]float64{1, 2, 3}, []float64{3, 2, 1}), []float64{-2, 0, 2}) {
		t.Fatal("sub failed")
	}
	if !finite(1, 2, -3) || finite(1, math.NaN()) || finite(math.Inf(-1)) {
		t.Fatal("finite failed")
	}
}
