package orbits

import "math"

const (
	deg2rad = math.Pi / 180
	twoPi   = 2 * math.Pi
)

// norm returns the norm of a given vector which is supposed to be 3x1.
func norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// add returns a+b for 3x1 vectors.
func add(a, b []float64) []float64 {
	return []float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// sub returns a-b for 3x1 vectors.
func sub(a, b []float64) []float64 {
	return []float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// wrapAngle returns the angle in [0, 2π).
func wrapAngle(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	if a >= twoPi {
		// math.Mod of a tiny negative number plus 2π rounds up to 2π.
		a = 0
	}
	return a
}

// anglesEqual returns whether two angles are equal modulo 2π within the provided tolerance.
func anglesEqual(a, b, ε float64) bool {
	δ := wrapAngle(a - b)
	return δ < ε || twoPi-δ < ε
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	return wrapAngle(a * deg2rad)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	return wrapAngle(a) / deg2rad
}
