package orbits

import (
	"fmt"
	"math"
)

const (
	keplerε       = 1e-12 // radians
	keplerMaxIter = 50
	// Above this eccentricity Newton is seeded at π instead of M, which converges for any M.
	keplerHighE = 0.8
)

// EccentricAnomaly solves Kepler's equation E - e*sin(E) = M for E via Newton-Raphson.
// The mean anomaly is first wrapped into [0, 2π) and the returned E, also in [0, 2π), lies in the
// same half of the orbit as M. Returns ErrInvalidOrbit if e is not in [0, 1) and ErrNotConverged if the
// iteration budget is exhausted.
func EccentricAnomaly(e, M float64) (float64, error) {
	if !(e >= 0 && e < 1) {
		return 0, fmt.Errorf("%w: eccentricity %g not in [0, 1)", ErrInvalidOrbit, e)
	}
	if !finite(M) {
		return 0, fmt.Errorf("%w: mean anomaly %g", ErrInvalidOrbit, M)
	}
	M = wrapAngle(M)
	if e == 0 {
		return M, nil
	}
	E := M
	if e >= keplerHighE {
		E = math.Pi
	}
	for i := 0; i < keplerMaxIter; i++ {
		sinE, cosE := math.Sincos(E)
		δ := (E - e*sinE - M) / (1 - e*cosE)
		E -= δ
		if !finite(E) {
			break
		}
		if math.Abs(δ) < keplerε {
			return wrapAngle(E), nil
		}
	}
	return E, fmt.Errorf("%w: Kepler's equation after %d iterations (e=%g, M=%g)", ErrNotConverged, keplerMaxIter, e, M)
}

// TrueAnomaly returns the true anomaly in [0, 2π) from the eccentric anomaly.
// This is the half-angle relation tan(ν/2) = sqrt((1+e)/(1-e)) tan(E/2), where the quadrant
// follows E: the first half of the orbit (E < π) maps to ν < π, the second to the reflected branch.
func TrueAnomaly(e, E float64) float64 {
	sinE2, cosE2 := math.Sincos(E / 2)
	return wrapAngle(2 * math.Atan2(math.Sqrt(1+e)*sinE2, math.Sqrt(1-e)*cosE2))
}

// EccentricFromTrue returns the eccentric anomaly in [0, 2π) for the true anomaly ν.
func EccentricFromTrue(e, ν float64) float64 {
	sinν2, cosν2 := math.Sincos(ν / 2)
	return wrapAngle(2 * math.Atan2(math.Sqrt(1-e)*sinν2, math.Sqrt(1+e)*cosν2))
}

// MeanAnomalyFromTrue returns the mean anomaly in [0, 2π) for the true anomaly ν.
func MeanAnomalyFromTrue(e, ν float64) float64 {
	E := EccentricFromTrue(e, ν)
	return wrapAngle(E - e*math.Sin(E))
}
