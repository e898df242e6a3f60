package orbits

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	eccentricityε = 1e-9
	angleε        = 1e-9 // radians
	distanceε     = 1e-9 // relative to the semi major axis
)

// Orbit defines an elliptic orbit about its parent via four orbital elements.
// The orbit lies in the reference plane of the parent, so there is no inclination nor RAAN.
type Orbit struct {
	SemiMajorAxis      float64 // a; zero pins the body on its parent
	Eccentricity       float64 // e in [0, 1)
	ArgPeriapsis       float64 // ω in radians
	InitialMeanAnomaly float64 // M₀ in radians, i.e. the mean anomaly at simulation time zero
}

// Fixed returns whether this orbit pins the body at its parent's position.
func (o Orbit) Fixed() bool {
	return o.SemiMajorAxis == 0
}

// Validate returns an ErrInvalidOrbit wrapped error if the elements are out of domain.
// A fixed orbit is always valid whatever its other elements.
func (o Orbit) Validate() error {
	if o.Fixed() {
		return nil
	}
	if !finite(o.SemiMajorAxis) || o.SemiMajorAxis < 0 {
		return fmt.Errorf("%w: semi major axis %g", ErrInvalidOrbit, o.SemiMajorAxis)
	}
	if !(o.Eccentricity >= 0 && o.Eccentricity < 1) {
		return fmt.Errorf("%w: eccentricity %g not in [0, 1)", ErrInvalidOrbit, o.Eccentricity)
	}
	if !finite(o.ArgPeriapsis, o.InitialMeanAnomaly) {
		return fmt.Errorf("%w: non finite angle (ω=%g, M₀=%g)", ErrInvalidOrbit, o.ArgPeriapsis, o.InitialMeanAnomaly)
	}
	return nil
}

// validFor validates the orbit and the gravitational parameter it moves under.
func (o Orbit) validFor(μ float64) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if !o.Fixed() && !(μ > 0 && !math.IsInf(μ, 1)) {
		return fmt.Errorf("%w: gravitational parameter %g", ErrInvalidOrbit, μ)
	}
	return nil
}

// SemiParameter returns the semi parameter (semi latus rectum).
func (o Orbit) SemiParameter() float64 {
	return o.SemiMajorAxis * (1 - o.Eccentricity*o.Eccentricity)
}

// SemiMinorAxis returns the semi minor axis.
func (o Orbit) SemiMinorAxis() float64 {
	return o.SemiMajorAxis * math.Sqrt(1-o.Eccentricity*o.Eccentricity)
}

// Apoapsis returns the apoapsis radius.
func (o Orbit) Apoapsis() float64 {
	return o.SemiMajorAxis * (1 + o.Eccentricity)
}

// Periapsis returns the periapsis radius.
func (o Orbit) Periapsis() float64 {
	return o.SemiMajorAxis * (1 - o.Eccentricity)
}

// Period returns the period of this orbit in simulation seconds, or zero for a fixed orbit.
func (o Orbit) Period(μ float64) float64 {
	if o.Fixed() {
		return 0
	}
	return twoPi * math.Sqrt(math.Pow(o.SemiMajorAxis, 3)/μ)
}

// MeanMotion returns 2π/period, or zero for a fixed orbit.
func (o Orbit) MeanMotion(μ float64) float64 {
	if o.Fixed() {
		return 0
	}
	return math.Sqrt(μ / math.Pow(o.SemiMajorAxis, 3))
}

// MeanAnomalyAt returns the mean anomaly in [0, 2π) at time t.
// The argument of periapsis is not part of the anomaly clock: it only orients the ellipse.
func (o Orbit) MeanAnomalyAt(μ, t float64) float64 {
	return wrapAngle(o.InitialMeanAnomaly + o.MeanMotion(μ)*t)
}

// anomalies returns the mean, eccentric and true anomalies at time t.
func (o Orbit) anomalies(μ, t float64) (M, E, ν float64, err error) {
	M = o.MeanAnomalyAt(μ, t)
	if E, err = EccentricAnomaly(o.Eccentricity, M); err != nil {
		return
	}
	ν = TrueAnomaly(o.Eccentricity, E)
	return
}

// TrueAnomalyAt returns the true anomaly in [0, 2π) at time t.
func (o Orbit) TrueAnomalyAt(μ, t float64) (float64, error) {
	if err := o.validFor(μ); err != nil {
		return 0, err
	}
	_, _, ν, err := o.anomalies(μ, t)
	return ν, err
}

// RadiusAt returns the distance to the parent at time t.
func (o Orbit) RadiusAt(μ, t float64) (float64, error) {
	if err := o.validFor(μ); err != nil {
		return 0, err
	}
	if o.Fixed() {
		return 0, nil
	}
	_, E, _, err := o.anomalies(μ, t)
	if err != nil {
		return 0, err
	}
	return o.SemiMajorAxis * (1 - o.Eccentricity*math.Cos(E)), nil
}

// RV returns the position and velocity at time t relative to the parent, in the provided frame.
func (o Orbit) RV(μ, t float64, f Frame) (R, V []float64, err error) {
	if o.Fixed() {
		return []float64{0, 0, 0}, []float64{0, 0, 0}, nil
	}
	if err = o.validFor(μ); err != nil {
		return nil, nil, err
	}
	_, E, ν, err := o.anomalies(μ, t)
	if err != nil {
		return nil, nil, err
	}
	r := o.SemiMajorAxis * (1 - o.Eccentricity*math.Cos(E))
	sinν, cosν := math.Sincos(ν)
	vScale := math.Sqrt(μ / o.SemiParameter())
	rot := f.toParent(o.ArgPeriapsis)
	R = MxV33(rot, []float64{r * cosν, r * sinν, 0})
	V = MxV33(rot, []float64{-vScale * sinν, vScale * (o.Eccentricity + cosν), 0})
	return R, V, nil
}

// Position returns the position at time t relative to the parent in the x-y plane.
func (o Orbit) Position(μ, t float64) ([]float64, error) {
	R, _, err := o.RV(μ, t, PlaneXY)
	return R, err
}

// Velocity returns the velocity at time t relative to the parent in the x-y plane.
func (o Orbit) Velocity(μ, t float64) ([]float64, error) {
	_, V, err := o.RV(μ, t, PlaneXY)
	return V, err
}

// Center returns the position of the geometric center of the ellipse relative to the parent.
// The parent sits on a focus, so hosts drawing the ellipse must offset it by a*e away from the periapsis.
func (o Orbit) Center(f Frame) []float64 {
	return MxV33(f.toParent(o.ArgPeriapsis), []float64{-o.SemiMajorAxis * o.Eccentricity, 0, 0})
}

// FlightPathAngle returns the flight path angle at the true anomaly ν.
// As per Vallado page 105, this is computed with atan2 to avoid quadrant problems.
func (o Orbit) FlightPathAngle(ν float64) float64 {
	sinν, cosν := math.Sincos(ν)
	return math.Atan2(o.Eccentricity*sinν, 1+o.Eccentricity*cosν)
}

// Rephase returns this orbit with its initial mean anomaly adjusted such that its mean anomaly at
// time t is the same under newμ as it was under oldμ. Used when the parent's mass changes.
func (o Orbit) Rephase(oldμ, newμ, t float64) Orbit {
	if o.Fixed() {
		return o
	}
	M := o.MeanAnomalyAt(oldμ, t)
	o.InitialMeanAnomaly = wrapAngle(M - o.MeanMotion(newμ)*t)
	return o
}

// Rephased returns the orbit o, which replaces prev at time t, such that the body does not jump
// along its orbit: the mean anomaly at t is the one of prev, shifted by however much the initial mean
// anomaly was edited.
func Rephased(prev Orbit, prevμ float64, o Orbit, μ, t float64) Orbit {
	if o.Fixed() {
		return o
	}
	M := prev.MeanAnomalyAt(prevμ, t) + (o.InitialMeanAnomaly - prev.InitialMeanAnomaly)
	o.InitialMeanAnomaly = wrapAngle(M - o.MeanMotion(μ)*t)
	return o
}

// String implements the stringer interface (hence the value receiver)
func (o Orbit) String() string {
	if o.Fixed() {
		return "fixed"
	}
	return fmt.Sprintf("a=%.3f e=%.4f ω=%.3f M₀=%.3f", o.SemiMajorAxis, o.Eccentricity, Rad2deg(o.ArgPeriapsis), Rad2deg(o.InitialMeanAnomaly))
}

// Equals returns whether two orbits are identical within tolerance.
func (o Orbit) Equals(o1 Orbit) (bool, error) {
	if !scalar.EqualWithinAbs(o.SemiMajorAxis, o1.SemiMajorAxis, distanceε*math.Max(1, o.SemiMajorAxis)) {
		return false, errors.New("semi major axis invalid")
	}
	if o.Fixed() {
		return true, nil
	}
	if !scalar.EqualWithinAbs(o.Eccentricity, o1.Eccentricity, eccentricityε) {
		return false, errors.New("eccentricity invalid")
	}
	if o.Eccentricity < eccentricityε {
		// Circular orbit: only the sum ω + M₀ (the phase) matters.
		if !anglesEqual(o.ArgPeriapsis+o.InitialMeanAnomaly, o1.ArgPeriapsis+o1.InitialMeanAnomaly, angleε) {
			return false, errors.New("phase invalid")
		}
		return true, nil
	}
	if !anglesEqual(o.ArgPeriapsis, o1.ArgPeriapsis, angleε) {
		return false, errors.New("argument of periapsis invalid")
	}
	if !anglesEqual(o.InitialMeanAnomaly, o1.InitialMeanAnomaly, angleε) {
		return false, errors.New("initial mean anomaly invalid")
	}
	return true, nil
}
