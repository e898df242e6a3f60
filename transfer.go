package orbits

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// TransferCase defines which algorithm plans a transfer.
type TransferCase uint8

const (
	// HohmannCircular is the closed form Hohmann transfer between two circular orbits.
	HohmannCircular TransferCase = iota + 1
	// Tangential is the general transfer, tangent to the target orbit on arrival.
	Tangential
	transferScanSteps = 720
	transferMaxIter   = 200
	transferθε        = 1e-13 // radians
	transferResidualε = 1e-6  // relative
)

func (c TransferCase) String() string {
	switch c {
	case HohmannCircular:
		return "hohmann"
	case Tangential:
		return "tangential"
	}
	return fmt.Sprintf("TransferCase(%d)", uint8(c))
}

// Classify returns which algorithm PlanTransfer uses between these two orbits.
func Classify(start, target Orbit) TransferCase {
	if start.Eccentricity == 0 && target.Eccentricity == 0 {
		return HohmannCircular
	}
	return Tangential
}

// Maneuver replaces the Start orbit by the Target orbit at ExecutionTime (absolute simulation time).
type Maneuver struct {
	Start, Target Orbit
	ExecutionTime float64
}

// DeltaV returns the impulse vector (in the x-y plane) and its magnitude needed to perform this maneuver.
func (m Maneuver) DeltaV(μ float64) ([]float64, float64, error) {
	vI, err := m.Start.Velocity(μ, m.ExecutionTime)
	if err != nil {
		return nil, 0, err
	}
	vF, err := m.Target.Velocity(μ, m.ExecutionTime)
	if err != nil {
		return nil, 0, err
	}
	Δv := sub(vF, vI)
	return Δv, norm(Δv), nil
}

func (m Maneuver) String() string {
	return fmt.Sprintf("@%.3f: %s -> %s", m.ExecutionTime, m.Start, m.Target)
}

// Transfer is an ordered list of maneuvers, front to back in execution order.
type Transfer struct {
	Maneuvers []Maneuver
}

// Len returns the number of maneuvers.
func (t Transfer) Len() int {
	return len(t.Maneuvers)
}

// Duration returns the time between the first and the last maneuver.
func (t Transfer) Duration() float64 {
	if len(t.Maneuvers) == 0 {
		return 0
	}
	return t.Maneuvers[len(t.Maneuvers)-1].ExecutionTime - t.Maneuvers[0].ExecutionTime
}

// Final returns the orbit this transfer ends on.
func (t Transfer) Final() (Orbit, bool) {
	if len(t.Maneuvers) == 0 {
		return Orbit{}, false
	}
	return t.Maneuvers[len(t.Maneuvers)-1].Target, true
}

// TotalDeltaV returns the sum of the impulse magnitudes.
func (t Transfer) TotalDeltaV(μ float64) (float64, error) {
	total := 0.0
	for _, m := range t.Maneuvers {
		_, Δv, err := m.DeltaV(μ)
		if err != nil {
			return 0, err
		}
		total += Δv
	}
	return total, nil
}

// PlanTransfer computes the maneuvers moving a body from the start orbit onto the target orbit,
// departing at the absolute simulation time t. Both orbits move under the same gravitational parameter μ.
// When both orbits are circular this is a Hohmann transfer; otherwise the transfer orbit departs with an
// apse at the departure point and arrives tangentially onto the target orbit.
// This function has no side effects.
func PlanTransfer(start, target Orbit, μ, t float64) (Transfer, error) {
	for _, o := range []Orbit{start, target} {
		if err := o.validFor(μ); err != nil {
			return Transfer{}, err
		}
		if o.Fixed() {
			return Transfer{}, fmt.Errorf("%w: cannot transfer from or to a fixed orbit", ErrInvalidOrbit)
		}
	}
	if !(μ > 0) {
		return Transfer{}, fmt.Errorf("%w: gravitational parameter %g", ErrInvalidOrbit, μ)
	}
	if !finite(t) {
		return Transfer{}, fmt.Errorf("%w: execution time %g", ErrInvalidOrbit, t)
	}
	var tr Transfer
	var err error
	if Classify(start, target) == HohmannCircular {
		tr = hohmannCircular(start, target, μ, t)
	} else if tr, err = tangential(start, target, μ, t); err != nil {
		return Transfer{}, err
	}
	for _, m := range tr.Maneuvers {
		o := m.Target
		if !finite(m.ExecutionTime, o.SemiMajorAxis, o.Eccentricity, o.ArgPeriapsis, o.InitialMeanAnomaly) {
			return Transfer{}, fmt.Errorf("%w: non finite maneuver %s", ErrTransferInfeasible, m)
		}
	}
	return tr, nil
}

// hohmannCircular is the closed form Hohmann transfer between two circular orbits.
func hohmannCircular(start, target Orbit, μ, t float64) Transfer {
	aI := start.SemiMajorAxis
	aF := target.SemiMajorAxis
	// Circular orbit: the true longitude is ω + M.
	λ := wrapAngle(start.ArgPeriapsis + start.MeanAnomalyAt(μ, t))

	xfer := Orbit{SemiMajorAxis: 0.5 * (aI + aF)}
	xfer.Eccentricity = math.Abs(1 - aI/xfer.SemiMajorAxis)
	// Raising departs from the periapsis of the transfer orbit, lowering from its apoapsis.
	ω, Mdep := λ, 0.0
	if aI > xfer.SemiMajorAxis {
		ω, Mdep = λ-math.Pi, math.Pi
	}
	xfer.ArgPeriapsis = wrapAngle(ω)
	xfer.InitialMeanAnomaly = wrapAngle(Mdep - xfer.MeanMotion(μ)*t)
	arrival := t + xfer.Period(μ)/2

	// Arrival is half a revolution after departure, i.e. at λ+π.
	final := Orbit{SemiMajorAxis: aF, Eccentricity: target.Eccentricity}
	final.InitialMeanAnomaly = wrapAngle(λ + math.Pi - final.MeanMotion(μ)*arrival)

	return Transfer{Maneuvers: []Maneuver{
		{Start: start, Target: xfer, ExecutionTime: t},
		{Start: xfer, Target: final, ExecutionTime: arrival},
	}}
}

// tangential plans a transfer whose orbit has an apse at the departure point and which touches the
// target orbit tangentially.
//
// With u = 1/r, a conic with an apse at the departure point (radius rD, longitude λD) is
// u(θ) = 1/rD - C(1-cos θ), where θ is measured from λD and C = e/p (signed e: negative when the
// departure is the apoapsis). The target orbit is u = U and du/dλ = -V at the longitude λD+θ.
// Tangency requires C(cos θ - 1) = U - 1/rD and C sin θ = V, hence the root of
// h(θ) = V(cos θ - 1) - (U - 1/rD) sin θ. The root closest to half a revolution is used.
func tangential(start, target Orbit, μ, t float64) (Transfer, error) {
	_, E, ν, err := start.anomalies(μ, t)
	if err != nil {
		return Transfer{}, err
	}
	rD := start.SemiMajorAxis * (1 - start.Eccentricity*math.Cos(E))
	λ := wrapAngle(start.ArgPeriapsis + ν)
	invRD := 1 / rD

	eF := target.Eccentricity
	pF := target.SemiParameter()
	uv := func(θ float64) (U, V float64) {
		sinf, cosf := math.Sincos(λ + θ - target.ArgPeriapsis)
		return (1 + eF*cosf) / pF, eF * sinf / pF
	}
	h := func(θ float64) float64 {
		U, V := uv(θ)
		sinθ, cosθ := math.Sincos(θ)
		return V*(cosθ-1) - (U-invRD)*sinθ
	}

	θ, err := transferSweep(h, invRD)
	if err != nil {
		return Transfer{}, err
	}

	U, V := uv(θ)
	sinθ, cosθ := math.Sincos(θ)
	C := ((cosθ-1)*(U-invRD) + sinθ*V) / ((cosθ-1)*(cosθ-1) + sinθ*sinθ)
	if residual := C*(cosθ-1) - (U - invRD); math.Abs(residual) > transferResidualε*invRD {
		return Transfer{}, fmt.Errorf("%w: tangency residual %g at θ=%g", ErrNotConverged, residual, θ)
	}
	denom := 1 - C*rD
	if scalar.EqualWithinAbs(denom, 0, 1e-12) {
		return Transfer{}, fmt.Errorf("%w: parabolic transfer orbit (θ=%g)", ErrTransferInfeasible, θ)
	}
	eSigned := C * rD / denom
	if math.Abs(eSigned) >= 1 {
		return Transfer{}, fmt.Errorf("%w: transfer orbit eccentricity %g is not elliptic", ErrTransferInfeasible, eSigned)
	}

	xfer := Orbit{Eccentricity: math.Abs(eSigned), ArgPeriapsis: λ}
	xfer.SemiMajorAxis = rD * (1 + eSigned) / (1 - eSigned*eSigned)
	νDep := 0.0
	if eSigned < 0 {
		xfer.ArgPeriapsis += math.Pi
		νDep = math.Pi
	}
	xfer.ArgPeriapsis = wrapAngle(xfer.ArgPeriapsis)
	nX := xfer.MeanMotion(μ)
	Mdep := MeanAnomalyFromTrue(xfer.Eccentricity, νDep)
	Marr := MeanAnomalyFromTrue(xfer.Eccentricity, νDep+θ)
	xfer.InitialMeanAnomaly = wrapAngle(Mdep - nX*t)
	arrival := t + wrapAngle(Marr-Mdep)/nX

	f := wrapAngle(λ + θ - target.ArgPeriapsis)
	if err := arrivalRadiusCheck(xfer, νDep+θ, target, f); err != nil {
		return Transfer{}, err
	}
	final := target
	final.InitialMeanAnomaly = wrapAngle(MeanAnomalyFromTrue(eF, f) - final.MeanMotion(μ)*arrival)

	return Transfer{Maneuvers: []Maneuver{
		{Start: start, Target: xfer, ExecutionTime: t},
		{Start: xfer, Target: final, ExecutionTime: arrival},
	}}, nil
}

// arrivalRadiusCheck returns an error unless the transfer orbit at true anomaly ν and the target orbit
// at true anomaly f are at the same radius.
func arrivalRadiusCheck(xfer Orbit, ν float64, target Orbit, f float64) error {
	rX := xfer.SemiParameter() / (1 + xfer.Eccentricity*math.Cos(ν))
	rF := target.SemiParameter() / (1 + target.Eccentricity*math.Cos(f))
	if !finite(rX, rF) || !scalar.EqualWithinRel(rX, rF, transferResidualε) {
		return fmt.Errorf("%w: transfer orbit arrives at r=%g but the target is at r=%g", ErrTransferInfeasible, rX, rF)
	}
	return nil
}

// transferSweep returns the root of h in (0, 2π) closest to π.
// h is sampled to bracket sign changes, and the chosen bracket is refined by bisection.
// If h vanishes everywhere (identical radii), a half revolution is returned.
func transferSweep(h func(float64) float64, scale float64) (float64, error) {
	step := twoPi / transferScanSteps
	var bestA, bestB float64
	found := false
	maxAbs := 0.0
	prevθ, prev := step, h(step)
	for i := 2; i < transferScanSteps; i++ {
		θ := float64(i) * step
		cur := h(θ)
		maxAbs = math.Max(maxAbs, math.Abs(cur))
		if !finite(cur) {
			return 0, fmt.Errorf("%w: non finite tangency function at θ=%g", ErrTransferInfeasible, θ)
		}
		if prev == 0 || prev*cur < 0 {
			a, b := prevθ, θ
			if prev == 0 {
				b = prevθ
			}
			if !found || math.Abs(0.5*(a+b)-math.Pi) < math.Abs(0.5*(bestA+bestB)-math.Pi) {
				bestA, bestB, found = a, b, true
			}
		}
		prevθ, prev = θ, cur
	}
	if maxAbs < 1e-12*scale {
		return math.Pi, nil
	}
	if !found {
		return 0, fmt.Errorf("%w: no tangent transfer orbit", ErrTransferInfeasible)
	}
	a, b := bestA, bestB
	ha := h(a)
	for i := 0; i < transferMaxIter; i++ {
		if b-a < transferθε {
			return 0.5 * (a + b), nil
		}
		mid := 0.5 * (a + b)
		hm := h(mid)
		if hm == 0 {
			return mid, nil
		}
		if ha*hm < 0 {
			b = mid
		} else {
			a, ha = mid, hm
		}
	}
	return 0.5 * (a + b), fmt.Errorf("%w: transfer sweep after %d iterations", ErrNotConverged, transferMaxIter)
}
