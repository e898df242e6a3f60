package orbits

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Frame defines which plane of the parent frame the orbits are drawn in.
type Frame uint8

const (
	// PlaneXY places orbits in the x-y plane with +z as the orbit normal.
	PlaneXY Frame = iota
	// PlaneXZ places orbits in the x-z plane with +y as the orbit normal, as y-up renderers expect.
	PlaneXZ
)

func (f Frame) String() string {
	switch f {
	case PlaneXY:
		return "xy"
	case PlaneXZ:
		return "xz"
	}
	return fmt.Sprintf("Frame(%d)", uint8(f))
}

// FrameFromString returns the frame for "xy" or "xz".
func FrameFromString(s string) (Frame, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xy":
		return PlaneXY, nil
	case "xz":
		return PlaneXZ, nil
	}
	return PlaneXY, fmt.Errorf("unknown frame `%s`", s)
}

// toParent returns the rotation from the perifocal frame of an orbit with the given argument of
// periapsis into the parent frame.
func (f Frame) toParent(ω float64) *mat.Dense {
	var m mat.Dense
	switch f {
	case PlaneXZ:
		m.Mul(R1(math.Pi/2), R3(-ω))
	default:
		m.CloneFrom(R3(-ω))
	}
	return &m
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v []float64) (o []float64) {
	vVec := mat.NewVecDense(len(v), v)
	var rVec mat.VecDense
	rVec.MulVec(m, vVec)
	return []float64{rVec.AtVec(0), rVec.AtVec(1), rVec.AtVec(2)}
}
