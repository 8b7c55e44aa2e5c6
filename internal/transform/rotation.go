// Package transform provides the ECEF to ECI frame conversion.
//
// The pipeline is: calendar timestamp → Julian Date → Greenwich mean sidereal
// angle → rotation about the Z axis. Only Earth's spin is modeled; precession,
// nutation, polar motion and UT1-UTC are ignored, and the input timestamp is
// used directly as UT1.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vector3 is a position in km.
type Vector3 struct {
	X, Y, Z float64
}

// Norm returns the magnitude of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// IsFinite reports whether every component of v is neither NaN nor ±Inf.
func (v Vector3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Array returns v as [x, y, z].
func (v Vector3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// RotationMatrix3 is a right-handed 3x3 rotation about the Z axis.
type RotationMatrix3 struct {
	m *mat.Dense
}

// R3 returns the rotation about the 3rd axis by θ radians:
//
//	[ cos θ  sin θ  0 ]
//	[-sin θ  cos θ  0 ]
//	[   0      0    1 ]
func R3(θ float64) RotationMatrix3 {
	s, c := math.Sincos(θ)
	return RotationMatrix3{m: mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})}
}

// At returns the element at row i, column j.
func (r RotationMatrix3) At(i, j int) float64 {
	return r.m.At(i, j)
}

// MulVec returns r·v.
func (r RotationMatrix3) MulVec(v Vector3) Vector3 {
	in := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(r.m, in)
	return Vector3{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Rotate converts an ECEF vector to ECI given the sidereal angle θ (radians).
// The frame is rotated by -θ to undo Earth's spin; Z is left untouched.
func Rotate(θ float64, v Vector3) Vector3 {
	return R3(-θ).MulVec(v)
}

// ECEFToECI converts an ECEF position (km) to ECI at the given timestamp.
func ECEFToECI(ts CalendarTimestamp, ecef Vector3) Vector3 {
	return Rotate(SiderealAngle(JulianDate(ts)), ecef)
}

// ECIToECEF is the inverse of ECEFToECI.
func ECIToECEF(ts CalendarTimestamp, eci Vector3) Vector3 {
	return Rotate(-SiderealAngle(JulianDate(ts)), eci)
}

// Convert is ECEFToECI over plain scalars: a civil date and time plus an ECEF
// position in km, returning the ECI position in km.
func Convert(year, month, day, hour, minute int, second, x, y, z float64) (float64, float64, float64) {
	ts := CalendarTimestamp{
		Year:   year,
		Month:  month,
		Day:    day,
		Hour:   hour,
		Minute: minute,
		Second: second,
	}
	eci := ECEFToECI(ts, Vector3{X: x, Y: y, Z: z})
	return eci.X, eci.Y, eci.Z
}
