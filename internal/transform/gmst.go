package transform

import "math"

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00).
const j2000 = 2451545.0

// secondsPerDay is the length of a solar day in seconds.
const secondsPerDay = 86400.0

// OmegaEarth is Earth's rotation rate in rad/s used to turn sidereal seconds
// of time into an angle.
const OmegaEarth = 7.292115e-5

// MaxSiderealAngle is the exclusive upper bound of SiderealAngle.
const MaxSiderealAngle = secondsPerDay * OmegaEarth

// SiderealSeconds returns Greenwich Mean Sidereal Time in seconds of time for
// the given Julian Date (UT1), reduced into [0, 86400).
//
// IAU-82 model, Vallado "Fundamentals of Astrodynamics" Eq 3-47:
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
//
// where T is Julian centuries of UT1 from J2000.0.
func SiderealSeconds(jd float64) float64 {
	tUT1 := (jd - j2000) / 36525.0

	// 876600h = 876600 * 3600 = 3155760000 seconds.
	gmstSec := 67310.54841 +
		(876600*3600+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	return floorMod(gmstSec, secondsPerDay)
}

// SiderealAngle returns the Earth rotation angle in radians for the given
// Julian Date (UT1): the reduced sidereal seconds scaled by OmegaEarth.
//
// The result lies in [0, MaxSiderealAngle). MaxSiderealAngle is slightly
// above 2π because sidereal seconds are scaled by the rotation rate rather
// than by 2π/86400.
func SiderealAngle(jd float64) float64 {
	return SiderealSeconds(jd) * OmegaEarth
}

// floorMod returns x mod y with the sign of y, so the result for y > 0 is
// always in [0, y). math.Mod alone keeps the sign of x.
func floorMod(x, y float64) float64 {
	r := math.Mod(x, y)
	if r < 0 {
		r += y
	}
	// A tiny negative remainder can round up to exactly y.
	if r >= y {
		r = 0
	}
	return r
}
