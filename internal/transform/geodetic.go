package transform

import "math"

// WGS-84 ellipsoid parameters.
const (
	wgs84AKm = 6378.137              // semi-major axis (km)
	wgs84F   = 1.0 / 298.257223563   // flattening
	wgs84E2  = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// GeodeticPoint holds a geodetic position (latitude/longitude in degrees, altitude in km).
type GeodeticPoint struct {
	LatDeg, LonDeg, AltKm float64
}

// GeodeticToECEF converts WGS-84 geodetic coordinates to an ECEF position.
// Latitude and longitude are in degrees, altitude in km above the ellipsoid.
func GeodeticToECEF(latDeg, lonDeg, altKm float64) Vector3 {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0

	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	// Radius of curvature in the prime vertical.
	N := wgs84AKm / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Vector3{
		X: (N + altKm) * cosLat * cosLon,
		Y: (N + altKm) * cosLat * sinLon,
		Z: (N*(1-wgs84E2) + altKm) * sinLat,
	}
}

// ECEFToGeodetic converts an ECEF position (km) to geodetic coordinates
// using the iterative Bowring method. Converges in 2-3 iterations near Earth.
func ECEFToGeodetic(v Vector3) GeodeticPoint {
	lon := math.Atan2(v.Y, v.X)
	p := math.Hypot(v.X, v.Y)

	lat := math.Atan2(v.Z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		N := wgs84AKm / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(v.Z+wgs84E2*N*sinLat, p)
	}

	sinLat, cosLat := math.Sincos(lat)
	N := wgs84AKm / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - N
	} else {
		alt = math.Abs(v.Z)/math.Abs(sinLat) - N*(1-wgs84E2)
	}

	return GeodeticPoint{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltKm:  alt,
	}
}
