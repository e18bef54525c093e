package transform

import "math"

// AltAz is a horizontal coordinate at a site: azimuth clockwise from north
// in [0, 2*pi), altitude above the horizon in [-pi/2, pi/2], and straight
// line distance in meters. A NaN distance marks a direction-only coordinate,
// which cannot be converted back to ITRS.
type AltAz struct {
	AzRad     float64
	AltRad    float64
	DistanceM float64
	Frame     Frame
}

// HADec is a local equatorial coordinate at a site: hour angle in
// (-pi, pi], declination in [-pi/2, pi/2], and distance in meters.
// A NaN distance marks a direction-only coordinate.
type HADec struct {
	HARad     float64
	DecRad    float64
	DistanceM float64
	Frame     Frame
}

// hasDistance reports whether a coordinate carries a usable distance.
// Zero is valid (the point collapses onto the observer); NaN, Inf and
// negative values are not.
func hasDistance(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d >= 0
}

// clip limits x to [-1, 1] so rounding noise cannot push an asin argument
// out of its domain.
func clip(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// safeDenom substitutes +Inf for an exactly zero denominator so the quotient
// evaluates to zero instead of faulting. The zero only occurs at poles and
// zenith/nadir, where the derived angle is degenerate anyway.
func safeDenom(x float64) float64 {
	if x == 0 {
		return math.Inf(1)
	}
	return x
}

// enuToAltAz converts an East-North-Up vector (meters) to azimuth, altitude
// (radians) and distance (meters).
func enuToAltAz(v Vec3) (az, alt, dist float64) {
	e, n, u := v.X, v.Y, v.Z
	dist = math.Sqrt(e*e + n*n + u*u)
	alt = math.Atan2(u, math.Hypot(e, n))
	az = WrapAzimuth(math.Atan2(e, n))
	return az, alt, dist
}

// altAzToENU converts azimuth, altitude (radians) and distance (meters) to
// an East-North-Up vector.
func altAzToENU(az, alt, dist float64) Vec3 {
	cosAlt := math.Cos(alt)
	return Vec3{
		X: dist * cosAlt * math.Sin(az),
		Y: dist * cosAlt * math.Cos(az),
		Z: dist * math.Sin(alt),
	}
}

// altAzToHADec converts a horizontal direction to hour angle and declination
// at a site with geodetic latitude latRad, via the standard spherical
// triangle between the pole, the zenith and the target.
func altAzToHADec(az, alt, latRad float64) (ha, dec float64) {
	sinAlt, cosAlt := math.Sin(alt), math.Cos(alt)
	sinLat, cosLat := math.Sin(latRad), math.Cos(latRad)
	cosAz := math.Cos(az)

	dec = math.Asin(clip(sinAlt*sinLat + cosAlt*cosLat*cosAz))

	cosDec := math.Cos(dec)
	sinH := -math.Sin(az) * cosAlt / safeDenom(cosDec)
	cosH := (sinAlt - sinLat*math.Sin(dec)) / safeDenom(cosLat*cosDec)
	ha = WrapHourAngle(math.Atan2(sinH, cosH))
	return ha, dec
}

// haDecToAltAz is the inverse of altAzToHADec.
func haDecToAltAz(ha, dec, latRad float64) (az, alt float64) {
	sinLat, cosLat := math.Sin(latRad), math.Cos(latRad)
	sinDec, cosDec := math.Sin(dec), math.Cos(dec)
	sinH, cosH := math.Sin(ha), math.Cos(ha)

	sinAlt := clip(sinDec*sinLat + cosDec*cosLat*cosH)
	alt = math.Asin(sinAlt)

	cosAlt := safeDenom(math.Cos(alt))
	sinAz := -sinH * cosDec / cosAlt
	cosAz := (sinDec - sinLat*sinAlt) / safeDenom(cosLat*cosAlt)
	az = WrapAzimuth(math.Atan2(sinAz, cosAz))
	return az, alt
}
