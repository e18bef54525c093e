package transform

import (
	"math"
	"time"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Site is a ground observer's location in both geodetic and ECEF form.
// The ECEF position is precomputed once at construction; a site is fixed in
// the rotating ITRS frame, so the same Cartesian position is valid at every
// epoch.
type Site struct {
	LatRad, LonRad, HeightM float64 // geodetic (radians, meters above ellipsoid)
	ECEF                    Vec3    // precomputed ECEF position (meters)
}

// NewSite creates a Site from geodetic coordinates. Latitude and longitude
// are in degrees, height in meters above the WGS-84 ellipsoid.
func NewSite(latDeg, lonDeg, heightM float64) *Site {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	sinLon := math.Sin(lon)
	cosLon := math.Cos(lon)

	// Radius of curvature in the prime vertical.
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return &Site{
		LatRad:  lat,
		LonRad:  lon,
		HeightM: heightM,
		ECEF: Vec3{
			X: (N + heightM) * cosLat * cosLon,
			Y: (N + heightM) * cosLat * sinLon,
			Z: (N*(1-wgs84E2) + heightM) * sinLat,
		},
	}
}

// ITRSAt resolves the site's ITRS position tagged with the given epoch.
// The Cartesian components do not depend on the epoch (the site co-rotates
// with the Earth); the tag records which epoch the caller is working at.
func (s *Site) ITRSAt(obstime time.Time) Position {
	return Position{Vec3: s.ECEF, Obstime: obstime}
}

// Geodetic holds a geodetic position (latitude/longitude in degrees,
// height in meters above the ellipsoid).
type Geodetic struct {
	LatDeg, LonDeg, HeightM float64
}

// ECEFToGeodetic converts an ECEF position (meters) to geodetic coordinates
// using the iterative Bowring method. Converges in 2-3 iterations for points
// between the surface and high Earth orbit.
func ECEFToGeodetic(v Vec3) Geodetic {
	lon := math.Atan2(v.Y, v.X)

	p := math.Sqrt(v.X*v.X + v.Y*v.Y)

	// Initial estimate.
	lat := math.Atan2(v.Z, p*(1-wgs84E2))

	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(v.Z+wgs84E2*N*sinLat, p)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var h float64
	if math.Abs(cosLat) > 1e-10 {
		h = p/cosLat - N
	} else {
		h = math.Abs(v.Z)/math.Abs(sinLat) - N*(1-wgs84E2)
	}

	return Geodetic{
		LatDeg:  lat * 180.0 / math.Pi,
		LonDeg:  lon * 180.0 / math.Pi,
		HeightM: h,
	}
}
