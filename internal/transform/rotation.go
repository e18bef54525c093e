package transform

import "math"

// ECEFToENURotation builds the rotation matrix taking an ECEF (ITRS) vector
// to local East-North-Up components at a site with the given geodetic
// latitude and longitude (radians).
//
// Row layout, acting on a column vector [x y z]:
//
//	[ -sin(lon)           cos(lon)          0        ]
//	[ -sin(lat)cos(lon)  -sin(lat)sin(lon)  cos(lat) ]
//	[  cos(lat)cos(lon)   cos(lat)sin(lon)  sin(lat) ]
//
// The matrix is orthonormal; use Transpose for the ENU -> ECEF direction.
func ECEFToENURotation(latRad, lonRad float64) Mat3 {
	sinLat, cosLat := math.Sin(latRad), math.Cos(latRad)
	sinLon, cosLon := math.Sin(lonRad), math.Cos(lonRad)
	return Mat3{
		{-sinLon, cosLon, 0},
		{-sinLat * cosLon, -sinLat * sinLon, cosLat},
		{cosLat * cosLon, cosLat * sinLon, sinLat},
	}
}
