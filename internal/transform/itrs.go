package transform

import (
	"math"
	"time"
)

// Position is an ECEF (ITRS) Cartesian position in meters tagged with the
// epoch it is expressed at. A zero Obstime means the epoch is unset.
type Position struct {
	Vec3
	Obstime time.Time
}

// Retarget re-expresses the position at a new epoch by rotating it about the
// Earth's axis through the sidereal angle swept between the two epochs. This
// is exact for points fixed in inertial space (stars, satellites at an
// instant) and is the operation astronomy libraries call an ITRS "obstime"
// transform.
//
// A position whose own epoch is unset cannot be rotated; it is adopted at
// the new epoch unchanged. Likewise, retargeting to the unset epoch only
// relabels.
func (p Position) Retarget(obstime time.Time) Position {
	if p.Obstime.IsZero() || obstime.IsZero() || p.Obstime.Equal(obstime) {
		return Position{Vec3: p.Vec3, Obstime: obstime}
	}

	// r(t2) = R3(θ2 - θ1) r(t1), with R3 a rotation about +Z.
	theta := GMST(obstime) - GMST(p.Obstime)
	cosT := math.Cos(theta)
	sinT := math.Sin(theta)

	return Position{
		Vec3: Vec3{
			X: p.X*cosT + p.Y*sinT,
			Y: -p.X*sinT + p.Y*cosT,
			Z: p.Z,
		},
		Obstime: obstime,
	}
}
