// Package transform implements direct coordinate transforms between the
// ECEF (ITRS) frame and observer-relative "observed" frames: horizontal
// Alt/Az and hour-angle/declination.
//
// The transforms work purely in ITRS: subtract the observer's ECEF position
// to get a topocentric vector, rotate it into East-North-Up at the site, and
// read the spherical angles off the ENU components (and back). No
// intermediate inertial frame is involved, so the only time dependence is
// re-expressing an ITRS input at the frame's epoch.
//
// Atmospheric refraction is not modeled: any frame carrying a nonzero
// pressure is rejected with ErrUnsupportedRefraction.
package transform

import (
	"fmt"
	"time"
)

// ITRSToAltAz transforms an ITRS position to a horizontal coordinate in the
// given observed frame. The frame must carry a site and an obstime and zero
// pressure. An input expressed at a different epoch (or with its epoch
// unset) is first re-expressed at the frame's obstime.
func ITRSToAltAz(p Position, frame Frame) (AltAz, error) {
	if err := frame.validate(); err != nil {
		return AltAz{}, fmt.Errorf("itrs to altaz: %w", err)
	}

	enu := itrsToENU(p, frame)
	az, alt, dist := enuToAltAz(enu)

	return AltAz{AzRad: az, AltRad: alt, DistanceM: dist, Frame: frame}, nil
}

// ITRSToHADec transforms an ITRS position to an hour-angle/declination
// coordinate in the given observed frame, under the same preconditions as
// ITRSToAltAz.
func ITRSToHADec(p Position, frame Frame) (HADec, error) {
	if err := frame.validate(); err != nil {
		return HADec{}, fmt.Errorf("itrs to hadec: %w", err)
	}

	enu := itrsToENU(p, frame)
	az, alt, dist := enuToAltAz(enu)
	ha, dec := altAzToHADec(az, alt, frame.Site.LatRad)

	return HADec{HARad: ha, DecRad: dec, DistanceM: dist, Frame: frame}, nil
}

// AltAzToITRS converts a horizontal coordinate with a distance back to an
// absolute ITRS position, re-expressed at obstime when that differs from
// the coordinate's own epoch. The returned position always carries obstime
// as its label, even when obstime is the zero (unset) epoch.
func AltAzToITRS(c AltAz, obstime time.Time) (Position, error) {
	if err := c.Frame.validate(); err != nil {
		return Position{}, fmt.Errorf("altaz to itrs: %w", err)
	}
	if !hasDistance(c.DistanceM) {
		return Position{}, fmt.Errorf("altaz to itrs: %w", ErrMissingDistance)
	}

	enu := altAzToENU(WrapAzimuth(c.AzRad), c.AltRad, c.DistanceM)
	return enuToITRS(enu, c.Frame, obstime), nil
}

// HADecToITRS converts an hour-angle/declination coordinate with a distance
// back to an absolute ITRS position, under the same rules as AltAzToITRS.
func HADecToITRS(c HADec, obstime time.Time) (Position, error) {
	if err := c.Frame.validate(); err != nil {
		return Position{}, fmt.Errorf("hadec to itrs: %w", err)
	}
	if !hasDistance(c.DistanceM) {
		return Position{}, fmt.Errorf("hadec to itrs: %w", ErrMissingDistance)
	}

	az, alt := haDecToAltAz(WrapHourAngle(c.HARad), c.DecRad, c.Frame.Site.LatRad)
	enu := altAzToENU(az, alt, c.DistanceM)
	return enuToITRS(enu, c.Frame, obstime), nil
}

// itrsToENU aligns p to the frame's epoch, subtracts the observer and
// rotates the topocentric vector into East-North-Up at the site.
// The frame has already been validated.
func itrsToENU(p Position, frame Frame) Vec3 {
	if !p.Obstime.Equal(frame.Obstime) {
		p = p.Retarget(frame.Obstime)
	}
	obs := frame.Site.ITRSAt(frame.Obstime)
	topo := p.Vec3.Sub(obs.Vec3)
	return ECEFToENURotation(frame.Site.LatRad, frame.Site.LonRad).MulVec(topo)
}

// enuToITRS rotates an ENU vector back to ECEF, adds the observer position
// at the coordinate's own epoch, then re-expresses the absolute position at
// obstime when the two differ. The result is labeled with obstime either way.
func enuToITRS(enu Vec3, frame Frame, obstime time.Time) Position {
	rot := ECEFToENURotation(frame.Site.LatRad, frame.Site.LonRad)
	topo := rot.Transpose().MulVec(enu)

	obs := frame.Site.ITRSAt(frame.Obstime)
	abs := Position{Vec3: topo.Add(obs.Vec3), Obstime: frame.Obstime}

	if !obstime.Equal(frame.Obstime) {
		return abs.Retarget(obstime)
	}
	return abs
}
