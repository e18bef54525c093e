package transform

import (
	"fmt"
	"time"
)

// Batch variants of the four transforms. Elements are independent, so the
// per-frame geometry (rotation matrix, observer position) is computed once
// and reused across the slice.

// ITRSToAltAzBatch transforms each position to a horizontal coordinate in
// the same observed frame.
func ITRSToAltAzBatch(ps []Position, frame Frame) ([]AltAz, error) {
	if err := frame.validate(); err != nil {
		return nil, fmt.Errorf("itrs to altaz: %w", err)
	}

	out := make([]AltAz, len(ps))
	for i, p := range ps {
		enu := itrsToENU(p, frame)
		az, alt, dist := enuToAltAz(enu)
		out[i] = AltAz{AzRad: az, AltRad: alt, DistanceM: dist, Frame: frame}
	}
	return out, nil
}

// ITRSToHADecBatch transforms each position to an hour-angle/declination
// coordinate in the same observed frame.
func ITRSToHADecBatch(ps []Position, frame Frame) ([]HADec, error) {
	if err := frame.validate(); err != nil {
		return nil, fmt.Errorf("itrs to hadec: %w", err)
	}

	out := make([]HADec, len(ps))
	for i, p := range ps {
		enu := itrsToENU(p, frame)
		az, alt, dist := enuToAltAz(enu)
		ha, dec := altAzToHADec(az, alt, frame.Site.LatRad)
		out[i] = HADec{HARad: ha, DecRad: dec, DistanceM: dist, Frame: frame}
	}
	return out, nil
}

// AltAzToITRSBatch converts each horizontal coordinate back to ITRS at the
// given epoch. Every coordinate must carry a distance and a frame equal to
// the batch frame; the first offending element aborts the batch.
func AltAzToITRSBatch(cs []AltAz, frame Frame, obstime time.Time) ([]Position, error) {
	if err := frame.validate(); err != nil {
		return nil, fmt.Errorf("altaz to itrs: %w", err)
	}

	out := make([]Position, len(cs))
	for i, c := range cs {
		if !c.Frame.equal(frame) {
			return nil, fmt.Errorf("altaz to itrs: element %d: %w", i, ErrFrameMismatch)
		}
		if !hasDistance(c.DistanceM) {
			return nil, fmt.Errorf("altaz to itrs: element %d: %w", i, ErrMissingDistance)
		}
		enu := altAzToENU(WrapAzimuth(c.AzRad), c.AltRad, c.DistanceM)
		out[i] = enuToITRS(enu, frame, obstime)
	}
	return out, nil
}

// HADecToITRSBatch converts each hour-angle/declination coordinate back to
// ITRS at the given epoch, under the same rules as AltAzToITRSBatch.
func HADecToITRSBatch(cs []HADec, frame Frame, obstime time.Time) ([]Position, error) {
	if err := frame.validate(); err != nil {
		return nil, fmt.Errorf("hadec to itrs: %w", err)
	}

	out := make([]Position, len(cs))
	for i, c := range cs {
		if !c.Frame.equal(frame) {
			return nil, fmt.Errorf("hadec to itrs: element %d: %w", i, ErrFrameMismatch)
		}
		if !hasDistance(c.DistanceM) {
			return nil, fmt.Errorf("hadec to itrs: element %d: %w", i, ErrMissingDistance)
		}
		az, alt := haDecToAltAz(WrapHourAngle(c.HARad), c.DecRad, frame.Site.LatRad)
		enu := altAzToENU(az, alt, c.DistanceM)
		out[i] = enuToITRS(enu, frame, obstime)
	}
	return out, nil
}
