package transform

import (
	"errors"
	"fmt"
	"time"
)

// Transform failure modes. All are deterministic functions of the input;
// none is transient or worth retrying.
var (
	// ErrMissingFrameAttribute reports a frame used for an observed
	// transform without a site or an obstime.
	ErrMissingFrameAttribute = errors.New("missing frame attribute")

	// ErrUnsupportedRefraction reports a nonzero pressure on a frame.
	// The direct ITRS<->observed transforms do not model atmospheric
	// refraction; the caller must set pressure to zero.
	ErrUnsupportedRefraction = errors.New("refraction not supported by direct transform")

	// ErrMissingDistance reports an observed-to-ITRS conversion attempted
	// from a direction-only coordinate. A bare direction cannot be placed
	// in absolute space.
	ErrMissingDistance = errors.New("distance required")

	// ErrFrameMismatch reports a batch element whose own frame differs
	// from the frame the batch is evaluated under.
	ErrFrameMismatch = errors.New("coordinate frame differs from batch frame")
)

// Frame describes an observed (AltAz or HADec) frame: the site it is tied
// to, the epoch of observation, and the atmospheric pressure in hPa.
// Site and Obstime must be set before any transform runs; a nonzero
// pressure is rejected rather than silently ignored.
type Frame struct {
	Site        *Site
	Obstime     time.Time
	PressureHPa float64
}

// validate enforces the precondition order site -> obstime -> refraction.
func (f Frame) validate() error {
	if f.Site == nil {
		return fmt.Errorf("%w: site", ErrMissingFrameAttribute)
	}
	if f.Obstime.IsZero() {
		return fmt.Errorf("%w: obstime", ErrMissingFrameAttribute)
	}
	if f.PressureHPa != 0 {
		return fmt.Errorf("%w (pressure=%g hPa)", ErrUnsupportedRefraction, f.PressureHPa)
	}
	return nil
}

// equal reports whether two frames describe the same site, epoch and
// pressure. Distinct Site pointers with matching geodetic values count
// as the same site.
func (f Frame) equal(o Frame) bool {
	if !f.Obstime.Equal(o.Obstime) || f.PressureHPa != o.PressureHPa {
		return false
	}
	if f.Site == o.Site {
		return true
	}
	if f.Site == nil || o.Site == nil {
		return false
	}
	return f.Site.LatRad == o.Site.LatRad &&
		f.Site.LonRad == o.Site.LonRad &&
		f.Site.HeightM == o.Site.HeightM
}
