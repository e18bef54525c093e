package api

import (
	"fmt"
	"math"
	"time"

	"github.com/groundside/pointgo/internal/transform"
)

// Wire types for the transform endpoints. Angles cross the wire in
// degrees (hour angles in hours), lengths in meters, epochs as RFC 3339
// timestamps. The core library works in radians; conversion happens
// here and nowhere else.

type siteJSON struct {
	LatDeg  float64 `json:"lat_deg"`
	LonDeg  float64 `json:"lon_deg"`
	HeightM float64 `json:"height_m"`
}

type frameJSON struct {
	Site        *siteJSON  `json:"site"`
	Obstime     *time.Time `json:"obstime"`
	PressureHPa float64    `json:"pressure_hpa"`
}

// toFrame leaves missing attributes unset so the transform layer can
// report them in its own precondition order.
func (f frameJSON) toFrame() transform.Frame {
	fr := transform.Frame{PressureHPa: f.PressureHPa}
	if f.Site != nil {
		fr.Site = transform.NewSite(f.Site.LatDeg, f.Site.LonDeg, f.Site.HeightM)
	}
	if f.Obstime != nil {
		fr.Obstime = *f.Obstime
	}
	return fr
}

type positionJSON struct {
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
	Z       float64    `json:"z"`
	Obstime *time.Time `json:"obstime,omitempty"`
}

func (p positionJSON) toPosition() transform.Position {
	pos := transform.Position{Vec3: transform.Vec3{X: p.X, Y: p.Y, Z: p.Z}}
	if p.Obstime != nil {
		pos.Obstime = *p.Obstime
	}
	return pos
}

func positionToJSON(p transform.Position) positionJSON {
	out := positionJSON{X: p.X, Y: p.Y, Z: p.Z}
	if !p.Obstime.IsZero() {
		t := p.Obstime
		out.Obstime = &t
	}
	return out
}

// transformRequest is the body of the two forward transform endpoints.
type transformRequest struct {
	Position positionJSON `json:"position"`
	Frame    frameJSON    `json:"frame"`
}

type altAzJSON struct {
	AzimuthDeg  float64  `json:"azimuth_deg"`
	AltitudeDeg float64  `json:"altitude_deg"`
	RangeM      *float64 `json:"range_m,omitempty"`
}

type haDecJSON struct {
	HAHours float64  `json:"ha_hours"`
	DecDeg  float64  `json:"dec_deg"`
	RangeM  *float64 `json:"range_m,omitempty"`
}

// rangeOrNaN maps an absent range to NaN, the direction-only marker.
func rangeOrNaN(r *float64) float64 {
	if r == nil {
		return math.NaN()
	}
	return *r
}

func rangeToJSON(distM float64) *float64 {
	if math.IsNaN(distM) {
		return nil
	}
	d := distM
	return &d
}

func altAzToJSON(c transform.AltAz) altAzJSON {
	return altAzJSON{
		AzimuthDeg:  c.AzRad * radToDeg,
		AltitudeDeg: c.AltRad * radToDeg,
		RangeM:      rangeToJSON(c.DistanceM),
	}
}

func haDecToJSON(c transform.HADec) haDecJSON {
	return haDecJSON{
		HAHours: c.HARad * 12 / math.Pi,
		DecDeg:  c.DecRad * radToDeg,
		RangeM:  rangeToJSON(c.DistanceM),
	}
}

// inverseRequest is the body of the observed-to-ITRS endpoint. Exactly
// one of altaz or hadec must be set; obstime, when present, retargets
// the result to that epoch instead of the frame's.
type inverseRequest struct {
	AltAz   *altAzJSON `json:"altaz,omitempty"`
	HADec   *haDecJSON `json:"hadec,omitempty"`
	Frame   frameJSON  `json:"frame"`
	Obstime *time.Time `json:"obstime,omitempty"`
}

func (r inverseRequest) targetObstime(frame transform.Frame) time.Time {
	if r.Obstime != nil {
		return *r.Obstime
	}
	return frame.Obstime
}

func (r inverseRequest) validateShape() error {
	if (r.AltAz == nil) == (r.HADec == nil) {
		return fmt.Errorf("exactly one of altaz or hadec must be set")
	}
	return nil
}

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)
