// Package ephem resolves catalog objects to ITRS positions at a requested
// epoch. SGP4 propagation produces TEME coordinates, which are rotated to
// ITRS through GMST (polar motion and the equation of the equinoxes are
// ignored; the ~50 m error is irrelevant against TLE accuracy).
package ephem

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/groundside/pointgo/internal/catalog"
	"github.com/groundside/pointgo/internal/transform"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go, battle-tested, explicit TEME output. Propagate() takes Satellite
// by value so SGP4 error codes are not visible to the caller; propagation
// failures are detected by checking the output for NaN/Inf and unreasonable
// position magnitudes.

// Propagator computes ITRS positions for a single catalog object.
type Propagator struct {
	sat           satellite.Satellite
	catalogNumber int
}

// NewPropagator initializes SGP4 for the given catalog entry.
//
// The TLE lines are pre-validated because go-satellite calls log.Fatal on
// malformed input, which would kill the process.
func NewPropagator(e catalog.Entry) (*Propagator, error) {
	if err := validateTLELines(e.Line1, e.Line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for object %d: %w", e.CatalogNumber, err)
	}

	sat := satellite.TLEToSat(e.Line1, e.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for object %d: code=%d %s", e.CatalogNumber, sat.Error, sat.ErrorStr)
	}
	return &Propagator{sat: sat, catalogNumber: e.CatalogNumber}, nil
}

// validateTLELines performs basic format validation on TLE lines.
func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got %q", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got %q", line2[0])
	}
	return nil
}

// PositionAt resolves the object's ITRS position at the given UTC time.
func (p *Propagator) PositionAt(t time.Time) (transform.Position, error) {
	return p.positionAtGMST(t, transform.GMST(t))
}

// positionAtGMST is PositionAt with a precomputed GMST angle, for callers
// propagating many objects to the same epoch.
func (p *Propagator) positionAtGMST(t time.Time, gmst float64) (transform.Position, error) {
	t = t.UTC()
	pos, _ := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.Position{}, fmt.Errorf("sgp4 propagation failed for object %d: output is NaN/Inf", p.catalogNumber)
	}

	// Magnitude sanity check: surface-grazing to beyond GEO, in km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.Position{}, fmt.Errorf("sgp4 propagation failed for object %d: unreasonable position magnitude %.1f km", p.catalogNumber, mag)
	}

	return temeToITRS(pos.X, pos.Y, pos.Z, gmst, t), nil
}

// temeToITRS rotates a TEME position (km) about the Earth's axis by GMST
// and returns an ITRS position in meters tagged with the epoch.
//
// r_ITRS = R3(θ_GMST) * r_TEME
func temeToITRS(xKm, yKm, zKm, gmst float64, t time.Time) transform.Position {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	return transform.Position{
		Vec3: transform.Vec3{
			X: (xKm*cosG + yKm*sinG) * 1000.0,
			Y: (-xKm*sinG + yKm*cosG) * 1000.0,
			Z: zKm * 1000.0,
		},
		Obstime: t,
	}
}
