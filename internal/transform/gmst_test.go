package transform

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// TestJulianDate verifies the Julian Date calculation against known values.
func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{
			name:     "J2000.0 epoch",
			time:     time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
			expected: 2451545.0,
		},
		{
			name:     "Unix epoch",
			time:     time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: 2440587.5,
		},
		{
			// Vallado Example 3-15: April 6, 2004, 07:51:28.386 UTC
			name:     "Vallado example date",
			time:     time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC),
			expected: 2453101.827411875,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.time)
			diff := math.Abs(got - tt.expected)
			if diff > 1e-6 {
				t.Errorf("JulianDate(%v) = %.10f, want %.10f (diff=%.2e)", tt.time, got, tt.expected, diff)
			}
		})
	}
}

// TestGMST validates the GMST calculation against the go-satellite library's
// GSTimeFromDate function, which uses the same IAU-82 model.
func TestGMST(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
	}{
		{
			name: "J2000.0 epoch",
			time: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "Vallado example date",
			time: time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC), // integer seconds for library compat
		},
		{
			name: "recent date",
			time: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			our := GMST(tt.time)
			ref := satellite.GSTimeFromDate(
				tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second(),
			)

			// Allow small difference for float precision; 1e-8 rad ~ 0.06 arcsec.
			if diff := math.Abs(our - ref); diff > 1e-8 {
				t.Errorf("GMST(%v) = %.12f rad, go-satellite = %.12f rad (diff=%.2e)", tt.time, our, ref, diff)
			}
		})
	}
}

// TestGMSTRate verifies GMST advances at Earth's rotation rate. The
// sidereal rate exceeds OmegaEarth by about 1e-9 rad/s; the tolerance
// catches unit or scale mistakes, not that distinction.
func TestGMSTRate(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	const dt = 600.0 // seconds

	g0 := GMST(t0)
	g1 := GMST(t0.Add(600 * time.Second))
	d := g1 - g0
	if d < 0 {
		d += 2 * math.Pi
	}

	rate := d / dt
	if math.Abs(rate-OmegaEarth) > 1e-8 {
		t.Errorf("GMST rate = %.12e rad/s, want about OmegaEarth = %.12e", rate, OmegaEarth)
	}
}

func TestRetarget_RoundTrip(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	p := Position{Vec3: Vec3{X: 6778137, Y: 1234567, Z: -2345678}, Obstime: t1}
	back := p.Retarget(t2).Retarget(t1)

	if d := back.Vec3.Sub(p.Vec3).Norm(); d > 1e-6 {
		t.Errorf("retarget round trip moved the point by %.2e m", d)
	}
	if !back.Obstime.Equal(t1) {
		t.Errorf("round trip obstime = %v, want %v", back.Obstime, t1)
	}
}

func TestRetarget_RotatesBySiderealAngle(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// One sidereal day later the Earth has completed exactly one turn, so an
	// ITRS position re-expressed then is (nearly) unchanged.
	t2 := t1.Add(23*time.Hour + 56*time.Minute + 4*time.Second + 91*time.Millisecond)

	p := Position{Vec3: Vec3{X: 7000000, Y: 0, Z: 0}, Obstime: t1}
	moved := p.Retarget(t2)

	// 91 ms resolution of the sidereal day leaves a small residual rotation.
	if d := moved.Vec3.Sub(p.Vec3).Norm(); d > 100 {
		t.Errorf("position moved %.1f m over one sidereal day, want < 100 m", d)
	}
}

func TestRetarget_UnsetEpochAdopts(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := Position{Vec3: Vec3{X: 7000000, Y: 100, Z: 200}}
	got := p.Retarget(t1)

	if got.Vec3 != p.Vec3 {
		t.Errorf("unset-epoch retarget changed the vector: %+v -> %+v", p.Vec3, got.Vec3)
	}
	if !got.Obstime.Equal(t1) {
		t.Errorf("obstime = %v, want %v", got.Obstime, t1)
	}
}
