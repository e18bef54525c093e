package transform

import (
	"errors"
	"math"
	"testing"
	"time"
)

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
	// One arcsecond in radians.
	arcsec = degToRad / 3600.0
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testFrame() Frame {
	return Frame{
		Site:    NewSite(51.4769, -0.0005, 46),
		Obstime: testEpoch,
	}
}

// satellitePosition is a LEO-like ITRS point visible from the test site.
func satellitePosition(obstime time.Time) Position {
	s := NewSite(53.2, 4.9, 780000)
	return Position{Vec3: s.ECEF, Obstime: obstime}
}

func TestITRSToAltAz_RoundTrip(t *testing.T) {
	frame := testFrame()
	p := satellitePosition(testEpoch)

	c, err := ITRSToAltAz(p, frame)
	if err != nil {
		t.Fatalf("ITRSToAltAz: %v", err)
	}

	back, err := AltAzToITRS(c, testEpoch)
	if err != nil {
		t.Fatalf("AltAzToITRS: %v", err)
	}

	if d := back.Vec3.Sub(p.Vec3).Norm(); d > 1e-4 {
		t.Errorf("round trip error = %.2e m, want sub-millimeter", d)
	}
	if !back.Obstime.Equal(testEpoch) {
		t.Errorf("round trip obstime = %v, want %v", back.Obstime, testEpoch)
	}
}

func TestITRSToHADec_RoundTrip(t *testing.T) {
	frame := testFrame()
	p := satellitePosition(testEpoch)

	c, err := ITRSToHADec(p, frame)
	if err != nil {
		t.Fatalf("ITRSToHADec: %v", err)
	}

	back, err := HADecToITRS(c, testEpoch)
	if err != nil {
		t.Fatalf("HADecToITRS: %v", err)
	}

	if d := back.Vec3.Sub(p.Vec3).Norm(); d > 1e-4 {
		t.Errorf("round trip error = %.2e m, want sub-millimeter", d)
	}
}

func TestOverheadPoint(t *testing.T) {
	site := NewSite(35.0, -110.0, 2000)
	frame := Frame{Site: site, Obstime: testEpoch}

	// Same geodetic latitude/longitude, 400 km higher: exactly along the
	// site's geodetic normal, i.e. the local "up".
	above := NewSite(35.0, -110.0, 402000)
	p := Position{Vec3: above.ECEF, Obstime: testEpoch}

	aa, err := ITRSToAltAz(p, frame)
	if err != nil {
		t.Fatalf("ITRSToAltAz: %v", err)
	}
	if math.Abs(aa.AltRad*radToDeg-90.0) > 1e-6 {
		t.Errorf("overhead altitude = %.9f deg, want 90", aa.AltRad*radToDeg)
	}
	if math.Abs(aa.DistanceM-400000) > 1e-3 {
		t.Errorf("overhead distance = %.4f m, want 400000", aa.DistanceM)
	}

	hd, err := ITRSToHADec(p, frame)
	if err != nil {
		t.Fatalf("ITRSToHADec: %v", err)
	}
	if math.Abs(hd.HARad) > 1e-8 {
		t.Errorf("overhead hour angle = %.2e rad, want 0", hd.HARad)
	}
	if math.Abs(hd.DecRad-site.LatRad) > 1e-6*degToRad {
		t.Errorf("overhead declination = %.9f deg, want site latitude %.9f deg",
			hd.DecRad*radToDeg, site.LatRad*radToDeg)
	}
}

func TestAzimuthWrapBoundary(t *testing.T) {
	frame := testFrame()

	for _, azDeg := range []float64{-0.0001, 359.9999} {
		c := AltAz{
			AzRad:     azDeg * degToRad,
			AltRad:    20 * degToRad,
			DistanceM: 1e6,
			Frame:     frame,
		}

		p, err := AltAzToITRS(c, testEpoch)
		if err != nil {
			t.Fatalf("AltAzToITRS(az=%v): %v", azDeg, err)
		}
		back, err := ITRSToAltAz(p, frame)
		if err != nil {
			t.Fatalf("ITRSToAltAz(az=%v): %v", azDeg, err)
		}

		want := WrapAzimuth(azDeg * degToRad)
		if diff := math.Abs(back.AzRad - want); diff > 1e-4*arcsec {
			t.Errorf("azimuth %v deg round trips to %.12f deg, want %.12f deg (diff %.3e arcsec)",
				azDeg, back.AzRad*radToDeg, want*radToDeg, diff/arcsec)
		}
		if back.AzRad < 0 || back.AzRad >= twoPi {
			t.Errorf("azimuth %v rad outside [0, 2pi)", back.AzRad)
		}
	}
}

func TestHourAngleWrapBoundary(t *testing.T) {
	frame := testFrame()
	// One hour of hour angle in radians.
	const hourRad = math.Pi / 12.0
	// 1e-6 seconds of time expressed as an hour-angle tolerance.
	tol := 1e-6 / 3600.0 * hourRad

	for _, haHours := range []float64{-12.000001, 12.000001} {
		c := HADec{
			HARad:     haHours * hourRad,
			DecRad:    23 * degToRad,
			DistanceM: 1e6,
			Frame:     frame,
		}

		p, err := HADecToITRS(c, testEpoch)
		if err != nil {
			t.Fatalf("HADecToITRS(ha=%v): %v", haHours, err)
		}
		back, err := ITRSToHADec(p, frame)
		if err != nil {
			t.Fatalf("ITRSToHADec(ha=%v): %v", haHours, err)
		}

		want := WrapHourAngle(haHours * hourRad)
		if diff := math.Abs(back.HARad - want); diff > tol {
			t.Errorf("hour angle %vh round trips to %.12fh, want %.12fh",
				haHours, back.HARad/hourRad, want/hourRad)
		}
		if back.HARad <= -math.Pi || back.HARad > math.Pi {
			t.Errorf("hour angle %v rad outside (-pi, pi]", back.HARad)
		}
	}
}

func TestMissingDistance(t *testing.T) {
	frame := testFrame()

	aa := AltAz{AzRad: 1, AltRad: 0.5, DistanceM: math.NaN(), Frame: frame}
	if _, err := AltAzToITRS(aa, testEpoch); !errors.Is(err, ErrMissingDistance) {
		t.Errorf("AltAzToITRS without distance: err = %v, want ErrMissingDistance", err)
	}

	hd := HADec{HARad: 1, DecRad: 0.5, DistanceM: math.NaN(), Frame: frame}
	if _, err := HADecToITRS(hd, testEpoch); !errors.Is(err, ErrMissingDistance) {
		t.Errorf("HADecToITRS without distance: err = %v, want ErrMissingDistance", err)
	}
}

func TestZeroDistanceCollapsesToObserver(t *testing.T) {
	frame := testFrame()

	aa := AltAz{AzRad: 1, AltRad: 0.5, DistanceM: 0, Frame: frame}
	p, err := AltAzToITRS(aa, testEpoch)
	if err != nil {
		t.Fatalf("AltAzToITRS with zero distance: %v", err)
	}
	if d := p.Vec3.Sub(frame.Site.ECEF).Norm(); d > 1e-9 {
		t.Errorf("zero-distance result is %.2e m from the observer, want 0", d)
	}
}

func TestRefractionRejected(t *testing.T) {
	frame := testFrame()
	frame.PressureHPa = 1010

	p := satellitePosition(testEpoch)

	if _, err := ITRSToAltAz(p, frame); !errors.Is(err, ErrUnsupportedRefraction) {
		t.Errorf("ITRSToAltAz with pressure: err = %v, want ErrUnsupportedRefraction", err)
	}
	if _, err := ITRSToHADec(p, frame); !errors.Is(err, ErrUnsupportedRefraction) {
		t.Errorf("ITRSToHADec with pressure: err = %v, want ErrUnsupportedRefraction", err)
	}

	aa := AltAz{AzRad: 1, AltRad: 0.5, DistanceM: 1e6, Frame: frame}
	if _, err := AltAzToITRS(aa, testEpoch); !errors.Is(err, ErrUnsupportedRefraction) {
		t.Errorf("AltAzToITRS with pressure: err = %v, want ErrUnsupportedRefraction", err)
	}

	hd := HADec{HARad: 1, DecRad: 0.5, DistanceM: 1e6, Frame: frame}
	if _, err := HADecToITRS(hd, testEpoch); !errors.Is(err, ErrUnsupportedRefraction) {
		t.Errorf("HADecToITRS with pressure: err = %v, want ErrUnsupportedRefraction", err)
	}
}

func TestMissingFrameAttributes(t *testing.T) {
	p := satellitePosition(testEpoch)

	noSite := Frame{Obstime: testEpoch}
	if _, err := ITRSToAltAz(p, noSite); !errors.Is(err, ErrMissingFrameAttribute) {
		t.Errorf("missing site: err = %v, want ErrMissingFrameAttribute", err)
	}

	noTime := Frame{Site: NewSite(10, 20, 0)}
	if _, err := ITRSToHADec(p, noTime); !errors.Is(err, ErrMissingFrameAttribute) {
		t.Errorf("missing obstime: err = %v, want ErrMissingFrameAttribute", err)
	}
}

// Precondition checks run in a fixed order: site/obstime nullity before
// refraction, refraction before distance presence.
func TestValidationOrder(t *testing.T) {
	// Missing obstime and nonzero pressure: the obstime error wins.
	f := Frame{Site: NewSite(10, 20, 0), PressureHPa: 1010}
	if _, err := ITRSToAltAz(satellitePosition(testEpoch), f); !errors.Is(err, ErrMissingFrameAttribute) {
		t.Errorf("obstime+pressure: err = %v, want ErrMissingFrameAttribute", err)
	}

	// Nonzero pressure and missing distance: the refraction error wins.
	f2 := testFrame()
	f2.PressureHPa = 1010
	aa := AltAz{AzRad: 1, AltRad: 0.5, DistanceM: math.NaN(), Frame: f2}
	if _, err := AltAzToITRS(aa, testEpoch); !errors.Is(err, ErrUnsupportedRefraction) {
		t.Errorf("pressure+distance: err = %v, want ErrUnsupportedRefraction", err)
	}
}

// Converting at a relabeled destination epoch must equal converting at the
// source epoch and independently re-expressing the result.
func TestEpochRelabeling(t *testing.T) {
	frame := testFrame()
	later := testEpoch.Add(24 * time.Hour)

	c := AltAz{AzRad: 120 * degToRad, AltRad: 35 * degToRad, DistanceM: 1.5e6, Frame: frame}

	direct, err := AltAzToITRS(c, later)
	if err != nil {
		t.Fatalf("AltAzToITRS(later): %v", err)
	}

	atSource, err := AltAzToITRS(c, testEpoch)
	if err != nil {
		t.Fatalf("AltAzToITRS(source): %v", err)
	}
	twoStep := atSource.Retarget(later)

	if d := direct.Vec3.Sub(twoStep.Vec3).Norm(); d > 1e-4 {
		t.Errorf("relabeled conversion differs from explicit retarget by %.2e m", d)
	}
	if !direct.Obstime.Equal(later) {
		t.Errorf("relabeled obstime = %v, want %v", direct.Obstime, later)
	}
}

// Two ITRS inputs describing the same point but expressed at different
// epochs must produce the same observed coordinates: the transform aligns
// the input epoch instead of assuming it.
func TestInputEpochIndependence(t *testing.T) {
	frame := testFrame()

	p1 := satellitePosition(testEpoch)
	p2 := p1.Retarget(testEpoch.Add(24 * time.Hour))

	a1, err := ITRSToAltAz(p1, frame)
	if err != nil {
		t.Fatalf("ITRSToAltAz(p1): %v", err)
	}
	a2, err := ITRSToAltAz(p2, frame)
	if err != nil {
		t.Fatalf("ITRSToAltAz(p2): %v", err)
	}

	if diff := math.Abs(a1.AzRad - a2.AzRad); diff > 1e-6*arcsec {
		t.Errorf("azimuth differs by %.3e arcsec across source epochs", diff/arcsec)
	}
	if diff := math.Abs(a1.AltRad - a2.AltRad); diff > 1e-6*arcsec {
		t.Errorf("altitude differs by %.3e arcsec across source epochs", diff/arcsec)
	}
}

// An input with an unset epoch is adopted at the frame's obstime unchanged.
func TestUnsetSourceEpoch(t *testing.T) {
	frame := testFrame()

	tagged := satellitePosition(testEpoch)
	untagged := Position{Vec3: tagged.Vec3}

	a1, err := ITRSToAltAz(tagged, frame)
	if err != nil {
		t.Fatalf("ITRSToAltAz(tagged): %v", err)
	}
	a2, err := ITRSToAltAz(untagged, frame)
	if err != nil {
		t.Fatalf("ITRSToAltAz(untagged): %v", err)
	}

	if a1.AzRad != a2.AzRad || a1.AltRad != a2.AltRad || a1.DistanceM != a2.DistanceM {
		t.Errorf("unset-epoch input produced different output: %+v vs %+v", a1, a2)
	}
}

func TestBatchMatchesScalar(t *testing.T) {
	frame := testFrame()

	ps := []Position{
		satellitePosition(testEpoch),
		{Vec3: NewSite(40, -3.7, 500000).ECEF, Obstime: testEpoch},
		{Vec3: NewSite(60, 25, 1200000).ECEF, Obstime: testEpoch.Add(time.Hour)},
	}

	batch, err := ITRSToAltAzBatch(ps, frame)
	if err != nil {
		t.Fatalf("ITRSToAltAzBatch: %v", err)
	}
	if len(batch) != len(ps) {
		t.Fatalf("batch length = %d, want %d", len(batch), len(ps))
	}

	for i, p := range ps {
		single, err := ITRSToAltAz(p, frame)
		if err != nil {
			t.Fatalf("ITRSToAltAz(%d): %v", i, err)
		}
		if batch[i] != single {
			t.Errorf("element %d: batch %+v != scalar %+v", i, batch[i], single)
		}
	}
}

func TestBatchMissingDistanceNamesElement(t *testing.T) {
	frame := testFrame()
	cs := []AltAz{
		{AzRad: 1, AltRad: 0.5, DistanceM: 1e6, Frame: frame},
		{AzRad: 2, AltRad: 0.3, DistanceM: math.NaN(), Frame: frame},
	}

	_, err := AltAzToITRSBatch(cs, frame, testEpoch)
	if !errors.Is(err, ErrMissingDistance) {
		t.Fatalf("err = %v, want ErrMissingDistance", err)
	}
}

func TestBatchRejectsMismatchedFrame(t *testing.T) {
	frame := testFrame()
	other := Frame{Site: NewSite(40, -3.7, 0), Obstime: frame.Obstime}

	cs := []AltAz{
		{AzRad: 1, AltRad: 0.5, DistanceM: 1e6, Frame: frame},
		{AzRad: 2, AltRad: 0.3, DistanceM: 1e6, Frame: other},
	}
	if _, err := AltAzToITRSBatch(cs, frame, testEpoch); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("altaz err = %v, want ErrFrameMismatch", err)
	}

	hs := []HADec{
		{HARad: 0.2, DecRad: 0.4, DistanceM: 1e6, Frame: other},
	}
	if _, err := HADecToITRSBatch(hs, frame, testEpoch); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("hadec err = %v, want ErrFrameMismatch", err)
	}

	// A value-equal frame built independently is not a mismatch.
	same := Frame{Site: NewSite(51.4769, -0.0005, 46), Obstime: frame.Obstime}
	ok := []AltAz{{AzRad: 1, AltRad: 0.5, DistanceM: 1e6, Frame: same}}
	if _, err := AltAzToITRSBatch(ok, frame, testEpoch); err != nil {
		t.Errorf("value-equal frame rejected: %v", err)
	}
}
