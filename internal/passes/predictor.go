// Package passes predicts when catalog objects rise above a site's horizon.
// Visibility is evaluated with the direct ITRS->AltAz transform: propagate
// the object, transform into the site's horizontal frame, and compare the
// altitude against the requested threshold.
package passes

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/groundside/pointgo/internal/catalog"
	"github.com/groundside/pointgo/internal/ephem"
	"github.com/groundside/pointgo/internal/transform"
)

// PassEvent describes a single pass of an object over a site.
type PassEvent struct {
	StartTime       time.Time `json:"start_time"`
	MaxAltitudeTime time.Time `json:"max_altitude_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	MaxAltitudeDeg  float64   `json:"max_altitude_deg"`
	AzimuthAtMaxDeg float64   `json:"azimuth_at_max_deg"`
	StartAzimuthDeg float64   `json:"start_azimuth_deg"`
	EndAzimuthDeg   float64   `json:"end_azimuth_deg"`
}

// ObjectPasses holds the predicted passes for one catalog object.
type ObjectPasses struct {
	CatalogNumber int         `json:"catalog_number"`
	Passes        []PassEvent `json:"passes"`
	Error         string      `json:"error,omitempty"`
}

// Request holds the parameters for a pass prediction request.
type Request struct {
	Site           *transform.Site
	Entries        []catalog.Entry
	Start          time.Time
	HorizonHours   float64
	MinAltitudeDeg float64
	MaxPasses      int
}

const (
	coarseStepSec = 30 // seconds between coarse scan steps
	fineStepSec   = 1  // seconds between fine scan steps
	minPassDur    = 10 * time.Second
)

// Predict computes passes for every requested object. Each object runs in
// its own goroutine, bounded by a semaphore sized to the CPU count.
func Predict(ctx context.Context, req Request) []ObjectPasses {
	results := make([]ObjectPasses, len(req.Entries))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, entry := range req.Entries {
		wg.Add(1)
		go func(idx int, e catalog.Entry) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = ObjectPasses{CatalogNumber: e.CatalogNumber, Error: "cancelled"}
				return
			}

			events, err := predictObject(ctx, req, e)
			if err != nil {
				results[idx] = ObjectPasses{CatalogNumber: e.CatalogNumber, Error: err.Error()}
				return
			}
			results[idx] = ObjectPasses{CatalogNumber: e.CatalogNumber, Passes: events}
		}(i, entry)
	}

	wg.Wait()
	return results
}

// predictObject finds all passes for a single object.
func predictObject(ctx context.Context, req Request, entry catalog.Entry) ([]PassEvent, error) {
	prop, err := ephem.NewPropagator(entry)
	if err != nil {
		return nil, fmt.Errorf("sgp4 init: %w", err)
	}

	frame := transform.Frame{Site: req.Site}
	end := req.Start.Add(time.Duration(req.HorizonHours * float64(time.Hour)))
	var events []PassEvent

	// Coarse scan for above-horizon windows, then refine each window.
	t := req.Start
	for t.Before(end) && len(events) < req.MaxPasses {
		if ctx.Err() != nil {
			return events, nil
		}

		aa, err := pointingAt(prop, frame, t)
		if err != nil {
			t = t.Add(coarseStepSec * time.Second)
			continue
		}

		if aa.AltRad > 0 {
			pass, windowEnd := refinePass(ctx, prop, frame, t, req.Start, end, req.MinAltitudeDeg)
			if pass != nil && pass.EndTime.Sub(pass.StartTime) >= minPassDur {
				events = append(events, *pass)
			}
			t = windowEnd.Add(coarseStepSec * time.Second)
		} else {
			t = t.Add(coarseStepSec * time.Second)
		}
	}

	return events, nil
}

// refinePass scans a coarse-detected window at fine resolution: back up to
// the rise, track the maximum, stop at the set. Returns the pass event and
// the time the window ends.
func refinePass(ctx context.Context, prop *ephem.Propagator, frame transform.Frame, coarseHit, windowStart, windowEnd time.Time, minAltDeg float64) (*PassEvent, time.Time) {
	searchStart := coarseHit.Add(-coarseStepSec * time.Second)
	if searchStart.Before(windowStart) {
		searchStart = windowStart
	}

	var (
		riseTime  time.Time
		setTime   time.Time
		riseAz    float64
		setAz     float64
		maxAlt    float64
		maxTime   time.Time
		maxAz     float64
		wasAbove  bool
		foundRise bool
	)

	t := searchStart
	for t.Before(windowEnd) {
		if ctx.Err() != nil {
			break
		}

		aa, err := pointingAt(prop, frame, t)
		if err != nil {
			t = t.Add(fineStepSec * time.Second)
			continue
		}

		altDeg := aa.AltRad * 180 / math.Pi
		azDeg := aa.AzRad * 180 / math.Pi
		above := altDeg >= minAltDeg

		if above && !wasAbove {
			riseTime = t
			riseAz = azDeg
			foundRise = true
			maxAlt = altDeg
			maxTime = t
			maxAz = azDeg
		}

		if above && foundRise && altDeg > maxAlt {
			maxAlt = altDeg
			maxTime = t
			maxAz = azDeg
		}

		if !above && wasAbove && foundRise {
			setTime = t
			setAz = azDeg
			break
		}

		wasAbove = above
		t = t.Add(fineStepSec * time.Second)
	}

	// Still above at windowEnd: close the pass there.
	if foundRise && setTime.IsZero() && wasAbove {
		setTime = t
		if aa, err := pointingAt(prop, frame, t); err == nil {
			setAz = aa.AzRad * 180 / math.Pi
			if altDeg := aa.AltRad * 180 / math.Pi; altDeg > maxAlt {
				maxAlt = altDeg
				maxTime = t
				maxAz = setAz
			}
		}
	}

	if !foundRise || setTime.IsZero() {
		return nil, t
	}

	return &PassEvent{
		StartTime:       riseTime,
		MaxAltitudeTime: maxTime,
		EndTime:         setTime,
		DurationSeconds: setTime.Sub(riseTime).Seconds(),
		MaxAltitudeDeg:  maxAlt,
		AzimuthAtMaxDeg: maxAz,
		StartAzimuthDeg: riseAz,
		EndAzimuthDeg:   setAz,
	}, setTime
}

// pointingAt propagates the object to t and transforms it into the site's
// horizontal frame at that epoch.
func pointingAt(prop *ephem.Propagator, frame transform.Frame, t time.Time) (transform.AltAz, error) {
	pos, err := prop.PositionAt(t)
	if err != nil {
		return transform.AltAz{}, err
	}
	frame.Obstime = t
	return transform.ITRSToAltAz(pos, frame)
}
