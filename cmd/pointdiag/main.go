package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/groundside/pointgo/internal/catalog"
	"github.com/groundside/pointgo/internal/ephem"
	"github.com/groundside/pointgo/internal/passes"
	"github.com/groundside/pointgo/internal/transform"
)

// pointdiag: quick offline check of the pointing pipeline against a TLE
// file. Usage: pointdiag <tle-file> [lat] [lon] [height_m]
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pointdiag <tle-file> [lat] [lon] [height_m]")
		os.Exit(2)
	}

	lat, lon, height := 39.7392, -104.9903, 1609.0
	if len(os.Args) >= 4 {
		lat = parseFloatArg(os.Args[2], "lat")
		lon = parseFloatArg(os.Args[3], "lon")
	}
	if len(os.Args) >= 5 {
		height = parseFloatArg(os.Args[4], "height_m")
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Println("ERROR reading TLE file:", err)
		os.Exit(1)
	}

	entries, err := catalog.Parse(bytes.NewReader(data), logger)
	if err != nil {
		fmt.Println("ERROR parsing TLE:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d catalog entries\n", len(entries))

	site := transform.NewSite(lat, lon, height)
	now := time.Now().UTC()
	fmt.Printf("Site: lat=%.4f lon=%.4f height=%.0fm  t=%v\n", lat, lon, height, now)

	// Current pointing for the first few objects.
	limit := len(entries)
	if limit > 5 {
		limit = 5
	}
	frame := transform.Frame{Site: site, Obstime: now}
	for _, e := range entries[:limit] {
		prop, err := ephem.NewPropagator(e)
		if err != nil {
			fmt.Printf("  %d %s: ERROR %v\n", e.CatalogNumber, e.Name, err)
			continue
		}
		pos, err := prop.PositionAt(now)
		if err != nil {
			fmt.Printf("  %d %s: ERROR %v\n", e.CatalogNumber, e.Name, err)
			continue
		}
		aa, err := transform.ITRSToAltAz(pos, frame)
		if err != nil {
			fmt.Printf("  %d %s: ERROR %v\n", e.CatalogNumber, e.Name, err)
			continue
		}
		fmt.Printf("  %d %s: az=%.1f° alt=%.1f° range=%.0fkm\n",
			e.CatalogNumber, e.Name, aa.AzRad*180/math.Pi, aa.AltRad*180/math.Pi, aa.DistanceM/1000)
	}

	// Pass prediction over the next 72 hours.
	results := passes.Predict(context.Background(), passes.Request{
		Site:           site,
		Entries:        entries[:limit],
		Start:          now,
		HorizonHours:   72,
		MinAltitudeDeg: 1,
		MaxPasses:      10,
	})

	totalPasses := 0
	for _, obj := range results {
		if obj.Error != "" {
			fmt.Printf("  %d: ERROR %s\n", obj.CatalogNumber, obj.Error)
			continue
		}
		fmt.Printf("  %d: %d passes\n", obj.CatalogNumber, len(obj.Passes))
		totalPasses += len(obj.Passes)
		for j, p := range obj.Passes {
			fmt.Printf("    pass %d: start=%v maxAlt=%.1f° dur=%.0fs\n",
				j, p.StartTime.Format(time.RFC3339), p.MaxAltitudeDeg, p.DurationSeconds)
		}
	}
	fmt.Printf("\nTotal passes found: %d\n", totalPasses)
}

func parseFloatArg(s, name string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %q\n", name, s)
		os.Exit(2)
	}
	return v
}
