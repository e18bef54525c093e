package catalog

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const issTLE = `ISS (ZARYA)
1 25544U 98067A   26060.50000000  .00016717  00000-0  10270-3 0  9005
2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09`

func TestParse_SingleEntry(t *testing.T) {
	entries, err := Parse(strings.NewReader(issTLE), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.CatalogNumber != 25544 {
		t.Errorf("catalog number = %d, want 25544", e.CatalogNumber)
	}
	if e.Name != "ISS (ZARYA)" {
		t.Errorf("name = %q, want %q", e.Name, "ISS (ZARYA)")
	}

	// Epoch 26060.5 = 2026, day 60.5 = March 1 12:00 UTC (2026 is not a leap year).
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !e.Epoch.Equal(want) {
		t.Errorf("epoch = %v, want %v", e.Epoch, want)
	}
}

func TestParse_SkipsMalformed(t *testing.T) {
	data := `GARBAGE LINE
NOT A TLE EITHER
` + issTLE

	entries, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (malformed prefix skipped)", len(entries))
	}
	if entries[0].CatalogNumber != 25544 {
		t.Errorf("catalog number = %d, want 25544", entries[0].CatalogNumber)
	}
}

func TestParse_SkipsTruncatedLine1(t *testing.T) {
	// A line1 short enough that neither the catalog number nor the epoch
	// columns exist. Fetched bodies can be truncated mid-line, so this
	// must skip, not panic.
	data := `TRUNCATED OBJ
1 abc
2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09
` + issTLE

	entries, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (truncated entry skipped)", len(entries))
	}
	if entries[0].CatalogNumber != 25544 {
		t.Errorf("catalog number = %d, want 25544", entries[0].CatalogNumber)
	}
}

func TestParse_Empty(t *testing.T) {
	entries, err := Parse(strings.NewReader(""), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries from empty input, want 0", len(entries))
	}
}

func TestParseEpoch_CenturyWindow(t *testing.T) {
	e57, err := parseEpoch("57001.00000000")
	if err != nil {
		t.Fatalf("parseEpoch(57...): %v", err)
	}
	if e57.Year() != 1957 {
		t.Errorf("year = %d, want 1957", e57.Year())
	}

	e26, err := parseEpoch("26001.00000000")
	if err != nil {
		t.Fatalf("parseEpoch(26...): %v", err)
	}
	if e26.Year() != 2026 {
		t.Errorf("year = %d, want 2026", e26.Year())
	}
}

func TestSetFind(t *testing.T) {
	entries, err := Parse(strings.NewReader(issTLE), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	set := NewSet("test", time.Now(), entries)

	if e, ok := set.Find(25544); !ok || e.Name != "ISS (ZARYA)" {
		t.Errorf("Find(25544) = %+v, %v", e, ok)
	}
	if _, ok := set.Find(99999); ok {
		t.Error("Find(99999) should not match")
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	if s.Get() != nil {
		t.Error("empty store should return nil")
	}
	if s.AgeSeconds() != -1 {
		t.Error("empty store age should be -1")
	}

	entries, _ := Parse(strings.NewReader(issTLE), testLogger)
	s.Set(NewSet("test", time.Now().Add(-time.Minute), entries))

	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if age := s.AgeSeconds(); age < 59 || age > 120 {
		t.Errorf("AgeSeconds = %v, want about 60", age)
	}
}
