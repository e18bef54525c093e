package catalog

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads 3-line NORAD TLE format from r and returns the parsed entries.
// Malformed entries are skipped with a warning log rather than failing the
// whole catalog.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog data: %w", err)
	}

	var entries []Entry
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Resync on the next plausible triplet.
			logger.Warn("skipping malformed catalog entry", "line_index", i, "name", name)
			i++
			continue
		}

		// Both fields below are sliced out of line1; guard its length
		// before touching either so truncated lines are skipped, not fatal.
		if len(line1) < 32 {
			logger.Warn("skipping catalog entry with short line1", "name", name)
			i += 3
			continue
		}

		// Catalog number sits in line1 cols 3-7 (0-indexed 2..7).
		numStr := strings.TrimSpace(line1[2:7])
		num, err := strconv.Atoi(numStr)
		if err != nil {
			logger.Warn("skipping catalog entry with invalid number", "number_str", numStr, "name", name)
			i += 3
			continue
		}

		// Element epoch sits in line1 cols 19-32 (0-indexed 18..32).
		epochStr := strings.TrimSpace(line1[18:32])
		epoch, err := parseEpoch(epochStr)
		if err != nil {
			logger.Warn("skipping catalog entry with invalid epoch", "epoch_str", epochStr, "name", name, "error", err)
			i += 3
			continue
		}

		entries = append(entries, Entry{
			CatalogNumber: num,
			Name:          strings.TrimSpace(name),
			Epoch:         epoch,
			Line1:         line1,
			Line2:         line2,
		})
		i += 3
	}

	return entries, nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to
// time.Time. Year 00-56 maps to the 2000s, 57-99 to the 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// Day of year is 1-based: day 1.0 is 00:00 on Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
