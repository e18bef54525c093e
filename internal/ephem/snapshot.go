package ephem

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/groundside/pointgo/internal/catalog"
	"github.com/groundside/pointgo/internal/transform"
)

// ObjectPosition is one catalog object's resolved ITRS position.
type ObjectPosition struct {
	CatalogNumber int
	Name          string
	Position      transform.Position
}

// Snapshot holds the positions of every resolvable catalog object at a
// single epoch.
type Snapshot struct {
	Obstime time.Time
	Objects []ObjectPosition
	Failed  int
}

// snapshotJob is a unit of work for the snapshot worker pool.
type snapshotJob struct {
	entry catalog.Entry
}

// snapshotResult is the output of propagating one object.
type snapshotResult struct {
	pos ObjectPosition
	err error
	num int
}

// SnapshotAll propagates every catalog entry to the given epoch using a
// fixed pool of worker goroutines. Objects that fail to propagate are
// counted and logged, not returned as errors; elements are independent so
// one bad TLE never poisons the rest.
func SnapshotAll(ctx context.Context, entries []catalog.Entry, t time.Time, workers int, logger *slog.Logger) Snapshot {
	if len(entries) == 0 {
		return Snapshot{Obstime: t}
	}
	if workers < 1 {
		workers = 1
	}

	// GMST is the same for every object at a fixed epoch; compute it once.
	gmst := transform.GMST(t)

	jobs := make(chan snapshotJob, workers*2)
	results := make(chan snapshotResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res := propagateOne(job.entry, t, gmst)
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			select {
			case jobs <- snapshotJob{entry: entry}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	snap := Snapshot{Obstime: t, Objects: make([]ObjectPosition, 0, len(entries))}
	for res := range results {
		if res.err != nil {
			snap.Failed++
			logger.Warn("snapshot propagation failed", "catalog_number", res.num, "error", res.err)
			continue
		}
		snap.Objects = append(snap.Objects, res.pos)
	}

	return snap
}

// propagateOne resolves a single entry's ITRS position.
func propagateOne(entry catalog.Entry, t time.Time, gmst float64) snapshotResult {
	prop, err := NewPropagator(entry)
	if err != nil {
		return snapshotResult{num: entry.CatalogNumber, err: err}
	}

	pos, err := prop.positionAtGMST(t, gmst)
	if err != nil {
		return snapshotResult{num: entry.CatalogNumber, err: err}
	}

	return snapshotResult{
		num: entry.CatalogNumber,
		pos: ObjectPosition{
			CatalogNumber: entry.CatalogNumber,
			Name:          entry.Name,
			Position:      pos,
		},
	}
}
