package explore

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Report summarizes a run of rounds.
type Report struct {
	Planned   int
	Completed int
	Cancelled bool
	// Statuses counts rounds by how they ended.
	Statuses map[RoundStatus]int
}

// Runner executes rounds on a bounded worker pool.
type Runner struct {
	driver  *Driver
	rounds  int
	workers int
	seed    uint64
}

// NewRunner creates a runner. Fewer than one worker means sequential.
func NewRunner(driver *Driver, rounds, workers int, seed uint64) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{driver: driver, rounds: rounds, workers: workers, seed: seed}
}

// Run executes the planned rounds, numbered from 1. Cancellation stops
// scheduling new rounds; rounds already started finish their current
// call. Run never fails because of call outcomes.
func (r *Runner) Run(ctx context.Context) Report {
	report := Report{Planned: r.rounds, Statuses: make(map[RoundStatus]int)}
	var mu sync.Mutex
	record := func(res RoundResult) {
		mu.Lock()
		defer mu.Unlock()
		report.Completed++
		report.Statuses[res.Status]++
	}

	if r.workers == 1 {
		for i := 1; i <= r.rounds; i++ {
			if ctx.Err() != nil {
				break
			}
			record(r.driver.Round(ctx, i, RoundRNG(r.seed, i)))
		}
		report.Cancelled = report.interrupted(ctx)
		return report
	}

	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for i := 1; i <= r.rounds; i++ {
		if ctx.Err() != nil {
			break
		}
		round := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			record(r.driver.Round(ctx, round, RoundRNG(r.seed, round)))
			return nil
		})
	}
	_ = g.Wait()

	report.Cancelled = report.interrupted(ctx)
	return report
}

func (r Report) interrupted(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	return r.Completed < r.Planned || r.Statuses[RoundCancelled] > 0
}
