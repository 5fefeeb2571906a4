package plan

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
)

// Options tunes a search run. Zero values take defaults.
type Options struct {
	Trials  int
	Seed    int64
	Workers int
	Logger  *log.Logger
	// OnTrial, when set, receives every finished trial. Calls are
	// serialized but arrive in completion order, not trial order.
	OnTrial func(TrialEvent)
}

// TrialEvent is the progress notification for one finished trial.
type TrialEvent struct {
	Trial    int
	Mileage  float64
	Feasible bool
	Reason   string
}

// Run executes the multi-trial search: N independent trials on fresh
// package copies across a bounded worker pool, keeping the feasible
// trial with the lowest total mileage. Trial k draws its jitter from
// seed+k, and trial 0 runs the pure heuristic, so identical inputs and
// seed give identical results. Cancelling the context stops dispatching
// and returns the best feasible trial found so far.
func Run(ctx context.Context, scenario Scenario, opts Options) (*Result, error) {
	s := scenario.normalized()
	if opts.Trials <= 0 {
		opts.Trials = DefaultTrials
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > opts.Trials {
		workers = opts.Trials
	}
	d := distances{m: s.Matrix, speed: s.SpeedMPH, logger: opts.Logger}

	type outcome struct {
		idx   int
		trial *Trial
		err   error
	}
	jobs := make(chan int)
	results := make(chan outcome, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				var rng *rand.Rand
				if k > 0 {
					rng = rand.New(rand.NewSource(opts.Seed + int64(k)))
				}
				trial, err := runTrial(&s, d, opts.Seed+int64(k), rng)
				results <- outcome{idx: k, trial: trial, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for k := 0; k < opts.Trials; k++ {
			select {
			case jobs <- k:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	res := &Result{Seed: opts.Seed}
	bestIdx := -1
	sum := 0.0
	lastReason := "no trials completed"
	for out := range results {
		res.Trials++
		if out.err != nil {
			lastReason = out.err.Error()
			if opts.Logger != nil {
				opts.Logger.Printf("plan: trial %d aborted: %v", out.idx, out.err)
			}
			continue
		}
		t := out.trial
		if opts.OnTrial != nil {
			opts.OnTrial(TrialEvent{Trial: out.idx, Mileage: t.Mileage, Feasible: t.Feasible, Reason: t.InfeasibleReason})
		}
		if !t.Feasible {
			lastReason = t.InfeasibleReason
			continue
		}
		res.FeasibleRuns++
		sum += t.Mileage
		if res.WorstMileage < t.Mileage {
			res.WorstMileage = t.Mileage
		}
		if res.Best == nil || t.Mileage < res.BestMileage ||
			(t.Mileage == res.BestMileage && out.idx < bestIdx) {
			res.Best, res.BestMileage, bestIdx = t, t.Mileage, out.idx
		}
	}

	if res.FeasibleRuns == 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: cancelled after %d trials: %v", ErrNoFeasiblePlan, res.Trials, err)
		}
		return nil, fmt.Errorf("%w: %d trials, last failure: %s", ErrNoFeasiblePlan, res.Trials, lastReason)
	}
	res.AvgMileage = sum / float64(res.FeasibleRuns)
	return res, nil
}
