// Package plan implements the planning core: constraint classification,
// tiered vehicle assignment, route construction and refinement, the
// time-stepped execution simulator, and the multi-trial search loop.
//
// Everything here is deterministic for a fixed seed. A trial works on
// fresh copies of the input packages; the scenario itself is never
// mutated, so trials can run in parallel.
package plan

import (
	"errors"
	"log"
	"time"

	"fleetnav/internal/geo"
	"fleetnav/internal/model"
)

// Fleet and policy defaults, matching the operating rules of the
// scenario this planner was built for.
const (
	DefaultVehicles = 3
	DefaultCapacity = 16
	DefaultSpeedMPH = 18.0
	DefaultTrials   = 20

	// nnDeadlineBias shrinks the effective distance of deadline packages
	// during greedy construction so they are picked earlier.
	nnDeadlineBias = 0.9

	// exactSearchMax bounds permutation enumeration over urgent packages.
	exactSearchMax = 5

	// waitHorizon is how close an address correction must be for the
	// vehicle to idle at its current stop instead of deferring.
	waitHorizon = 30 * time.Minute

	// maxDeferrals bounds how often one package can be pushed to the
	// route tail before it is force-delivered to its stale address.
	maxDeferrals = 10
)

// Clock cutoffs, minutes from midnight on the scenario day.
const (
	earlyDeadlineCutoffMin  = 9*60 + 15  // tier-3 spread
	strictDeadlineCutoffMin = 10 * 60    // front-loading and 2-opt guard
	exactDeadlineCutoffMin  = 10*60 + 30 // exact-search eligibility
)

// ErrNoFeasiblePlan is returned by the search when no trial satisfied
// every deadline and exclusivity constraint.
var ErrNoFeasiblePlan = errors.New("plan: no feasible plan found")

// Scenario is the immutable input to the search: the package set, the
// distance table, and the fleet parameters.
type Scenario struct {
	Name     string
	Day      time.Time
	Start    time.Time
	Packages []*model.Package
	Matrix   *geo.Matrix
	Vehicles int
	Capacity int
	SpeedMPH float64
}

// normalized returns a copy with defaults applied.
func (s Scenario) normalized() Scenario {
	if s.Vehicles <= 0 {
		s.Vehicles = DefaultVehicles
	}
	if s.Capacity <= 0 {
		s.Capacity = DefaultCapacity
	}
	if s.SpeedMPH <= 0 {
		s.SpeedMPH = DefaultSpeedMPH
	}
	if s.Start.IsZero() {
		s.Start = time.Date(s.Day.Year(), s.Day.Month(), s.Day.Day(), 8, 0, 0, 0, s.Day.Location())
	}
	return s
}

// clockCutoff places a minutes-from-midnight cutoff on the scenario day.
func (s *Scenario) clockCutoff(minutes int) time.Time {
	y, mo, d := s.Start.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, s.Start.Location()).Add(time.Duration(minutes) * time.Minute)
}

// delayVehicleID is the vehicle that holds back for late-arriving cargo:
// the highest id in the fleet.
func (s *Scenario) delayVehicleID() int { return s.Vehicles }

// Trial is the outcome of one independent planning run. Immutable once
// scored.
type Trial struct {
	Seed     int64
	Packages []*model.Package
	Vehicles []*model.Vehicle
	Mileage  float64
	Feasible bool
	// InfeasibleReason names the first violated constraint, for logs.
	InfeasibleReason string
}

// Result is the search summary over all trials.
type Result struct {
	Best         *Trial
	Trials       int
	FeasibleRuns int
	BestMileage  float64
	WorstMileage float64
	AvgMileage   float64
	Seed         int64
}

// distances wraps the matrix with the depot-substitution recovery rule:
// an unknown location is treated as the hub, with a warning, so a bad
// address degrades a route instead of killing the run.
type distances struct {
	m      *geo.Matrix
	speed  float64
	logger *log.Logger
}

func (d distances) resolve(loc string) string {
	if d.m.Has(loc) {
		return loc
	}
	if d.logger != nil {
		d.logger.Printf("plan: unknown location %q, substituting depot", loc)
	}
	return model.Hub
}

func (d distances) between(from, to string) float64 {
	v, err := d.m.Distance(d.resolve(from), d.resolve(to))
	if err != nil {
		// Both endpoints resolved, so this cannot happen with a valid matrix.
		return 0
	}
	return v
}

// routeDistance is the round-trip length of visiting the packages in
// order, hub to hub. An empty route is zero.
func routeDistance(d distances, byID map[int]*model.Package, route []int, at time.Time) float64 {
	if len(route) == 0 {
		return 0
	}
	total := 0.0
	loc := model.Hub
	clock := at
	for _, pid := range route {
		next := byID[pid].EffectiveLocation(clock)
		leg := d.between(loc, next)
		total += leg
		clock = clock.Add(model.TravelTime(leg, d.speed))
		loc = next
	}
	total += d.between(loc, model.Hub)
	return total
}

// pathDistance is the directed length of the route from the hub without
// the return leg, used by the exact search.
func pathDistance(d distances, byID map[int]*model.Package, route []int, at time.Time) float64 {
	total := 0.0
	loc := model.Hub
	clock := at
	for _, pid := range route {
		next := byID[pid].EffectiveLocation(clock)
		leg := d.between(loc, next)
		total += leg
		clock = clock.Add(model.TravelTime(leg, d.speed))
		loc = next
	}
	return total
}

// packageIndex builds the id lookup used throughout a trial.
func packageIndex(pkgs []*model.Package) map[int]*model.Package {
	byID := make(map[int]*model.Package, len(pkgs))
	for _, p := range pkgs {
		byID[p.ID] = p
	}
	return byID
}
