package plan

import (
	"math/rand"
	"sort"
	"time"

	"fleetnav/internal/model"
)

// constructRoute orders a vehicle's cargo for delivery. Packages whose
// address correction is still pending at departure go to the route tail;
// a small set of urgent deadlines gets an exact permutation search; the
// rest is deadline-front-loaded nearest neighbor.
func constructRoute(s *Scenario, d distances, byID map[int]*model.Package, cargo []int, depart time.Time, rng *rand.Rand) []int {
	var tail, rest []int
	for _, pid := range cargo {
		if byID[pid].CorrectionPending(depart) {
			tail = append(tail, pid)
		} else {
			rest = append(rest, pid)
		}
	}
	sort.Ints(tail)

	exactCutoff := s.clockCutoff(exactDeadlineCutoffMin)
	var urgent, others []int
	for _, pid := range rest {
		p := byID[pid]
		if p.HasDeadline() && !p.Deadline.After(exactCutoff) {
			urgent = append(urgent, pid)
		} else {
			others = append(others, pid)
		}
	}
	sort.Ints(urgent)

	if n := len(urgent); n >= 1 && n <= exactSearchMax {
		if head, loc, clock, ok := exactOrder(s, d, byID, urgent, depart); ok {
			route := append(head, nnOrder(s, d, byID, others, loc, clock, rng)...)
			return append(route, tail...)
		}
	}
	route := nnConstruct(s, d, byID, rest, depart, rng)
	return append(route, tail...)
}

// exactOrder enumerates every visiting order of the urgent set from the
// hub, rejects orders that miss a deadline, and keeps the minimum
// directed distance. Returns ok=false when no order is feasible.
func exactOrder(s *Scenario, d distances, byID map[int]*model.Package, urgent []int, depart time.Time) (best []int, endLoc string, endClock time.Time, ok bool) {
	bestDist := 0.0
	perm := append([]int(nil), urgent...)
	var walk func(k int)
	walk = func(k int) {
		if k == len(perm) {
			dist, loc, clock, feasible := simulateOrder(s, d, byID, perm, depart)
			if !feasible {
				return
			}
			if !ok || dist < bestDist {
				best = append(best[:0], perm...)
				bestDist, endLoc, endClock, ok = dist, loc, clock, true
			}
			return
		}
		for i := k; i < len(perm); i++ {
			perm[k], perm[i] = perm[i], perm[k]
			walk(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	walk(0)
	return best, endLoc, endClock, ok
}

// simulateOrder drives the order from the hub and checks deadlines.
func simulateOrder(s *Scenario, d distances, byID map[int]*model.Package, order []int, depart time.Time) (dist float64, loc string, clock time.Time, feasible bool) {
	loc, clock = model.Hub, depart
	for _, pid := range order {
		p := byID[pid]
		next := p.EffectiveLocation(clock)
		leg := d.between(loc, next)
		dist += leg
		clock = clock.Add(model.TravelTime(leg, s.SpeedMPH))
		loc = next
		if p.HasDeadline() && clock.After(p.Deadline) {
			return 0, "", time.Time{}, false
		}
	}
	return dist, loc, clock, true
}

// nnConstruct front-loads strict deadlines in ascending deadline order,
// then appends the rest greedily.
func nnConstruct(s *Scenario, d distances, byID map[int]*model.Package, pids []int, depart time.Time, rng *rand.Rand) []int {
	strictCutoff := s.clockCutoff(strictDeadlineCutoffMin)
	var strict, rest []int
	for _, pid := range pids {
		if p := byID[pid]; p.HasDeadline() && !p.Deadline.After(strictCutoff) {
			strict = append(strict, pid)
		} else {
			rest = append(rest, pid)
		}
	}
	sort.Slice(strict, func(i, j int) bool {
		a, b := byID[strict[i]], byID[strict[j]]
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
		return a.ID < b.ID
	})

	loc, clock := model.Hub, depart
	route := make([]int, 0, len(pids))
	for _, pid := range strict {
		next := byID[pid].EffectiveLocation(clock)
		leg := d.between(loc, next)
		clock = clock.Add(model.TravelTime(leg, s.SpeedMPH))
		loc = next
		route = append(route, pid)
	}
	return append(route, nnOrder(s, d, byID, rest, loc, clock, rng)...)
}

// nnOrder is greedy nearest neighbor over the remaining ids. Deadline
// packages get a distance discount so they surface earlier; ties break
// on ascending package id. rng, when present, jitters the score.
func nnOrder(s *Scenario, d distances, byID map[int]*model.Package, pids []int, fromLoc string, clock time.Time, rng *rand.Rand) []int {
	pending := append([]int(nil), pids...)
	sort.Ints(pending)
	loc := fromLoc
	route := make([]int, 0, len(pending))
	for len(pending) > 0 {
		bestIdx := -1
		bestScore := 0.0
		for i, pid := range pending {
			p := byID[pid]
			score := d.between(loc, p.EffectiveLocation(clock))
			if p.HasDeadline() {
				score *= nnDeadlineBias
			}
			score *= jitter(rng)
			if bestIdx < 0 || score < bestScore {
				bestIdx, bestScore = i, score
			}
		}
		pid := pending[bestIdx]
		pending = append(pending[:bestIdx], pending[bestIdx+1:]...)
		next := byID[pid].EffectiveLocation(clock)
		leg := d.between(loc, next)
		clock = clock.Add(model.TravelTime(leg, s.SpeedMPH))
		loc = next
		route = append(route, pid)
	}
	return route
}
