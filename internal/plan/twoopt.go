package plan

import (
	"time"

	"fleetnav/internal/model"
)

// twoOptImprove refines a route with first-improvement 2-opt over the
// round-trip distance, restarting after every accepted move. Reversals
// that would move a strict-deadline package to a later position are
// rejected outright; position is a cheap stand-in for delivery time
// that keeps the refined route deadline-safe without re-simulating
// every candidate. The id multiset never changes.
func twoOptImprove(s *Scenario, d distances, byID map[int]*model.Package, route []int, depart time.Time) []int {
	if len(route) < 3 {
		return route
	}
	strictCutoff := s.clockCutoff(strictDeadlineCutoffMin)
	out := append([]int(nil), route...)
	best := routeDistance(d, byID, out, depart)

	improved := true
	for improved {
		improved = false
		for i := 0; i < len(out)-1 && !improved; i++ {
			for j := i + 1; j < len(out); j++ {
				if movesDeadlineLater(byID, out, i, j, strictCutoff) {
					continue
				}
				cand := twoOptSwap(out, i, j)
				if dist := routeDistance(d, byID, cand, depart); dist < best {
					out, best = cand, dist
					improved = true
					break
				}
			}
		}
	}
	return out
}

// twoOptSwap reverses route[i..j] into a fresh slice.
func twoOptSwap(route []int, i, j int) []int {
	out := make([]int, len(route))
	copy(out, route[:i])
	for k := i; k <= j; k++ {
		out[k] = route[j-(k-i)]
	}
	copy(out[j+1:], route[j+1:])
	return out
}

// movesDeadlineLater reports whether reversing route[i..j] would push
// any strict-deadline package to a later index.
func movesDeadlineLater(byID map[int]*model.Package, route []int, i, j int, cutoff time.Time) bool {
	for k := i; k <= j; k++ {
		p := byID[route[k]]
		if !p.HasDeadline() || p.Deadline.After(cutoff) {
			continue
		}
		if j-(k-i) > k { // reversed position is later
			return true
		}
	}
	return false
}
