package plan

import (
	"math/rand"
	"sort"
	"time"

	"fleetnav/internal/model"
)

// Manifest maps vehicle id to the package ids it will carry, rebuilt for
// every trial. Ids keep their assignment order.
type Manifest map[int][]int

// jitterAmplitude bounds the multiplicative noise applied to selection
// scores on jittered trials.
const jitterAmplitude = 0.2

// jitter returns a score multiplier. A nil rng means the pure heuristic.
func jitter(rng *rand.Rand) float64 {
	if rng == nil {
		return 1
	}
	return 1 + jitterAmplitude*(rng.Float64()-0.5)
}

// assign builds the per-vehicle manifests in strict tier precedence:
// vehicle-exclusive, groups, early deadlines, delayed availability,
// then the remainder by cargo proximity. Packages that fit nowhere come
// back as unassigned; they are never dropped.
func assign(s *Scenario, t tiers, byID map[int]*model.Package, d distances, rng *rand.Rand) (Manifest, []int) {
	m := make(Manifest, s.Vehicles)
	for v := 1; v <= s.Vehicles; v++ {
		m[v] = nil
	}
	delayID := s.delayVehicleID()
	var unassigned []int

	grouped := make(map[int]bool)
	for _, g := range t.groups {
		for _, id := range g.IDs {
			grouped[id] = true
		}
	}

	room := func(v int) int { return s.Capacity - len(m[v]) }

	// Tier 1: exclusivity pins the package; a full target vehicle means
	// the package stays behind rather than ride the wrong vehicle.
	for _, p := range t.exclusive {
		v := p.OnlyVehicle
		if _, ok := m[v]; !ok || room(v) < 1 {
			unassigned = append(unassigned, p.ID)
			continue
		}
		m[v] = append(m[v], p.ID)
	}

	// Tier 2: groups ride together or not at all. A group with a delayed
	// member goes straight to the delay vehicle so tier 4 cannot split it.
	for _, g := range t.groups {
		target := 0
		if groupHasDelayed(g, byID, s.Start) {
			if room(delayID) >= len(g.IDs) {
				target = delayID
			}
		} else {
			for v := 1; v < delayID; v++ {
				if room(v) >= len(g.IDs) {
					target = v
					break
				}
			}
			if target == 0 && room(delayID) >= len(g.IDs) {
				target = delayID
			}
		}
		if target == 0 {
			unassigned = append(unassigned, g.IDs...)
			continue
		}
		m[target] = append(m[target], g.IDs...)
	}

	// Tier 3: early deadlines spread over the non-delay vehicles,
	// earliest deadline first, round-robin over vehicles with room.
	next := 1
	for _, p := range t.early {
		placed := false
		for tries := 0; tries < delayID-1; tries++ {
			v := next
			next++
			if next >= delayID {
				next = 1
			}
			if room(v) >= 1 {
				m[v] = append(m[v], p.ID)
				placed = true
				break
			}
		}
		if !placed {
			if room(delayID) >= 1 {
				m[delayID] = append(m[delayID], p.ID)
			} else {
				unassigned = append(unassigned, p.ID)
			}
		}
	}

	// Tier 4: delayed packages must ride the delay vehicle. Speculative
	// placements from tier 3 are evicted; exclusivity pins from tier 1
	// stand, since tier 1 outranks this one.
	for _, p := range t.delayed {
		if p.OnlyVehicle != 0 {
			continue
		}
		if home := vehicleOf(m, p.ID); home == delayID {
			continue
		} else if home != 0 {
			m[home] = removeID(m[home], p.ID)
		}
		if room(delayID) >= 1 {
			m[delayID] = append(m[delayID], p.ID)
			continue
		}
		if evicted := evictSpeculative(m, delayID, byID, grouped, s.Start); evicted != 0 {
			unassigned = append(unassigned, evicted)
			m[delayID] = append(m[delayID], p.ID)
			continue
		}
		unassigned = append(unassigned, p.ID)
	}

	// Tier 5: the rest go to the non-delay vehicle whose cargo is
	// nearest, lowest id on ties; the delay vehicle is only the capacity
	// fallback. Jitter perturbs the proximity score on later trials.
	for _, p := range t.remainder {
		best, bestScore := 0, 0.0
		for v := 1; v < delayID; v++ {
			if room(v) < 1 {
				continue
			}
			score := d.between(p.Location, cargoRepresentative(m[v], byID, s.Start)) * jitter(rng)
			if best == 0 || score < bestScore {
				best, bestScore = v, score
			}
		}
		if best == 0 && room(delayID) >= 1 {
			best = delayID
		}
		if best == 0 {
			unassigned = append(unassigned, p.ID)
			continue
		}
		m[best] = append(m[best], p.ID)
	}

	sort.Ints(unassigned)
	return m, unassigned
}

func groupHasDelayed(g Group, byID map[int]*model.Package, start time.Time) bool {
	for _, id := range g.IDs {
		if byID[id].AvailableAt.After(start) {
			return true
		}
	}
	return false
}

// vehicleOf returns the vehicle currently holding the package, 0 if none.
func vehicleOf(m Manifest, pid int) int {
	for v, ids := range m {
		for _, id := range ids {
			if id == pid {
				return v
			}
		}
	}
	return 0
}

func removeID(ids []int, pid int) []int {
	for i, id := range ids {
		if id == pid {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// evictSpeculative removes the last unconstrained no-deadline package
// from the vehicle and returns its id, 0 if nothing is evictable.
// Delayed packages themselves are not evictable.
func evictSpeculative(m Manifest, v int, byID map[int]*model.Package, grouped map[int]bool, start time.Time) int {
	ids := m[v]
	for i := len(ids) - 1; i >= 0; i-- {
		p := byID[ids[i]]
		if p.OnlyVehicle == 0 && !grouped[p.ID] && !p.HasDeadline() && !p.AvailableAt.After(start) {
			m[v] = append(ids[:i], ids[i+1:]...)
			return p.ID
		}
	}
	return 0
}

// cargoRepresentative picks the location standing in for a vehicle's
// cargo in proximity scoring: the first loaded package, or the hub.
func cargoRepresentative(ids []int, byID map[int]*model.Package, at time.Time) string {
	if len(ids) == 0 {
		return model.Hub
	}
	return byID[ids[0]].EffectiveLocation(at)
}
