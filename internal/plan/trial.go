package plan

import (
	"fmt"
	"math/rand"
	"time"

	"fleetnav/internal/model"
)

// runTrial executes one independent planning run on fresh package
// copies. rng is nil for the pure-heuristic trial.
func runTrial(s *Scenario, d distances, seed int64, rng *rand.Rand) (*Trial, error) {
	pkgs := make([]*model.Package, len(s.Packages))
	for i, p := range s.Packages {
		pkgs[i] = p.Clone()
	}
	byID := packageIndex(pkgs)

	t := classify(s, pkgs)
	manifest, unassigned := assign(s, t, byID, d, rng)

	vehicles := make([]*model.Vehicle, 0, s.Vehicles)
	for id := 1; id <= s.Vehicles; id++ {
		depart := latestAvailability(manifest[id], byID, s.Start)
		v := model.NewVehicle(id, depart, s.Capacity, s.SpeedMPH)
		for _, pid := range manifest[id] {
			if err := v.Load(byID[pid]); err != nil {
				return nil, fmt.Errorf("trial seed %d: %w", seed, err)
			}
		}
		vehicles = append(vehicles, v)
	}

	for _, v := range vehicles {
		if len(v.Cargo) == 0 {
			v.ReturnToHub()
			continue
		}
		route := constructRoute(s, d, byID, v.Cargo, v.Clock, rng)
		route = twoOptImprove(s, d, byID, route, v.Clock)
		v.SetRoute(route)
		executeRoute(s, d, byID, v)
	}

	if len(unassigned) > 0 {
		if err := reoffer(s, d, byID, vehicles, unassigned); err != nil {
			return nil, fmt.Errorf("trial seed %d: %w", seed, err)
		}
	}

	trial := &Trial{Seed: seed, Packages: pkgs, Vehicles: vehicles}
	for _, v := range vehicles {
		trial.Mileage += v.Mileage
	}
	trial.Feasible, trial.InfeasibleReason = checkFeasible(s, t, pkgs)
	return trial, nil
}

// reoffer gives leftover packages one more ride on the earliest-returned
// vehicle. Whatever still does not fit stays at the hub and fails the
// feasibility check, never silently vanishing.
func reoffer(s *Scenario, d distances, byID map[int]*model.Package, vehicles []*model.Vehicle, leftover []int) error {
	var carrier *model.Vehicle
	for _, v := range vehicles {
		if v.Status != model.VehicleReturned {
			continue
		}
		if carrier == nil || v.ReturnedAt.Before(carrier.ReturnedAt) ||
			(v.ReturnedAt.Equal(carrier.ReturnedAt) && v.ID < carrier.ID) {
			carrier = v
		}
	}
	if carrier == nil {
		return nil
	}

	loaded := false
	for _, pid := range leftover {
		p := byID[pid]
		if p.OnlyVehicle != 0 && p.OnlyVehicle != carrier.ID {
			continue
		}
		if !carrier.HasCapacity() {
			break
		}
		if p.AvailableAt.After(carrier.Clock) {
			carrier.Clock = p.AvailableAt
		}
		if err := carrier.Load(p); err != nil {
			return err
		}
		loaded = true
	}
	if !loaded {
		return nil
	}

	route := constructRoute(s, d, byID, carrier.Cargo, carrier.Clock, nil)
	route = twoOptImprove(s, d, byID, route, carrier.Clock)
	carrier.SetRoute(route)
	executeRoute(s, d, byID, carrier)
	return nil
}

// latestAvailability is the departure rule: a vehicle waits for the last
// of its cargo to reach the hub, never leaving before fleet start. Only
// the delay vehicle normally carries late cargo, but an exclusivity pin
// can put a delayed package elsewhere, and that vehicle waits too.
func latestAvailability(cargo []int, byID map[int]*model.Package, start time.Time) time.Time {
	depart := start
	for _, pid := range cargo {
		if at := byID[pid].AvailableAt; at.After(depart) {
			depart = at
		}
	}
	return depart
}

// checkFeasible verifies the post-run state: everything delivered,
// every deadline met, every exclusivity pin honored, and every group
// on one vehicle.
func checkFeasible(s *Scenario, t tiers, pkgs []*model.Package) (bool, string) {
	for _, p := range pkgs {
		if p.Status != model.PackageDelivered {
			return false, fmt.Sprintf("package %d not delivered", p.ID)
		}
		if p.HasDeadline() && p.DeliveredAt.After(p.Deadline) {
			return false, fmt.Sprintf("package %d missed deadline %s", p.ID, p.Deadline.Format("15:04"))
		}
		if p.OnlyVehicle != 0 && p.AssignedVehicle != p.OnlyVehicle {
			return false, fmt.Sprintf("package %d rode vehicle %d, pinned to %d", p.ID, p.AssignedVehicle, p.OnlyVehicle)
		}
	}
	byID := packageIndex(pkgs)
	for _, g := range t.groups {
		first := byID[g.IDs[0]].AssignedVehicle
		for _, id := range g.IDs[1:] {
			if byID[id].AssignedVehicle != first {
				return false, fmt.Sprintf("group %v split across vehicles", g.IDs)
			}
		}
	}
	return true, ""
}
