package plan

import (
	"testing"
	"time"

	"fleetnav/internal/model"
)

func dispatch(s *Scenario, byID map[int]*model.Package, route []int) *model.Vehicle {
	v := model.NewVehicle(1, s.Start, s.Capacity, s.SpeedMPH)
	for _, pid := range route {
		_ = v.Load(byID[pid])
	}
	v.SetRoute(route)
	return v
}

func TestExecuteRouteDeliversAndReturns(t *testing.T) {
	s := toyScenario(t, 2, 16)
	d := toyDistances(t)
	p1, p2 := pkgAt(1, "a"), pkgAt(2, "b")
	byID := map[int]*model.Package{1: p1, 2: p2}
	v := dispatch(&s, byID, []int{1, 2})

	executeRoute(&s, d, byID, v)

	if p1.Status != model.PackageDelivered || p2.Status != model.PackageDelivered {
		t.Fatalf("statuses = %s/%s, want delivered", p1.Status, p2.Status)
	}
	if v.Mileage != 7.0 {
		t.Fatalf("mileage = %v, want 7.0", v.Mileage)
	}
	if v.Status != model.VehicleReturned || v.Location != model.Hub {
		t.Fatalf("vehicle did not return to hub: %s at %s", v.Status, v.Location)
	}
	if !p2.DeliveredAt.After(p1.DeliveredAt) {
		t.Fatalf("clock not monotone: %v then %v", p1.DeliveredAt, p2.DeliveredAt)
	}
}

func TestExecuteRouteWaitsForNearCorrection(t *testing.T) {
	s := toyScenario(t, 2, 16)
	d := toyDistances(t)
	p := pkgAt(1, "a")
	p.CorrectedLocation = "b"
	p.CorrectionAt = testStart.Add(20 * time.Minute) // inside the 30 min horizon
	byID := map[int]*model.Package{1: p}
	v := dispatch(&s, byID, []int{1})

	executeRoute(&s, d, byID, v)

	if p.Status != model.PackageDelivered {
		t.Fatalf("status = %s, want delivered", p.Status)
	}
	if v.Mileage != 8.0 {
		t.Fatalf("mileage = %v, want 8.0 (hub->b->hub after waiting)", v.Mileage)
	}
	if p.DeliveredAt.Before(p.CorrectionAt) {
		t.Fatalf("delivered %v before the correction landed at %v", p.DeliveredAt, p.CorrectionAt)
	}
}

func TestExecuteRouteDeferralCapForcesDelivery(t *testing.T) {
	s := toyScenario(t, 2, 16)
	d := toyDistances(t)
	p := pkgAt(1, "a")
	p.CorrectedLocation = "b"
	p.CorrectionAt = testStart.Add(10 * time.Hour) // never inside the horizon
	byID := map[int]*model.Package{1: p}
	v := dispatch(&s, byID, []int{1})

	executeRoute(&s, d, byID, v)

	if p.Status != model.PackageDelivered {
		t.Fatalf("status = %s, want force-delivered", p.Status)
	}
	// Stale address: hub->a->hub.
	if v.Mileage != 4.0 {
		t.Fatalf("mileage = %v, want 4.0 via the stale address", v.Mileage)
	}
	if p.DeliveredAt.Before(testStart) {
		t.Fatalf("clock went backwards: delivered %v", p.DeliveredAt)
	}
	if v.Status != model.VehicleReturned {
		t.Fatalf("vehicle status = %s, want returned", v.Status)
	}
}

func TestExecuteRouteUnknownLocationUsesDepot(t *testing.T) {
	s := toyScenario(t, 2, 16)
	d := toyDistances(t)
	p := pkgAt(1, "nowhere st")
	byID := map[int]*model.Package{1: p}
	v := dispatch(&s, byID, []int{1})

	executeRoute(&s, d, byID, v)

	if p.Status != model.PackageDelivered {
		t.Fatalf("status = %s, want delivered at the depot", p.Status)
	}
	if v.Mileage != 0 {
		t.Fatalf("mileage = %v, want 0 (depot substitution)", v.Mileage)
	}
}
