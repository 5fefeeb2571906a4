package model

import (
	"fmt"
	"time"
)

// Package delivery states.
const (
	PackageAtHub     = "AT_HUB"
	PackageEnRoute   = "EN_ROUTE"
	PackageDelivered = "DELIVERED"
)

// Vehicle lifecycle states.
const (
	VehicleIdle       = "IDLE"
	VehicleDispatched = "DISPATCHED"
	VehicleReturned   = "RETURNED"
)

// Hub is the normalized identifier of the depot location. Every route
// starts and ends here.
const Hub = "hub"

// Package is a single delivery unit. Static fields come from ingestion;
// constraint fields are produced by the note-parsing collaborator; the
// mutable state block is only touched by assignment and execution.
type Package struct {
	ID       int
	Location string
	City     string
	State    string
	Zip      string
	Weight   int

	// Deadline is zero for end-of-day packages.
	Deadline time.Time
	// AvailableAt is the fleet start time unless a delay note pushed it out.
	AvailableAt time.Time
	// OnlyVehicle pins the package to one vehicle id; 0 means unconstrained.
	OnlyVehicle int
	// GroupWith holds raw pairwise same-vehicle relations from the note.
	// Transitive closure happens in the planner.
	GroupWith []int
	// CorrectedLocation becomes authoritative once CorrectionAt passes.
	CorrectedLocation string
	CorrectionAt      time.Time

	// Mutable delivery state.
	Status          string
	AssignedVehicle int
	DepartedAt      time.Time
	DeliveredAt     time.Time
}

// HasDeadline reports whether the package carries a hard deadline.
func (p *Package) HasDeadline() bool { return !p.Deadline.IsZero() }

// CorrectionPending reports whether an address correction exists that is
// not yet in effect at the given instant.
func (p *Package) CorrectionPending(now time.Time) bool {
	return !p.CorrectionAt.IsZero() && now.Before(p.CorrectionAt)
}

// EffectiveLocation returns the corrected location once the correction
// instant has passed, otherwise the original location.
func (p *Package) EffectiveLocation(now time.Time) string {
	if p.CorrectedLocation != "" && !p.CorrectionPending(now) {
		return p.CorrectedLocation
	}
	return p.Location
}

// Pickup stamps the package as loaded on a vehicle.
func (p *Package) Pickup(at time.Time, vehicleID int) {
	p.Status = PackageEnRoute
	p.AssignedVehicle = vehicleID
	p.DepartedAt = at
}

// Deliver stamps the package as delivered.
func (p *Package) Deliver(at time.Time) {
	p.Status = PackageDelivered
	p.DeliveredAt = at
}

// Clone returns an independent copy for a fresh trial.
func (p *Package) Clone() *Package {
	cp := *p
	cp.GroupWith = append([]int(nil), p.GroupWith...)
	return &cp
}

// Vehicle is a capacity-limited delivery vehicle with a simulated clock.
type Vehicle struct {
	ID       int
	Clock    time.Time
	SpeedMPH float64
	Capacity int
	Location string
	Cargo    []int
	Route    []int
	Mileage  float64
	Status   string

	ReturnedAt time.Time
}

// NewVehicle returns an idle vehicle parked at the hub.
func NewVehicle(id int, start time.Time, capacity int, speedMPH float64) *Vehicle {
	return &Vehicle{
		ID:       id,
		Clock:    start,
		SpeedMPH: speedMPH,
		Capacity: capacity,
		Location: Hub,
		Status:   VehicleIdle,
	}
}

// HasCapacity reports whether the vehicle can take one more package.
func (v *Vehicle) HasCapacity() bool { return len(v.Cargo) < v.Capacity }

// Load puts a package on board and stamps its pickup state. The caller is
// expected to escalate on failure; the package is never silently dropped.
func (v *Vehicle) Load(p *Package) error {
	if !v.HasCapacity() {
		return fmt.Errorf("vehicle %d: load package %d: capacity %d reached", v.ID, p.ID, v.Capacity)
	}
	v.Cargo = append(v.Cargo, p.ID)
	p.Pickup(v.Clock, v.ID)
	return nil
}

// SetRoute assigns the planned visiting order and dispatches the vehicle.
func (v *Vehicle) SetRoute(route []int) {
	v.Route = route
	v.Status = VehicleDispatched
}

// Drive advances clock and odometer for a leg of the given distance.
func (v *Vehicle) Drive(distance float64) {
	v.Mileage += distance
	v.Clock = v.Clock.Add(TravelTime(distance, v.SpeedMPH))
}

// Unload removes a delivered package id from cargo.
func (v *Vehicle) Unload(pid int) {
	for i, id := range v.Cargo {
		if id == pid {
			v.Cargo = append(v.Cargo[:i], v.Cargo[i+1:]...)
			return
		}
	}
}

// ReturnToHub parks the vehicle and records the return instant.
func (v *Vehicle) ReturnToHub() {
	v.Location = Hub
	v.Status = VehicleReturned
	v.ReturnedAt = v.Clock
}

// TravelTime converts a distance at the given speed into simulated time.
func TravelTime(distance, speedMPH float64) time.Duration {
	return time.Duration(distance / speedMPH * float64(time.Hour))
}
