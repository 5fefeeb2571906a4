package plan

import (
	"fleetnav/internal/model"
)

// executeRoute drives a vehicle through its planned route on a work
// queue: deliver the head, or handle its pending address correction by
// waiting (when the fix is near) or moving it to the tail (bounded by
// the deferral cap, after which it is force-delivered to the stale
// address). The vehicle clock never goes backwards, and every package
// on the route ends up delivered.
func executeRoute(s *Scenario, d distances, byID map[int]*model.Package, v *model.Vehicle) {
	pending := append([]int(nil), v.Route...)
	deferrals := make(map[int]int)

	for len(pending) > 0 {
		pid := pending[0]
		pending = pending[1:]
		p := byID[pid]

		if p.CorrectionPending(v.Clock) {
			wait := p.CorrectionAt.Sub(v.Clock)
			switch {
			case wait <= waitHorizon:
				// Idle at the current stop until the fix lands.
				v.Clock = p.CorrectionAt
			case deferrals[pid] < maxDeferrals:
				deferrals[pid]++
				pending = append(pending, pid)
				continue
			default:
				if d.logger != nil {
					d.logger.Printf("plan: vehicle %d force-delivering package %d to stale address after %d deferrals", v.ID, pid, maxDeferrals)
				}
			}
		}

		dest := p.EffectiveLocation(v.Clock)
		v.Drive(d.between(v.Location, dest))
		v.Location = dest
		p.Deliver(v.Clock)
		v.Unload(pid)
	}

	v.Drive(d.between(v.Location, model.Hub))
	v.ReturnToHub()
}
