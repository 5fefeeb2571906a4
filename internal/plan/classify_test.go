package plan

import (
	"testing"
	"time"
)

func TestClassifyTransitiveGroups(t *testing.T) {
	p1 := pkgAt(1, "a")
	p1.GroupWith = []int{2}
	p2 := pkgAt(2, "b")
	p2.GroupWith = []int{3}
	p3 := pkgAt(3, "a")
	p4 := pkgAt(4, "b")

	s := toyScenario(t, 2, 16, p1, p2, p3, p4)
	tr := classify(&s, s.Packages)

	if len(tr.groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(tr.groups))
	}
	if !sameRoute(tr.groups[0].IDs, []int{1, 2, 3}) {
		t.Fatalf("group = %v, want [1 2 3]", tr.groups[0].IDs)
	}
	if len(tr.remainder) != 1 || tr.remainder[0].ID != 4 {
		t.Fatalf("remainder = %+v, want just package 4", tr.remainder)
	}
}

func TestClassifyTierMembership(t *testing.T) {
	excl := pkgAt(1, "a")
	excl.OnlyVehicle = 2
	early := pkgAt(2, "b")
	early.Deadline = deadlineAt(9, 0)
	late := pkgAt(3, "a")
	late.Deadline = deadlineAt(10, 30) // past the 09:15 cutoff
	delayed := pkgAt(4, "b")
	delayed.AvailableAt = testStart.Add(65 * time.Minute)

	s := toyScenario(t, 2, 16, excl, early, late, delayed)
	tr := classify(&s, s.Packages)

	if len(tr.exclusive) != 1 || tr.exclusive[0].ID != 1 {
		t.Fatalf("exclusive = %+v", tr.exclusive)
	}
	if len(tr.early) != 1 || tr.early[0].ID != 2 {
		t.Fatalf("early = %+v", tr.early)
	}
	if len(tr.delayed) != 1 || tr.delayed[0].ID != 4 {
		t.Fatalf("delayed = %+v", tr.delayed)
	}
	// The 10:30 deadline stays in remainder for placement; the delayed
	// package belongs to its own tier alone.
	if len(tr.remainder) != 1 || tr.remainder[0].ID != 3 {
		t.Fatalf("remainder = %+v, want just package 3", tr.remainder)
	}
}

func TestClassifyDelayedOverlaysOtherTiers(t *testing.T) {
	p := pkgAt(1, "a")
	p.Deadline = deadlineAt(9, 0)
	p.AvailableAt = testStart.Add(time.Hour)

	s := toyScenario(t, 2, 16, p)
	tr := classify(&s, s.Packages)

	if len(tr.early) != 1 {
		t.Fatalf("early = %+v, want the delayed early-deadline package", tr.early)
	}
	if len(tr.delayed) != 1 {
		t.Fatalf("delayed = %+v, want the same package overlaid", tr.delayed)
	}
}
