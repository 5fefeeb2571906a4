package plan

import (
	"sort"
	"testing"

	"fleetnav/internal/geo"
	"fleetnav/internal/model"
)

func TestTwoOptToyRouteIsFixpoint(t *testing.T) {
	s := toyScenario(t, 2, 16)
	d := toyDistances(t)
	p1, p2 := pkgAt(1, "a"), pkgAt(2, "b")
	byID := map[int]*model.Package{1: p1, 2: p2}

	route := twoOptImprove(&s, d, byID, []int{1, 2}, testStart)
	if !sameRoute(route, []int{1, 2}) {
		t.Fatalf("2-opt changed the optimal toy route to %v", route)
	}
}

func TestTwoOptImprovesCrossedRoute(t *testing.T) {
	m, err := geo.New(
		[]string{model.Hub, "a", "b", "c", "e"},
		[][]float64{
			{0, 1, 4, 4, 1},
			{1, 0, 1, 4, 4},
			{4, 1, 0, 1, 4},
			{4, 4, 1, 0, 1},
			{1, 4, 4, 1, 0},
		},
	)
	if err != nil {
		t.Fatalf("geo.New: %v", err)
	}
	s := Scenario{Day: testDay, Start: testStart, Matrix: m, Vehicles: 2, Capacity: 16, SpeedMPH: DefaultSpeedMPH}.normalized()
	d := distances{m: m, speed: s.SpeedMPH}
	byID := map[int]*model.Package{
		1: pkgAt(1, "a"), 2: pkgAt(2, "b"), 3: pkgAt(3, "c"), 4: pkgAt(4, "e"),
	}

	crossed := []int{1, 3, 2, 4}
	before := routeDistance(d, byID, crossed, testStart)
	improved := twoOptImprove(&s, d, byID, crossed, testStart)
	after := routeDistance(d, byID, improved, testStart)

	if after >= before {
		t.Fatalf("2-opt did not improve: %v -> %v", before, after)
	}
	got := append([]int(nil), improved...)
	sort.Ints(got)
	if !sameRoute(got, []int{1, 2, 3, 4}) {
		t.Fatalf("2-opt changed the id multiset: %v", improved)
	}
}

func TestTwoOptKeepsStrictDeadlinePositions(t *testing.T) {
	s := toyScenario(t, 2, 16)
	d := toyDistances(t)
	urgent := pkgAt(1, "b")
	urgent.Deadline = deadlineAt(9, 0)
	p2, p3 := pkgAt(2, "a"), pkgAt(3, "a")
	byID := map[int]*model.Package{1: urgent, 2: p2, 3: p3}

	// [1 2 3] is suboptimal (b first costs 4+1+0+2) but any reversal
	// moving package 1 later is rejected.
	route := twoOptImprove(&s, d, byID, []int{1, 2, 3}, testStart)
	pos := -1
	for i, pid := range route {
		if pid == 1 {
			pos = i
		}
	}
	if pos != 0 {
		t.Fatalf("strict-deadline package moved from position 0 to %d in %v", pos, route)
	}
}
