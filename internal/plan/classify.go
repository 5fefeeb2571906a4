package plan

import (
	"sort"

	"fleetnav/internal/model"
)

// Group is a transitively closed same-vehicle equivalence class. Member
// ids are ascending; no package appears in two groups.
type Group struct {
	IDs []int
}

// tiers partitions the package set by constraint kind, in assignment
// precedence order. A package can appear in at most one of exclusive,
// groups, early, or remainder. delayed overlays exclusive, groups, and
// early — those speculative placements are reconciled by the assignment
// pass that owns eviction — but a delayed package with no other
// constraint appears in delayed alone, never in remainder.
type tiers struct {
	exclusive []*model.Package
	groups    []Group
	early     []*model.Package
	delayed   []*model.Package
	remainder []*model.Package
}

// classify splits packages into constraint tiers. Group relations are
// pairwise in the input ("deliver with 13, 15"); here they are closed
// transitively so that overlapping notes merge into one class.
func classify(s *Scenario, pkgs []*model.Package) tiers {
	byID := packageIndex(pkgs)
	uf := newUnionFind()
	for _, p := range pkgs {
		for _, other := range p.GroupWith {
			if _, ok := byID[other]; ok {
				uf.union(p.ID, other)
			}
		}
	}

	classes := make(map[int][]int)
	for _, p := range pkgs {
		if root, ok := uf.find(p.ID); ok {
			classes[root] = append(classes[root], p.ID)
		}
	}

	var t tiers
	earlyCutoff := s.clockCutoff(earlyDeadlineCutoffMin)
	grouped := make(map[int]bool)
	for _, members := range classes {
		if len(members) < 2 {
			continue
		}
		sort.Ints(members)
		t.groups = append(t.groups, Group{IDs: members})
		for _, id := range members {
			grouped[id] = true
		}
	}
	sort.Slice(t.groups, func(i, j int) bool { return t.groups[i].IDs[0] < t.groups[j].IDs[0] })

	for _, p := range pkgs {
		if p.AvailableAt.After(s.Start) {
			t.delayed = append(t.delayed, p)
		}
		switch {
		case p.OnlyVehicle != 0:
			t.exclusive = append(t.exclusive, p)
		case grouped[p.ID]:
			// placed with its group
		case p.HasDeadline() && !p.Deadline.After(earlyCutoff):
			t.early = append(t.early, p)
		case p.AvailableAt.After(s.Start):
			// tier 4 owns its placement
		default:
			t.remainder = append(t.remainder, p)
		}
	}

	sort.Slice(t.exclusive, func(i, j int) bool { return t.exclusive[i].ID < t.exclusive[j].ID })
	sort.Slice(t.early, func(i, j int) bool {
		a, b := t.early[i], t.early[j]
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
		return a.ID < b.ID
	})
	sort.Slice(t.delayed, func(i, j int) bool { return t.delayed[i].ID < t.delayed[j].ID })
	sort.Slice(t.remainder, func(i, j int) bool { return t.remainder[i].ID < t.remainder[j].ID })
	return t
}

// unionFind is a plain disjoint-set over package ids.
type unionFind struct {
	parent map[int]int
}

func newUnionFind() *unionFind { return &unionFind{parent: make(map[int]int)} }

func (u *unionFind) add(id int) {
	if _, ok := u.parent[id]; !ok {
		u.parent[id] = id
	}
}

func (u *unionFind) find(id int) (int, bool) {
	p, ok := u.parent[id]
	if !ok {
		return 0, false
	}
	for p != u.parent[p] {
		u.parent[p] = u.parent[u.parent[p]]
		p = u.parent[p]
	}
	return p, true
}

func (u *unionFind) union(a, b int) {
	u.add(a)
	u.add(b)
	ra, _ := u.find(a)
	rb, _ := u.find(b)
	if ra == rb {
		return
	}
	// Smaller root wins, keeps class roots deterministic.
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
