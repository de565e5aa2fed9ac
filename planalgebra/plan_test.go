package planalgebra

import (
	"sort"
	"testing"
)

func TestNumPlans(t *testing.T) {
	cases := []struct {
		d, j, r      int
		samplingOnly bool
		want         int
	}{
		{3, 1, 0, false, 7},
		{3, 2, 0, false, 14},
		{3, 1, 3, false, 7 + 9},
		{3, 1, 3, true, 9},
		{2, 1, 2, true, 4},
	}
	for _, c := range cases {
		got := NumPlans(c.d, c.j, c.r, c.samplingOnly)
		if got != c.want {
			t.Errorf("NumPlans(%d,%d,%d,%v) = %d, want %d", c.d, c.j, c.r, c.samplingOnly, got, c.want)
		}
	}
}

func TestSelIDsOfPlanContainsSelfAndSetBits(t *testing.T) {
	const dimension = 3
	for p := 1; p < 1<<dimension; p++ {
		sels, err := SelIDsOfPlan(p, dimension, 1)
		if err != nil {
			t.Fatalf("SelIDsOfPlan(%d): %v", p, err)
		}
		set := map[int]bool{}
		for _, s := range sels {
			set[s] = true
		}
		if !set[p] {
			t.Errorf("SelIDsOfPlan(%d) = %v, missing p itself", p, sels)
		}
		for _, bit := range DecomposeToPowersOfTwo(p) {
			if !set[bit] {
				t.Errorf("SelIDsOfPlan(%d) = %v, missing set bit %d", p, sels, bit)
			}
		}
	}
}

func TestSelIDsOfPlanKnownExamples(t *testing.T) {
	cases := map[int][]int{
		1: {1},
		2: {2},
		3: {1, 2, 3},
		4: {4},
		5: {4, 1, 5},
		6: {4, 2, 6},
		7: {4, 2, 1, 7},
	}
	for p, want := range cases {
		got, err := SelIDsOfPlan(p, 3, 1)
		if err != nil {
			t.Fatalf("SelIDsOfPlan(%d): %v", p, err)
		}
		if !sameSet(got, want) {
			t.Errorf("SelIDsOfPlan(%d) = %v, want set %v", p, got, want)
		}
	}
}

func TestSelIDsOfPlanInvalid(t *testing.T) {
	if _, err := SelIDsOfPlan(0, 3, 1); err == nil {
		t.Error("expected error for plan 0")
	}
	if _, err := SelIDsOfPlan(8, 3, 1); err == nil {
		t.Error("expected error for plan out of range")
	}
}

func TestReduceJoinMethod(t *testing.T) {
	// dimension=3 -> span=7
	reduced, join := ReduceJoinMethod(5, 3)
	if reduced != 5 || join != 1 {
		t.Errorf("ReduceJoinMethod(5,3) = (%d,%d), want (5,1)", reduced, join)
	}
	reduced, join = ReduceJoinMethod(12, 3) // 12 - 7 = 5, join 2
	if reduced != 5 || join != 2 {
		t.Errorf("ReduceJoinMethod(12,3) = (%d,%d), want (5,2)", reduced, join)
	}
}

func TestSelIDsOfSamplingPlan(t *testing.T) {
	// dimension=3, numRatios=2: k=0 -> hint 0 -> sel 4; k=1 -> hint 0 -> sel 4
	// k=2 -> hint 1 -> sel 2; k=4 -> hint 2 -> sel 1
	got := SelIDsOfSamplingPlan(0, 3, 2)
	if len(got) != 1 || got[0] != 4 {
		t.Errorf("SelIDsOfSamplingPlan(0,3,2) = %v, want [4]", got)
	}
	got = SelIDsOfSamplingPlan(4, 3, 2)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("SelIDsOfSamplingPlan(4,3,2) = %v, want [1]", got)
	}
}

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ac := append([]int(nil), a...)
	bc := append([]int(nil), b...)
	sort.Ints(ac)
	sort.Ints(bc)
	for i := range ac {
		if ac[i] != bc[i] {
			return false
		}
	}
	return true
}
