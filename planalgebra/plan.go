// Package planalgebra enumerates lossless and sampling query plans and
// maps plans to the selectivity ids needed to estimate them. Plans are
// plain integers; no stringy decimal<->binary conversion is used anywhere
// in this package.
package planalgebra

import (
	"fmt"

	"smartselect/errs"
)

// NumPlans returns P, the total action cardinality.
//
//	P = (2^dimension - 1) * numJoins                          (lossless only)
//	P = (2^dimension - 1) * numJoins + dimension*numRatios    (lossless ∪ sampling)
//	P = dimension * numRatios                                 (samplingOnly)
//
// Plan 0 ("no hint") is not counted; it is addressed separately by callers.
func NumPlans(dimension, numJoins, numRatios int, samplingOnly bool) int {
	numSampling := NumSamplingPlans(dimension, numRatios)
	if samplingOnly {
		return numSampling
	}
	lossless := (1<<uint(dimension) - 1) * numJoins
	if numRatios > 0 {
		return lossless + numSampling
	}
	return lossless
}

// NumSamplingPlans returns dimension*numRatios, the size of the sampling
// action space (one action per (single-index hint, sample ratio) pair).
func NumSamplingPlans(dimension, numRatios int) int {
	return dimension * numRatios
}

// HintID returns which single-index hint a sampling plan k addresses.
func HintID(k, numRatios int) int {
	return k / numRatios
}

// RatioID returns which sample ratio a sampling plan k addresses.
func RatioID(k, numRatios int) int {
	return k % numRatios
}

// ReduceJoinMethod strips the join-method component from plan, returning
// the plan reduced to the index-usage bitmask within one join method
// (1..2^dimension-1) and the 1-based join-method index.
func ReduceJoinMethod(plan, dimension int) (reduced, joinMethod int) {
	span := 1<<uint(dimension) - 1
	reduced = plan
	joinMethod = 1
	for reduced > span {
		reduced -= span
		joinMethod++
	}
	return reduced, joinMethod
}

// DecomposeToPowersOfTwo splits n (n >= 1) into the powers of two that
// sum to it, e.g. 6 (0b110) -> [4, 2].
func DecomposeToPowersOfTwo(n int) []int {
	var powers []int
	high := 1
	for high<<1 <= n {
		high <<= 1
	}
	for i := high; i >= 1; i >>= 1 {
		if i&n != 0 {
			powers = append(powers, i)
		}
	}
	return powers
}

// SelIDsOfPlan returns the ordered set of selectivity ids whose values
// are needed to estimate lossless plan p: the set bits of p's
// index-usage bitmask (within one join method), plus p's reduced value
// itself when that is not already a power of two.
//
// Panics-free contract: p must be in [1, NumPlans(dimension, numJoins, 0,
// false)], else this returns an InvalidPlan error via the fatal path
// (callers in this module always validate before calling; see env and
// estimator).
func SelIDsOfPlan(p, dimension, numJoins int) ([]int, error) {
	total := NumPlans(dimension, numJoins, 0, false)
	if p < 1 || p > total {
		return nil, fmt.Errorf("plan %d outside [1,%d]: %w", p, total, errs.InvalidPlan)
	}
	reduced := p
	if numJoins > 1 {
		reduced, _ = ReduceJoinMethod(p, dimension)
	}
	sels := DecomposeToPowersOfTwo(reduced)
	if !isPowerOfTwo(reduced) {
		sels = append(sels, reduced)
	}
	return sels, nil
}

// SelIDsOfSamplingPlan returns the singleton selectivity id needed for
// sampling plan k: the single-index hint's own selectivity.
func SelIDsOfSamplingPlan(k, dimension, numRatios int) []int {
	hint := HintID(k, numRatios)
	return []int{1 << uint(dimension-1-hint)}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NumberOfSels returns len(SelIDsOfPlan(p, ...)), or 0 for the
// unhinted baseline plan 0.
func NumberOfSels(p, dimension, numJoins int) int {
	if p < 1 {
		return 0
	}
	sels, err := SelIDsOfPlan(p, dimension, numJoins)
	if err != nil {
		return 0
	}
	return len(sels)
}

// PlanSelTable maps every lossless plan id to its selectivity-id set,
// built once per environment instance and reused across episodes.
type PlanSelTable map[int][]int

// BuildPlanSelTable constructs the plan->sel-ids lookup for every
// lossless plan 1..numPlans.
func BuildPlanSelTable(dimension, numJoins int) (PlanSelTable, error) {
	numPlans := NumPlans(dimension, numJoins, 0, false)
	table := make(PlanSelTable, numPlans)
	for p := 1; p <= numPlans; p++ {
		sels, err := SelIDsOfPlan(p, dimension, numJoins)
		if err != nil {
			return nil, err
		}
		table[p] = sels
	}
	return table, nil
}
