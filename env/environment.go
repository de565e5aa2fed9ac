// Package env implements the five MDP environment variants of the
// adaptive plan selector: v0 (oracle times), v1 (sample-estimated
// times), v2 (divergence-aware sample estimation), vPlus (lossless ∪
// sampling action space), and vQ (sampling-only, quality-aware). Every
// variant shares one state machine — Running or one of five Terminal
// reasons — and one reward law.
package env

import (
	"smartselect/planalgebra"
)

// Environment is the common MDP surface every variant implements. An
// episode runs Reset once, then TakeAction repeatedly until Done
// reports true.
type Environment interface {
	// Reset starts a new episode against the query identified by qid.
	Reset(qid uint64)
	// TakeAction applies plan (a probe or commit action) and returns
	// the step reward.
	TakeAction(plan int) float64
	// Tensor returns the current state as a flat feature vector, ready
	// for qnet.Network.Forward.
	Tensor() []float64
	Done() bool
	DoneReason() string
	// PlanningTime returns the cumulative probe cost accrued so far
	// this episode (unit_cost times selectivities newly collected, or
	// the real probe cost for sample-estimated variants).
	PlanningTime() float64
	QueryTime() float64
	QueryQuality() float64
	NumActionsAvailable() int
	// TriedPlans returns the plans attempted this episode, in the
	// order they were tried.
	TriedPlans() []int
}

// Reward implements the shared reward law:
//
//	reward(beta, budget, total, quality) = beta*(budget-total)/budget + (1-beta)*quality
func Reward(beta, budget, total, quality float64) float64 {
	return beta*(budget-total)/budget + (1-beta)*quality
}

// tried tracks the plans attempted so far in an episode and their
// observed (estimated or oracle) times, shared by every variant's
// "best tried plan" fallback on not_possible/planning_too_long.
type tried struct {
	plans []int
	times []float64
}

func (t *tried) reset() {
	t.plans = t.plans[:0]
	t.times = t.times[:0]
}

func (t *tried) record(plan int, time float64) {
	t.plans = append(t.plans, plan)
	t.times = append(t.times, time)
}

// plansCopy returns a copy of the plans tried so far, safe for a caller to
// retain past the next record/reset call.
func (t *tried) plansCopy() []int {
	return append([]int(nil), t.plans...)
}

// best returns the plan with the minimum recorded time and that time.
func (t *tried) best() (plan int, time float64) {
	time = -1
	for i, tm := range t.times {
		if time < 0 || tm < time {
			time = tm
			plan = t.plans[i]
		}
	}
	return plan, time
}

// mustBuildPlanSelTable builds the plan->sel-ids table for every
// lossless plan. It cannot fail: BuildPlanSelTable only errors on an
// out-of-range plan id, which never occurs iterating 1..numPlans.
func mustBuildPlanSelTable(dimension, numJoins int) planalgebra.PlanSelTable {
	table, err := planalgebra.BuildPlanSelTable(dimension, numJoins)
	if err != nil {
		panic(err)
	}
	return table
}
