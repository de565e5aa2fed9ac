package env

import (
	"smartselect/errs"
	"smartselect/estimator"
	"smartselect/record"
)

// V2 extends V1 with divergence awareness: alongside the estimated
// time it also knows each query's oracle (ground-truth) lossless time,
// so it can distinguish a genuine win from a plan that only looked
// viable under estimation error (too_optimistic) or only looked
// unviable under estimation error (too_pessimistic).
type V2 struct {
	V1
	oracle map[uint64]record.LabeledQuery
}

// NewV2 builds the divergence-aware environment. oracle supplies the
// ground-truth times V1 never sees, used to classify terminal reasons
// and to set the reported query time and reward, never to choose
// actions.
func NewV2(dimension, numJoins int, est *estimator.Estimator, layers []SampleLayer, oracle []record.LabeledQuery, timeBudget float64, samplePointer int) *V2 {
	oracleIdx := make(map[uint64]record.LabeledQuery, len(oracle))
	for _, q := range oracle {
		oracleIdx[q.ID] = q
	}
	v1 := NewV1(dimension, numJoins, est, layers, timeBudget, samplePointer)
	return &V2{V1: *v1, oracle: oracleIdx}
}

func (e *V2) Reset(qid uint64) {
	e.V1.Reset(qid)
}

func (e *V2) TakeAction(plan int) float64 {
	estimateTime, realCost := e.estimateQuery(plan)
	e.tried.record(plan, estimateTime)

	costs := e.layers[e.samplePointer].Costs.Costs
	for p := 1; p <= e.numPlans; p++ {
		var cost float64
		for _, sel := range e.planSels[p] {
			if !e.knownSels[sel] {
				cost += costs[sel-1]
			}
		}
		e.estimateCost[p-1] = cost
	}
	e.estimateTime[plan-1] = estimateTime
	e.elapsed += realCost

	oracleTime := e.oracle[e.qid].Times[plan]
	if e.elapsed+oracleTime <= e.timeBudget {
		e.doneReason = errs.ReasonTooPessimistic
	}

	switch {
	case e.elapsed+estimateTime <= e.timeBudget:
		e.done = true
		e.queryTime = oracleTime
		if e.elapsed+oracleTime <= e.timeBudget {
			e.doneReason = errs.ReasonWin
		} else {
			e.doneReason = errs.ReasonTooOptimistic
		}
		return Reward(1.0, e.timeBudget, e.elapsed+e.queryTime, 1.0)
	case e.elapsed > e.timeBudget:
		e.done = true
		if e.doneReason != errs.ReasonTooPessimistic {
			e.doneReason = errs.ReasonPlanningTooLong
		}
		e.queryTime = e.bestPlanOracleTime()
		return Reward(1.0, e.timeBudget, e.elapsed+e.queryTime, 1.0)
	case e.NumActionsAvailable() == 0:
		e.done = true
		if e.doneReason != errs.ReasonTooPessimistic {
			e.doneReason = errs.ReasonNotPossible
		}
		e.queryTime = e.bestPlanOracleTime()
		return Reward(1.0, e.timeBudget, e.elapsed+e.queryTime, 1.0)
	default:
		e.doneReason = ""
		return 0
	}
}

// bestPlanOracleTime returns the ground-truth time of whichever tried
// plan had the lowest estimated time, matching the teacher's
// get_best_plan_real_time (the agent commits by estimate, reality
// decides the payoff).
func (e *V2) bestPlanOracleTime() float64 {
	plan, _ := e.tried.best()
	return e.oracle[e.qid].Times[plan]
}
