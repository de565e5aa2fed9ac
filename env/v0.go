package env

import (
	"smartselect/errs"
	"smartselect/planalgebra"
	"smartselect/record"
)

// V0 is the oracle environment: plan times come straight from
// ground-truth LabeledQuery records, and probing a plan's selectivities
// costs UnitCost per not-yet-known selectivity id. This is the simplest
// variant and the baseline the others are compared against.
type V0 struct {
	dimension, numJoins, numPlans int
	unitCost, timeBudget          float64

	planSels planalgebra.PlanSelTable
	queries  map[uint64]record.LabeledQuery

	qid         uint64
	done        bool
	doneReason  string
	queryTime   float64
	elapsed     float64
	knownSels   map[int]bool
	unknownSels []float64 // indexed plan-1
	predictTime []float64 // indexed plan-1
	tried       tried
}

// NewV0 builds the oracle environment over queries, one LabeledQuery
// per query id, with numPlans = NumPlans(dimension, numJoins, 0, false).
func NewV0(dimension, numJoins int, queries []record.LabeledQuery, unitCost, timeBudget float64) *V0 {
	numPlans := planalgebra.NumPlans(dimension, numJoins, 0, false)
	qmap := make(map[uint64]record.LabeledQuery, len(queries))
	for _, q := range queries {
		qmap[q.ID] = q
	}
	e := &V0{
		dimension: dimension, numJoins: numJoins, numPlans: numPlans,
		unitCost: unitCost, timeBudget: timeBudget,
		planSels: mustBuildPlanSelTable(dimension, numJoins),
		queries:  qmap,
	}
	e.Reset(0)
	return e
}

func (e *V0) Reset(qid uint64) {
	e.qid = qid
	e.done = false
	e.doneReason = ""
	e.queryTime = 0
	e.elapsed = 0
	e.knownSels = make(map[int]bool)
	e.tried.reset()
	e.unknownSels = make([]float64, e.numPlans)
	e.predictTime = make([]float64, e.numPlans)
	for p := 1; p <= e.numPlans; p++ {
		e.unknownSels[p-1] = float64(len(e.planSels[p]))
	}
}

func (e *V0) NumActionsAvailable() int { return e.numPlans - len(e.tried.plans) }

func (e *V0) TakeAction(plan int) float64 {
	query, ok := e.queries[e.qid]
	if !ok {
		e.done = true
		e.doneReason = errs.ReasonNotPossible
		return 0
	}
	predictTime := query.Times[plan]
	e.tried.record(plan, predictTime)

	needed := 0
	for _, sel := range e.planSels[plan] {
		if !e.knownSels[sel] {
			e.knownSels[sel] = true
			needed++
		}
	}
	cost := e.unitCost * float64(needed)

	for p := 1; p <= e.numPlans; p++ {
		unknown := 0
		for _, sel := range e.planSels[p] {
			if !e.knownSels[sel] {
				unknown++
			}
		}
		e.unknownSels[p-1] = float64(unknown)
	}
	e.predictTime[plan-1] = predictTime
	e.elapsed += cost

	switch {
	case e.elapsed+predictTime <= e.timeBudget:
		e.done = true
		e.doneReason = errs.ReasonWin
		e.queryTime = predictTime
		return Reward(1.0, e.timeBudget, e.elapsed+e.queryTime, 1.0)
	case e.elapsed >= e.timeBudget:
		_, best := e.tried.best()
		e.done = true
		e.doneReason = errs.ReasonPlanningTooLong
		e.queryTime = best
		return Reward(1.0, e.timeBudget, e.elapsed+e.queryTime, 1.0)
	case e.NumActionsAvailable() == 0:
		_, best := e.tried.best()
		e.done = true
		e.doneReason = errs.ReasonNotPossible
		e.queryTime = best
		return Reward(1.0, e.timeBudget, e.elapsed+e.queryTime, 1.0)
	default:
		return 0
	}
}

func (e *V0) Tensor() []float64 {
	v := make([]float64, 0, 2*e.numPlans+1)
	v = append(v, e.unknownSels...)
	v = append(v, e.predictTime...)
	v = append(v, e.elapsed)
	return v
}

func (e *V0) Done() bool             { return e.done }
func (e *V0) DoneReason() string     { return e.doneReason }
func (e *V0) PlanningTime() float64  { return e.elapsed }
func (e *V0) QueryTime() float64     { return e.queryTime }
func (e *V0) QueryQuality() float64  { return 1.0 }
func (e *V0) TriedPlans() []int      { return e.tried.plansCopy() }
