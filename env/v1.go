package env

import (
	"smartselect/errs"
	"smartselect/estimator"
	"smartselect/planalgebra"
	"smartselect/record"
)

// SampleLayer bundles the three sample-size-indexed artefacts a
// sample-estimated environment needs to probe and estimate plans at
// one sample size: per-query probe times, per-query selectivity
// feature values, and the average probe cost of each selectivity id.
type SampleLayer struct {
	Times []record.SelVector // probe time of each sel, per query
	Sels  []record.SelVector // selectivity value of each sel, per query
	Costs record.SelCosts    // average probe cost of each sel at this sample size
}

func indexSelVectors(rows []record.SelVector) map[uint64]record.SelVector {
	m := make(map[uint64]record.SelVector, len(rows))
	for _, r := range rows {
		m[r.ID] = r
	}
	return m
}

// V1 estimates plan times from a per-plan linear regression over a
// single sample size's selectivity estimates, rather than the oracle
// times V0 uses. Probing a plan costs the sum of its not-yet-known
// selectivities' observed probe times at the chosen sample size.
type V1 struct {
	dimension, numJoins, numPlans int
	samplePointer                 int
	timeBudget                    float64

	planSels  planalgebra.PlanSelTable
	estimator *estimator.Estimator
	layers    []SampleLayer // indexed by sample pointer
	timesIdx  []map[uint64]record.SelVector
	selsIdx   []map[uint64]record.SelVector

	qid         uint64
	done        bool
	doneReason  string
	queryTime   float64
	elapsed     float64
	knownSels   map[int]bool
	estimateCost []float64
	estimateTime []float64
	tried        tried
}

// NewV1 builds the sample-estimated environment. layers is ordered
// ascending by sample size (index 0 = smallest); samplePointer selects
// which layer's probe costs and features this episode uses.
func NewV1(dimension, numJoins int, est *estimator.Estimator, layers []SampleLayer, timeBudget float64, samplePointer int) *V1 {
	numPlans := planalgebra.NumPlans(dimension, numJoins, 0, false)
	timesIdx := make([]map[uint64]record.SelVector, len(layers))
	selsIdx := make([]map[uint64]record.SelVector, len(layers))
	for i, l := range layers {
		timesIdx[i] = indexSelVectors(l.Times)
		selsIdx[i] = indexSelVectors(l.Sels)
	}
	e := &V1{
		dimension: dimension, numJoins: numJoins, numPlans: numPlans,
		samplePointer: samplePointer, timeBudget: timeBudget,
		planSels: mustBuildPlanSelTable(dimension, numJoins),
		estimator: est, layers: layers, timesIdx: timesIdx, selsIdx: selsIdx,
	}
	e.Reset(0)
	return e
}

func (e *V1) Reset(qid uint64) {
	e.qid = qid
	e.done = false
	e.doneReason = ""
	e.queryTime = 0
	e.elapsed = 0
	e.knownSels = make(map[int]bool)
	e.tried.reset()
	e.estimateCost = make([]float64, e.numPlans)
	e.estimateTime = make([]float64, e.numPlans)

	costs := e.layers[e.samplePointer].Costs.Costs
	for p := 1; p <= e.numPlans; p++ {
		var cost float64
		for _, sel := range e.planSels[p] {
			cost += costs[sel-1]
		}
		e.estimateCost[p-1] = cost
	}
}

func (e *V1) NumActionsAvailable() int { return e.numPlans - len(e.tried.plans) }

// estimateQuery returns plan's predicted time from the regression model
// and the real sample-probing cost of whichever of its selectivities
// are not yet known this episode.
func (e *V1) estimateQuery(plan int) (estimateTime, realCost float64) {
	querySels := e.selsIdx[e.samplePointer][e.qid]
	selIDs, _ := planalgebra.SelIDsOfPlan(plan, e.dimension, e.numJoins)

	x := make([]float64, len(selIDs))
	newSels := make([]int, 0, len(selIDs))
	for i, sel := range selIDs {
		x[i] = querySels.Sels[sel]
		if !e.knownSels[sel] {
			newSels = append(newSels, sel)
		}
	}
	pred, _ := e.estimator.Predict(plan, x, "application")

	probeTimes := e.timesIdx[e.samplePointer][e.qid]
	for _, sel := range newSels {
		realCost += probeTimes.Sels[sel]
		e.knownSels[sel] = true
	}
	return pred, realCost
}

func (e *V1) TakeAction(plan int) float64 {
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

	switch {
	case e.elapsed+estimateTime <= e.timeBudget:
		e.done = true
		e.doneReason = errs.ReasonWin
		e.queryTime = estimateTime
		return Reward(1.0, e.timeBudget, e.elapsed+e.queryTime, 1.0)
	case e.elapsed > e.timeBudget:
		e.done = true
		e.doneReason = errs.ReasonPlanningTooLong
		e.queryTime = e.bestTriedTime()
		return Reward(1.0, e.timeBudget, e.elapsed+e.queryTime, 1.0)
	case e.NumActionsAvailable() == 0:
		e.done = true
		e.doneReason = errs.ReasonNotPossible
		e.queryTime = e.bestTriedTime()
		return Reward(1.0, e.timeBudget, e.elapsed+e.queryTime, 1.0)
	default:
		return 0
	}
}

func (e *V1) bestTriedTime() float64 {
	_, best := e.tried.best()
	return best
}

func (e *V1) Tensor() []float64 {
	v := make([]float64, 0, 2*e.numPlans+1)
	v = append(v, e.estimateCost...)
	v = append(v, e.estimateTime...)
	v = append(v, e.elapsed)
	return v
}

func (e *V1) Done() bool            { return e.done }
func (e *V1) DoneReason() string    { return e.doneReason }
func (e *V1) PlanningTime() float64 { return e.elapsed }
func (e *V1) QueryTime() float64    { return e.queryTime }
func (e *V1) QueryQuality() float64 { return 1.0 }
func (e *V1) TriedPlans() []int     { return e.tried.plansCopy() }
