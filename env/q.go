package env

import (
	"smartselect/errs"
	"smartselect/planalgebra"
	"smartselect/record"
)

// Q is the sampling-only environment: every selectivity value has
// already been collected (the lossless planning phase is out of
// scope), so there is no probing cost at all — only the choice of
// which (index hint, sample ratio) pair to commit to.
type Q struct {
	dimension, numRatios, numPlans int
	timeBudget, beta               float64

	times   map[uint64]record.LabeledSampleQuery
	quality map[uint64]record.SampleQuality

	qid          uint64
	done         bool
	doneReason   string
	queryTime    float64
	queryQuality float64
	elapsed      float64
	predictTime  []float64
	tried        tried
}

// NewQ builds the sampling-only environment over numRatios sample
// ratios per dimension-sized index hint.
func NewQ(dimension, numRatios int, times []record.LabeledSampleQuery, quality []record.SampleQuality, timeBudget, beta float64) *Q {
	numPlans := planalgebra.NumSamplingPlans(dimension, numRatios)
	tmap := make(map[uint64]record.LabeledSampleQuery, len(times))
	for _, t := range times {
		tmap[t.ID] = t
	}
	qmap := make(map[uint64]record.SampleQuality, len(quality))
	for _, q := range quality {
		qmap[q.ID] = q
	}
	e := &Q{
		dimension: dimension, numRatios: numRatios, numPlans: numPlans,
		timeBudget: timeBudget, beta: beta,
		times: tmap, quality: qmap,
	}
	e.Reset(0)
	return e
}

func (e *Q) Reset(qid uint64) {
	e.qid = qid
	e.done = false
	e.doneReason = ""
	e.queryTime = 0
	e.queryQuality = 0
	e.elapsed = 0
	e.tried.reset()
	e.predictTime = make([]float64, e.numPlans)
}

func (e *Q) NumActionsAvailable() int { return e.numPlans - len(e.tried.plans) }

func (e *Q) TakeAction(plan int) float64 {
	k := plan - 1 // sampling plans are 0-based in the oracle record; plan is 1-based here
	predictTime := e.times[e.qid].Times[k]
	e.tried.record(plan, predictTime)
	e.predictTime[plan-1] = predictTime

	switch {
	case e.elapsed+predictTime <= e.timeBudget:
		e.done = true
		e.doneReason = errs.ReasonWin
		e.queryTime = predictTime
		e.queryQuality = e.quality[e.qid].Quality[k]
		return Reward(e.beta, e.timeBudget, e.queryTime, e.queryQuality)
	case e.NumActionsAvailable() == 0:
		bestPlan, bestTime := e.tried.best()
		e.done = true
		e.doneReason = errs.ReasonNotPossible
		e.queryTime = bestTime
		e.queryQuality = e.quality[e.qid].Quality[bestPlan-1]
		return Reward(e.beta, e.timeBudget, e.queryTime, e.queryQuality)
	default:
		return 0
	}
}

func (e *Q) Tensor() []float64 {
	v := make([]float64, 0, 2*e.numPlans+1)
	for i := 0; i < e.numPlans; i++ {
		v = append(v, 0) // every selectivity is already known in this variant
	}
	v = append(v, e.predictTime...)
	v = append(v, e.elapsed)
	return v
}

func (e *Q) Done() bool            { return e.done }
func (e *Q) DoneReason() string    { return e.doneReason }
func (e *Q) PlanningTime() float64 { return e.elapsed }
func (e *Q) QueryTime() float64    { return e.queryTime }
func (e *Q) QueryQuality() float64 { return e.queryQuality }
func (e *Q) TriedPlans() []int     { return e.tried.plansCopy() }
