package env

import (
	"smartselect/errs"
	"smartselect/planalgebra"
	"smartselect/record"
)

// Plus is the lossless∪sampling environment: every lossless plan from
// V0 plus every sampling plan from Q share one action space, so the
// agent can choose to probe-and-commit a cheap, imperfect sample
// result instead of paying for a fully indexed scan.
type Plus struct {
	dimension, numJoins, numRatios int
	numLossless, numSampling, numPlans int
	unitCost, timeBudget, beta          float64

	planSels planalgebra.PlanSelTable
	queries  map[uint64]record.LabeledQuery       // lossless times, keyed by id
	sampling map[uint64]record.LabeledSampleQuery // sampling times, keyed by id
	quality  map[uint64]record.SampleQuality

	qid           uint64
	done          bool
	doneReason    string
	queryTime     float64
	queryQuality  float64
	elapsed       float64
	knownSels     map[int]bool
	unknownSels   []float64
	predictTime   []float64
	tried         tried
}

// NewPlus builds the combined environment. Sampling plan k is exposed
// as action numLossless+1+k.
func NewPlus(dimension, numJoins, numRatios int, lossless []record.LabeledQuery, sampling []record.LabeledSampleQuery, quality []record.SampleQuality, unitCost, timeBudget, beta float64) *Plus {
	numLossless := planalgebra.NumPlans(dimension, numJoins, 0, false)
	numSampling := planalgebra.NumSamplingPlans(dimension, numRatios)
	numPlans := numLossless + numSampling

	qmap := make(map[uint64]record.LabeledQuery, len(lossless))
	for _, q := range lossless {
		qmap[q.ID] = q
	}
	smap := make(map[uint64]record.LabeledSampleQuery, len(sampling))
	for _, s := range sampling {
		smap[s.ID] = s
	}
	qualmap := make(map[uint64]record.SampleQuality, len(quality))
	for _, q := range quality {
		qualmap[q.ID] = q
	}

	e := &Plus{
		dimension: dimension, numJoins: numJoins, numRatios: numRatios,
		numLossless: numLossless, numSampling: numSampling, numPlans: numPlans,
		unitCost: unitCost, timeBudget: timeBudget, beta: beta,
		planSels: mustBuildPlanSelTable(dimension, numJoins),
		queries:  qmap, sampling: smap, quality: qualmap,
	}
	e.Reset(0)
	return e
}

func (e *Plus) Reset(qid uint64) {
	e.qid = qid
	e.done = false
	e.doneReason = ""
	e.queryTime = 0
	e.queryQuality = 0
	e.elapsed = 0
	e.knownSels = make(map[int]bool)
	e.tried.reset()
	e.unknownSels = make([]float64, e.numPlans)
	e.predictTime = make([]float64, e.numPlans)
	for p := 1; p <= e.numLossless; p++ {
		e.unknownSels[p-1] = float64(len(e.planSels[p]))
	}
}

func (e *Plus) NumActionsAvailable() int { return e.numPlans - len(e.tried.plans) }

// isSampling reports whether plan (1-based over the combined space)
// addresses a sampling action, and its 0-based sampling-plan index.
func (e *Plus) isSampling(plan int) (k int, ok bool) {
	if plan > e.numLossless {
		return plan - e.numLossless - 1, true
	}
	return 0, false
}

func (e *Plus) TakeAction(plan int) float64 {
	var predictTime, quality float64
	var cost float64

	if k, ok := e.isSampling(plan); ok {
		predictTime = e.sampling[e.qid].Times[k]
		quality = e.quality[e.qid].Quality[k]
		cost = 0 // sampling-plan probe cost is folded into its own time in this composition
	} else {
		query := e.queries[e.qid]
		predictTime = query.Times[plan]
		quality = 1.0
		needed := 0
		for _, sel := range e.planSels[plan] {
			if !e.knownSels[sel] {
				e.knownSels[sel] = true
				needed++
			}
		}
		cost = e.unitCost * float64(needed)
		for p := 1; p <= e.numLossless; p++ {
			unknown := 0
			for _, sel := range e.planSels[p] {
				if !e.knownSels[sel] {
					unknown++
				}
			}
			e.unknownSels[p-1] = float64(unknown)
		}
		e.predictTime[plan-1] = predictTime
	}

	e.tried.record(plan, predictTime)
	e.elapsed += cost

	switch {
	case e.elapsed+predictTime <= e.timeBudget:
		e.done = true
		e.doneReason = errs.ReasonWin
		e.queryTime = predictTime
		e.queryQuality = quality
		return Reward(e.beta, e.timeBudget, e.elapsed+e.queryTime, e.queryQuality)
	case e.elapsed >= e.timeBudget:
		plan, best := e.tried.best()
		e.done = true
		e.doneReason = errs.ReasonPlanningTooLong
		e.queryTime = best
		e.queryQuality = e.qualityOf(plan)
		return Reward(e.beta, e.timeBudget, e.elapsed+e.queryTime, e.queryQuality)
	case e.NumActionsAvailable() == 0:
		plan, best := e.tried.best()
		e.done = true
		e.doneReason = errs.ReasonNotPossible
		e.queryTime = best
		e.queryQuality = e.qualityOf(plan)
		return Reward(e.beta, e.timeBudget, e.elapsed+e.queryTime, e.queryQuality)
	default:
		return 0
	}
}

func (e *Plus) qualityOf(plan int) float64 {
	if k, ok := e.isSampling(plan); ok {
		return e.quality[e.qid].Quality[k]
	}
	return 1.0
}

func (e *Plus) Tensor() []float64 {
	v := make([]float64, 0, 2*e.numPlans+1)
	v = append(v, e.unknownSels...)
	v = append(v, e.predictTime...)
	v = append(v, e.elapsed)
	return v
}

func (e *Plus) Done() bool            { return e.done }
func (e *Plus) DoneReason() string    { return e.doneReason }
func (e *Plus) PlanningTime() float64 { return e.elapsed }
func (e *Plus) QueryTime() float64    { return e.queryTime }
func (e *Plus) QueryQuality() float64 { return e.queryQuality }
func (e *Plus) TriedPlans() []int     { return e.tried.plansCopy() }
