package env

import (
	"testing"

	"smartselect/errs"
	"smartselect/estimator"
	"smartselect/record"
)

const dimension = 3
const numJoins = 1

func TestV0Win(t *testing.T) {
	queries := []record.LabeledQuery{
		{ID: 1, Times: map[int]float64{1: 0.1, 2: 0.2, 3: 0.3, 4: 0.4, 5: 0.5, 6: 0.6, 7: 0.7}},
	}
	e := NewV0(dimension, numJoins, queries, 0.01, 10.0)
	e.Reset(1)
	reward := e.TakeAction(1)
	if !e.Done() {
		t.Fatal("expected episode done after a fast plan within budget")
	}
	if e.DoneReason() != errs.ReasonWin {
		t.Errorf("DoneReason = %q, want %q", e.DoneReason(), errs.ReasonWin)
	}
	if reward <= 0 {
		t.Errorf("expected positive reward for a win, got %v", reward)
	}
}

func TestV0PlanningTooLong(t *testing.T) {
	times := map[int]float64{}
	for p := 1; p <= 7; p++ {
		times[p] = 0.5 // each plan itself is viable in isolation...
	}
	queries := []record.LabeledQuery{{ID: 1, Times: times}}
	// ...but a large unit cost burns the whole budget probing before any commit succeeds.
	e := NewV0(dimension, numJoins, queries, 100.0, 1.0)
	e.Reset(1)
	var reward float64
	for p := 1; p <= 7 && !e.Done(); p++ {
		reward = e.TakeAction(p)
	}
	if !e.Done() {
		t.Fatal("expected episode to terminate")
	}
	if e.DoneReason() != errs.ReasonPlanningTooLong {
		t.Errorf("DoneReason = %q, want %q", e.DoneReason(), errs.ReasonPlanningTooLong)
	}
	_ = reward
}

func TestV0NotPossible(t *testing.T) {
	times := map[int]float64{}
	for p := 1; p <= 7; p++ {
		times[p] = 1000.0 // nothing fits the budget
	}
	queries := []record.LabeledQuery{{ID: 1, Times: times}}
	e := NewV0(dimension, numJoins, queries, 0.001, 10.0)
	e.Reset(1)
	for p := 1; p <= 7; p++ {
		e.TakeAction(p)
	}
	if !e.Done() {
		t.Fatal("expected episode done after exhausting all plans")
	}
	if e.DoneReason() != errs.ReasonNotPossible {
		t.Errorf("DoneReason = %q, want %q", e.DoneReason(), errs.ReasonNotPossible)
	}
}

func TestQQualityPickup(t *testing.T) {
	const numRatios = 2
	times := []record.LabeledSampleQuery{
		{ID: 1, Times: map[int]float64{0: 0.05, 1: 0.2, 2: 0.1, 3: 0.3, 4: 0.15, 5: 0.25}},
	}
	quality := []record.SampleQuality{
		{ID: 1, Quality: map[int]float64{0: 0.6, 1: 0.9, 2: 0.7, 3: 0.95, 4: 0.8, 5: 0.99}},
	}
	e := NewQ(dimension, numRatios, times, quality, 1.0, 0.0)
	e.Reset(1)
	reward := e.TakeAction(1) // sampling plan k=0, predictTime 0.05 within budget
	if !e.Done() {
		t.Fatal("expected episode done on first viable sampling plan")
	}
	if e.QueryQuality() != 0.6 {
		t.Errorf("QueryQuality = %v, want 0.6 (plan k=0's quality)", e.QueryQuality())
	}
	// beta=0 -> reward equals quality alone
	if reward != 0.6 {
		t.Errorf("reward = %v, want 0.6 with beta=0", reward)
	}
}

func TestV2TooOptimistic(t *testing.T) {
	est := estimator.New(dimension, numJoins, 100.0)
	// Fit every plan's model to always predict 0.01 (far under budget).
	for p := 1; p <= est.NumPlans; p++ {
		est.Fit(p, [][]float64{{0}, {1}}, []float64{0.01, 0.01})
	}
	layer := SampleLayer{
		Times: []record.SelVector{{ID: 1, Sels: map[int]float64{1: 0.01, 2: 0.01, 3: 0.01, 4: 0.01}}},
		Sels:  []record.SelVector{{ID: 1, Sels: map[int]float64{1: 0.5, 2: 0.5, 3: 0.5, 4: 0.5}}},
		Costs: record.SelCosts{SampleSize: 100, Costs: []float64{0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01}},
	}
	// Oracle time for plan 1 exceeds the budget, so the estimate (trained to 0.01) is wrong.
	oracle := []record.LabeledQuery{{ID: 1, Times: map[int]float64{1: 50.0}}}

	e := NewV2(dimension, numJoins, est, []SampleLayer{layer}, oracle, 1.0, 0)
	e.Reset(1)
	e.TakeAction(1)
	if !e.Done() {
		t.Fatal("expected episode done")
	}
	if e.DoneReason() != errs.ReasonTooOptimistic {
		t.Errorf("DoneReason = %q, want %q", e.DoneReason(), errs.ReasonTooOptimistic)
	}
}
