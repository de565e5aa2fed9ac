package trainer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"smartselect/config"
	"smartselect/env"
	"smartselect/qnet"
	"smartselect/record"
)

const dimension = 3
const numJoins = 1

func fixtureQueries() []record.LabeledQuery {
	fast := map[int]float64{}
	for p := 1; p <= 7; p++ {
		fast[p] = 10.0
	}
	fast[3] = 0.05 // one cheap winning plan
	slow := map[int]float64{}
	for p := 1; p <= 7; p++ {
		slow[p] = 10.0
	}
	slow[5] = 0.05
	return []record.LabeledQuery{
		{ID: 1, Times: fast},
		{ID: 2, Times: slow},
	}
}

func fixtureConfig() *config.TrainingConfig {
	return &config.TrainingConfig{
		NumberOfRuns: 5,
		BatchSize:    4,
		Gamma:        0.9,
		EpsStart:     1.0,
		EpsEnd:       0.05,
		EpsDecay:     0.01,
		TargetUpdate: 2,
		MemorySize:   1000,
		LearningRate: 0.01,
		EarlyStop:    false,
	}
}

func TestRunProducesAPolicyAndTrace(t *testing.T) {
	queries := fixtureQueries()
	e := env.NewV0(dimension, numJoins, queries, 0.01, 1.0)
	cfg := fixtureConfig()

	numPlans := e.NumActionsAvailable()
	initFn := func() float64 { return 0.05 }
	policyNet := qnet.New(numPlans, initFn)
	targetNet := qnet.New(numPlans, initFn)
	if err := targetNet.SyncFrom(policyNet); err != nil {
		t.Fatalf("SyncFrom: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	qids := QueryIDs{1, 2}

	result, err := Run(context.Background(), e, qids, cfg, policyNet, targetNet, rng, true, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.PolicyNet == nil {
		t.Fatal("expected a non-nil policy network")
	}
	if len(result.Trace) == 0 {
		t.Error("expected trace rows when trace=true")
	}
	if result.MaxWinRate < 0 || result.MaxWinRate > 1 {
		t.Errorf("MaxWinRate out of range: %v", result.MaxWinRate)
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	queries := fixtureQueries()
	e := env.NewV0(dimension, numJoins, queries, 0.01, 1.0)
	cfg := fixtureConfig()
	cfg.NumberOfRuns = 1000000

	numPlans := e.NumActionsAvailable()
	initFn := func() float64 { return 0.05 }
	policyNet := qnet.New(numPlans, initFn)
	targetNet := qnet.New(numPlans, initFn)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	rng := rand.New(rand.NewSource(2))
	_, err := Run(ctx, e, QueryIDs{1, 2}, cfg, policyNet, targetNet, rng, false, nil)
	if err == nil {
		t.Fatal("expected context deadline error, got nil")
	}
}

func TestRunWithoutTraceLeavesTraceEmpty(t *testing.T) {
	queries := fixtureQueries()
	e := env.NewV0(dimension, numJoins, queries, 0.01, 1.0)
	cfg := fixtureConfig()

	numPlans := e.NumActionsAvailable()
	initFn := func() float64 { return 0.05 }
	policyNet := qnet.New(numPlans, initFn)
	targetNet := qnet.New(numPlans, initFn)

	rng := rand.New(rand.NewSource(3))
	result, err := Run(context.Background(), e, QueryIDs{1, 2}, cfg, policyNet, targetNet, rng, false, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(result.Trace) != 0 {
		t.Errorf("expected no trace rows when trace=false, got %d", len(result.Trace))
	}
}
