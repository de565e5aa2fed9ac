// Command select-dqn trains several independent DQN policies over the
// same training set and keeps the one with the highest validation-set
// win rate, mirroring smart_select_dqn.py.
package main

import (
	"context"
	"flag"
	"log"

	"smartselect/config"
	"smartselect/env"
	"smartselect/evaluator"
	"smartselect/planalgebra"
	"smartselect/qnet"
	"smartselect/record"
	"smartselect/trainer"
)

func main() {
	dimension := flag.Int("d", 3, "dimension of the queries")
	numJoins := flag.Int("nj", 1, "number of join methods")
	trainFile := flag.String("tf", "", "input file of labeled queries for training")
	validateFile := flag.String("vf", "", "input file of labeled queries for validation")
	unitCost := flag.Float64("uc", 0.05, "time to collect one selectivity value")
	timeBudget := flag.Float64("tb", 0, "time budget (seconds) for a query to be viable")
	numberOfRuns := flag.Int("nr", 10, "how many times to loop all queries")
	batchSize := flag.Int("bs", 1024, "experiences sampled per gradient step")
	epsDecay := flag.Float64("ed", 0.001, "epsilon-greedy decay rate")
	memorySize := flag.Int("ms", 1000000, "replay memory capacity")
	modelFile := flag.String("mf", "", "output path for the selected model")
	numberOfTries := flag.Int("nt", 5, "how many independent trainings to try")
	noEarlyStop := flag.Bool("nes", false, "disable early stop on convergence")
	seed := flag.Int64("seed", 1, "base rng seed")
	flag.Parse()

	if *trainFile == "" || *validateFile == "" || *modelFile == "" {
		log.Fatal("-tf, -vf, and -mf are all required")
	}
	if *timeBudget <= 0 {
		log.Fatal("-tb is required and must be positive")
	}

	numPlans := planalgebra.NumPlans(*dimension, *numJoins, 0, false)
	trainQueries, err := record.LoadLabeledQueries(*trainFile, numPlans)
	if err != nil {
		log.Fatalf("loading training queries: %v", err)
	}
	validateQueries, err := record.LoadLabeledQueries(*validateFile, numPlans)
	if err != nil {
		log.Fatalf("loading validation queries: %v", err)
	}

	trainQids := idsOf(trainQueries)
	validateQids := idsOf(validateQueries)

	newEnv := func() env.Environment {
		return env.NewV0(*dimension, *numJoins, trainQueries, *unitCost, *timeBudget)
	}
	newNet := func() *qnet.Network {
		return qnet.New(numPlans, func() float64 { return 0.01 })
	}

	cfg := &config.TrainingConfig{
		NumberOfRuns: *numberOfRuns, BatchSize: *batchSize,
		Gamma: 0.999, EpsStart: 1.0, EpsEnd: 0.001, EpsDecay: *epsDecay,
		TargetUpdate: 10, MemorySize: *memorySize, LearningRate: 0.001,
		EarlyStop: !*noEarlyStop,
	}

	seeds := make([]int64, *numberOfTries)
	for i := range seeds {
		seeds[i] = *seed + int64(i)
	}

	best, err := evaluator.TrainWithSelection(context.Background(), cfg, newEnv, trainQids, validateQids, *numberOfTries, newNet, seeds)
	if err != nil {
		log.Fatalf("selection failed: %v", err)
	}
	if best == nil || best.PolicyNet == nil {
		log.Fatal("no trial produced a completed model to select")
	}

	if err := best.PolicyNet.Save(*modelFile); err != nil {
		log.Fatalf("saving selected model: %v", err)
	}
	log.Printf("selected model saved to %s: fit_rate=%.4f eval_rate=%.4f\n", *modelFile, best.FitRate, best.EvalRate)
}

func idsOf(queries []record.LabeledQuery) trainer.QueryIDs {
	ids := make(trainer.QueryIDs, len(queries))
	for i, q := range queries {
		ids[i] = q.ID
	}
	return ids
}
