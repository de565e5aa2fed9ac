// Command train-dqn trains a single DQN policy against one environment
// variant and writes the resulting network to disk, mirroring
// smart_train_dqn.py's CLI surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"smartselect/config"
	"smartselect/env"
	"smartselect/estimator"
	"smartselect/planalgebra"
	"smartselect/qnet"
	"smartselect/record"
	"smartselect/trainer"
)

type repeatedFlag []string

func (r *repeatedFlag) String() string     { return strings.Join(*r, ",") }
func (r *repeatedFlag) Set(v string) error { *r = append(*r, v); return nil }

func main() {
	dimension := flag.Int("d", 3, "dimension of the queries")
	numJoins := flag.Int("nj", 1, "number of join methods")
	numRatios := flag.Int("nratios", 3, "number of sample ratios (v-plus/v-q)")
	labeledFile := flag.String("lf", "", "input file of labeled queries for training")
	unitCost := flag.Float64("uc", 0.05, "time to collect one selectivity value")
	timeBudget := flag.Float64("tb", 0, "time budget (seconds) for a query to be viable")
	numberOfRuns := flag.Int("nr", 10, "how many times to loop all queries")
	batchSize := flag.Int("bs", 1024, "experiences sampled per gradient step")
	epsDecay := flag.Float64("ed", 0.001, "epsilon-greedy decay rate")
	memorySize := flag.Int("ms", 1000000, "replay memory capacity")
	modelFile := flag.String("mf", "", "output path for the trained model")
	version := flag.String("v", "0", "environment variant: 0, 1, 2, plus, q")
	traceFile := flag.String("trf", "", "optional train-trace output file")
	noEarlyStop := flag.Bool("nes", false, "disable early stop on convergence")
	beta := flag.Float64("beta", 1.0, "reward weighting between time and quality")
	samplePointer := flag.Int("sp", 0, "sample-size pointer for v1/v2")
	seed := flag.Int64("seed", 1, "rng seed")

	var listLabeledSel, listSelQuery repeatedFlag
	flag.Var(&listLabeledSel, "llsf", "labeled-sel-queries file (repeatable, v1/v2)")
	flag.Var(&listSelQuery, "lsqf", "sel-query file (repeatable, v1/v2)")
	selCostsFile := flag.String("scf", "", "sel-costs file (v1/v2)")
	qeModelPath := flag.String("qmp", "", "query-estimator model path (v1/v2)")
	samplingLabeledFile := flag.String("slf", "", "labeled sampling-query file (plus/q)")
	samplingQualityFile := flag.String("sqf", "", "sample-quality file (plus/q)")

	flag.Parse()

	if *modelFile == "" {
		log.Fatal("-mf is required")
	}
	if *timeBudget <= 0 {
		log.Fatal("-tb is required and must be positive")
	}

	e, numPlans, qids := buildEnv(*version, *dimension, *numJoins, *numRatios, *labeledFile, *unitCost, *timeBudget,
		*beta, *samplePointer, listLabeledSel, listSelQuery, *selCostsFile, *qeModelPath,
		*samplingLabeledFile, *samplingQualityFile)

	cfg := &config.TrainingConfig{
		NumberOfRuns: *numberOfRuns, BatchSize: *batchSize,
		Gamma: 0.999, EpsStart: 1.0, EpsEnd: 0.001, EpsDecay: *epsDecay,
		TargetUpdate: 10, MemorySize: *memorySize, LearningRate: 0.001,
		EarlyStop: !*noEarlyStop,
	}

	policyNet := qnet.New(numPlans, randInit(*seed))
	targetNet := qnet.New(numPlans, randInit(*seed+1))
	if err := targetNet.SyncFrom(policyNet); err != nil {
		log.Fatalf("SyncFrom: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	result, err := trainer.Run(context.Background(), e, qids, cfg, policyNet, targetNet, rng, *traceFile != "", nil)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	if result.PolicyNet == nil {
		log.Fatal("training produced no completed iteration to save a model from")
	}

	if err := result.PolicyNet.Save(*modelFile); err != nil {
		log.Fatalf("saving model: %v", err)
	}
	if *traceFile != "" {
		if err := record.DumpTrainTrace(*traceFile, result.Trace); err != nil {
			log.Fatalf("saving trace: %v", err)
		}
	}
	fmt.Printf("trained model saved to %s, max win rate %.4f\n", *modelFile, result.MaxWinRate)
}

func randInit(seed int64) func() float64 {
	r := rand.New(rand.NewSource(seed))
	return func() float64 { return (r.Float64()*2 - 1) * 0.1 }
}

// buildEnv constructs the requested environment variant and returns it
// alongside its action count and the query ids it was built over.
func buildEnv(version string, dimension, numJoins, numRatios int, labeledFile string, unitCost, timeBudget, beta float64,
	samplePointer int, llsf, lsqf repeatedFlag, selCostsFile, qeModelPath, samplingLabeledFile, samplingQualityFile string,
) (env.Environment, int, trainer.QueryIDs) {

	switch version {
	case "0":
		numPlans := planalgebra.NumPlans(dimension, numJoins, 0, false)
		queries := mustLoadLabeled(labeledFile, numPlans)
		return env.NewV0(dimension, numJoins, queries, unitCost, timeBudget), numPlans, queryIDsOf(queries)

	case "1", "2":
		numPlans := planalgebra.NumPlans(dimension, numJoins, 0, false)
		queries := mustLoadLabeled(labeledFile, numPlans)
		layers := mustLoadLayers(dimension, llsf, lsqf, selCostsFile)
		est, err := estimator.Load(qeModelPath)
		if err != nil {
			log.Fatalf("loading query estimator: %v", err)
		}
		if version == "1" {
			return env.NewV1(dimension, numJoins, est, layers, timeBudget, samplePointer), numPlans, queryIDsOf(queries)
		}
		return env.NewV2(dimension, numJoins, est, layers, queries, timeBudget, samplePointer), numPlans, queryIDsOf(queries)

	case "plus":
		lossless := mustLoadLabeled(labeledFile, planalgebra.NumPlans(dimension, numJoins, 0, false))
		numSampling := planalgebra.NumSamplingPlans(dimension, numRatios)
		sampling, err := record.LoadLabeledSampleQueries(samplingLabeledFile, numSampling)
		if err != nil {
			log.Fatalf("loading sampling queries: %v", err)
		}
		quality, err := record.LoadSampleQualities(samplingQualityFile, numSampling)
		if err != nil {
			log.Fatalf("loading sample quality: %v", err)
		}
		numPlans := planalgebra.NumPlans(dimension, numJoins, numRatios, false)
		return env.NewPlus(dimension, numJoins, numRatios, lossless, sampling, quality, unitCost, timeBudget, beta),
			numPlans, queryIDsOf(lossless)

	case "q":
		numPlans := planalgebra.NumSamplingPlans(dimension, numRatios)
		times, err := record.LoadLabeledSampleQueries(samplingLabeledFile, numPlans)
		if err != nil {
			log.Fatalf("loading sampling queries: %v", err)
		}
		quality, err := record.LoadSampleQualities(samplingQualityFile, numPlans)
		if err != nil {
			log.Fatalf("loading sample quality: %v", err)
		}
		qids := make(trainer.QueryIDs, len(times))
		for i, t := range times {
			qids[i] = t.ID
		}
		return env.NewQ(dimension, numRatios, times, quality, timeBudget, beta), numPlans, qids

	default:
		log.Fatalf("unknown version %q", version)
		return nil, 0, nil
	}
}

func mustLoadLabeled(path string, numPlans int) []record.LabeledQuery {
	queries, err := record.LoadLabeledQueries(path, numPlans)
	if err != nil {
		log.Fatalf("loading labeled queries: %v", err)
	}
	return queries
}

func queryIDsOf(queries []record.LabeledQuery) trainer.QueryIDs {
	ids := make(trainer.QueryIDs, len(queries))
	for i, q := range queries {
		ids[i] = q.ID
	}
	return ids
}

func mustLoadLayers(dimension int, llsf, lsqf repeatedFlag, selCostsFile string) []env.SampleLayer {
	if len(llsf) != len(lsqf) {
		log.Fatal("-llsf and -lsqf must be repeated the same number of times")
	}
	numSels := 1<<uint(dimension) - 1
	costsRows, err := record.LoadSelCosts(selCostsFile, numSels)
	if err != nil {
		log.Fatalf("loading sel costs: %v", err)
	}
	layers := make([]env.SampleLayer, len(llsf))
	for i := range llsf {
		times, err := record.LoadLabeledSelQueries(llsf[i], numSels)
		if err != nil {
			log.Fatalf("loading labeled sel queries %s: %v", llsf[i], err)
		}
		sels, err := record.LoadSelVectors(lsqf[i], numSels)
		if err != nil {
			log.Fatalf("loading sel query values %s: %v", lsqf[i], err)
		}
		layers[i] = env.SampleLayer{Times: times, Sels: sels, Costs: costsRows[i]}
	}
	return layers
}
