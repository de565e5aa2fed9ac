package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
kind: training
def:
  dimension: 3
  numJoins: 1
  unitCost: 0.05
  timeBudget: 2.5
  numberOfRuns: 10
  batchSize: 1024
  gamma: 0.999
  epsStart: 1.0
  epsEnd: 0.001
  epsDecay: 0.001
  targetUpdate: 10
  memorySize: 1000000
  learningRate: 0.001
  earlyStop: true
  hyperParams:
    - key: convergenceThreshold
      val: 0.1
  trainingDeadline:
    duration: 5m
`

func TestFromYaml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "training.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := FromYaml(path)
	if err != nil {
		t.Fatalf("FromYaml: %v", err)
	}
	if cfg.Dimension != 3 {
		t.Errorf("Dimension = %d, want 3", cfg.Dimension)
	}
	if cfg.TimeBudget != 2.5 {
		t.Errorf("TimeBudget = %v, want 2.5", cfg.TimeBudget)
	}
	if cfg.BatchSize != 1024 {
		t.Errorf("BatchSize = %d, want 1024", cfg.BatchSize)
	}
	if !cfg.EarlyStop {
		t.Error("EarlyStop should be true")
	}
	if got := cfg.GetHyperParamOrDefault("convergenceThreshold", 0); got != 0.1 {
		t.Errorf("GetHyperParamOrDefault = %v, want 0.1", got)
	}
	if got := cfg.GetHyperParamOrDefault("missing", 42); got != 42 {
		t.Errorf("GetHyperParamOrDefault default = %v, want 42", got)
	}
}

func TestWithTrainingDeadline(t *testing.T) {
	cfg := &TrainingConfig{TrainingDeadline: map[string]string{"duration": "1h"}}
	ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
	if err != nil {
		t.Fatalf("WithTrainingDeadline: %v", err)
	}
	defer cancel()
	if ctx.Err() != nil {
		t.Error("fresh deadline context should not already be done")
	}
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected a deadline to be set")
	}
}

func TestWithTrainingDeadlineNoDeadline(t *testing.T) {
	cfg := &TrainingConfig{}
	ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
	if err != nil {
		t.Fatalf("WithTrainingDeadline: %v", err)
	}
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Error("expected no deadline when TrainingDeadline is unset")
	}
}
