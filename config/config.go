// Package config loads training and evaluation run parameters from a
// YAML file wrapped in an outer {kind, def} envelope: viper reads and
// unmarshals the envelope, then the def payload is decoded by yaml.v3
// straight from the file into the concrete TrainingConfig shape (viper
// lowercases every key it loads, which would not match the camelCase
// yaml tags). This keeps the file format self-describing (kind names
// which config schema def holds) while letting every run type share one
// loader.
package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OuterConfig is the {kind, def} envelope every config file is wrapped in.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// HyperParameter is one named float hyperparameter, e.g. {key: gamma, val: 0.999}.
type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

// TrainingConfig holds every parameter a trainer/evaluator run needs:
// the teacher's generic HyperParams/Algorithm/TrainingDeadline trio,
// generalized here with named dataset and DQN hyperparameter fields
// rather than forcing every value through the untyped HyperParams list.
type TrainingConfig struct {
	HyperParams      []HyperParameter  `mapstructure:"hyperParams" yaml:"hyperParams"`
	Algorithm        map[string]string `mapstructure:"algorithm" yaml:"algorithm"`
	TrainingDeadline map[string]string `mapstructure:"trainingDeadline" yaml:"trainingDeadline"`

	// Plan-space shape.
	Dimension       int  `mapstructure:"dimension" yaml:"dimension"`
	NumJoins        int  `mapstructure:"numJoins" yaml:"numJoins"`
	NumSampleRatios int  `mapstructure:"numSampleRatios" yaml:"numSampleRatios"`
	SamplingOnly    bool `mapstructure:"samplingOnly" yaml:"samplingOnly"`

	// Environment parameters.
	UnitCost      float64 `mapstructure:"unitCost" yaml:"unitCost"`
	TimeBudget    float64 `mapstructure:"timeBudget" yaml:"timeBudget"`
	Timeout       float64 `mapstructure:"timeout" yaml:"timeout"`
	SamplePointer int     `mapstructure:"samplePointer" yaml:"samplePointer"`
	Beta          float64 `mapstructure:"beta" yaml:"beta"`

	// DQN training parameters.
	NumberOfRuns int     `mapstructure:"numberOfRuns" yaml:"numberOfRuns"`
	BatchSize    int     `mapstructure:"batchSize" yaml:"batchSize"`
	Gamma        float64 `mapstructure:"gamma" yaml:"gamma"`
	EpsStart     float64 `mapstructure:"epsStart" yaml:"epsStart"`
	EpsEnd       float64 `mapstructure:"epsEnd" yaml:"epsEnd"`
	EpsDecay     float64 `mapstructure:"epsDecay" yaml:"epsDecay"`
	TargetUpdate int     `mapstructure:"targetUpdate" yaml:"targetUpdate"`
	MemorySize   int     `mapstructure:"memorySize" yaml:"memorySize"`
	LearningRate float64 `mapstructure:"learningRate" yaml:"learningRate"`
	EarlyStop    bool    `mapstructure:"earlyStop" yaml:"earlyStop"`
}

// GetHyperParamOrDefault reads a loosely-typed hyperparameter by name,
// falling back to defaultVal when absent. Kept for config files that
// still carry ad hoc algorithm knobs outside the named fields above.
func (c *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range c.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// WithTrainingDeadline returns ctx extended by the configured training
// deadline duration, if any, else a plain cancelable context.
func (c *TrainingConfig) WithTrainingDeadline(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if val, ok := c.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, err
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml loads a TrainingConfig from a {kind, def} YAML file at path.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outer := &OuterConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Def yaml.Node `yaml:"def"`
	}
	if err := yaml.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}

	inner := &TrainingConfig{}
	if err := envelope.Def.Decode(inner); err != nil {
		return nil, err
	}
	return inner, nil
}
