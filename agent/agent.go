// Package agent implements epsilon-greedy action selection against a
// qnet.Network: explore with decaying probability, otherwise exploit
// the network's highest-Q untried plan.
package agent

import (
	"math"
	"math/rand"
	"sort"

	"smartselect/qnet"
)

// EpsilonGreedyStrategy computes the exploration rate at a given step,
// decaying exponentially from Start toward End.
type EpsilonGreedyStrategy struct {
	Start, End, Decay float64
}

// ExplorationRate returns End + (Start-End)*exp(-step*Decay).
func (s EpsilonGreedyStrategy) ExplorationRate(step int) float64 {
	return s.End + (s.Start-s.End)*math.Exp(-float64(step)*s.Decay)
}

// Agent selects one plan per episode step, never repeating a plan
// already tried this episode. Plans are numbered 1..NumActions.
type Agent struct {
	NumActions  int
	currentStep int
	tried       map[int]bool
	rng         *rand.Rand
}

// New returns an Agent over numActions plans, seeded by rng (pass
// rand.New(rand.NewSource(seed)) for reproducible training runs).
func New(numActions int, rng *rand.Rand) *Agent {
	return &Agent{NumActions: numActions, tried: make(map[int]bool), rng: rng}
}

// Reset clears the set of plans tried this episode, called at the
// start of every new episode.
func (a *Agent) Reset() {
	a.tried = make(map[int]bool)
}

// ClearMemory resets the exploration-rate step counter. Exported for
// callers that want a fresh decay schedule (e.g. reusing one Agent
// across independent training runs); trainer.Run deliberately never
// calls it itself, matching the original trainer's own Agent, whose
// current_step decays continuously across every run of one training
// session and is only ever cleared by a caller starting a new session
// with the same Agent.
func (a *Agent) ClearMemory() {
	a.currentStep = 0
}

// SelectAction explores with probability strategy.ExplorationRate, else
// exploits the highest-Q untried plan from policyNet's forward pass
// over tensor.
func (a *Agent) SelectAction(strategy EpsilonGreedyStrategy, tensor []float64, policyNet *qnet.Network) int {
	rate := strategy.ExplorationRate(a.currentStep)
	a.currentStep++

	if rate > a.rng.Float64() {
		return a.exploreUntried()
	}
	qValues, _ := policyNet.Forward(tensor)
	return a.exploitUntried(qValues)
}

// DecideAction always exploits, used for deterministic evaluation
// rollouts where there is no exploration phase.
func (a *Agent) DecideAction(tensor []float64, policyNet *qnet.Network) int {
	qValues, _ := policyNet.Forward(tensor)
	return a.exploitUntried(qValues)
}

func (a *Agent) exploreUntried() int {
	if len(a.tried) >= a.NumActions {
		return 0 // caller's NumActionsAvailable()==0 path should preempt this
	}
	for {
		action := a.rng.Intn(a.NumActions) + 1
		if !a.tried[action] {
			a.tried[action] = true
			return action
		}
	}
}

func (a *Agent) exploitUntried(qValues []float64) int {
	type scored struct {
		q      float64
		action int
	}
	ranked := make([]scored, len(qValues))
	for i, q := range qValues {
		ranked[i] = scored{q: q, action: i + 1}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].q > ranked[j].q })
	for _, r := range ranked {
		if !a.tried[r.action] {
			a.tried[r.action] = true
			return r.action
		}
	}
	return 0
}
