// Package trainer runs the DQN training loop shared by every
// environment variant: shuffle queries, play one episode per query
// with epsilon-greedy action selection, push transitions into replay,
// periodically take a gradient step against a sampled batch, refresh
// the target network on a cadence, and early-stop once recent win
// rates converge.
package trainer

import (
	"context"
	"math/rand"
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"smartselect/agent"
	"smartselect/config"
	"smartselect/env"
	"smartselect/errs"
	"smartselect/qnet"
	"smartselect/record"
	"smartselect/replay"
)

// Progress is reported at the end of a run when the 2-second progress
// ticker has fired since the last report and a caller supplies a
// progress channel; a report no reader is ready for is dropped, so
// trainer itself never blocks waiting for a reader.
type Progress struct {
	Run     int
	WinRate float64
}

// Result is what Run returns: the best snapshot seen across the run
// window and the win rate it achieved, plus the full trace if the
// caller asked for one.
type Result struct {
	PolicyNet  *qnet.Network
	MaxWinRate float64
	Trace      []record.TraceRow
}

// QueryIDs abstracts over whichever per-query identifier collection a
// concrete environment was built from, so Run can shuffle/iterate
// without caring which variant it's training.
type QueryIDs []uint64

// Run executes the training loop against env/policyNet/targetNet until
// cfg.NumberOfRuns completes, early-stop convergence fires (if
// cfg.EarlyStop), or ctx is canceled. Cancellation is checked only at
// episode (query) boundaries, never mid-episode.
func Run(ctx context.Context, e env.Environment, qids QueryIDs, cfg *config.TrainingConfig, policyNet, targetNet *qnet.Network, rng *rand.Rand, trace bool, progress chan<- Progress) (*Result, error) {
	strategy := agent.EpsilonGreedyStrategy{Start: cfg.EpsStart, End: cfg.EpsEnd, Decay: cfg.EpsDecay}
	a := agent.New(policyNet.OutSize, rng)
	mem := replay.NewMemory(cfg.MemorySize)
	modelMem := replay.NewModelMemory(20)
	opt := qnet.NewAdam(policyNet, cfg.LearningRate)

	convergenceThreshold := cfg.GetHyperParamOrDefault("convergenceThreshold", 0.1)

	var traceRows []record.TraceRow
	tickDone := make(chan struct{})
	defer close(tickDone)
	ticker := channerics.NewTicker(tickDone, 2*time.Second)

	order := append(QueryIDs(nil), qids...)

	for run := 0; run < cfg.NumberOfRuns; run++ {
		select {
		case <-ctx.Done():
			return finish(modelMem, traceRows), ctx.Err()
		default:
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var wins float64
		for _, qid := range order {
			select {
			case <-ctx.Done():
				return finish(modelMem, traceRows), ctx.Err()
			default:
			}

			e.Reset(qid)
			a.Reset()
			state := e.Tensor()

			for !e.Done() {
				action := a.SelectAction(strategy, state, policyNet)
				reward := e.TakeAction(action)
				nextState := e.Tensor()
				mem.Push(replay.Experience{
					State: state, Action: action, Reward: reward,
					NextState: nextState, Terminal: e.Done(),
				})
				state = nextState
			}
			if e.DoneReason() == errs.ReasonWin {
				wins++
			}

			if mem.CanProvideSample(cfg.BatchSize) {
				step(mem, policyNet, targetNet, opt, cfg.BatchSize, cfg.Gamma, rng)
			}
		}

		if run%cfg.TargetUpdate == 1 {
			if err := targetNet.SyncFrom(policyNet); err != nil {
				return finish(modelMem, traceRows), err
			}
		}

		winRate := wins / float64(len(order))
		modelMem.Push(policyNet, winRate)

		if trace {
			traceRows = append(traceRows, record.TraceRow{Iteration: run, WinRate: winRate})
		}
		select {
		case <-ticker:
			if progress != nil {
				select {
				case progress <- Progress{Run: run, WinRate: winRate}:
				default:
				}
			}
		default:
		}

		if cfg.EarlyStop && modelMem.Converged(convergenceThreshold) {
			break
		}
	}

	return finish(modelMem, traceRows), nil
}

func finish(modelMem *replay.ModelMemory, trace []record.TraceRow) *Result {
	return &Result{
		PolicyNet:  modelMem.BestModel(),
		MaxWinRate: modelMem.MaxWinRate(),
		Trace:      trace,
	}
}

// step samples one batch from memory and applies one Adam gradient
// step to policyNet, using targetNet for the Bellman target.
func step(mem *replay.Memory, policyNet, targetNet *qnet.Network, opt *qnet.Adam, batchSize int, gamma float64, rng *rand.Rand) {
	batch := mem.Sample(batchSize, rng)

	// One Adam step per sample rather than a true batched gradient;
	// dOut carries the 1/batchSize factor of a mean-reduced batch loss.
	for _, exp := range batch {
		out, cache := policyNet.Forward(exp.State)
		current := out[exp.Action-1]

		var targetQ float64
		if !exp.Terminal {
			nextOut, _ := targetNet.Forward(exp.NextState)
			targetQ = exp.Reward + gamma*maxOf(nextOut)
		} else {
			targetQ = exp.Reward
		}

		dOut := make([]float64, len(out))
		dOut[exp.Action-1] = 2 * (current - targetQ) / float64(batchSize)
		grads := policyNet.Backward(cache, dOut)
		opt.Step(policyNet, grads)
	}
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
