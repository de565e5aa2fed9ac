// Package evaluator runs a trained policy deterministically against a
// labeled query set, selects the best of several independently trained
// models by validation-set win rate, and composes a lossless-plan
// evaluation with a lossy (sampling) fallback for queries the lossless
// policy could not satisfy. Grounded on smart_evaluate_naive.py (the
// evaluated-row shape and win/plans_tried/reason fields),
// smart_select_dqn.py (N-trial training + validation-set selection),
// and smart_evaluate_dqn_plus_dqn_q.py (two-stage composition).
package evaluator

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"smartselect/agent"
	atomicfloat "smartselect/atomic_float"
	"smartselect/config"
	"smartselect/env"
	"smartselect/errs"
	"smartselect/qnet"
	"smartselect/record"
	"smartselect/trainer"
)

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Evaluate runs one deterministic rollout per query id against e using
// policyNet, emitting one record.Evaluated row per query. Unlike
// training, no exploration occurs: agent.DecideAction always exploits.
func Evaluate(e env.Environment, policyNet *qnet.Network, qids []uint64) []record.Evaluated {
	a := agent.New(policyNet.OutSize, nil)
	rows := make([]record.Evaluated, 0, len(qids))
	for _, qid := range qids {
		e.Reset(qid)
		a.Reset()
		for !e.Done() {
			action := a.DecideAction(e.Tensor(), policyNet)
			e.TakeAction(action)
		}

		planning := e.PlanningTime()
		querying := e.QueryTime()
		win := 0
		if e.DoneReason() == errs.ReasonWin {
			win = 1
		}
		rows = append(rows, record.Evaluated{
			ID:           qid,
			PlanningTime: planning,
			QueryingTime: querying,
			TotalTime:    planning + querying,
			Win:          win,
			PlansTried:   joinPlans(e.TriedPlans()),
			Reason:       e.DoneReason(),
			HasQuality:   true,
			Quality:      e.QueryQuality(),
		})
	}
	return rows
}

// WinRate returns the fraction of rows whose Win == 1.
func WinRate(rows []record.Evaluated) float64 {
	if len(rows) == 0 {
		return 0
	}
	wins := 0
	for _, r := range rows {
		if r.Win == 1 {
			wins++
		}
	}
	return float64(wins) / float64(len(rows))
}

func joinPlans(plans []int) string {
	parts := make([]string, len(plans))
	for i, p := range plans {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, "_")
}

// Trial is one independently trained model's outcome: the trained
// network, its training-set fit rate, and its validation-set eval rate.
type Trial struct {
	PolicyNet *qnet.Network
	FitRate   float64
	EvalRate  float64
}

// TrainWithSelection runs trials independent training attempts (each
// building its own environment via newEnv, since every goroutine needs
// its own mutable episode state) and returns the trial with the
// highest validation-set win rate, grounded on smart_select_dqn.py's
// "select DQN model with highest win_count" loop.
func TrainWithSelection(ctx context.Context, cfg *config.TrainingConfig, newEnv func() env.Environment,
	trainQids, validateQids trainer.QueryIDs, trials int, newNet func() *qnet.Network, seeds []int64) (*Trial, error) {

	if len(seeds) != trials {
		return nil, fmt.Errorf("TrainWithSelection: got %d seeds for %d trials", len(seeds), trials)
	}

	best := atomicfloat.NewAtomicFloat64(-1.0)
	results := make([]*Trial, trials)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < trials; i++ {
		i := i
		g.Go(func() error {
			policyNet := newNet()
			targetNet := newNet()
			if err := targetNet.SyncFrom(policyNet); err != nil {
				return err
			}
			rng := newRand(seeds[i])

			result, err := trainer.Run(gctx, newEnv(), trainQids, cfg, policyNet, targetNet, rng, false, nil)
			if err != nil {
				return err
			}
			if result.PolicyNet == nil {
				// No iteration completed (e.g. cfg.NumberOfRuns == 0); this
				// trial has nothing to validate or select.
				return nil
			}

			validated := Evaluate(newEnv(), result.PolicyNet, validateQids)
			evalRate := WinRate(validated)

			results[i] = &Trial{PolicyNet: result.PolicyNet, FitRate: result.MaxWinRate, EvalRate: evalRate}

			for {
				cur := best.AtomicRead()
				if evalRate <= cur {
					break
				}
				if ok := best.AtomicSet(evalRate); ok {
					break
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var selected *Trial
	for _, t := range results {
		if t == nil {
			continue
		}
		if selected == nil || t.EvalRate > selected.EvalRate {
			selected = t
		}
	}
	return selected, nil
}

// ComposeTwoStage applies the not_possible -> lossy-fallback rule of
// smart_evaluate_dqn_plus_dqn_q.py: rows from the lossless stage that
// terminated with reason "not_possible" are replaced by concatenating
// their planning cost with a matching lossy-stage row (keyed by ID),
// provided the combined time fits budget. Every other lossless row
// passes through unchanged with Quality defaulted to 1.0.
func ComposeTwoStage(lossless, lossy []record.Evaluated, timeBudget float64) ([]record.Evaluated, error) {
	lossyByID := make(map[uint64]record.Evaluated, len(lossy))
	for _, r := range lossy {
		lossyByID[r.ID] = r
	}

	out := make([]record.Evaluated, len(lossless))
	for i, row := range lossless {
		row.HasQuality = true
		if row.Quality == 0 && row.Reason != errs.ReasonNotPossible {
			row.Quality = 1.0
		}
		if row.Reason == errs.ReasonNotPossible {
			lossyRow, ok := lossyByID[row.ID]
			if !ok {
				return nil, fmt.Errorf("%w: query %d has no lossy-stage fallback row", errs.IOMissing, row.ID)
			}
			combinedPlanning := row.PlanningTime + lossyRow.PlanningTime + lossyRow.QueryingTime
			if combinedPlanning <= timeBudget {
				row.PlanningTime += lossyRow.PlanningTime
				row.QueryingTime = lossyRow.QueryingTime
				row.TotalTime = row.PlanningTime + row.QueryingTime
				row.Win = lossyRow.Win
				row.PlansTried = row.PlansTried + "_X_" + lossyRow.PlansTried
				row.Reason = lossyRow.Reason
				row.Quality = lossyRow.Quality
			}
		}
		out[i] = row
	}
	return out, nil
}
