// Command evaluate runs a trained (or naive oracle) policy
// deterministically against a labeled query set and reports the
// resulting win rate, mirroring smart_evaluate_naive.py /
// smart_evaluate_dqn_q.py's console report.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"smartselect/agent"
	"smartselect/env"
	"smartselect/errs"
	"smartselect/evaluator"
	"smartselect/planalgebra"
	"smartselect/qnet"
	"smartselect/record"
)

func main() {
	dimension := flag.Int("d", 3, "dimension of the queries")
	numJoins := flag.Int("nj", 1, "number of join methods")
	labeledFile := flag.String("lf", "", "input file of labeled queries to evaluate")
	unitCost := flag.Float64("uc", 0.05, "time to collect one selectivity value")
	timeBudget := flag.Float64("tb", 0, "time budget (seconds) for a query to be viable")
	modelFile := flag.String("mf", "", "trained model to load; omit for the naive oracle baseline")
	evaluatedFile := flag.String("ef", "", "output file for the per-query evaluated rows")
	debugQID := flag.Uint64("debug", 0, "print the step-by-step trace for one query id")
	flag.Parse()

	if *labeledFile == "" {
		log.Fatal("-lf is required")
	}
	if *timeBudget <= 0 {
		log.Fatal("-tb is required and must be positive")
	}

	numPlans := planalgebra.NumPlans(*dimension, *numJoins, 0, false)
	queries, err := record.LoadLabeledQueries(*labeledFile, numPlans)
	if err != nil {
		log.Fatalf("loading labeled queries: %v", err)
	}
	qids := make([]uint64, len(queries))
	for i, q := range queries {
		qids[i] = q.ID
	}

	e := env.NewV0(*dimension, *numJoins, queries, *unitCost, *timeBudget)

	var net *qnet.Network
	if *modelFile != "" {
		net, err = qnet.Load(*modelFile)
		if err != nil {
			log.Fatalf("loading model: %v", err)
		}
	} else {
		net = qnet.New(numPlans, func() float64 { return 0 })
	}

	if *debugQID != 0 {
		printDebugTrace(e, net, *debugQID)
	}

	rows := evaluator.Evaluate(e, net, qids)
	report(rows)

	if *evaluatedFile != "" {
		if err := record.DumpEvaluated(*evaluatedFile, rows, true); err != nil {
			log.Fatalf("saving evaluated rows: %v", err)
		}
	}
}

func printDebugTrace(e env.Environment, net *qnet.Network, qid uint64) {
	fmt.Printf("---- debug trace for query %d ----\n", qid)
	e.Reset(qid)
	a := agent.New(net.OutSize, nil)
	step := 0
	for !e.Done() {
		tensor := e.Tensor()
		out, _ := net.Forward(tensor)
		action := a.DecideAction(tensor, net)
		reward := e.TakeAction(action)
		fmt.Printf("step %d: q-values=%v action=%d reward=%.4f\n", step, out, action, reward)
		step++
		if step > 64 {
			fmt.Println("debug trace aborted after 64 steps")
			break
		}
	}
	fmt.Printf("done: reason=%s planning=%.4f querying=%.4f\n", e.DoneReason(), e.PlanningTime(), e.QueryTime())
}

func report(rows []record.Evaluated) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"qid", "planning", "querying", "total", "win", "plans tried", "reason"})
	for _, r := range rows {
		winCell := "loss"
		if r.Win == 1 {
			winCell = color.GreenString("win")
		} else if r.Reason != errs.ReasonWin {
			winCell = color.RedString(r.Reason)
		}
		table.Append([]string{
			fmt.Sprintf("%d", r.ID),
			fmt.Sprintf("%.4f", r.PlanningTime),
			fmt.Sprintf("%.4f", r.QueryingTime),
			fmt.Sprintf("%.4f", r.TotalTime),
			winCell,
			r.PlansTried,
			r.Reason,
		})
	}
	table.Render()
	fmt.Printf("win rate: %.4f over %d queries\n", evaluator.WinRate(rows), len(rows))
}
