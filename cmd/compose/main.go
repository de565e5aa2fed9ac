// Command compose applies the two-stage lossless -> lossy composition
// rule: for every query the lossless-stage evaluation could not
// satisfy, splice in a lossy (sampling) stage's result, mirroring
// smart_evaluate_dqn_plus_dqn_q.py.
package main

import (
	"flag"
	"fmt"
	"log"

	"smartselect/evaluator"
	"smartselect/record"
)

func main() {
	losslessFile := flag.String("ef", "", "evaluated file from the lossless (v0/v1/v2) stage")
	lossyFile := flag.String("eqf", "", "evaluated (with quality) file from the lossy (v-Q) stage")
	outputFile := flag.String("o", "", "output composed evaluated file")
	timeBudget := flag.Float64("tb", 0, "time budget (seconds) for a query to be viable")
	flag.Parse()

	if *losslessFile == "" || *lossyFile == "" || *outputFile == "" {
		log.Fatal("-ef, -eqf, and -o are all required")
	}
	if *timeBudget <= 0 {
		log.Fatal("-tb is required and must be positive")
	}

	lossless, err := record.LoadEvaluated(*losslessFile, false)
	if err != nil {
		log.Fatalf("loading lossless evaluated file: %v", err)
	}
	lossy, err := record.LoadEvaluated(*lossyFile, true)
	if err != nil {
		log.Fatalf("loading lossy evaluated file: %v", err)
	}

	composed, err := evaluator.ComposeTwoStage(lossless, lossy, *timeBudget)
	if err != nil {
		log.Fatalf("composing: %v", err)
	}

	if err := record.DumpEvaluated(*outputFile, composed, true); err != nil {
		log.Fatalf("saving composed file: %v", err)
	}
	fmt.Printf("composed %d rows, win rate %.4f, saved to %s\n", len(composed), evaluator.WinRate(composed), *outputFile)
}
