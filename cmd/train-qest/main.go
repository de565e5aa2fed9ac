// Command train-qest fits a query-time estimator, one regression per
// lossless plan, from a selectivity file and a labeled-query file, and
// saves it for V1/V2 environments to load, mirroring
// smart_train_query_estimator_nyc.py.
package main

import (
	"flag"
	"fmt"
	"log"

	"smartselect/estimator"
	"smartselect/planalgebra"
	"smartselect/record"
)

func main() {
	dimension := flag.Int("d", 3, "dimension of the queries")
	numJoins := flag.Int("nj", 1, "number of join methods")
	timeout := flag.Float64("to", 1e9, "time treated as a plan timeout (dropped from fitting)")
	selFile := flag.String("sf", "", "input file of queries' selectivities")
	labeledFile := flag.String("lf", "", "input file of queries' real running times")
	outPath := flag.String("op", "", "output path to save the fitted estimator")
	flag.Parse()

	if *selFile == "" || *labeledFile == "" || *outPath == "" {
		log.Fatal("-sf, -lf, and -op are all required")
	}

	numSels := 1<<uint(*dimension) - 1
	sels, err := record.LoadSelVectors(*selFile, numSels)
	if err != nil {
		log.Fatalf("loading sel file: %v", err)
	}

	numPlans := planalgebra.NumPlans(*dimension, *numJoins, 0, false)
	labeled, err := record.LoadLabeledQueries(*labeledFile, numPlans)
	if err != nil {
		log.Fatalf("loading labeled file: %v", err)
	}
	labeledByID := make(map[uint64]record.LabeledQuery, len(labeled))
	for _, q := range labeled {
		labeledByID[q.ID] = q
	}

	est := estimator.New(*dimension, *numJoins, *timeout)

	fmt.Println("start training query estimator ...")
	for p := 1; p <= numPlans; p++ {
		selIDs, err := planalgebra.SelIDsOfPlan(p, *dimension, *numJoins)
		if err != nil {
			log.Fatalf("plan %d: %v", p, err)
		}

		var xtr [][]float64
		var ytr []float64
		for _, sv := range sels {
			lq, ok := labeledByID[sv.ID]
			if !ok {
				continue
			}
			row := make([]float64, len(selIDs))
			for i, selID := range selIDs {
				row[i] = sv.Sels[selID]
			}
			xtr = append(xtr, row)
			ytr = append(ytr, lq.Times[p])
		}

		if err := est.Fit(p, xtr, ytr); err != nil {
			log.Fatalf("fitting plan %d: %v", p, err)
		}
		fmt.Printf("    plan [%d] trained.\n", p)
	}

	if err := est.Save(*outPath); err != nil {
		log.Fatalf("saving estimator: %v", err)
	}
	fmt.Println("query estimator models saved.")
}
