// Package record holds the persisted data model of spec.md §3/§6: query
// records, labeled queries (lossless and sampling), selectivity vectors,
// sample quality, and evaluated-run records, plus their CSV encodings
// (the sel-costs and train-trace files carry a header row). None of this package knows how to
// talk to a relational engine — it only reads and writes the flat files
// that the rest of the module exchanges.
package record

import (
	"fmt"
	"strconv"
)

// Query is the dataset-specific predicate tuple. Attrs holds whatever
// dimension-specific range/filter values a concrete adapter needs
// (e.g. a datetime range plus a bounding box); this package treats it
// opaquely. Immutable after load.
type Query struct {
	ID    uint64
	Attrs []float64
}

// LabeledQuery augments a Query with the ground-truth wall-clock time of
// every lossless plan, Times[0] being the unhinted baseline and
// Times[p] for p in 1..NumPlans the hinted plans. A value equal to the
// configured timeout sentinel means the plan timed out.
type LabeledQuery struct {
	ID    uint64
	Times map[int]float64
}

// LabeledQueryStd is the standard-deviation twin of LabeledQuery, over
// training repetitions of the same plan.
type LabeledQueryStd struct {
	ID    uint64
	Stds  map[int]float64
}

// LabeledSampleQuery carries the ground-truth time of every sampling
// plan k = hintID*numRatios + ratioID.
type LabeledSampleQuery struct {
	ID    uint64
	Times map[int]float64
}

// SampleQuality carries the Jaccard-similarity quality of every
// sampling plan's result against the canonical (lossless) result.
type SampleQuality struct {
	ID      uint64
	Quality map[int]float64
}

// SelVector carries the selectivity value of every non-empty
// filter-combination f in 1..2^dimension-1.
type SelVector struct {
	ID   uint64
	Sels map[int]float64
}

// SelCosts is one row of the "sel costs file": the probe cost, at one
// sample size, of collecting each selectivity id.
type SelCosts struct {
	SampleSize int
	Costs      []float64 // indexed 0..len-1 for sel ids 1..len
}

// Evaluated is one row of the "evaluated file" — the outcome of running
// a trained policy (or a naive baseline) against one labeled query.
type Evaluated struct {
	ID           uint64
	PlanningTime float64
	QueryingTime float64
	TotalTime    float64
	Win          int // 1, 0, or -1 (not applicable / naive baseline)
	PlansTried   string
	Reason       string
	HasQuality   bool
	Quality      float64
}

// Coord is one row of a query-result file: a two-dimensional result
// tuple coordinate. Timeout marks a timed-out execution (a single
// "timeout" row with no coordinates).
type Coord struct {
	X, Y    float64
	Timeout bool
}

// TraceRow is one row of a train trace file.
type TraceRow struct {
	Iteration int
	WinRate   float64
}

// JaccardSimilarity scores a sampling plan's result coordinates against
// the canonical (lossless) result coordinates, as the intersection over
// union of the two coordinate sets. A timed-out side yields quality 0.
func JaccardSimilarity(canonical, sample []Coord) float64 {
	for _, c := range canonical {
		if c.Timeout {
			return 0
		}
	}
	for _, c := range sample {
		if c.Timeout {
			return 0
		}
	}
	if len(canonical) == 0 && len(sample) == 0 {
		return 1
	}
	set := make(map[Coord]bool, len(canonical))
	for _, c := range canonical {
		set[Coord{X: c.X, Y: c.Y}] = true
	}
	sampleSet := make(map[Coord]bool, len(sample))
	var intersection int
	for _, c := range sample {
		key := Coord{X: c.X, Y: c.Y}
		if sampleSet[key] {
			continue
		}
		sampleSet[key] = true
		if set[key] {
			intersection++
		}
	}
	union := len(set) + len(sampleSet) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse float %q: %w", s, err)
	}
	return v, nil
}
