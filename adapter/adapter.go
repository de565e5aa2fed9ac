// Package adapter defines the dataset-adapter contract of spec.md §4.2
// and ships one reference implementation, CSVAdapter, that fulfills it
// against pre-computed CSV fixtures rather than a live relational
// engine — grounded on the original implementation's per-dataset
// adapters (core/nyc.go, core/tpch.go, core/twitter.go), generalized
// here into a single table-lookup adapter so env/trainer/evaluator are
// exercisable without a real database, matching spec.md's explicit
// non-goal of training the base relational engine.
package adapter

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"smartselect/errs"
	"smartselect/planalgebra"
	"smartselect/record"
)

// DatasetAdapter is the polymorphic capability set of spec.md §4.2.
// Concrete implementations may measure a live engine or, like
// CSVAdapter, replay pre-computed ground truth.
type DatasetAdapter interface {
	LoadQueries(path string) ([]record.Query, error)
	DumpQueries(path string, queries []record.Query) error
	TimeQuery(qid uint64, plan int) (float64, error)
	TimeSelQuery(qid uint64, filterID int) (float64, error)
	SelQuery(qid uint64, filterID int) (float64, error)
	TimeSamplingQuery(qid uint64, k int) (float64, []record.Coord, error)
	ConstructSQL(q record.Query, table string) string
	ConstructHint(plan int) string
}

// CSVAdapter fulfills DatasetAdapter by looking values up in tables
// loaded from CSV fixtures, with construct_sql degrading to an opaque
// descriptive string and construct_hint built from the plan algebra.
type CSVAdapter struct {
	Dimension int
	NumJoins  int

	Times    map[uint64]record.LabeledQuery
	SelCosts record.SelCosts
	Sels     map[uint64]record.SelVector
	Samples  map[uint64]record.LabeledSampleQuery
	Results  map[string][]record.Coord // keyed "qid_k"

	IndexNames []string // IndexNames[i] names the index for sel id 2^i
}

// NewCSVAdapter returns an adapter with empty lookup tables; populate
// Times/Sels/Samples/Results (e.g. via record.Load*) before use.
func NewCSVAdapter(dimension, numJoins int, indexNames []string) *CSVAdapter {
	return &CSVAdapter{
		Dimension:  dimension,
		NumJoins:   numJoins,
		Times:      make(map[uint64]record.LabeledQuery),
		Sels:       make(map[uint64]record.SelVector),
		Samples:    make(map[uint64]record.LabeledSampleQuery),
		Results:    make(map[string][]record.Coord),
		IndexNames: indexNames,
	}
}

// LoadQueries reads a plain query CSV: id followed by Attrs columns.
func (a *CSVAdapter) LoadQueries(path string) ([]record.Query, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.IOMissing, path)
	}
	queries := make([]record.Query, 0, len(rows))
	for _, row := range rows {
		if len(row) < 1 {
			return nil, fmt.Errorf("%w: empty row in %s", errs.SchemaMismatch, path)
		}
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad id in %s", errs.SchemaMismatch, path)
		}
		attrs := make([]float64, len(row)-1)
		for i, cell := range row[1:] {
			v, err := parseFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: bad attr in %s", errs.SchemaMismatch, path)
			}
			attrs[i] = v
		}
		queries = append(queries, record.Query{ID: id, Attrs: attrs})
	}
	return queries, nil
}

// DumpQueries writes queries back out in LoadQueries's format.
func (a *CSVAdapter) DumpQueries(path string, queries []record.Query) error {
	rows := make([][]string, 0, len(queries))
	for _, q := range queries {
		row := make([]string, 0, len(q.Attrs)+1)
		row = append(row, strconv.FormatUint(q.ID, 10))
		for _, v := range q.Attrs {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rows = append(rows, row)
	}
	return writeCSV(path, rows)
}

// TimeQuery returns the ground-truth time recorded for (qid, plan),
// the table-lookup stand-in for measuring wall clock around a live
// engine call under the given hint.
func (a *CSVAdapter) TimeQuery(qid uint64, plan int) (float64, error) {
	lq, ok := a.Times[qid]
	if !ok {
		return 0, fmt.Errorf("%w: query %d", errs.IOMissing, qid)
	}
	t, ok := lq.Times[plan]
	if !ok {
		return 0, fmt.Errorf("%w: plan %d for query %d", errs.InvalidPlan, plan, qid)
	}
	return t, nil
}

// TimeSelQuery returns the ground-truth probe cost of collecting
// selectivity id filterID, at the adapter's configured sample size.
func (a *CSVAdapter) TimeSelQuery(qid uint64, filterID int) (float64, error) {
	if filterID < 1 || filterID > len(a.SelCosts.Costs) {
		return 0, fmt.Errorf("%w: filter %d", errs.InvalidPlan, filterID)
	}
	return a.SelCosts.Costs[filterID-1], nil
}

// SelQuery returns the recorded selectivity of filterID for qid, i.e.
// count(filter)/table_size as spec.md §4.2 requires of a live adapter.
func (a *CSVAdapter) SelQuery(qid uint64, filterID int) (float64, error) {
	sv, ok := a.Sels[qid]
	if !ok {
		return 0, fmt.Errorf("%w: query %d", errs.IOMissing, qid)
	}
	s, ok := sv.Sels[filterID]
	if !ok {
		return 0, fmt.Errorf("%w: filter %d for query %d", errs.InvalidPlan, filterID, qid)
	}
	return s, nil
}

// TimeSamplingQuery returns the ground-truth time and materialized
// result coordinates of sampling plan k against qid.
func (a *CSVAdapter) TimeSamplingQuery(qid uint64, k int) (float64, []record.Coord, error) {
	lsq, ok := a.Samples[qid]
	if !ok {
		return 0, nil, fmt.Errorf("%w: query %d", errs.IOMissing, qid)
	}
	t, ok := lsq.Times[k]
	if !ok {
		return 0, nil, fmt.Errorf("%w: sampling plan %d for query %d", errs.InvalidPlan, k, qid)
	}
	key := fmt.Sprintf("%d_%d", qid, k)
	return t, a.Results[key], nil
}

// ConstructSQL returns a descriptive placeholder string for q against
// table — SQL dialect generation is an explicit non-goal (spec.md §1),
// so CSVAdapter never talks to a parser or query builder.
func (a *CSVAdapter) ConstructSQL(q record.Query, table string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE query_id = %d", table, q.ID)
}

// ConstructHint builds a bitmap-scan hint listing exactly the indexes
// whose bit is set in plan, plus an optional join-method hint derived
// from ReduceJoinMethod, per spec.md §4.2's contract. Never emits an
// empty bitmap-scan hint: plan=0 (or a plan whose index bitmask is
// all-zero) returns "".
func (a *CSVAdapter) ConstructHint(plan int) string {
	if plan == 0 {
		return ""
	}
	within, joinMethod := planalgebra.ReduceJoinMethod(plan, a.Dimension)
	if within == 0 {
		return ""
	}
	var names []string
	for i, name := range a.IndexNames {
		if within&(1<<uint(i)) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	hint := "/*+ BitmapScan(t " + strings.Join(names, " ") + ")"
	if joinMethod > 1 {
		hint += fmt.Sprintf(" JoinMethod(%d)", joinMethod)
	}
	hint += " */"
	return hint
}

var _ DatasetAdapter = (*CSVAdapter)(nil)

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, errs.IOMissing)
	}
	defer f.Close()
	r := csv.NewReader(f)
	return r.ReadAll()
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
