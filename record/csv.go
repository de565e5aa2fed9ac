package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"smartselect/errs"
)

// LoadLabeledQueries reads a labeled-queries file: id, time_0, ..., time_P.
func LoadLabeledQueries(path string, numPlans int) ([]LabeledQuery, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	out := make([]LabeledQuery, 0, len(rows))
	for _, row := range rows {
		if len(row) != numPlans+2 {
			return nil, fmt.Errorf("%s: row has %d columns, want %d: %w", path, len(row), numPlans+2, errs.SchemaMismatch)
		}
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		times := make(map[int]float64, numPlans+1)
		for p := 0; p <= numPlans; p++ {
			v, err := parseFloat(row[1+p])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			times[p] = v
		}
		out = append(out, LabeledQuery{ID: id, Times: times})
	}
	return out, nil
}

// DumpLabeledQueries writes a labeled-queries file in the same layout
// LoadLabeledQueries reads.
func DumpLabeledQueries(path string, queries []LabeledQuery, numPlans int) error {
	return writeCSV(path, func(w *csv.Writer) error {
		for _, q := range queries {
			row := make([]string, 0, numPlans+2)
			row = append(row, strconv.FormatUint(q.ID, 10))
			for p := 0; p <= numPlans; p++ {
				row = append(row, strconv.FormatFloat(q.Times[p], 'g', -1, 64))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSelVectors reads a sel file: id, sel_1, ..., sel_{2^d-1}.
func LoadSelVectors(path string, numSels int) ([]SelVector, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	out := make([]SelVector, 0, len(rows))
	for _, row := range rows {
		if len(row) != numSels+1 {
			return nil, fmt.Errorf("%s: row has %d columns, want %d: %w", path, len(row), numSels+1, errs.SchemaMismatch)
		}
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		sels := make(map[int]float64, numSels)
		for f := 1; f <= numSels; f++ {
			v, err := parseFloat(row[f])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			sels[f] = v
		}
		out = append(out, SelVector{ID: id, Sels: sels})
	}
	return out, nil
}

// LoadLabeledSelQueries reads a labeled-sel file: id, time_sel_1, ..., time_sel_{2^d-1}.
func LoadLabeledSelQueries(path string, numSels int) ([]SelVector, error) {
	// Identical column shape to a sel file; the values are probe times
	// rather than selectivities, but the container is the same.
	return LoadSelVectors(path, numSels)
}

// LoadLabeledSampleQueries reads a labeled-sample file: id, time_0, ..., time_{d*|R|-1}.
func LoadLabeledSampleQueries(path string, numSamplingPlans int) ([]LabeledSampleQuery, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	out := make([]LabeledSampleQuery, 0, len(rows))
	for _, row := range rows {
		if len(row) != numSamplingPlans+1 {
			return nil, fmt.Errorf("%s: row has %d columns, want %d: %w", path, len(row), numSamplingPlans+1, errs.SchemaMismatch)
		}
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		times := make(map[int]float64, numSamplingPlans)
		for k := 0; k < numSamplingPlans; k++ {
			v, err := parseFloat(row[1+k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			times[k] = v
		}
		out = append(out, LabeledSampleQuery{ID: id, Times: times})
	}
	return out, nil
}

// LoadSampleQualities reads a sample-quality file: id, quality_0, ..., quality_{d*|R|-1}.
func LoadSampleQualities(path string, numSamplingPlans int) ([]SampleQuality, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	out := make([]SampleQuality, 0, len(rows))
	for _, row := range rows {
		if len(row) != numSamplingPlans+1 {
			return nil, fmt.Errorf("%s: row has %d columns, want %d: %w", path, len(row), numSamplingPlans+1, errs.SchemaMismatch)
		}
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		quality := make(map[int]float64, numSamplingPlans)
		for k := 0; k < numSamplingPlans; k++ {
			v, err := parseFloat(row[1+k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			quality[k] = v
		}
		out = append(out, SampleQuality{ID: id, Quality: quality})
	}
	return out, nil
}

// LoadSelCosts reads a "sel costs file": header row then one row per
// sample size, sample_size, cost(sel_1), ..., cost(sel_{2^d-1}).
func LoadSelCosts(path string, numSels int) ([]SelCosts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, errs.IOMissing)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%s: missing header: %w", path, errs.SchemaMismatch)
	}
	rows = rows[1:] // skip header
	out := make([]SelCosts, 0, len(rows))
	for _, row := range rows {
		if len(row) != numSels+1 {
			return nil, fmt.Errorf("%s: row has %d columns, want %d: %w", path, len(row), numSels+1, errs.SchemaMismatch)
		}
		size, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		costs := make([]float64, numSels)
		for i := 0; i < numSels; i++ {
			v, err := parseFloat(row[1+i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			costs[i] = v
		}
		out = append(out, SelCosts{SampleSize: size, Costs: costs})
	}
	return out, nil
}

// LoadEvaluated reads an evaluated file: id, planning_time, querying_time,
// total_time, win, plans_tried, reason[, quality].
func LoadEvaluated(path string, hasQuality bool) ([]Evaluated, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	wantCols := 7
	if hasQuality {
		wantCols = 8
	}
	out := make([]Evaluated, 0, len(rows))
	for _, row := range rows {
		if len(row) != wantCols {
			return nil, fmt.Errorf("%s: row has %d columns, want %d: %w", path, len(row), wantCols, errs.SchemaMismatch)
		}
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		planning, err := parseFloat(row[1])
		if err != nil {
			return nil, err
		}
		querying, err := parseFloat(row[2])
		if err != nil {
			return nil, err
		}
		total, err := parseFloat(row[3])
		if err != nil {
			return nil, err
		}
		win, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, err
		}
		ev := Evaluated{
			ID:           id,
			PlanningTime: planning,
			QueryingTime: querying,
			TotalTime:    total,
			Win:          win,
			PlansTried:   row[5],
			Reason:       row[6],
		}
		if hasQuality {
			q, err := parseFloat(row[7])
			if err != nil {
				return nil, err
			}
			ev.HasQuality = true
			ev.Quality = q
		}
		out = append(out, ev)
	}
	return out, nil
}

// DumpEvaluated writes an evaluated file.
func DumpEvaluated(path string, rows []Evaluated, hasQuality bool) error {
	return writeCSV(path, func(w *csv.Writer) error {
		for _, e := range rows {
			row := []string{
				strconv.FormatUint(e.ID, 10),
				strconv.FormatFloat(e.PlanningTime, 'g', -1, 64),
				strconv.FormatFloat(e.QueryingTime, 'g', -1, 64),
				strconv.FormatFloat(e.TotalTime, 'g', -1, 64),
				strconv.Itoa(e.Win),
				e.PlansTried,
				e.Reason,
			}
			if hasQuality {
				row = append(row, strconv.FormatFloat(e.Quality, 'g', -1, 64))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTrainTrace reads a train trace file: header "iteration,win_rate"
// then rows.
func LoadTrainTrace(path string) ([]TraceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, errs.IOMissing)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%s: missing header: %w", path, errs.SchemaMismatch)
	}
	rows = rows[1:]
	out := make([]TraceRow, 0, len(rows))
	for _, row := range rows {
		iter, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, err
		}
		winRate, err := parseFloat(row[1])
		if err != nil {
			return nil, err
		}
		out = append(out, TraceRow{Iteration: iter, WinRate: winRate})
	}
	return out, nil
}

// DumpTrainTrace writes a train trace file with its header row.
func DumpTrainTrace(path string, rows []TraceRow) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"iteration", "win_rate"}); err != nil {
			return err
		}
		for _, r := range rows {
			row := []string{
				strconv.Itoa(r.Iteration),
				strconv.FormatFloat(r.WinRate, 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadQueryResult reads a query-result file: one row per tuple with two
// coordinate columns, or a single "timeout" row.
func LoadQueryResult(path string) ([]Coord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, errs.IOMissing)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) == 1 && len(rows[0]) == 1 && rows[0][0] == "timeout" {
		return []Coord{{Timeout: true}}, nil
	}
	out := make([]Coord, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("%s: row has %d columns, want 2: %w", path, len(row), errs.SchemaMismatch)
		}
		x, err := parseFloat(row[0])
		if err != nil {
			return nil, err
		}
		y, err := parseFloat(row[1])
		if err != nil {
			return nil, err
		}
		out = append(out, Coord{X: x, Y: y})
	}
	return out, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, errs.IOMissing)
	}
	defer f.Close()
	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func writeCSV(path string, write func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
