package adapter

import (
	"path/filepath"
	"testing"

	"smartselect/record"
)

func newFixtureAdapter() *CSVAdapter {
	a := NewCSVAdapter(3, 1, []string{"idx_a", "idx_b", "idx_c"})
	a.Times[1] = record.LabeledQuery{ID: 1, Times: map[int]float64{0: 5.0, 6: 0.8}}
	a.SelCosts = record.SelCosts{SampleSize: 100, Costs: []float64{0.1, 0.2, 0.05, 0.3, 0.15, 0.25, 0.4}}
	a.Sels[1] = record.SelVector{ID: 1, Sels: map[int]float64{4: 0.5, 2: 0.3, 6: 0.1}}
	a.Samples[1] = record.LabeledSampleQuery{ID: 1, Times: map[int]float64{0: 0.3}}
	a.Results["1_0"] = []record.Coord{{X: 1, Y: 2}}
	return a
}

func TestTimeQueryLookup(t *testing.T) {
	a := newFixtureAdapter()
	tm, err := a.TimeQuery(1, 6)
	if err != nil {
		t.Fatalf("TimeQuery: %v", err)
	}
	if tm != 0.8 {
		t.Errorf("TimeQuery = %v, want 0.8", tm)
	}
	if _, err := a.TimeQuery(1, 99); err == nil {
		t.Error("expected error for unknown plan")
	}
	if _, err := a.TimeQuery(404, 0); err == nil {
		t.Error("expected error for unknown query")
	}
}

func TestSelQueryLookup(t *testing.T) {
	a := newFixtureAdapter()
	s, err := a.SelQuery(1, 4)
	if err != nil {
		t.Fatalf("SelQuery: %v", err)
	}
	if s != 0.5 {
		t.Errorf("SelQuery = %v, want 0.5", s)
	}
}

func TestTimeSamplingQueryLookup(t *testing.T) {
	a := newFixtureAdapter()
	tm, coords, err := a.TimeSamplingQuery(1, 0)
	if err != nil {
		t.Fatalf("TimeSamplingQuery: %v", err)
	}
	if tm != 0.3 || len(coords) != 1 {
		t.Errorf("TimeSamplingQuery = (%v, %v)", tm, coords)
	}
}

func TestConstructHintListsSetBitsOnly(t *testing.T) {
	a := newFixtureAdapter()
	hint := a.ConstructHint(6) // binary 110 -> idx_b, idx_c set (bits 1,2)
	if hint == "" {
		t.Fatal("expected non-empty hint for plan 6")
	}
	if !contains(hint, "idx_b") || !contains(hint, "idx_c") || contains(hint, "idx_a") {
		t.Errorf("hint = %q, wanted idx_b and idx_c only", hint)
	}
}

func TestConstructHintEmptyForZeroPlan(t *testing.T) {
	a := newFixtureAdapter()
	if hint := a.ConstructHint(0); hint != "" {
		t.Errorf("ConstructHint(0) = %q, want empty", hint)
	}
}

func TestConstructHintAppendsJoinMethod(t *testing.T) {
	a := newFixtureAdapter()
	span := 1<<3 - 1 // 7
	hint := a.ConstructHint(span + 2)
	if !contains(hint, "JoinMethod") {
		t.Errorf("hint = %q, expected a join-method suffix for a second join method's plan", hint)
	}
}

func TestLoadDumpQueriesRoundTrip(t *testing.T) {
	a := NewCSVAdapter(3, 1, nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.csv")
	queries := []record.Query{{ID: 1, Attrs: []float64{1.5, 2.5}}, {ID: 2, Attrs: []float64{3.0, 4.0}}}
	if err := a.DumpQueries(path, queries); err != nil {
		t.Fatalf("DumpQueries: %v", err)
	}
	got, err := a.LoadQueries(path)
	if err != nil {
		t.Fatalf("LoadQueries: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].Attrs[1] != 4.0 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
