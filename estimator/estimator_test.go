package estimator

import (
	"math"
	"path/filepath"
	"testing"
)

func TestFitPredictLinear(t *testing.T) {
	e := New(3, 1, 100.0)
	// plan 1 depends on a single selectivity feature; fit y = 2x + 1 exactly.
	x := [][]float64{{0}, {1}, {2}, {3}, {4}}
	y := []float64{1, 3, 5, 7, 9}
	if err := e.Fit(1, x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got, err := e.Predict(1, []float64{10}, "application")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := 21.0
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("Predict(10) = %v, want %v", got, want)
	}
}

func TestFitDropsTimeoutRows(t *testing.T) {
	e := New(3, 1, 10.0)
	x := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{1, 3, 100, 100} // last two are at/above timeout
	if err := e.Fit(1, x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got, err := e.Predict(1, []float64{2}, "application")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// fit on (0,1),(1,3) only -> y = 2x+1 -> predict(2) = 5
	if math.Abs(got-5) > 1e-6 {
		t.Errorf("Predict(2) = %v, want 5 (timeout rows should be excluded)", got)
	}
}

func TestFitDegradesWithInsufficientData(t *testing.T) {
	e := New(3, 1, 10.0)
	x := [][]float64{{0}}
	y := []float64{5}
	if err := e.Fit(1, x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got, err := e.Predict(1, []float64{999}, "application")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != 5 {
		t.Errorf("degraded Predict = %v, want constant 5", got)
	}
}

func TestPredictAnalyzeModeClips(t *testing.T) {
	e := New(3, 1, 10.0)
	x := [][]float64{{0}, {1}}
	y := []float64{-5, 50}
	if err := e.Fit(1, x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got, err := e.Predict(1, []float64{1}, "analyze")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got < 0 || got > 10.0 {
		t.Errorf("analyze-mode Predict = %v, want clipped to [0,10]", got)
	}
}

func TestFitInvalidPlan(t *testing.T) {
	e := New(3, 1, 10.0)
	if err := e.Fit(999, [][]float64{{0}}, []float64{1}); err == nil {
		t.Error("expected error for out-of-range plan")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	e := New(3, 1, 50.0)
	x := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{1, 3, 5, 7}
	if err := e.Fit(1, x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	path := filepath.Join(t.TempDir(), "estimator.gob")
	if err := e.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := loaded.Predict(1, []float64{10}, "application")
	if err != nil {
		t.Fatalf("Predict after load: %v", err)
	}
	want, err := e.Predict(1, []float64{10}, "application")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("round trip Predict = %v, want %v", got, want)
	}
}
