package qnet

import (
	"math"
	"path/filepath"
	"testing"
)

func fixedInit() func() float64 {
	vals := []float64{0.1, -0.2, 0.3, -0.1, 0.05, -0.05, 0.2, -0.3}
	i := 0
	return func() float64 {
		v := vals[i%len(vals)]
		i++
		return v
	}
}

func TestForwardShapes(t *testing.T) {
	const numPlans = 3
	n := New(numPlans, fixedInit())
	x := make([]float64, n.InSize)
	for i := range x {
		x[i] = float64(i) * 0.1
	}
	out, cache := n.Forward(x)
	if len(out) != numPlans {
		t.Fatalf("Forward output len = %d, want %d", len(out), numPlans)
	}
	if r, c := cache.A1.Dims(); r != n.H1 || c != 1 {
		t.Errorf("A1 dims = (%d,%d), want (%d,1)", r, c, n.H1)
	}
	if r, c := cache.A2.Dims(); r != n.H2 || c != 1 {
		t.Errorf("A2 dims = (%d,%d), want (%d,1)", r, c, n.H2)
	}
}

func TestBackwardGradientShapes(t *testing.T) {
	const numPlans = 2
	n := New(numPlans, fixedInit())
	x := make([]float64, n.InSize)
	_, cache := n.Forward(x)
	dOut := make([]float64, numPlans)
	dOut[0] = 1.0
	grads := n.Backward(cache, dOut)

	checkDims := func(name string, got interface{ Dims() (int, int) }, wantR, wantC int) {
		r, c := got.Dims()
		if r != wantR || c != wantC {
			t.Errorf("%s dims = (%d,%d), want (%d,%d)", name, r, c, wantR, wantC)
		}
	}
	checkDims("DW1", grads.DW1, n.H1, n.InSize)
	checkDims("DW2", grads.DW2, n.H2, n.H1)
	checkDims("DW3", grads.DW3, n.OutSize, n.H2)
}

func TestCloneIsIndependent(t *testing.T) {
	n := New(2, fixedInit())
	clone := n.Clone()
	clone.W1.Set(0, 0, 999)
	if n.W1.At(0, 0) == 999 {
		t.Error("Clone shares backing storage with the original")
	}
}

func TestSyncFromMatchesSource(t *testing.T) {
	n := New(2, fixedInit())
	target := New(2, func() float64 { return 0 })
	if err := target.SyncFrom(n); err != nil {
		t.Fatalf("SyncFrom: %v", err)
	}
	if target.W1.At(0, 0) != n.W1.At(0, 0) {
		t.Error("SyncFrom did not copy weights")
	}
}

func TestAdamStepReducesLoss(t *testing.T) {
	const numPlans = 2
	n := New(numPlans, fixedInit())
	opt := NewAdam(n, 0.05)

	x := make([]float64, n.InSize)
	for i := range x {
		x[i] = 0.1 * float64(i+1)
	}
	target := 5.0

	lossAt := func() float64 {
		out, _ := n.Forward(x)
		d := out[0] - target
		return d * d
	}

	before := lossAt()
	for i := 0; i < 50; i++ {
		out, cache := n.Forward(x)
		dOut := make([]float64, numPlans)
		dOut[0] = 2 * (out[0] - target)
		grads := n.Backward(cache, dOut)
		opt.Step(n, grads)
	}
	after := lossAt()

	if after >= before {
		t.Errorf("loss did not decrease: before=%v after=%v", before, after)
	}
	if math.IsNaN(after) {
		t.Error("loss is NaN after training")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	n := New(3, fixedInit())
	path := filepath.Join(t.TempDir(), "policy.model")
	if err := n.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.InSize != n.InSize || loaded.H1 != n.H1 || loaded.H2 != n.H2 || loaded.OutSize != n.OutSize {
		t.Fatalf("shape mismatch after round trip: %+v vs %+v", loaded, n)
	}
	if loaded.W1.At(1, 2) != n.W1.At(1, 2) {
		t.Error("W1 contents did not survive the round trip")
	}
	if loaded.W3.At(0, 0) != n.W3.At(0, 0) {
		t.Error("W3 contents did not survive the round trip")
	}
}
