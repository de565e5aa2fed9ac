// Package estimator fits one ordinary-least-squares linear regression
// per lossless plan, mapping a query's selectivity feature vector to a
// predicted wall-clock execution time. Each plan gets its own
// model because different plans depend on different selectivity
// features (see planalgebra.SelIDsOfPlan).
package estimator

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"smartselect/errs"
	"smartselect/planalgebra"
)

// Model is one plan's fitted regression: y = X*Coef + Intercept.
type Model struct {
	Coef      []float64
	Intercept float64
	degraded  bool // fit on fewer than 2 usable rows; predictions are a constant mean
}

// Estimator holds one Model per lossless plan 1..NumPlans.
type Estimator struct {
	Dimension int
	NumJoins  int
	NumPlans  int
	Timeout   float64
	Models    map[int]*Model
}

// New allocates an estimator with zero-valued models for every plan.
func New(dimension, numJoins int, timeout float64) *Estimator {
	numPlans := planalgebra.NumPlans(dimension, numJoins, 0, false)
	e := &Estimator{
		Dimension: dimension,
		NumJoins:  numJoins,
		NumPlans:  numPlans,
		Timeout:   timeout,
		Models:    make(map[int]*Model, numPlans),
	}
	for p := 1; p <= numPlans; p++ {
		e.Models[p] = &Model{}
	}
	return e
}

// Fit trains plan p's model on rows x (each row a feature vector sized
// to len(planalgebra.SelIDsOfPlan(p,...))) against targets y, dropping
// rows whose target is at or above the timeout before fitting unless
// that would leave no rows, in which case every row is used. Falls
// back to a constant (mean) model when fewer than 2 rows remain to fit,
// matching the teacher estimator's degenerate-fit behavior.
func (e *Estimator) Fit(p int, x [][]float64, y []float64) error {
	model, ok := e.Models[p]
	if !ok {
		return fmt.Errorf("plan %d: %w", p, errs.InvalidPlan)
	}
	if len(x) != len(y) {
		return fmt.Errorf("plan %d: %d feature rows vs %d targets: %w", p, len(x), len(y), errs.SchemaMismatch)
	}

	var fx [][]float64
	var fy []float64
	for i, target := range y {
		if target < e.Timeout {
			fx = append(fx, x[i])
			fy = append(fy, target)
		}
	}
	if len(fx) == 0 {
		// Every row timed out: fit on the full set instead.
		fx, fy = x, y
	}
	if len(fx) < 2 {
		model.degraded = true
		model.Coef = nil
		model.Intercept = mean(fy)
		return nil
	}

	rows := len(fx)
	cols := len(fx[0])
	// Design matrix with an intercept column of ones.
	xd := mat.NewDense(rows, cols+1, nil)
	for i, row := range fx {
		xd.Set(i, 0, 1)
		for j, v := range row {
			xd.Set(i, j+1, v)
		}
	}
	yd := mat.NewVecDense(rows, fy)

	var xtx mat.Dense
	xtx.Mul(xd.T(), xd)
	var xty mat.VecDense
	xty.MulVec(xd.T(), yd)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		// Singular design (degenerate/duplicate features): fall back
		// to the sample mean rather than fail the whole training run.
		model.degraded = true
		model.Coef = nil
		model.Intercept = mean(fy)
		return nil
	}
	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	model.degraded = false
	model.Intercept = beta.AtVec(0)
	model.Coef = make([]float64, cols)
	for j := 0; j < cols; j++ {
		model.Coef[j] = beta.AtVec(j + 1)
	}
	return nil
}

// Predict returns plan p's estimated time for the single feature row x.
// In "analyze" mode the prediction is clipped to [0, Timeout]; in
// "application" mode (the default) it is returned unclipped.
func (e *Estimator) Predict(p int, x []float64, mode string) (float64, error) {
	model, ok := e.Models[p]
	if !ok {
		return 0, fmt.Errorf("plan %d: %w", p, errs.InvalidPlan)
	}
	var y float64
	if model.degraded || model.Coef == nil {
		y = model.Intercept
	} else {
		y = model.Intercept
		for j, c := range model.Coef {
			if j < len(x) {
				y += c * x[j]
			}
		}
	}
	if mode == "analyze" {
		if y < 0 {
			y = 0
		}
		if y > e.Timeout {
			y = e.Timeout
		}
	}
	return y, nil
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// persisted is the gob-encoded shape written by Save / read by Load.
// No serialization library appears anywhere in the retrieved corpus;
// gob is the one stdlib fallback this module takes deliberately, since
// these model blobs never leave the process and need no cross-language
// portability.
type persisted struct {
	Dimension int
	NumJoins  int
	NumPlans  int
	Timeout   float64
	Models    map[int]*Model
}

// Save writes every plan's model to a single gob file at path.
func (e *Estimator) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer f.Close()
	p := persisted{
		Dimension: e.Dimension,
		NumJoins:  e.NumJoins,
		NumPlans:  e.NumPlans,
		Timeout:   e.Timeout,
		Models:    e.Models,
	}
	return gob.NewEncoder(f).Encode(p)
}

// Load reads an estimator previously written by Save.
func Load(path string) (*Estimator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, errs.IOMissing)
	}
	defer f.Close()
	var p persisted
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Estimator{
		Dimension: p.Dimension,
		NumJoins:  p.NumJoins,
		NumPlans:  p.NumPlans,
		Timeout:   p.Timeout,
		Models:    p.Models,
	}, nil
}
