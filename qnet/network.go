// Package qnet implements the small feed-forward Q-network used by the
// trainer and agent: a 3-layer fully-connected net (ReLU, ReLU, linear)
// mapping a state tensor to one Q-value per plan. Forward, backward, and
// the optimizer are hand-rolled over gonum/mat rather than built on an
// autodiff framework, since no such framework appears anywhere in the
// network's own training loop (only plain matrix algebra).
package qnet

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Network is the policy/target Q-network. Layer widths follow the
// teacher sizing 2P+1 -> P -> 2P -> P, where P is the plan count.
type Network struct {
	InSize, H1, H2, OutSize int

	W1, B1 *mat.Dense // H1 x InSize, H1 x 1
	W2, B2 *mat.Dense // H2 x H1, H2 x 1
	W3, B3 *mat.Dense // OutSize x H2, OutSize x 1
}

// Cache holds the intermediate activations of one forward pass, needed
// by Backward.
type Cache struct {
	X  *mat.Dense // InSize x 1
	Z1 *mat.Dense // H1 x 1, pre-activation
	A1 *mat.Dense // H1 x 1, post-ReLU
	Z2 *mat.Dense // H2 x 1
	A2 *mat.Dense // H2 x 1, post-ReLU
	Z3 *mat.Dense // OutSize x 1, linear output (no activation)
}

// Gradients holds dL/dParam for every weight and bias matrix.
type Gradients struct {
	DW1, DB1 *mat.Dense
	DW2, DB2 *mat.Dense
	DW3, DB3 *mat.Dense
}

// New builds a randomly-initialized network sized for numPlans actions.
// init is called once per weight, row by row, to supply its initial
// value (biases start at zero); pass a small-uniform-random generator
// in production, a fixed seed in tests.
func New(numPlans int, init func() float64) *Network {
	inSize := 2*numPlans + 1
	h1 := numPlans
	h2 := 2 * numPlans
	out := numPlans

	n := &Network{
		InSize:  inSize,
		H1:      h1,
		H2:      h2,
		OutSize: out,
		W1:      randDense(h1, inSize, init),
		B1:      mat.NewDense(h1, 1, nil),
		W2:      randDense(h2, h1, init),
		B2:      mat.NewDense(h2, 1, nil),
		W3:      randDense(out, h2, init),
		B3:      mat.NewDense(out, 1, nil),
	}
	return n
}

func randDense(rows, cols int, init func() float64) *mat.Dense {
	d := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			d.Set(r, c, init())
		}
	}
	return d
}

// Forward runs x through the network, returning the Q-value for every
// plan and the cache Backward needs.
func (n *Network) Forward(x []float64) ([]float64, *Cache) {
	xd := mat.NewDense(n.InSize, 1, append([]float64(nil), x...))

	z1 := addBias(matMul(n.W1, xd), n.B1)
	a1 := relu(z1)

	z2 := addBias(matMul(n.W2, a1), n.B2)
	a2 := relu(z2)

	z3 := addBias(matMul(n.W3, a2), n.B3)

	out := make([]float64, n.OutSize)
	for i := 0; i < n.OutSize; i++ {
		out[i] = z3.At(i, 0)
	}
	return out, &Cache{X: xd, Z1: z1, A1: a1, Z2: z2, A2: a2, Z3: z3}
}

// Backward computes dL/dParam given dL/dOut (the gradient of the loss
// with respect to the network's raw output, e.g. 2*(pred-target) at the
// selected action index and 0 elsewhere for an MSE loss on one action).
func (n *Network) Backward(c *Cache, dOut []float64) *Gradients {
	dz3 := mat.NewDense(n.OutSize, 1, append([]float64(nil), dOut...))

	dW3 := matMul(dz3, c.A2.T())
	dB3 := dz3

	da2 := matMul(n.W3.T(), dz3)
	dz2 := hadamardReLUGrad(da2, c.Z2)

	dW2 := matMul(dz2, c.A1.T())
	dB2 := dz2

	da1 := matMul(n.W2.T(), dz2)
	dz1 := hadamardReLUGrad(da1, c.Z1)

	dW1 := matMul(dz1, c.X.T())
	dB1 := dz1

	return &Gradients{DW1: dW1, DB1: dB1, DW2: dW2, DB2: dB2, DW3: dW3, DB3: dB3}
}

// Clone deep-copies the network, used by replay.ModelMemory.Push to
// snapshot the policy network.
func (n *Network) Clone() *Network {
	clone := func(d *mat.Dense) *mat.Dense {
		var c mat.Dense
		c.CloneFrom(d)
		return &c
	}
	return &Network{
		InSize: n.InSize, H1: n.H1, H2: n.H2, OutSize: n.OutSize,
		W1: clone(n.W1), B1: clone(n.B1),
		W2: clone(n.W2), B2: clone(n.B2),
		W3: clone(n.W3), B3: clone(n.B3),
	}
}

// SyncFrom overwrites n's weights with other's, used to refresh the
// target network from the policy network on the configured cadence.
func (n *Network) SyncFrom(other *Network) error {
	if n.InSize != other.InSize || n.H1 != other.H1 || n.H2 != other.H2 || n.OutSize != other.OutSize {
		return fmt.Errorf("qnet: shape mismatch syncing target network")
	}
	n.W1.CloneFrom(other.W1)
	n.B1.CloneFrom(other.B1)
	n.W2.CloneFrom(other.W2)
	n.B2.CloneFrom(other.B2)
	n.W3.CloneFrom(other.W3)
	n.B3.CloneFrom(other.B3)
	return nil
}

// persisted is the gob-serializable shape of a Network's raw matrix
// data. Like estimator.Save/Load, this is the one stdlib fallback this
// module takes deliberately, since no serialization library appears
// anywhere in the retrieved corpus.
type persisted struct {
	InSize, H1, H2, OutSize int
	W1, B1, W2, B2, W3, B3  []float64
}

func flatten(d *mat.Dense) []float64 {
	r, c := d.Dims()
	out := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i*c+j] = d.At(i, j)
		}
	}
	return out
}

// Save persists n's weights to path via encoding/gob.
func (n *Network) Save(path string) error {
	p := persisted{
		InSize: n.InSize, H1: n.H1, H2: n.H2, OutSize: n.OutSize,
		W1: flatten(n.W1), B1: flatten(n.B1),
		W2: flatten(n.W2), B2: flatten(n.B2),
		W3: flatten(n.W3), B3: flatten(n.B3),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(p)
}

// Load restores a Network previously written by Save.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var p persisted
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return nil, err
	}
	n := &Network{
		InSize: p.InSize, H1: p.H1, H2: p.H2, OutSize: p.OutSize,
		W1: mat.NewDense(p.H1, p.InSize, p.W1),
		B1: mat.NewDense(p.H1, 1, p.B1),
		W2: mat.NewDense(p.H2, p.H1, p.W2),
		B2: mat.NewDense(p.H2, 1, p.B2),
		W3: mat.NewDense(p.OutSize, p.H2, p.W3),
		B3: mat.NewDense(p.OutSize, 1, p.B3),
	}
	return n, nil
}

func matMul(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

func addBias(m, bias *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Add(m, bias)
	return &out
}

func relu(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if v < 0 {
				v = 0
			}
			out.Set(i, j, v)
		}
	}
	return out
}

// hadamardReLUGrad multiplies upstream by the derivative of ReLU
// evaluated at preAct (1 where preAct>0, else 0).
func hadamardReLUGrad(upstream, preAct *mat.Dense) *mat.Dense {
	r, c := upstream.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if preAct.At(i, j) > 0 {
				out.Set(i, j, upstream.At(i, j))
			}
		}
	}
	return out
}
