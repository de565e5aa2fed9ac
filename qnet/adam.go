package qnet

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam implements the Adam optimizer update rule, matching the
// teacher's own stack choice of an adaptive first/second-moment
// optimizer rather than plain SGD.
type Adam struct {
	LR, Beta1, Beta2, Eps float64
	t                     int

	mW1, vW1, mB1, vB1 *mat.Dense
	mW2, vW2, mB2, vB2 *mat.Dense
	mW3, vW3, mB3, vB3 *mat.Dense
}

// NewAdam returns an Adam optimizer bound to n's parameter shapes with
// the conventional beta/eps defaults.
func NewAdam(n *Network, lr float64) *Adam {
	zeros := func(d *mat.Dense) *mat.Dense {
		r, c := d.Dims()
		return mat.NewDense(r, c, nil)
	}
	return &Adam{
		LR: lr, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8,
		mW1: zeros(n.W1), vW1: zeros(n.W1), mB1: zeros(n.B1), vB1: zeros(n.B1),
		mW2: zeros(n.W2), vW2: zeros(n.W2), mB2: zeros(n.B2), vB2: zeros(n.B2),
		mW3: zeros(n.W3), vW3: zeros(n.W3), mB3: zeros(n.B3), vB3: zeros(n.B3),
	}
}

// Step applies one Adam update to every parameter of n using gradients g.
func (a *Adam) Step(n *Network, g *Gradients) {
	a.t++
	update(a, n.W1, g.DW1, a.mW1, a.vW1)
	update(a, n.B1, g.DB1, a.mB1, a.vB1)
	update(a, n.W2, g.DW2, a.mW2, a.vW2)
	update(a, n.B2, g.DB2, a.mB2, a.vB2)
	update(a, n.W3, g.DW3, a.mW3, a.vW3)
	update(a, n.B3, g.DB3, a.mB3, a.vB3)
}

func update(a *Adam, param, grad, m, v *mat.Dense) {
	r, c := param.Dims()
	b1t := 1 - math.Pow(a.Beta1, float64(a.t))
	b2t := 1 - math.Pow(a.Beta2, float64(a.t))
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			gij := grad.At(i, j)
			mij := a.Beta1*m.At(i, j) + (1-a.Beta1)*gij
			vij := a.Beta2*v.At(i, j) + (1-a.Beta2)*gij*gij
			m.Set(i, j, mij)
			v.Set(i, j, vij)
			mHat := mij / b1t
			vHat := vij / b2t
			param.Set(i, j, param.At(i, j)-a.LR*mHat/(math.Sqrt(vHat)+a.Eps))
		}
	}
}
