package surface

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

// Ridge term keeping the interpolation matrix well conditioned when two
// strikes sit very close together on the log-moneyness axis.
const rbfSmoothing = 1e-12

// fitRBF solves the multiquadric interpolation weights as a dense linear
// system. The shape parameter epsilon defaults to the mean gap between
// neighboring log-moneyness values.
func fitRBF(points []fitPoint) (*eventmodels.RBFParameters, error) {
	n := len(points)

	centers := make([]float64, n)
	ivs := make([]float64, n)
	for i, p := range points {
		centers[i] = p.k
		ivs[i] = p.iv
	}

	epsilon := meanGap(centers)
	if epsilon <= 0 || math.IsNaN(epsilon) {
		return nil, fmt.Errorf("fitRBF: invalid shape parameter %.6g: %w", epsilon, ErrDegenerateInput)
	}

	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, eventmodels.Multiquadric(centers[i]-centers[j], epsilon))
		}
		a.Set(i, i, a.At(i, i)+rbfSmoothing)
	}

	y := mat.NewVecDense(n, ivs)

	var w mat.VecDense
	if err := w.SolveVec(a, y); err != nil {
		return nil, fmt.Errorf("fitRBF: failed to solve interpolation system: %w", ErrNonConvergence)
	}

	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = w.AtVec(i)
	}

	params := &eventmodels.RBFParameters{
		Centers: centers,
		Weights: weights,
		Epsilon: epsilon,
	}
	params.Residual = rmsResidual(params, points)

	return params, nil
}

func meanGap(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	total := 0.0
	for i := 1; i < len(sorted); i++ {
		total += sorted[i] - sorted[i-1]
	}

	return total / float64(len(sorted)-1)
}
