package surface

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

const weightEpsilon = 1e-8

// fitRFV fits the rational smile by weighted least squares, weighting each
// observation by the inverse of its quoted spread so tight markets dominate
// the fit. The gradient is approximated numerically by the optimizer.
func fitRFV(points []fitPoint) (*eventmodels.RFVParameters, error) {
	objective := func(x []float64) float64 {
		a, b, c, d, e := x[0], x[1], x[2], x[3], x[4]

		total := 0.0
		for _, p := range points {
			denom := 1 + d*p.k + e*p.k*p.k
			if math.Abs(denom) < 1e-8 {
				return math.MaxFloat64
			}

			weight := 1 / (p.spread + weightEpsilon)
			residual := (a+b*p.k+c*p.k*p.k)/denom - p.iv
			total += weight * residual * residual
		}

		return total
	}

	problem := optimize.Problem{Func: objective}
	initialGuess := []float64{0.2, 0.3, 0.1, 0.2, 0.1}

	result, err := optimize.Minimize(problem, initialGuess, nil, &optimize.LBFGS{})
	if err != nil {
		return nil, fmt.Errorf("fitRFV: %v: %w", err, ErrNonConvergence)
	}

	if math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return nil, fmt.Errorf("fitRFV: objective diverged: %w", ErrNonConvergence)
	}

	params := &eventmodels.RFVParameters{
		A: result.X[0],
		B: result.X[1],
		C: result.X[2],
		D: result.X[3],
		E: result.X[4],
	}
	params.Residual = rmsResidual(params, points)

	return params, nil
}
