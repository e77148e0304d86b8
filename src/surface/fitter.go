package surface

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/pricing"
)

var (
	ErrInsufficientData = errors.New("not enough usable points to fit a surface")
	ErrDegenerateInput  = errors.New("degenerate chain input")
	ErrNonConvergence   = errors.New("surface fit did not converge")
)

const minFitPoints = 3

// FitInput carries everything a fit needs besides the model selector.
type FitInput struct {
	Snapshot      *eventmodels.OptionChainSnapshot
	Spot          float64
	RiskFreeRate  float64
	DividendYield float64
	Now           time.Time
}

// fitPoint is one observation on the log-moneyness axis.
type fitPoint struct {
	k      float64
	iv     float64
	spread float64 // quoted ask - bid, drives the WLS weight
}

// FitSurface derives market IVs from the filtered chain's mid prices and
// fits the selected parametric model over log-moneyness. The returned model
// is immutable; the next cycle's fit supersedes it.
func FitSurface(input FitInput, model eventmodels.SurfaceModelType) (eventmodels.SurfaceModel, error) {
	points, err := buildFitPoints(input)
	if err != nil {
		return nil, err
	}

	switch model {
	case eventmodels.SurfaceModelRBF:
		return fitRBF(points)
	case eventmodels.SurfaceModelRFV:
		return fitRFV(points)
	default:
		return nil, fmt.Errorf("FitSurface: unknown surface model: %s", model)
	}
}

func buildFitPoints(input FitInput) ([]fitPoint, error) {
	snapshot := input.Snapshot

	if input.Spot <= 0 {
		return nil, fmt.Errorf("buildFitPoints: invalid spot price %.4f: %w", input.Spot, ErrDegenerateInput)
	}

	t := snapshot.Expiration.Sub(input.Now).Seconds() / (365.0 * 24 * 3600)
	if t <= 0 {
		return nil, fmt.Errorf("buildFitPoints: chain already expired: %w", ErrDegenerateInput)
	}

	var points []fitPoint

	for _, c := range snapshot.Contracts {
		mid := c.MidPrice()
		if mid <= 0 {
			continue
		}

		iv := pricing.ImpliedVolatility(c.OptionType, mid, input.Spot, c.Strike, input.RiskFreeRate, t, input.DividendYield)
		if iv <= 0 || math.IsNaN(iv) {
			continue
		}

		points = append(points, fitPoint{
			k:      math.Log(c.Strike / input.Spot),
			iv:     iv,
			spread: c.Ask - c.Bid,
		})
	}

	if len(points) < minFitPoints {
		return nil, fmt.Errorf("buildFitPoints: %d usable points: %w", len(points), ErrInsufficientData)
	}

	minK, maxK := points[0].k, points[0].k
	minIV, maxIV := points[0].iv, points[0].iv

	for _, p := range points[1:] {
		minK = math.Min(minK, p.k)
		maxK = math.Max(maxK, p.k)
		minIV = math.Min(minIV, p.iv)
		maxIV = math.Max(maxIV, p.iv)
	}

	if maxK-minK < 1e-9 {
		return nil, fmt.Errorf("buildFitPoints: zero strike spread: %w", ErrDegenerateInput)
	}

	if maxIV-minIV < 1e-9 {
		return nil, fmt.Errorf("buildFitPoints: all IVs identical: %w", ErrDegenerateInput)
	}

	return points, nil
}

func rmsResidual(model eventmodels.SurfaceModel, points []fitPoint) float64 {
	total := 0.0
	for _, p := range points {
		diff := model.Evaluate(p.k) - p.iv
		total += diff * diff
	}

	return math.Sqrt(total / float64(len(points)))
}
