package surface

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/pricing"
)

var (
	fitNow        = time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	fitExpiration = fitNow.Add(90 * 24 * time.Hour)
)

// syntheticFitInput builds a chain whose mid prices reproduce the smile ivAt
// exactly, so a good fit should recover ivAt along the strike range.
func syntheticFitInput(t *testing.T, spot, r, q float64, strikes []float64, ivAt func(k float64) float64) FitInput {
	t.Helper()

	tYears := fitExpiration.Sub(fitNow).Seconds() / (365.0 * 24 * 3600)

	var contracts []*eventmodels.OptionContract
	for _, strike := range strikes {
		k := math.Log(strike / spot)
		iv := ivAt(k)

		price := pricing.Price(eventmodels.OptionTypeCall, spot, strike, tYears, r, iv, q)
		if price <= 0.05 {
			continue
		}

		contracts = append(contracts, makeContract(strike, eventmodels.OptionTypeCall, price-0.02, price+0.02, 500, fitExpiration))
	}

	snapshot := makeSnapshot(spot, contracts)
	snapshot.Expiration = fitExpiration
	snapshot.ObservedAt = fitNow

	return FitInput{
		Snapshot:      snapshot,
		Spot:          spot,
		RiskFreeRate:  r,
		DividendYield: q,
		Now:           fitNow,
	}
}

func defaultStrikes() []float64 {
	return []float64{80, 85, 90, 95, 100, 105, 110, 115, 120}
}

func TestFitSurfaceErrors(t *testing.T) {
	smile := func(k float64) float64 { return 0.2 + 0.5*k*k }

	t.Run("expired chain", func(t *testing.T) {
		input := syntheticFitInput(t, 100, 0.05, 0, defaultStrikes(), smile)
		input.Now = fitExpiration.Add(time.Hour)

		_, err := FitSurface(input, eventmodels.SurfaceModelRFV)
		assert.ErrorIs(t, err, ErrDegenerateInput)
	})

	t.Run("too few points", func(t *testing.T) {
		input := syntheticFitInput(t, 100, 0.05, 0, []float64{95, 105}, smile)

		_, err := FitSurface(input, eventmodels.SurfaceModelRFV)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("invalid spot", func(t *testing.T) {
		input := syntheticFitInput(t, 100, 0.05, 0, defaultStrikes(), smile)
		input.Spot = 0

		_, err := FitSurface(input, eventmodels.SurfaceModelRBF)
		assert.ErrorIs(t, err, ErrDegenerateInput)
	})

	t.Run("unknown model", func(t *testing.T) {
		input := syntheticFitInput(t, 100, 0.05, 0, defaultStrikes(), smile)

		_, err := FitSurface(input, eventmodels.SurfaceModelType("spline"))
		assert.Error(t, err)
	})
}
