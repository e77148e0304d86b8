package surface

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

func TestFitRBF(t *testing.T) {
	smile := func(k float64) float64 { return 0.22 + 0.6*k*k - 0.15*k }

	input := syntheticFitInput(t, 100, 0.05, 0.01, defaultStrikes(), smile)

	model, err := FitSurface(input, eventmodels.SurfaceModelRBF)
	assert.NoError(t, err)
	assert.Equal(t, eventmodels.SurfaceModelRBF, model.ModelType())

	t.Run("interpolates the observed smile", func(t *testing.T) {
		for _, strike := range defaultStrikes() {
			k := math.Log(strike / 100)

			assert.InDelta(t, smile(k), model.Evaluate(k), 0.01, "strike %v", strike)
		}
	})

	t.Run("smooth between strikes", func(t *testing.T) {
		k := math.Log(102.5 / 100)

		assert.InDelta(t, smile(k), model.Evaluate(k), 0.02)
	})

	t.Run("reports a small residual", func(t *testing.T) {
		assert.Less(t, model.FitResidual(), 0.01)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		again, err := FitSurface(input, eventmodels.SurfaceModelRBF)
		assert.NoError(t, err)

		for _, strike := range defaultStrikes() {
			k := math.Log(strike / 100)

			assert.Equal(t, model.Evaluate(k), again.Evaluate(k))
		}
	})
}
