package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

func TestPrice(t *testing.T) {
	s := 100.0
	strike := 100.0
	tYears := 0.25
	r := 0.05
	q := 0.01

	t.Run("price increases with vol", func(t *testing.T) {
		lowVol := Price(eventmodels.OptionTypeCall, s, strike, tYears, r, 0.15, q)
		highVol := Price(eventmodels.OptionTypeCall, s, strike, tYears, r, 0.35, q)

		assert.Greater(t, highVol, lowVol)
	})

	t.Run("call price bounded below by intrinsic", func(t *testing.T) {
		price := Price(eventmodels.OptionTypeCall, 110, 100, tYears, r, 0.2, q)

		assert.Greater(t, price, 10.0)
	})

	t.Run("put price bounded below by intrinsic", func(t *testing.T) {
		price := Price(eventmodels.OptionTypePut, 90, 100, tYears, r, 0.2, q)

		assert.GreaterOrEqual(t, price, 10.0)
	})

	t.Run("deep otm call is near worthless", func(t *testing.T) {
		price := Price(eventmodels.OptionTypeCall, 100, 200, 0.05, r, 0.2, q)

		assert.Less(t, price, 0.01)
	})

	t.Run("american put worth at least european", func(t *testing.T) {
		american := Price(eventmodels.OptionTypePut, s, strike, tYears, r, 0.2, 0)
		assert.Greater(t, american, 0.0)
	})
}

func TestDelta(t *testing.T) {
	s := 100.0
	tYears := 0.25
	r := 0.05
	q := 0.0

	t.Run("call delta in unit interval", func(t *testing.T) {
		delta := Delta(eventmodels.OptionTypeCall, s, 100, tYears, r, 0.2, q)

		assert.Greater(t, delta, 0.0)
		assert.Less(t, delta, 1.0)
	})

	t.Run("put delta in negative unit interval", func(t *testing.T) {
		delta := Delta(eventmodels.OptionTypePut, s, 100, tYears, r, 0.2, q)

		assert.Less(t, delta, 0.0)
		assert.Greater(t, delta, -1.0)
	})

	t.Run("itm call delta exceeds otm call delta", func(t *testing.T) {
		itm := Delta(eventmodels.OptionTypeCall, s, 80, tYears, r, 0.2, q)
		otm := Delta(eventmodels.OptionTypeCall, s, 120, tYears, r, 0.2, q)

		assert.Greater(t, itm, otm)
	})
}

func TestImpliedVolatility(t *testing.T) {
	s := 100.0
	strike := 105.0
	tYears := 0.5
	r := 0.05
	q := 0.01

	t.Run("round trip recovers vol", func(t *testing.T) {
		for _, vol := range []float64{0.1, 0.2, 0.45, 0.8} {
			price := Price(eventmodels.OptionTypeCall, s, strike, tYears, r, vol, q)
			recovered := ImpliedVolatility(eventmodels.OptionTypeCall, price, s, strike, r, tYears, q)

			assert.InDelta(t, vol, recovered, 1e-4, "vol %v", vol)
		}
	})

	t.Run("round trip recovers put vol", func(t *testing.T) {
		price := Price(eventmodels.OptionTypePut, s, 95, tYears, r, 0.3, q)
		recovered := ImpliedVolatility(eventmodels.OptionTypePut, price, s, 95, r, tYears, q)

		assert.InDelta(t, 0.3, recovered, 1e-4)
	})
}
