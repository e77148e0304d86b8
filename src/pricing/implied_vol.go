package pricing

import (
	"github.com/jiaming2012/option-arb/src/eventmodels"
)

const (
	impliedVolLowerBound = 1e-5
	impliedVolUpperBound = 10.0
	impliedVolTolerance  = 1e-8
	impliedVolMaxIters   = 100
)

// ImpliedVolatility inverts the Barone-Adesi Whaley price by bisection.
// The bracket [1e-5, 10] covers any realistic equity option vol.
func ImpliedVolatility(optionType eventmodels.OptionType, optionPrice, s, k, r, t, q float64) float64 {
	lower := impliedVolLowerBound
	upper := impliedVolUpperBound
	mid := (lower + upper) / 2

	for i := 0; i < impliedVolMaxIters; i++ {
		mid = (lower + upper) / 2
		price := Price(optionType, s, k, t, r, mid, q)

		diff := price - optionPrice
		if diff < 0 {
			diff = -diff
		}

		if diff < impliedVolTolerance {
			return mid
		}

		if price > optionPrice {
			upper = mid
		} else {
			lower = mid
		}

		if upper-lower < impliedVolTolerance {
			break
		}
	}

	return mid
}
