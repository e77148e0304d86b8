package pricing

import (
	"math"

	"github.com/chobie/go-gaussian"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

var norm = gaussian.NewGaussian(0, 1)

// Price returns the Barone-Adesi Whaley American option price with a
// continuous dividend yield q. Degenerates to the European Black-Scholes
// price whenever the early-exercise premium does not apply.
func Price(optionType eventmodels.OptionType, s, k, t, r, sigma, q float64) float64 {
	m := 2 * (r - q) / (sigma * sigma)
	n := 2 * (r - q - 0.5*sigma*sigma) / (sigma * sigma)
	q2 := (-(n - 1) - math.Sqrt((n-1)*(n-1)+4*m)) / 2

	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
	d2 := d1 - sigma*math.Sqrt(t)

	if optionType == eventmodels.OptionTypeCall {
		european := s*math.Exp(-q*t)*norm.Cdf(d1) - k*math.Exp(-r*t)*norm.Cdf(d2)

		if q >= r || q2 < 0 {
			return european
		}

		sCritical := k / (1 - 1/q2)
		if s >= sCritical {
			return s - k
		}

		a2 := (sCritical - k) * math.Pow(sCritical, -q2)
		return european + a2*math.Pow(s/sCritical, q2)
	}

	european := k*math.Exp(-r*t)*norm.Cdf(-d2) - s*math.Exp(-q*t)*norm.Cdf(-d1)

	if q >= r || q2 < 0 {
		return european
	}

	sCritical := k / (1 + 1/q2)
	if s <= sCritical {
		return k - s
	}

	a2 := (k - sCritical) * math.Pow(sCritical, -q2)
	return european + a2*math.Pow(s/sCritical, q2)
}

// Delta returns the Black-Scholes delta at the given volatility.
func Delta(optionType eventmodels.OptionType, s, k, t, r, sigma, q float64) float64 {
	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))

	if optionType == eventmodels.OptionTypeCall {
		return norm.Cdf(d1)
	}

	return norm.Cdf(d1) - 1
}
