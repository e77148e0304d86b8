package surface

import (
	"math"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/pricing"
)

// DetectMispricings compares each contract's market mid against the fitted
// surface's theoretical price and emits a signal for every contract whose
// relative deviation reaches minOverpriced. Contracts are assumed to have
// already passed the chain filter; no netting happens here.
func DetectMispricings(input FitInput, model eventmodels.SurfaceModel, minOverpriced float64) []*eventmodels.MispricingSignal {
	snapshot := input.Snapshot

	t := snapshot.Expiration.Sub(input.Now).Seconds() / (365.0 * 24 * 3600)
	if t <= 0 {
		return nil
	}

	var signals []*eventmodels.MispricingSignal

	for _, c := range snapshot.Contracts {
		mid := c.MidPrice()
		if mid <= 0 {
			continue
		}

		k := math.Log(c.Strike / input.Spot)

		iv := model.Evaluate(k)
		if iv <= 0 || math.IsNaN(iv) {
			continue
		}

		theo := pricing.Price(c.OptionType, input.Spot, c.Strike, t, input.RiskFreeRate, iv, input.DividendYield)
		if theo <= 0 || math.IsNaN(theo) {
			continue
		}

		mispricing := (mid - theo) / theo
		if math.Abs(mispricing) < minOverpriced {
			continue
		}

		direction := eventmodels.SignalDirectionSell
		if mispricing < 0 {
			direction = eventmodels.SignalDirectionBuy
		}

		signals = append(signals, &eventmodels.MispricingSignal{
			Contract:         c,
			MarketPrice:      mid,
			TheoreticalPrice: theo,
			Mispricing:       mispricing,
			Direction:        direction,
			ObservedAt:       snapshot.ObservedAt,
		})
	}

	return signals
}
